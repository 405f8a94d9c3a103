// Package testutil provides in-memory stores for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nduva/learning-service/internal/models"
)

// NewTestDB opens a private in-memory SQLite database with the full schema.
// A single connection serialises access so concurrent callers share one view.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// SeedUser inserts a user with the given role and XP
func SeedUser(t testing.TB, db *gorm.DB, role models.UserRole, xp int) *models.User {
	t.Helper()

	name := "User " + uuid.NewString()[:8]
	user := &models.User{
		FullName: name,
		Role:     role,
		XPPoints: xp,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// SeedCourse inserts a course owned by teacherID with the given status
func SeedCourse(t testing.TB, db *gorm.DB, teacherID string, status models.CourseStatus) *models.Course {
	t.Helper()

	course := &models.Course{
		Title:              "Course " + uuid.NewString()[:8],
		CreatedByTeacherID: teacherID,
		AgeGroup:           models.AgeGroup14To17,
		Difficulty:         models.DifficultyBeginner,
		Status:             status,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

// SeedSession inserts a new module into the course holding one session of
// the given lesson type
func SeedSession(t testing.TB, db *gorm.DB, courseID string, lessonType models.LessonType) *models.CourseSession {
	t.Helper()

	var modules int64
	require.NoError(t, db.Model(&models.Module{}).Where("course_id = ?", courseID).Count(&modules).Error)
	module := &models.Module{
		CourseID:      courseID,
		SequenceOrder: int(modules) + 1,
		Title:         "Module " + uuid.NewString()[:8],
	}
	require.NoError(t, db.Create(module).Error)

	session := &models.CourseSession{
		ModuleID:      module.ID,
		SequenceOrder: 1,
		Title:         "Session " + uuid.NewString()[:8],
		LessonType:    lessonType,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}
