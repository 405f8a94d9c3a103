package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/testutil"
)

func TestCoursePostgreSQL_ListFilters(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCoursePostgreSQL(db, nil)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)

	published := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusPublished)
	testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusDraft)
	testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusArchived)

	status := models.CourseStatusPublished
	courses, err := repo.List(ctx, nil, repositories.CourseFilters{Status: &status})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, published.ID, courses[0].ID)

	advanced := models.DifficultyAdvanced
	courses, err = repo.List(ctx, nil, repositories.CourseFilters{Status: &status, Difficulty: &advanced})
	require.NoError(t, err)
	assert.Empty(t, courses)

	all, err := repo.ListByTeacher(ctx, nil, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCoursePostgreSQL_RecountLessonsAndContent(t *testing.T) {
	db := testutil.NewTestDB(t)
	courses := NewCoursePostgreSQL(db, nil)
	modules := NewModulePostgreSQL(db)
	sessions := NewSessionPostgreSQL(db)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusDraft)

	m2 := &models.Module{CourseID: course.ID, SequenceOrder: 2, Title: "Second"}
	m1 := &models.Module{CourseID: course.ID, SequenceOrder: 1, Title: "First"}
	require.NoError(t, modules.Create(ctx, nil, m2))
	require.NoError(t, modules.Create(ctx, nil, m1))

	for i, moduleID := range []string{m1.ID, m1.ID, m2.ID} {
		require.NoError(t, sessions.Create(ctx, nil, &models.CourseSession{
			ModuleID:      moduleID,
			SequenceOrder: i + 1,
			Title:         "Lesson",
			LessonType:    models.LessonVideo,
		}))
	}

	total, err := courses.RecountLessons(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	loaded, err := courses.GetByIDWithContent(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.TotalLessons)
	require.Len(t, loaded.Modules, 2)
	assert.Equal(t, "First", loaded.Modules[0].Title)
	assert.Len(t, loaded.Modules[0].Sessions, 2)
	assert.Len(t, loaded.Modules[1].Sessions, 1)
}

func TestModulePostgreSQL_DuplicateSequenceOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	modules := NewModulePostgreSQL(db)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusDraft)

	require.NoError(t, modules.Create(ctx, nil, &models.Module{CourseID: course.ID, SequenceOrder: 1, Title: "A"}))
	err := modules.Create(ctx, nil, &models.Module{CourseID: course.ID, SequenceOrder: 1, Title: "B"})

	assert.True(t, repositories.IsDuplicateError(err))
}

func TestCoursePostgreSQL_GetAnalytics(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCoursePostgreSQL(db, nil)
	enrollments := NewEnrollmentPostgreSQL(db, nil)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusPublished)

	t.Run("no enrollments yields zero rates", func(t *testing.T) {
		analytics, err := repo.GetAnalytics(ctx, nil, course.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), analytics.TotalEnrollments)
		assert.Equal(t, 0.0, analytics.CompletionRate)
		assert.Equal(t, 0.0, analytics.AverageProgress)
	})

	t.Run("aggregates by status", func(t *testing.T) {
		rows := []struct {
			status   models.EnrollmentStatus
			progress int
		}{
			{models.EnrollmentCompleted, 100},
			{models.EnrollmentActive, 40},
			{models.EnrollmentActive, 20},
			{models.EnrollmentDropped, 0},
		}
		for _, row := range rows {
			learner := testutil.SeedUser(t, db, models.RoleLearner, 0)
			require.NoError(t, enrollments.Create(ctx, nil, &models.Enrollment{
				UserID:             learner.ID,
				CourseID:           course.ID,
				Status:             row.status,
				ProgressPercentage: row.progress,
			}))
		}

		analytics, err := repo.GetAnalytics(ctx, nil, course.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(4), analytics.TotalEnrollments)
		assert.Equal(t, int64(2), analytics.ActiveEnrollments)
		assert.Equal(t, int64(1), analytics.CompletedEnrollments)
		assert.Equal(t, int64(1), analytics.DroppedEnrollments)
		assert.InDelta(t, 0.25, analytics.CompletionRate, 1e-9)
		assert.InDelta(t, 40.0, analytics.AverageProgress, 1e-9)
	})
}
