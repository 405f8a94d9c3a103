package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/testutil"
)

func openWorkbook(t *testing.T, file *ExportFile) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestExportService_CourseAnalytics(t *testing.T) {
	env := newTestEnv(t)
	courses := NewCourseService(env.base)
	gamification := NewGamificationService(env.base, 100)
	svc := NewExportService(env.base, courses, gamification)
	progress := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	for i := 0; i < 3; i++ {
		learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
		_, _, err := progress.Enroll(ctx, course.ID, callerOf(learner))
		require.NoError(t, err)
	}

	_, err := svc.ExportCourseAnalytics(ctx, course.ID, callerOf(other))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ExportCourseAnalytics(ctx, "missing", callerOf(teacher))
	assert.ErrorIs(t, err, ErrCourseNotFound)

	file, err := svc.ExportCourseAnalytics(ctx, course.ID, callerOf(teacher))
	require.NoError(t, err)
	assert.Contains(t, file.FileName, course.ID)

	f := openWorkbook(t, file)
	assert.Equal(t, []string{summarySheet, enrollmentsSheet}, f.GetSheetList())

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(summary), 5)
	assert.Equal(t, []string{"Course", course.Title}, summary[0])
	assert.Equal(t, []string{"Total enrollments", "3"}, summary[4])

	rows, err := f.GetRows(enrollmentsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.Equal(t, "Enrollment ID", rows[0][0])
}

func TestExportService_Leaderboard(t *testing.T) {
	env := newTestEnv(t)
	gamification := NewGamificationService(env.base, 100)
	svc := NewExportService(env.base, NewCourseService(env.base), gamification)
	ctx := context.Background()

	top := testutil.SeedUser(t, env.db, models.RoleLearner, 500)
	testutil.SeedUser(t, env.db, models.RoleLearner, 100)

	file, err := svc.ExportLeaderboard(ctx, 10)
	require.NoError(t, err)

	f := openWorkbook(t, file)
	rows, err := f.GetRows(leaderboardSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Rank", "User ID", "Name", "XP", "Streak"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, top.ID, rows[1][1])
	assert.Equal(t, "500", rows[1][3])
}
