package postgres

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/testutil"
)

func TestEnrollmentPostgreSQL_UpdateProgress(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewEnrollmentPostgreSQL(db, nil)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusPublished)

	enrollment := &models.Enrollment{UserID: learner.ID, CourseID: course.ID, Status: models.EnrollmentActive}
	require.NoError(t, repo.Create(ctx, nil, enrollment))
	fresh := repositories.ProgressVersion{CompletedLessons: 0, Status: models.EnrollmentActive}

	enrollment.CompletedLessons = 2
	enrollment.ProgressPercentage = 40
	require.NoError(t, repo.UpdateProgress(ctx, nil, enrollment, fresh))

	t.Run("stale version is rejected", func(t *testing.T) {
		replay := *enrollment
		replay.CompletedLessons = 3
		err := repo.UpdateProgress(ctx, nil, &replay, fresh)
		assert.ErrorIs(t, err, repositories.ErrStaleProgress)

		stored, err := repo.GetByID(ctx, nil, enrollment.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stored.CompletedLessons)
		assert.Equal(t, 40, stored.ProgressPercentage)
	})

	t.Run("missing enrollment", func(t *testing.T) {
		err := repo.UpdateProgress(ctx, nil, &models.Enrollment{ID: "missing"}, fresh)
		assert.True(t, repositories.IsNotFoundError(err))
	})
}

func TestEnrollmentPostgreSQL_WritesDropCachedAnalytics(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewTestDB(t)
	courses := NewCoursePostgreSQL(db, client)
	enrollments := NewEnrollmentPostgreSQL(db, client)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, db, teacher.ID, models.CourseStatusPublished)
	key := "stats:course:" + course.ID + ":analytics"

	analytics, err := courses.GetAnalytics(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalEnrollments)
	assert.True(t, mr.Exists(key))

	enrollment := &models.Enrollment{UserID: learner.ID, CourseID: course.ID, Status: models.EnrollmentActive}
	require.NoError(t, enrollments.Create(ctx, nil, enrollment))
	assert.False(t, mr.Exists(key))

	analytics, err = courses.GetAnalytics(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.TotalEnrollments)

	enrollment.CompletedLessons = 1
	enrollment.ProgressPercentage = 100
	enrollment.Status = models.EnrollmentCompleted
	require.NoError(t, enrollments.UpdateProgress(ctx, nil, enrollment,
		repositories.ProgressVersion{CompletedLessons: 0, Status: models.EnrollmentActive}))
	assert.False(t, mr.Exists(key))

	analytics, err = courses.GetAnalytics(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), analytics.CompletedEnrollments)
	assert.Equal(t, 1.0, analytics.CompletionRate)
}
