package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/testutil"
)

func TestProgressService_Enroll(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProgressService(env.base, 10, 50)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)

	first, created, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.EnrollmentActive, first.Status)
	assert.Zero(t, first.ProgressPercentage)

	again, created, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, env.publisher.EventsOfType(events.EnrollmentCreated), 1)

	t.Run("draft course is not enrollable", func(t *testing.T) {
		draft := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)
		_, _, err := svc.Enroll(ctx, draft.ID, callerOf(learner))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown course", func(t *testing.T) {
		_, _, err := svc.Enroll(ctx, "missing", callerOf(learner))
		assert.ErrorIs(t, err, ErrCourseNotFound)
	})

	mine, err := svc.ListMyEnrollments(ctx, callerOf(learner))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Course)
	assert.Equal(t, course.ID, mine[0].Course.ID)
}

func TestProgressService_RecordProgress(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t).at(now)
	svc := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	stranger := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	require.NoError(t, env.db.Model(course).Update("total_lessons", 4).Error)

	enrollment, _, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)

	result, err := svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 2, ProgressPercentage: 99}, callerOf(learner))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Enrollment.CompletedLessons)
	assert.Equal(t, 50, result.Enrollment.ProgressPercentage)
	assert.Equal(t, 20, result.XPAwarded)
	assert.False(t, result.Completed)

	user, err := env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, user.XPPoints)
	assert.Equal(t, 1, user.CurrentStreak)
	require.NotNil(t, user.LastActiveDate)

	t.Run("decrease is rejected", func(t *testing.T) {
		_, err := svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 1}, callerOf(learner))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("other learners are forbidden", func(t *testing.T) {
		_, err := svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 3}, callerOf(stranger))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown enrollment", func(t *testing.T) {
		_, err := svc.RecordProgress(ctx, "missing", &ProgressUpdateRequest{CompletedLessons: 3}, callerOf(learner))
		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	})

	result, err = svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 10}, callerOf(learner))
	require.NoError(t, err)
	assert.Equal(t, 4, result.Enrollment.CompletedLessons)
	assert.Equal(t, 100, result.Enrollment.ProgressPercentage)
	assert.True(t, result.Completed)
	assert.Equal(t, 2*10+50, result.XPAwarded)
	require.NotNil(t, result.Enrollment.CompletedAt)
	assert.True(t, result.Enrollment.CompletedAt.Equal(now))

	// Repeating the final update awards nothing more
	result, err = svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 4}, callerOf(learner))
	require.NoError(t, err)
	assert.Zero(t, result.XPAwarded)
	assert.True(t, result.Completed)

	user, err = env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, user.XPPoints)
	assert.Equal(t, 1, user.CurrentStreak)

	assert.Len(t, env.publisher.EventsOfType(events.EnrollmentCompleted), 1)
	assert.Len(t, env.publisher.EventsOfType(events.UserXPAwarded), 2)

	stored, err := env.repo.Enrollment().GetByID(ctx, nil, enrollment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, stored.Status)
}

func TestProgressService_RecordProgressWithoutLessons(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)

	enrollment, _, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		result, err := svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 1000 * (i + 1), ProgressPercentage: 150}, callerOf(learner))
		require.NoError(t, err)
		assert.Zero(t, result.Enrollment.CompletedLessons)
		assert.Equal(t, 100, result.Enrollment.ProgressPercentage)
		assert.Zero(t, result.XPAwarded)
		assert.False(t, result.Completed)
	}

	user, err := env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Zero(t, user.XPPoints)
	assert.Empty(t, env.publisher.EventsOfType(events.UserXPAwarded))
}

func TestProgressService_ConcurrentUpdatesCreditOnce(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	require.NoError(t, env.db.Model(course).Update("total_lessons", 2).Error)

	enrollment, _, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)

	const workers = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordProgress(ctx, enrollment.ID, &ProgressUpdateRequest{CompletedLessons: 2}, callerOf(learner))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}

	user, err := env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*10+50, user.XPPoints)
	assert.Len(t, env.publisher.EventsOfType(events.EnrollmentCompleted), 1)
}

func TestProgressService_PublishFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t)
	svc := NewProgressService(env.base, 10, 50)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)

	env.publisher.FailWith(assert.AnError)

	enrollment, created, err := svc.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, enrollment.ID)
}

func TestNextStreak(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := today.AddDate(0, 0, offset).Add(15 * time.Hour)
		return &d
	}

	tests := []struct {
		name        string
		user        models.User
		wantStreak  int
		wantChanged bool
	}{
		{name: "first activity", user: models.User{}, wantStreak: 1, wantChanged: true},
		{name: "same day", user: models.User{CurrentStreak: 3, LastActiveDate: day(0)}, wantStreak: 3, wantChanged: false},
		{name: "consecutive day", user: models.User{CurrentStreak: 3, LastActiveDate: day(-1)}, wantStreak: 4, wantChanged: true},
		{name: "gap resets", user: models.User{CurrentStreak: 7, LastActiveDate: day(-3)}, wantStreak: 1, wantChanged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			streak, changed := nextStreak(&tt.user, today)
			assert.Equal(t, tt.wantStreak, streak)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}
