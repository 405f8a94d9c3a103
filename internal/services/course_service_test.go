package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/testutil"
)

func validCourseRequest() *CreateCourseRequest {
	return &CreateCourseRequest{
		Title:              "Intro to Robotics",
		AgeGroup:           models.AgeGroup14To17,
		Difficulty:         models.DifficultyBeginner,
		LearningObjectives: []string{"Build a line follower"},
	}
}

func TestCourseService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()

	t.Run("learner is forbidden and nothing is written", func(t *testing.T) {
		learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)

		course, err := svc.Create(ctx, validCourseRequest(), callerOf(learner))
		require.Error(t, err)
		assert.Nil(t, course)
		assert.ErrorIs(t, err, ErrForbidden)

		var count int64
		require.NoError(t, env.db.Model(&models.Course{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("teacher creates a draft", func(t *testing.T) {
		teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)

		course, err := svc.Create(ctx, validCourseRequest(), callerOf(teacher))
		require.NoError(t, err)
		assert.Equal(t, models.CourseStatusDraft, course.Status)
		assert.Equal(t, teacher.ID, course.CreatedByTeacherID)
		assert.JSONEq(t, `["Build a line follower"]`, string(course.LearningObjectives))
		assert.Len(t, env.publisher.EventsOfType(events.CourseCreated), 1)
	})

	t.Run("short title is a validation error", func(t *testing.T) {
		teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
		req := validCourseRequest()
		req.Title = "  ab  "

		_, err := svc.Create(ctx, req, callerOf(teacher))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})
}

func TestCourseService_ListDefaultsToPublished(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)

	published := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)

	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	admin := testutil.SeedUser(t, env.db, models.RoleAdmin, 0)
	testutil.SeedCourse(t, env.db, other.ID, models.CourseStatusDraft)

	courses, err := svc.List(ctx, CourseListFilters{}, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, published.ID, courses[0].ID)

	draft := models.CourseStatusDraft
	tests := []struct {
		name   string
		caller *Caller
		want   int
	}{
		{name: "anonymous sees no drafts", caller: nil, want: 0},
		{name: "teacher sees own drafts", caller: &Caller{ID: teacher.ID, Role: models.RoleTeacher}, want: 1},
		{name: "admin sees all drafts", caller: &Caller{ID: admin.ID, Role: models.RoleAdmin}, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			courses, err := svc.List(ctx, CourseListFilters{Status: &draft}, tt.caller)
			require.NoError(t, err)
			assert.Len(t, courses, tt.want)
			for _, c := range courses {
				assert.Equal(t, models.CourseStatusDraft, c.Status)
			}
		})
	}
}

func TestCourseService_GetHidesDrafts(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	draft := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)

	_, err := svc.Get(ctx, draft.ID, nil)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	otherCaller := callerOf(other)
	_, err = svc.Get(ctx, draft.ID, &otherCaller)
	assert.ErrorIs(t, err, ErrCourseNotFound)

	owner := callerOf(teacher)
	got, err := svc.Get(ctx, draft.ID, &owner)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestCourseService_StatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)

	published, err := svc.Publish(ctx, course.ID, callerOf(teacher))
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	archived, err := svc.Archive(ctx, course.ID, callerOf(teacher))
	require.NoError(t, err)
	assert.Equal(t, models.CourseStatusArchived, archived.Status)

	_, err = svc.Publish(ctx, course.ID, callerOf(teacher))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	title := "Renamed course"
	_, err = svc.Update(ctx, course.ID, &UpdateCourseRequest{Title: &title}, callerOf(teacher))
	assert.True(t, IsValidationError(err))

	assert.Len(t, env.publisher.EventsOfType(events.CoursePublished), 1)
	assert.Len(t, env.publisher.EventsOfType(events.CourseArchived), 1)
}

func TestCourseService_UpdateRequiresOwnership(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	owner := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	admin := testutil.SeedUser(t, env.db, models.RoleAdmin, 0)
	course := testutil.SeedCourse(t, env.db, owner.ID, models.CourseStatusDraft)

	title := "A better title"
	_, err := svc.Update(ctx, course.ID, &UpdateCourseRequest{Title: &title}, callerOf(other))
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, course.ID, &UpdateCourseRequest{Title: &title}, callerOf(admin))
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	_, err = svc.Update(ctx, "missing", &UpdateCourseRequest{Title: &title}, callerOf(admin))
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestCourseService_ModulesAndSessions(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)
	caller := callerOf(teacher)

	module, err := svc.CreateModule(ctx, course.ID, &CreateModuleRequest{SequenceOrder: 1, Title: "Basics"}, caller)
	require.NoError(t, err)

	t.Run("duplicate module order conflicts", func(t *testing.T) {
		_, err := svc.CreateModule(ctx, course.ID, &CreateModuleRequest{SequenceOrder: 1, Title: "Again"}, caller)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("learner cannot author", func(t *testing.T) {
		_, err := svc.CreateModule(ctx, course.ID, &CreateModuleRequest{SequenceOrder: 2, Title: "Nope"}, callerOf(learner))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	for i, title := range []string{"Motors", "Sensors"} {
		_, err := svc.CreateSession(ctx, module.ID, &CreateSessionRequest{SequenceOrder: i + 1, Title: title}, caller)
		require.NoError(t, err)
	}

	t.Run("duplicate session order conflicts", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, module.ID, &CreateSessionRequest{SequenceOrder: 1, Title: "Dup"}, caller)
		assert.ErrorIs(t, err, ErrConflict)
	})

	sessions, err := svc.ListSessions(ctx, module.ID, &caller)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, models.LessonVideo, sessions[0].LessonType)

	t.Run("draft content is hidden from others", func(t *testing.T) {
		modules, err := svc.ListModules(ctx, course.ID, &caller)
		require.NoError(t, err)
		require.Len(t, modules, 1)
		assert.Equal(t, module.ID, modules[0].ID)

		stranger := callerOf(learner)
		_, err = svc.ListModules(ctx, course.ID, nil)
		assert.ErrorIs(t, err, ErrCourseNotFound)
		_, err = svc.ListModules(ctx, course.ID, &stranger)
		assert.ErrorIs(t, err, ErrCourseNotFound)
		_, err = svc.ListSessions(ctx, module.ID, nil)
		assert.ErrorIs(t, err, ErrModuleNotFound)
		_, err = svc.ListSessions(ctx, module.ID, &stranger)
		assert.ErrorIs(t, err, ErrModuleNotFound)
	})

	reloaded, err := env.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.TotalLessons)

	require.NoError(t, svc.DeleteSession(ctx, sessions[0].ID, caller))
	reloaded, err = env.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.TotalLessons)

	require.NoError(t, svc.DeleteModule(ctx, module.ID, caller))

	_, err = svc.ListSessions(ctx, module.ID, &caller)
	assert.ErrorIs(t, err, ErrModuleNotFound)

	var remaining int64
	require.NoError(t, env.db.Model(&models.CourseSession{}).Where("module_id = ?", module.ID).Count(&remaining).Error)
	assert.Zero(t, remaining)

	reloaded, err = env.repo.Course().GetByID(ctx, nil, course.ID)
	require.NoError(t, err)
	assert.Zero(t, reloaded.TotalLessons)
}

func TestCourseService_GetAnalytics(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCourseService(env.base)
	ctx := context.Background()
	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)

	analytics, err := svc.GetAnalytics(ctx, course.ID, callerOf(teacher))
	require.NoError(t, err)
	assert.Zero(t, analytics.TotalEnrollments)
	assert.Zero(t, analytics.CompletionRate)
	assert.Zero(t, analytics.AverageProgress)

	_, err = svc.GetAnalytics(ctx, course.ID, callerOf(other))
	assert.ErrorIs(t, err, ErrForbidden)
}
