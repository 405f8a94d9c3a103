package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/testutil"
	"github.com/nduva/learning-service/internal/validator"
)

func intPtr(n int) *int {
	return &n
}

func sampleQuizRequest() *CreateQuizRequest {
	return &CreateQuizRequest{
		Title:            "Plants",
		TimeLimitMinutes: intPtr(5),
		MaxAttempts:      intPtr(3),
		XPReward:         30,
		Questions: []validator.QuizQuestionRequest{
			{
				QuestionText:  "Which part absorbs water?",
				QuestionType:  models.QuestionMultipleChoice,
				Options:       []string{"leaf", "root", "flower"},
				CorrectAnswer: json.RawMessage(`["root"]`),
				Explanation:   strPtr("Roots take up water from the soil"),
			},
			{
				QuestionText:  "Plants need light.",
				QuestionType:  models.QuestionTrueFalse,
				CorrectAnswer: json.RawMessage(`true`),
			},
			{
				QuestionText:  "How do plants make food?",
				QuestionType:  models.QuestionShortAnswer,
				CorrectAnswer: json.RawMessage(`["photosynthesis"]`),
			},
		},
	}
}

// answersFor keys answers by question order
func answersFor(quiz *models.Quiz, answers ...string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(answers))
	for i, a := range answers {
		out[quiz.Questions[i].ID] = json.RawMessage(a)
	}
	return out
}

func TestQuizService_CreateQuiz(t *testing.T) {
	env := newTestEnv(t)
	svc := NewQuizService(env.base)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	other := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	quizSession := testutil.SeedSession(t, env.db, course.ID, models.LessonQuiz)
	videoSession := testutil.SeedSession(t, env.db, course.ID, models.LessonVideo)

	t.Run("learners cannot author", func(t *testing.T) {
		_, err := svc.CreateQuiz(ctx, quizSession.ID, sampleQuizRequest(), callerOf(learner))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("other teachers cannot author", func(t *testing.T) {
		_, err := svc.CreateQuiz(ctx, quizSession.ID, sampleQuizRequest(), callerOf(other))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("only quiz sessions take quizzes", func(t *testing.T) {
		_, err := svc.CreateQuiz(ctx, videoSession.ID, sampleQuizRequest(), callerOf(teacher))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("answer key must match the options", func(t *testing.T) {
		req := sampleQuizRequest()
		req.Questions[0].CorrectAnswer = json.RawMessage(`["stem"]`)
		_, err := svc.CreateQuiz(ctx, quizSession.ID, req, callerOf(teacher))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.CreateQuiz(ctx, "missing", sampleQuizRequest(), callerOf(teacher))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	quiz, err := svc.CreateQuiz(ctx, quizSession.ID, sampleQuizRequest(), callerOf(teacher))
	require.NoError(t, err)
	assert.Equal(t, 70, quiz.PassingScorePercentage)
	assert.Equal(t, 3, quiz.MaxAttempts)
	assert.Equal(t, 30, quiz.TotalPoints())
	require.Len(t, quiz.Questions, 3)
	assert.Equal(t, 1, quiz.Questions[0].SequenceOrder)
	assert.Equal(t, 10, quiz.Questions[0].Points)

	_, err = svc.CreateQuiz(ctx, quizSession.ID, sampleQuizRequest(), callerOf(teacher))
	assert.ErrorIs(t, err, ErrConflict)

	t.Run("learners do not see answer keys", func(t *testing.T) {
		for _, caller := range []*Caller{nil, {ID: learner.ID, Role: learner.Role}} {
			got, err := svc.GetQuiz(ctx, quizSession.ID, caller)
			require.NoError(t, err)
			require.Len(t, got.Questions, 3)
			for _, q := range got.Questions {
				assert.Nil(t, q.CorrectAnswer)
				assert.Nil(t, q.Explanation)
			}
		}
	})

	t.Run("owner sees answer keys", func(t *testing.T) {
		owner := callerOf(teacher)
		got, err := svc.GetQuiz(ctx, quizSession.ID, &owner)
		require.NoError(t, err)
		assert.JSONEq(t, `["root"]`, string(got.Questions[0].CorrectAnswer))
	})

	t.Run("session without quiz", func(t *testing.T) {
		_, err := svc.GetQuiz(ctx, videoSession.ID, nil)
		assert.ErrorIs(t, err, ErrQuizNotFound)
	})

	t.Run("draft course quiz is hidden", func(t *testing.T) {
		draft := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusDraft)
		session := testutil.SeedSession(t, env.db, draft.ID, models.LessonQuiz)
		_, err := svc.CreateQuiz(ctx, session.ID, sampleQuizRequest(), callerOf(teacher))
		require.NoError(t, err)

		_, err = svc.GetQuiz(ctx, session.ID, nil)
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestQuizService_SubmitAttempt(t *testing.T) {
	env := newTestEnv(t)
	svc := NewQuizService(env.base)
	progress := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	outsider := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	session := testutil.SeedSession(t, env.db, course.ID, models.LessonQuiz)

	quiz, err := svc.CreateQuiz(ctx, session.ID, sampleQuizRequest(), callerOf(teacher))
	require.NoError(t, err)
	_, _, err = progress.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)
	env.publisher.ClearEvents()

	t.Run("must be enrolled", func(t *testing.T) {
		_, err := svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{Answers: answersFor(quiz, `["root"]`)}, callerOf(outsider))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("answers must belong to the quiz", func(t *testing.T) {
		req := &SubmitQuizRequest{Answers: map[string]json.RawMessage{"other": json.RawMessage(`true`)}}
		_, err := svc.SubmitAttempt(ctx, quiz.ID, req, callerOf(learner))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("malformed answer", func(t *testing.T) {
		req := &SubmitQuizRequest{Answers: answersFor(quiz, `["root"]`, `"yes"`)}
		_, err := svc.SubmitAttempt(ctx, quiz.ID, req, callerOf(learner))
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown quiz", func(t *testing.T) {
		_, err := svc.SubmitAttempt(ctx, "missing", &SubmitQuizRequest{Answers: answersFor(quiz)}, callerOf(learner))
		assert.ErrorIs(t, err, ErrQuizNotFound)
	})

	// A perfect score over the time limit is recorded but does not pass
	late, err := svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{
		Answers:          answersFor(quiz, `["root"]`, `true`, `"photosynthesis"`),
		TimeTakenSeconds: intPtr(301),
	}, callerOf(learner))
	require.NoError(t, err)
	assert.Equal(t, 1, late.Attempt.AttemptNumber)
	assert.Equal(t, 100, late.Attempt.Percentage)
	assert.False(t, late.Attempt.Passed)
	assert.Zero(t, late.XPAwarded)
	assert.Equal(t, 2, late.AttemptsRemaining)

	// A typo earns partial credit and still passes
	passed, err := svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{
		Answers: answersFor(quiz, `"root"`, `true`, `"Photosynthesys"`),
	}, callerOf(learner))
	require.NoError(t, err)
	assert.Equal(t, 2, passed.Attempt.AttemptNumber)
	assert.InDelta(t, 29.29, passed.Attempt.Score, 0.001)
	assert.Equal(t, 98, passed.Attempt.Percentage)
	assert.True(t, passed.Attempt.Passed)
	assert.Equal(t, 30, passed.XPAwarded)
	require.Len(t, passed.Questions, 3)
	assert.True(t, passed.Questions[0].Correct)
	assert.False(t, passed.Questions[2].Correct)
	assert.NotNil(t, passed.Questions[0].Explanation)

	// Passing again earns nothing more
	again, err := svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{
		Answers: answersFor(quiz, `["root"]`, `true`, `"photosynthesis"`),
	}, callerOf(learner))
	require.NoError(t, err)
	assert.True(t, again.Attempt.Passed)
	assert.Zero(t, again.XPAwarded)
	assert.Zero(t, again.AttemptsRemaining)

	_, err = svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{Answers: answersFor(quiz)}, callerOf(learner))
	assert.ErrorIs(t, err, ErrConflict)

	user, err := env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, user.XPPoints)

	assert.Len(t, env.publisher.EventsOfType(events.QuizAttemptSubmitted), 3)
	assert.Len(t, env.publisher.EventsOfType(events.QuizPassed), 1)
	xpEvents := env.publisher.EventsOfType(events.UserXPAwarded)
	require.Len(t, xpEvents, 1)
	assert.Equal(t, "quiz", xpEvents[0].Data["reason"])
	assert.Equal(t, quiz.ID, xpEvents[0].Data["quizId"])

	attempts, err := svc.ListMyAttempts(ctx, quiz.ID, callerOf(learner))
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.AttemptNumber)
	}

	others, err := svc.ListMyAttempts(ctx, quiz.ID, callerOf(outsider))
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestQuizService_ConcurrentAttemptsRespectLimit(t *testing.T) {
	env := newTestEnv(t)
	svc := NewQuizService(env.base)
	progress := NewProgressService(env.base, 10, 50)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	learner := testutil.SeedUser(t, env.db, models.RoleLearner, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	session := testutil.SeedSession(t, env.db, course.ID, models.LessonQuiz)

	req := sampleQuizRequest()
	req.MaxAttempts = intPtr(2)
	quiz, err := svc.CreateQuiz(ctx, session.ID, req, callerOf(teacher))
	require.NoError(t, err)
	_, _, err = progress.Enroll(ctx, course.ID, callerOf(learner))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitAttempt(ctx, quiz.ID, &SubmitQuizRequest{
				Answers: answersFor(quiz, `["root"]`, `true`, `"photosynthesis"`),
			}, callerOf(learner))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 2, succeeded)

	user, err := env.repo.User().GetByID(ctx, nil, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, user.XPPoints, "only the first pass earns xp")
}

func TestQuizService_DeletingSessionRemovesQuiz(t *testing.T) {
	env := newTestEnv(t)
	svc := NewQuizService(env.base)
	courses := NewCourseService(env.base)
	ctx := context.Background()

	teacher := testutil.SeedUser(t, env.db, models.RoleTeacher, 0)
	course := testutil.SeedCourse(t, env.db, teacher.ID, models.CourseStatusPublished)
	single := testutil.SeedSession(t, env.db, course.ID, models.LessonQuiz)
	inModule := testutil.SeedSession(t, env.db, course.ID, models.LessonQuiz)

	for _, s := range []*models.CourseSession{single, inModule} {
		_, err := svc.CreateQuiz(ctx, s.ID, sampleQuizRequest(), callerOf(teacher))
		require.NoError(t, err)
	}

	require.NoError(t, courses.DeleteSession(ctx, single.ID, callerOf(teacher)))
	require.NoError(t, courses.DeleteModule(ctx, inModule.ModuleID, callerOf(teacher)))

	var quizzes, questions int64
	require.NoError(t, env.db.Model(&models.Quiz{}).Count(&quizzes).Error)
	require.NoError(t, env.db.Model(&models.QuizQuestion{}).Count(&questions).Error)
	assert.Zero(t, quizzes)
	assert.Zero(t, questions)
}
