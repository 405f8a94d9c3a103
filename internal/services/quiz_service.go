package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

const (
	defaultPassingScore = 70
	defaultMaxAttempts  = 3
	defaultPoints       = 10
)

type quizService struct {
	baseService
}

func NewQuizService(base baseService) QuizService {
	return &quizService{baseService: base}
}

// CreateQuiz attaches a quiz to a quiz-type session. A session holds at
// most one quiz.
func (s *quizService) CreateQuiz(ctx context.Context, sessionID string, req *CreateQuizRequest, caller Caller) (*models.Quiz, error) {
	s.logger.Info("Creating quiz", "session_id", sessionID, "user_id", caller.ID, "questions", len(req.Questions))

	if !caller.CanAuthor() {
		return nil, NewPermissionError(caller.ID, sessionID, "quiz", "create", "only teachers and admins can author content")
	}

	session, course, err := s.sessionCourse(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(course, caller) {
		return nil, NewPermissionError(caller.ID, course.ID, "course", "add quizzes to", "not the course owner")
	}
	if session.LessonType != models.LessonQuiz {
		return nil, NewValidationError("sessionId", "quizzes can only be attached to quiz sessions", string(session.LessonType))
	}

	if errors := s.validator.GetBusinessValidator().ValidateQuizCreate(req); len(errors) > 0 {
		return nil, errors
	}

	quiz := &models.Quiz{
		SessionID:              sessionID,
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		PassingScorePercentage: defaultPassingScore,
		TimeLimitMinutes:       req.TimeLimitMinutes,
		MaxAttempts:            defaultMaxAttempts,
		XPReward:               req.XPReward,
	}
	if req.PassingScorePercentage != nil {
		quiz.PassingScorePercentage = *req.PassingScorePercentage
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}

	for i, q := range req.Questions {
		options, err := marshalJSON(q.Options)
		if err != nil {
			return nil, err
		}
		points := q.Points
		if points == 0 {
			points = defaultPoints
		}
		quiz.Questions = append(quiz.Questions, models.QuizQuestion{
			SequenceOrder: i + 1,
			QuestionText:  strings.TrimSpace(q.QuestionText),
			QuestionType:  q.QuestionType,
			Options:       options,
			CorrectAnswer: datatypes.JSON(q.CorrectAnswer),
			Explanation:   q.Explanation,
			Points:        points,
		})
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		return s.repo.Quiz().Create(ctx, tx, quiz)
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("quiz", "session already has a quiz")
		}
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "session_id", sessionID, "total_points", quiz.TotalPoints())
	return quiz, nil
}

// GetQuiz returns the session's quiz. Answer keys are only shown to those
// who manage the course.
func (s *quizService) GetQuiz(ctx context.Context, sessionID string, caller *Caller) (*models.Quiz, error) {
	_, course, err := s.sessionCourse(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canViewCourse(course, caller) {
		return nil, ErrSessionNotFound
	}

	quiz, err := s.repo.Quiz().GetBySession(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if caller != nil && canManageCourse(course, *caller) {
		return quiz, nil
	}
	return sanitizeQuiz(quiz), nil
}

// SubmitAttempt grades the answers and records the attempt. XP is granted
// on the first passing attempt only.
func (s *quizService) SubmitAttempt(ctx context.Context, quizID string, req *SubmitQuizRequest, caller Caller) (*QuizResult, error) {
	s.logger.Info("Submitting quiz attempt", "quiz_id", quizID, "user_id", caller.ID, "answers", len(req.Answers))

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	_, course, err := s.sessionCourse(ctx, quiz.SessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.Enrollment().GetByUserAndCourse(ctx, nil, caller.ID, course.ID); err != nil {
		if repositories.IsNotFoundError(err) {
			if !canViewCourse(course, &caller) {
				return nil, ErrQuizNotFound
			}
			return nil, NewPermissionError(caller.ID, quizID, "quiz", "attempt", "not enrolled in the course")
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	attempt, results, err := s.grade(quiz, req)
	if err != nil {
		return nil, err
	}
	attempt.UserID = caller.ID
	attempt.SubmittedAt = s.now().UTC()

	var (
		user        *models.User
		firstPass   bool
		attemptsMax = quiz.MaxAttempts
	)
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		count, err := s.repo.Quiz().CountAttempts(ctx, tx, caller.ID, quizID)
		if err != nil {
			return err
		}
		if int(count) >= attemptsMax {
			return NewConflictError("quiz_attempt", fmt.Sprintf("all %d attempts have been used", attemptsMax))
		}
		attempt.AttemptNumber = int(count) + 1

		passedBefore, err := s.repo.Quiz().HasPassed(ctx, tx, caller.ID, quizID)
		if err != nil {
			return err
		}
		firstPass = attempt.Passed && !passedBefore
		if firstPass && quiz.XPReward > 0 {
			attempt.XPAwarded = quiz.XPReward
		}

		if err := s.repo.Quiz().CreateAttempt(ctx, tx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return NewConflictError("quiz_attempt", "another attempt was submitted concurrently, retry")
			}
			return err
		}

		if attempt.XPAwarded > 0 {
			user, err = s.repo.User().AddXP(ctx, tx, caller.ID, attempt.XPAwarded)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if IsNotFound(err) || IsValidationError(err) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to submit quiz attempt: %w", err)
	}

	s.logger.Info("Quiz attempt graded", "quiz_id", quizID, "user_id", caller.ID,
		"attempt", attempt.AttemptNumber, "percentage", attempt.Percentage, "passed", attempt.Passed)

	s.publish(ctx, events.QuizAttemptSubmitted, map[string]interface{}{
		"attemptId":     attempt.ID,
		"quizId":        quizID,
		"userId":        caller.ID,
		"attemptNumber": attempt.AttemptNumber,
		"percentage":    attempt.Percentage,
		"passed":        attempt.Passed,
	})
	if firstPass {
		s.publish(ctx, events.QuizPassed, map[string]interface{}{
			"quizId":     quizID,
			"userId":     caller.ID,
			"courseId":   course.ID,
			"percentage": attempt.Percentage,
		})
	}
	if user != nil {
		s.publishXP(ctx, user, attempt.XPAwarded, "quiz", map[string]interface{}{"quizId": quizID})
	}

	return &QuizResult{
		Attempt:           attempt,
		Questions:         results,
		XPAwarded:         attempt.XPAwarded,
		AttemptsRemaining: max(0, attemptsMax-attempt.AttemptNumber),
	}, nil
}

func (s *quizService) ListMyAttempts(ctx context.Context, quizID string, caller Caller) ([]*models.QuizAttempt, error) {
	if _, err := s.repo.Quiz().GetByID(ctx, nil, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	attempts, err := s.repo.Quiz().ListAttempts(ctx, nil, caller.ID, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	return attempts, nil
}

// grade scores every question. Answers to unknown questions and answers of
// the wrong shape are validation errors; missing answers score zero.
func (s *quizService) grade(quiz *models.Quiz, req *SubmitQuizRequest) (*models.QuizAttempt, []QuestionResult, error) {
	known := make(map[string]bool, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = true
	}
	for id := range req.Answers {
		if !known[id] {
			return nil, nil, NewValidationError("answers."+id, "not a question of this quiz", id)
		}
	}

	var (
		score   float64
		results = make([]QuestionResult, 0, len(quiz.Questions))
	)
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		answer := req.Answers[q.ID]
		fraction, correct, err := gradeQuestion(q, answer)
		if err != nil {
			return nil, nil, NewValidationError("answers."+q.ID, err.Error(), string(answer))
		}
		earned := math.Round(fraction*float64(q.Points)*100) / 100
		score += earned
		results = append(results, QuestionResult{
			QuestionID:   q.ID,
			Correct:      correct,
			PointsEarned: earned,
			Points:       q.Points,
			Explanation:  q.Explanation,
		})
	}

	total := quiz.TotalPoints()
	percentage := 0
	if total > 0 {
		percentage = int(math.Round(score / float64(total) * 100))
	}

	passed := percentage >= quiz.PassingScorePercentage
	if quiz.TimeLimitMinutes != nil && req.TimeTakenSeconds != nil && *req.TimeTakenSeconds > *quiz.TimeLimitMinutes*60 {
		passed = false
	}

	answers, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	return &models.QuizAttempt{
		QuizID:           quiz.ID,
		Score:            score,
		TotalPoints:      total,
		Percentage:       percentage,
		Passed:           passed,
		Answers:          datatypes.JSON(answers),
		TimeTakenSeconds: req.TimeTakenSeconds,
	}, results, nil
}

// sessionCourse resolves the course a session belongs to
func (s *quizService) sessionCourse(ctx context.Context, sessionID string) (*models.CourseSession, *models.Course, error) {
	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	module, err := s.repo.Module().GetByID(ctx, nil, session.ModuleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrModuleNotFound
		}
		return nil, nil, fmt.Errorf("failed to get module: %w", err)
	}
	course, err := s.repo.Course().GetByID(ctx, nil, module.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrCourseNotFound
		}
		return nil, nil, fmt.Errorf("failed to get course: %w", err)
	}
	return session, course, nil
}
