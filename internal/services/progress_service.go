package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type progressService struct {
	baseService
	xpPerLesson        int
	xpCourseCompletion int
}

func NewProgressService(base baseService, xpPerLesson, xpCourseCompletion int) ProgressService {
	return &progressService{
		baseService:        base,
		xpPerLesson:        xpPerLesson,
		xpCourseCompletion: xpCourseCompletion,
	}
}

func (s *progressService) Enroll(ctx context.Context, courseID string, caller Caller) (*models.Enrollment, bool, error) {
	s.logger.Info("Enrolling user", "user_id", caller.ID, "course_id", courseID)

	course, err := s.repo.Course().GetByID(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, false, ErrCourseNotFound
		}
		return nil, false, fmt.Errorf("failed to get course: %w", err)
	}

	existing, err := s.findEnrollment(ctx, caller.ID, courseID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	if errors := s.validator.GetBusinessValidator().ValidateEnrollable(course); len(errors) > 0 {
		return nil, false, errors
	}

	now := s.now().UTC()
	enrollment := &models.Enrollment{
		UserID:         caller.ID,
		CourseID:       courseID,
		EnrolledAt:     now,
		Status:         models.EnrollmentActive,
		LastAccessedAt: &now,
	}

	if err := s.repo.Enrollment().Create(ctx, nil, enrollment); err != nil {
		// A concurrent request won the unique index race
		if repositories.IsDuplicateError(err) {
			existing, findErr := s.findEnrollment(ctx, caller.ID, courseID)
			if findErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.publish(ctx, events.EnrollmentCreated, map[string]interface{}{
		"enrollmentId": enrollment.ID,
		"userId":       caller.ID,
		"courseId":     courseID,
	})

	return enrollment, true, nil
}

func (s *progressService) ListMyEnrollments(ctx context.Context, caller Caller) ([]*models.Enrollment, error) {
	enrollments, err := s.repo.Enrollment().ListByUser(ctx, nil, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

// RecordProgress stores lesson progress. Completed lessons are clamped to
// the course's lesson count and the percentage is derived from them; new
// lessons and the completion transition award XP in the same transaction.
// A course without lessons accepts only the percentage and awards nothing.
func (s *progressService) RecordProgress(ctx context.Context, enrollmentID string, req *ProgressUpdateRequest, caller Caller) (*ProgressResult, error) {
	s.logger.Info("Recording progress", "enrollment_id", enrollmentID, "user_id", caller.ID,
		"completed_lessons", req.CompletedLessons)

	var (
		enrollment    *models.Enrollment
		course        *models.Course
		xp            int
		justCompleted bool
	)

	// Reads happen on tx and the update is conditional on what was read, so
	// two concurrent requests cannot both credit the same lessons
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var err error
		enrollment, err = s.repo.Enrollment().GetByID(ctx, tx, enrollmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("failed to get enrollment: %w", err)
		}

		if enrollment.UserID != caller.ID && !caller.IsAdmin() {
			return NewPermissionError(caller.ID, enrollmentID, "enrollment", "update", "not the enrolled learner")
		}

		if verrs := s.validator.GetBusinessValidator().ValidateProgressUpdate(enrollment, req.CompletedLessons); len(verrs) > 0 {
			return verrs
		}

		course, err = s.repo.Course().GetByID(ctx, tx, enrollment.CourseID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to get course: %w", err)
		}

		from := repositories.ProgressVersion{CompletedLessons: enrollment.CompletedLessons, Status: enrollment.Status}
		xp, justCompleted = s.applyProgress(enrollment, course, req)

		if err := s.repo.Enrollment().UpdateProgress(ctx, tx, enrollment, from); err != nil {
			if errors.Is(err, repositories.ErrStaleProgress) {
				return NewConflictError("enrollment", "progress was updated concurrently, retry")
			}
			return err
		}
		if xp > 0 {
			if _, err := s.repo.User().AddXP(ctx, tx, enrollment.UserID, xp); err != nil {
				return err
			}
		}
		_, err = touchStreakTx(ctx, s.repo, tx, enrollment.UserID, s.today())
		return err
	})
	if err != nil {
		if IsNotFound(err) || IsValidationError(err) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record progress: %w", err)
	}

	if xp > 0 {
		s.publish(ctx, events.UserXPAwarded, map[string]interface{}{
			"userId": enrollment.UserID,
			"delta":  xp,
			"reason": "lesson_progress",
		})
	}
	if justCompleted {
		s.logger.Info("Course completed", "enrollment_id", enrollmentID, "course_id", course.ID)
		s.publish(ctx, events.EnrollmentCompleted, map[string]interface{}{
			"enrollmentId": enrollment.ID,
			"userId":       enrollment.UserID,
			"courseId":     course.ID,
		})
	}

	return &ProgressResult{
		Enrollment: enrollment,
		XPAwarded:  xp,
		Completed:  enrollment.Status == models.EnrollmentCompleted,
	}, nil
}

// applyProgress moves enrollment to the requested progress and returns the
// XP it earns
func (s *progressService) applyProgress(enrollment *models.Enrollment, course *models.Course, req *ProgressUpdateRequest) (xp int, justCompleted bool) {
	previous := enrollment.CompletedLessons
	completed := 0
	percentage := clamp(req.ProgressPercentage, 0, 100)
	if course.TotalLessons > 0 {
		completed = clamp(req.CompletedLessons, 0, course.TotalLessons)
		percentage = completed * 100 / course.TotalLessons
	}

	now := s.now().UTC()
	enrollment.CompletedLessons = completed
	enrollment.ProgressPercentage = percentage
	enrollment.LastAccessedAt = &now

	justCompleted = course.TotalLessons > 0 &&
		completed == course.TotalLessons &&
		enrollment.Status != models.EnrollmentCompleted
	if justCompleted {
		enrollment.Status = models.EnrollmentCompleted
		if enrollment.CompletedAt == nil {
			enrollment.CompletedAt = &now
		}
	}

	if newLessons := completed - previous; newLessons > 0 {
		xp += newLessons * s.xpPerLesson
	}
	if justCompleted {
		xp += s.xpCourseCompletion
	}
	return xp, justCompleted
}

func (s *progressService) findEnrollment(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	enrollment, err := s.repo.Enrollment().GetByUserAndCourse(ctx, nil, userID, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
