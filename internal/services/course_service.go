package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type courseService struct {
	baseService
}

func NewCourseService(base baseService) CourseService {
	return &courseService{baseService: base}
}

// ===== COURSES =====

func (s *courseService) Create(ctx context.Context, req *CreateCourseRequest, caller Caller) (*models.Course, error) {
	s.logger.Info("Creating course", "creator_id", caller.ID, "title", req.Title)

	if !caller.CanAuthor() {
		return nil, NewPermissionError(caller.ID, "", "course", "create", "only teachers and admins can create courses")
	}

	if errors := s.validator.GetBusinessValidator().ValidateCourseCreate(req); len(errors) > 0 {
		return nil, errors
	}

	objectives, err := marshalJSON(req.LearningObjectives)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:                    strings.TrimSpace(req.Title),
		Description:              req.Description,
		ThumbnailURL:             req.ThumbnailURL,
		CreatedByTeacherID:       caller.ID,
		AgeGroup:                 req.AgeGroup,
		Difficulty:               req.Difficulty,
		EstimatedDurationMinutes: req.EstimatedDuration,
		LearningObjectives:       objectives,
		Status:                   models.CourseStatusDraft,
	}

	if err := s.repo.Course().Create(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.logger.Info("Course created successfully", "course_id", course.ID)
	s.publish(ctx, events.CourseCreated, map[string]interface{}{
		"courseId":  course.ID,
		"teacherId": caller.ID,
		"title":     course.Title,
	})

	return course, nil
}

func (s *courseService) Update(ctx context.Context, courseID string, req *UpdateCourseRequest, caller Caller) (*models.Course, error) {
	s.logger.Info("Updating course", "course_id", courseID, "user_id", caller.ID)

	course, err := s.getManagedCourse(ctx, nil, courseID, caller, "update")
	if err != nil {
		return nil, err
	}

	if errors := s.validator.GetBusinessValidator().ValidateCourseUpdate(req, course); len(errors) > 0 {
		return nil, errors
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = req.Description
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = req.ThumbnailURL
	}
	if req.AgeGroup != nil {
		course.AgeGroup = *req.AgeGroup
	}
	if req.Difficulty != nil {
		course.Difficulty = *req.Difficulty
	}
	if req.EstimatedDuration != nil {
		course.EstimatedDurationMinutes = req.EstimatedDuration
	}
	if req.LearningObjectives != nil {
		objectives, err := marshalJSON(req.LearningObjectives)
		if err != nil {
			return nil, err
		}
		course.LearningObjectives = objectives
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	return course, nil
}

func (s *courseService) Publish(ctx context.Context, courseID string, caller Caller) (*models.Course, error) {
	return s.transition(ctx, courseID, models.CourseStatusPublished, caller)
}

func (s *courseService) Archive(ctx context.Context, courseID string, caller Caller) (*models.Course, error) {
	return s.transition(ctx, courseID, models.CourseStatusArchived, caller)
}

func (s *courseService) transition(ctx context.Context, courseID string, status models.CourseStatus, caller Caller) (*models.Course, error) {
	s.logger.Info("Changing course status", "course_id", courseID, "status", status, "user_id", caller.ID)

	course, err := s.getManagedCourse(ctx, nil, courseID, caller, "change status of")
	if err != nil {
		return nil, err
	}

	if errors := s.validator.GetBusinessValidator().ValidateStatusTransition(course.Status, status); len(errors) > 0 {
		return nil, errors
	}

	course.Status = status
	if status == models.CourseStatusPublished && course.PublishedAt == nil {
		now := s.now().UTC()
		course.PublishedAt = &now
	}

	if err := s.repo.Course().Update(ctx, nil, course); err != nil {
		return nil, fmt.Errorf("failed to update course status: %w", err)
	}

	eventType := events.CoursePublished
	if status == models.CourseStatusArchived {
		eventType = events.CourseArchived
	}
	s.publish(ctx, eventType, map[string]interface{}{
		"courseId":  course.ID,
		"teacherId": course.CreatedByTeacherID,
	})

	return course, nil
}

// Get returns a course with its content. caller is nil for anonymous reads.
func (s *courseService) Get(ctx context.Context, courseID string, caller *Caller) (*models.Course, error) {
	course, err := s.repo.Course().GetByIDWithContent(ctx, nil, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if !canViewCourse(course, caller) {
		return nil, ErrCourseNotFound
	}

	return course, nil
}

// List returns published courses by default. Other statuses are limited to
// the caller's own courses unless the caller is an admin; anonymous callers
// get none.
func (s *courseService) List(ctx context.Context, filters CourseListFilters, caller *Caller) ([]*models.Course, error) {
	status := models.CourseStatusPublished
	if filters.Status != nil {
		status = *filters.Status
	}

	repoFilters := repositories.CourseFilters{
		AgeGroup:   filters.AgeGroup,
		Difficulty: filters.Difficulty,
		Status:     &status,
		Limit:      filters.Limit,
		Offset:     filters.Offset,
	}
	if status != models.CourseStatusPublished {
		if caller == nil {
			return []*models.Course{}, nil
		}
		if !caller.IsAdmin() {
			repoFilters.TeacherID = &caller.ID
		}
	}

	courses, err := s.repo.Course().List(ctx, nil, repoFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) ListByTeacher(ctx context.Context, teacherID string) ([]*models.Course, error) {
	courses, err := s.repo.Course().ListByTeacher(ctx, nil, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher courses: %w", err)
	}
	return courses, nil
}

func (s *courseService) GetAnalytics(ctx context.Context, courseID string, caller Caller) (*models.CourseAnalytics, error) {
	if _, err := s.getManagedCourse(ctx, nil, courseID, caller, "view analytics of"); err != nil {
		return nil, err
	}

	analytics, err := s.repo.Course().GetAnalytics(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course analytics: %w", err)
	}
	return analytics, nil
}

// ===== MODULES =====

func (s *courseService) CreateModule(ctx context.Context, courseID string, req *CreateModuleRequest, caller Caller) (*models.Module, error) {
	s.logger.Info("Creating module", "course_id", courseID, "user_id", caller.ID, "sequence_order", req.SequenceOrder)

	if !caller.CanAuthor() {
		return nil, NewPermissionError(caller.ID, courseID, "module", "create", "only teachers and admins can author content")
	}

	if _, err := s.getManagedCourse(ctx, nil, courseID, caller, "add modules to"); err != nil {
		return nil, err
	}

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	module := &models.Module{
		CourseID:      courseID,
		SequenceOrder: req.SequenceOrder,
		Title:         strings.TrimSpace(req.Title),
		Description:   req.Description,
	}

	if err := s.repo.Module().Create(ctx, nil, module); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("module", fmt.Sprintf("sequence order %d already used in this course", req.SequenceOrder))
		}
		return nil, fmt.Errorf("failed to create module: %w", err)
	}

	return module, nil
}

func (s *courseService) ListModules(ctx context.Context, courseID string, caller *Caller) ([]*models.Module, error) {
	course, err := s.getCourse(ctx, nil, courseID)
	if err != nil {
		return nil, err
	}
	if !canViewCourse(course, caller) {
		return nil, ErrCourseNotFound
	}

	modules, err := s.repo.Module().ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	return modules, nil
}

// DeleteModule removes the module, its sessions and their quizzes, then
// recounts lessons
func (s *courseService) DeleteModule(ctx context.Context, moduleID string, caller Caller) error {
	s.logger.Info("Deleting module", "module_id", moduleID, "user_id", caller.ID)

	module, err := s.getModule(ctx, nil, moduleID)
	if err != nil {
		return err
	}
	if !caller.CanAuthor() {
		return NewPermissionError(caller.ID, moduleID, "module", "delete", "only teachers and admins can author content")
	}
	if _, err := s.getManagedCourse(ctx, nil, module.CourseID, caller, "delete modules of"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		sessions, err := s.repo.Session().ListByModule(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		sessionIDs := make([]string, len(sessions))
		for i, session := range sessions {
			sessionIDs[i] = session.ID
		}
		if _, err := s.repo.Quiz().DeleteBySessions(ctx, tx, sessionIDs); err != nil {
			return err
		}
		removed, err := s.repo.Session().DeleteByModule(ctx, tx, moduleID)
		if err != nil {
			return err
		}
		if err := s.repo.Module().Delete(ctx, tx, moduleID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrModuleNotFound
			}
			return err
		}
		total, err := s.repo.Course().RecountLessons(ctx, tx, module.CourseID)
		if err != nil {
			return err
		}
		s.logger.Info("Module deleted", "module_id", moduleID, "sessions_removed", removed, "total_lessons", total)
		return nil
	})
}

// ===== SESSIONS =====

func (s *courseService) CreateSession(ctx context.Context, moduleID string, req *CreateSessionRequest, caller Caller) (*models.CourseSession, error) {
	s.logger.Info("Creating session", "module_id", moduleID, "user_id", caller.ID, "sequence_order", req.SequenceOrder)

	if !caller.CanAuthor() {
		return nil, NewPermissionError(caller.ID, moduleID, "session", "create", "only teachers and admins can author content")
	}

	module, err := s.getModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getManagedCourse(ctx, nil, module.CourseID, caller, "add sessions to"); err != nil {
		return nil, err
	}

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	lessonType := req.LessonType
	if lessonType == "" {
		lessonType = models.LessonVideo
	}
	prerequisites, err := marshalJSON(req.Prerequisites)
	if err != nil {
		return nil, err
	}

	session := &models.CourseSession{
		ModuleID:        moduleID,
		SequenceOrder:   req.SequenceOrder,
		Title:           strings.TrimSpace(req.Title),
		Description:     req.Description,
		VideoURL:        req.VideoURL,
		DurationSeconds: req.DurationSeconds,
		Transcript:      req.Transcript,
		Captions:        req.Captions,
		LessonType:      lessonType,
		Prerequisites:   prerequisites,
	}

	err = s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Session().Create(ctx, tx, session); err != nil {
			return err
		}
		_, err := s.repo.Course().RecountLessons(ctx, tx, module.CourseID)
		return err
	})
	if err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("session", fmt.Sprintf("sequence order %d already used in this module", req.SequenceOrder))
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ListSessions hides modules of courses the caller cannot view
func (s *courseService) ListSessions(ctx context.Context, moduleID string, caller *Caller) ([]*models.CourseSession, error) {
	module, err := s.getModule(ctx, nil, moduleID)
	if err != nil {
		return nil, err
	}
	course, err := s.getCourse(ctx, nil, module.CourseID)
	if err != nil {
		return nil, err
	}
	if !canViewCourse(course, caller) {
		return nil, ErrModuleNotFound
	}

	sessions, err := s.repo.Session().ListByModule(ctx, nil, moduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *courseService) DeleteSession(ctx context.Context, sessionID string, caller Caller) error {
	s.logger.Info("Deleting session", "session_id", sessionID, "user_id", caller.ID)

	session, err := s.repo.Session().GetByID(ctx, nil, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if !caller.CanAuthor() {
		return NewPermissionError(caller.ID, sessionID, "session", "delete", "only teachers and admins can author content")
	}
	module, err := s.getModule(ctx, nil, session.ModuleID)
	if err != nil {
		return err
	}
	if _, err := s.getManagedCourse(ctx, nil, module.CourseID, caller, "delete sessions of"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.Quiz().DeleteBySessions(ctx, tx, []string{sessionID}); err != nil {
			return err
		}
		if err := s.repo.Session().Delete(ctx, tx, sessionID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrSessionNotFound
			}
			return err
		}
		_, err := s.repo.Course().RecountLessons(ctx, tx, module.CourseID)
		return err
	})
}

// ===== HELPERS =====

func (s *courseService) getCourse(ctx context.Context, tx *gorm.DB, courseID string) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, tx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

// getManagedCourse loads the course and checks the caller owns it or is admin
func (s *courseService) getManagedCourse(ctx context.Context, tx *gorm.DB, courseID string, caller Caller, action string) (*models.Course, error) {
	course, err := s.getCourse(ctx, tx, courseID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(course, caller) {
		return nil, NewPermissionError(caller.ID, courseID, "course", action, "not the course owner")
	}
	return course, nil
}

func (s *courseService) getModule(ctx context.Context, tx *gorm.DB, moduleID string) (*models.Module, error) {
	module, err := s.repo.Module().GetByID(ctx, tx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	return module, nil
}

// marshalJSON stores slices as JSON arrays, never null
func marshalJSON[T any](items []T) (datatypes.JSON, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json: %w", err)
	}
	return datatypes.JSON(b), nil
}
