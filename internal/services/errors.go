package services

import (
	"errors"
	"fmt"

	"github.com/nduva/learning-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

var (
	ErrUserNotFound               = errors.New("user not found")
	ErrCourseNotFound             = errors.New("course not found")
	ErrModuleNotFound             = errors.New("module not found")
	ErrSessionNotFound            = errors.New("session not found")
	ErrEnrollmentNotFound         = errors.New("enrollment not found")
	ErrBadgeNotFound              = errors.New("badge not found")
	ErrPostNotFound               = errors.New("post not found")
	ErrCommentNotFound            = errors.New("comment not found")
	ErrTeacherApplicationNotFound = errors.New("teacher application not found")
	ErrQuizNotFound               = errors.New("quiz not found")

	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)

// IsNotFound reports whether err is one of the service not-found sentinels
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrUserNotFound, ErrCourseNotFound, ErrModuleNotFound, ErrSessionNotFound,
		ErrEnrollmentNotFound, ErrBadgeNotFound, ErrPostNotFound, ErrCommentNotFound,
		ErrTeacherApplicationNotFound, ErrQuizNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ===== TYPED ERRORS =====

// PermissionError is returned when the caller may not perform an action
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	if e.ResourceID == "" {
		return fmt.Sprintf("user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
	}
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// ConflictError is returned when a write collides with existing state
type ConflictError struct {
	Resource string
	Message  string
}

func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// NewValidationError builds a single field error for service-level checks
func NewValidationError(field, message string, value interface{}) *validator.ValidationError {
	return &validator.ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}
}

// IsValidationError reports whether err carries field validation errors
func IsValidationError(err error) bool {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	var verr *validator.ValidationError
	return errors.As(err, &verr)
}
