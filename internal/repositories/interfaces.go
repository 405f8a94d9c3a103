package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Role     *models.UserRole `json:"role"`
	IsActive *bool            `json:"isActive"`
	Query    string           `json:"q"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type CourseFilters struct {
	AgeGroup   *models.AgeGroup        `json:"ageGroup"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Status     *models.CourseStatus    `json:"status"`
	TeacherID  *string                 `json:"teacherId"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

type PostFilters struct {
	CourseID *string               `json:"courseId"`
	Status   *models.ContentStatus `json:"status"`
	Limit    int                   `json:"limit"`
	Offset   int                   `json:"offset"`
}

type TeacherApplicationFilters struct {
	Status *models.ApplicationStatus `json:"status"`
	UserID *string                   `json:"userId"`
}

// ===== SHARED ERRORS =====

var (
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")

	// ErrInsufficientXP is returned when an XP change would go below zero
	ErrInsufficientXP = errors.New("xp balance cannot become negative")

	// ErrStaleProgress is returned when an enrollment changed after it was read
	ErrStaleProgress = errors.New("enrollment progress changed concurrently")
)

// IsNotFoundError reports whether err wraps gorm.ErrRecordNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey)
}
