package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// EnrollmentRepository interface for enrollment progress
type EnrollmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Enrollment, error)
	GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.Enrollment, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) // Include course
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Enrollment, error)

	// UpdateProgress applies enrollment only while the stored row still
	// matches from
	UpdateProgress(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, from ProgressVersion) error
}

// ProgressVersion is the stored progress an update was computed from
type ProgressVersion struct {
	CompletedLessons int
	Status           models.EnrollmentStatus
}

// BadgeRepository interface for badge templates and awards
type BadgeRepository interface {
	Create(ctx context.Context, tx *gorm.DB, badge *models.Badge) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Badge, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.Badge, error)

	// Award inserts the fact once; created is false when the user already had it
	Award(ctx context.Context, tx *gorm.DB, userBadge *models.UserBadge) (created bool, err error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserBadge, error)
}
