package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// CourseRepository interface for course operations
type CourseRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, course *models.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error)
	GetByIDWithContent(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) // Include modules and sessions
	Update(ctx context.Context, tx *gorm.DB, course *models.Course) error

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters CourseFilters) ([]*models.Course, error)
	ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Course, error)

	// Denormalised counters and stats
	RecountLessons(ctx context.Context, tx *gorm.DB, courseID string) (int, error)
	GetAnalytics(ctx context.Context, tx *gorm.DB, courseID string) (*models.CourseAnalytics, error)
}

// ModuleRepository interface for course modules
type ModuleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, module *models.Module) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Module, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Module, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

// SessionRepository interface for lessons inside a module
type SessionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, session *models.CourseSession) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.CourseSession, error)
	ListByModule(ctx context.Context, tx *gorm.DB, moduleID string) ([]*models.CourseSession, error)
	Delete(ctx context.Context, tx *gorm.DB, id string) error
	DeleteByModule(ctx context.Context, tx *gorm.DB, moduleID string) (int64, error)
}
