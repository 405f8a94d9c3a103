package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// UserRepository interface for user and gamification state
type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)

	// Gamification
	AddXP(ctx context.Context, tx *gorm.DB, id string, delta int) (*models.User, error)
	UpdateStreak(ctx context.Context, tx *gorm.DB, id string, streak int, lastActive time.Time) error
	GetLeaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]*models.User, error)

	// Account state
	SetRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) error
	SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error
}
