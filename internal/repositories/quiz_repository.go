package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// QuizRepository interface for session quizzes and their attempts
type QuizRepository interface {
	// Create inserts the quiz together with its questions
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) // Include questions
	GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Quiz, error)
	DeleteBySessions(ctx context.Context, tx *gorm.DB, sessionIDs []string) (int64, error)

	CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	CountAttempts(ctx context.Context, tx *gorm.DB, userID, quizID string) (int64, error)
	HasPassed(ctx context.Context, tx *gorm.DB, userID, quizID string) (bool, error)
	ListAttempts(ctx context.Context, tx *gorm.DB, userID, quizID string) ([]*models.QuizAttempt, error)
}
