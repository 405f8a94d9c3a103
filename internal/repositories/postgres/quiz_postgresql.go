package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type QuizPostgreSQL struct {
	helpers *SharedHelpers
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{helpers: NewSharedHelpers(db)}
}

// Create writes the quiz and its questions; callers wrap it in a
// transaction when both must land together
func (r *QuizPostgreSQL) Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error {
	db := r.helpers.getDB(tx).WithContext(ctx)

	questions := quiz.Questions
	if err := db.Omit(clause.Associations).Create(quiz).Error; err != nil {
		return writeErr(err, "failed to create quiz")
	}
	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	if len(questions) > 0 {
		if err := db.Create(&questions).Error; err != nil {
			return writeErr(err, "failed to create quiz questions")
		}
	}
	quiz.Questions = questions
	return nil
}

func (r *QuizPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Quiz, error) {
	return r.first(ctx, tx, "id = ?", id)
}

func (r *QuizPostgreSQL) GetBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Quiz, error) {
	return r.first(ctx, tx, "session_id = ?", sessionID)
}

func (r *QuizPostgreSQL) first(ctx context.Context, tx *gorm.DB, where string, value string) (*models.Quiz, error) {
	db := r.helpers.getDB(tx)
	var quiz models.Quiz
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order ASC")
		}).
		Where(where, value).
		First(&quiz).Error; err != nil {
		return nil, notFound(err, "quiz", value)
	}
	return &quiz, nil
}

// ===== ATTEMPTS =====

func (r *QuizPostgreSQL) CreateAttempt(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return writeErr(err, "failed to create quiz attempt")
	}
	return nil
}

func (r *QuizPostgreSQL) CountAttempts(ctx context.Context, tx *gorm.DB, userID, quizID string) (int64, error) {
	db := r.helpers.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count quiz attempts: %w", err)
	}
	return count, nil
}

func (r *QuizPostgreSQL) HasPassed(ctx context.Context, tx *gorm.DB, userID, quizID string) (bool, error) {
	db := r.helpers.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).Model(&models.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND passed = ?", userID, quizID, true).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check quiz passes: %w", err)
	}
	return count > 0, nil
}

// ListAttempts returns the user's attempts oldest first
func (r *QuizPostgreSQL) ListAttempts(ctx context.Context, tx *gorm.DB, userID, quizID string) ([]*models.QuizAttempt, error) {
	db := r.helpers.getDB(tx)
	var attempts []*models.QuizAttempt
	if err := db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list quiz attempts: %w", err)
	}
	return attempts, nil
}

// DeleteBySessions removes the quizzes of the given sessions along with
// their questions and attempts
func (r *QuizPostgreSQL) DeleteBySessions(ctx context.Context, tx *gorm.DB, sessionIDs []string) (int64, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	db := r.helpers.getDB(tx).WithContext(ctx)

	quizIDs := db.Model(&models.Quiz{}).Select("id").Where("session_id IN ?", sessionIDs)
	if err := db.Where("quiz_id IN (?)", quizIDs).Delete(&models.QuizAttempt{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete quiz attempts: %w", err)
	}
	if err := db.Where("quiz_id IN (?)", quizIDs).Delete(&models.QuizQuestion{}).Error; err != nil {
		return 0, fmt.Errorf("failed to delete quiz questions: %w", err)
	}
	result := db.Where("session_id IN ?", sessionIDs).Delete(&models.Quiz{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete quizzes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
