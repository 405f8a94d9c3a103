package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewEnrollmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *EnrollmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(enrollment).Error; err != nil {
		return writeErr(err, "failed to create enrollment")
	}
	r.invalidateStats(ctx, db, enrollment.CourseID)
	return nil
}

func (r *EnrollmentPostgreSQL) invalidateStats(ctx context.Context, db *gorm.DB, courseID string) {
	afterCommit(ctx, db, func(ctx context.Context) {
		cache.InvalidateCourseStats(ctx, r.cacheManager, courseID)
	})
}

func (r *EnrollmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Enrollment, error) {
	db := r.helpers.getDB(tx)
	var enrollment models.Enrollment
	if err := db.WithContext(ctx).First(&enrollment, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "enrollment", id)
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) GetByUserAndCourse(ctx context.Context, tx *gorm.DB, userID, courseID string) (*models.Enrollment, error) {
	db := r.helpers.getDB(tx)
	var enrollment models.Enrollment
	if err := db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, notFound(err, "enrollment", userID+"/"+courseID)
	}
	return &enrollment, nil
}

func (r *EnrollmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) {
	db := r.helpers.getDB(tx)
	var enrollments []*models.Enrollment
	if err := db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("enrolled_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *EnrollmentPostgreSQL) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string) ([]*models.Enrollment, error) {
	db := r.helpers.getDB(tx)
	var enrollments []*models.Enrollment
	if err := db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("enrolled_at ASC").
		Find(&enrollments).Error; err != nil {
		return nil, fmt.Errorf("failed to list course enrollments: %w", err)
	}
	return enrollments, nil
}

// UpdateProgress writes only the mutable progress columns. The row must
// still match from; otherwise another update won and ErrStaleProgress is
// returned.
func (r *EnrollmentPostgreSQL) UpdateProgress(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment, from repositories.ProgressVersion) error {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("id = ? AND completed_lessons = ? AND status = ?", enrollment.ID, from.CompletedLessons, from.Status).
		Updates(map[string]interface{}{
			"progress_percentage": enrollment.ProgressPercentage,
			"completed_lessons":   enrollment.CompletedLessons,
			"status":              enrollment.Status,
			"last_accessed_at":    enrollment.LastAccessedAt,
			"completed_at":        enrollment.CompletedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update enrollment progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&models.Enrollment{}).Where("id = ?", enrollment.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}
		if count == 0 {
			return notFound(gorm.ErrRecordNotFound, "enrollment", enrollment.ID)
		}
		return fmt.Errorf("enrollment %s: %w", enrollment.ID, repositories.ErrStaleProgress)
	}

	r.invalidateStats(ctx, db, enrollment.CourseID)
	return nil
}

// ===== BADGES =====

type BadgePostgreSQL struct {
	helpers *SharedHelpers
}

func NewBadgePostgreSQL(db *gorm.DB) repositories.BadgeRepository {
	return &BadgePostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *BadgePostgreSQL) Create(ctx context.Context, tx *gorm.DB, badge *models.Badge) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(badge).Error; err != nil {
		return writeErr(err, "failed to create badge")
	}
	return nil
}

func (r *BadgePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Badge, error) {
	db := r.helpers.getDB(tx)
	var badge models.Badge
	if err := db.WithContext(ctx).First(&badge, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "badge", id)
	}
	return &badge, nil
}

func (r *BadgePostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.Badge, error) {
	db := r.helpers.getDB(tx)
	var badges []*models.Badge
	if err := db.WithContext(ctx).Order("name ASC").Find(&badges).Error; err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

// Award relies on the (user_id, badge_id) unique index; a conflicting
// insert is skipped and reported as created=false
func (r *BadgePostgreSQL) Award(ctx context.Context, tx *gorm.DB, userBadge *models.UserBadge) (bool, error) {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(userBadge)
	if result.Error != nil {
		return false, writeErr(result.Error, "failed to award badge")
	}
	return result.RowsAffected > 0, nil
}

func (r *BadgePostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.UserBadge, error) {
	db := r.helpers.getDB(tx)
	var earned []*models.UserBadge
	if err := db.WithContext(ctx).
		Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Find(&earned).Error; err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	return earned, nil
}
