package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type UserPostgreSQL struct {
	db             *gorm.DB
	helpers        *SharedHelpers
	cacheManager   *cache.CacheManager
	leaderboardTTL time.Duration
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client, leaderboardTTL time.Duration) repositories.UserRepository {
	if leaderboardTTL <= 0 {
		leaderboardTTL = cache.LeaderboardCacheConfig.TTL
	}
	return &UserPostgreSQL{
		db:             db,
		helpers:        NewSharedHelpers(db),
		cacheManager:   cache.NewCacheManager(redisClient),
		leaderboardTTL: leaderboardTTL,
	}
}

// ===== BASIC CRUD OPERATIONS =====

func (u *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return writeErr(err, "failed to create user")
	}
	afterCommit(ctx, db, func(ctx context.Context) {
		cache.InvalidateLeaderboardCache(ctx, u.cacheManager)
	})
	return nil
}

// GetByID is served from the user cache outside transactions; every write
// below drops the cached copy
func (u *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	db := u.helpers.getDB(tx)
	if tx != nil {
		return u.fetchByID(ctx, db, id)
	}

	var user models.User
	err := u.cacheManager.User.CacheOrExecute(ctx, fmt.Sprintf("id:%s", id), &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		return u.fetchByID(ctx, db, id)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) fetchByID(ctx context.Context, db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (u *UserPostgreSQL) invalidateUser(ctx context.Context, db *gorm.DB, id string) {
	afterCommit(ctx, db, func(ctx context.Context) {
		cache.InvalidateUserCache(ctx, u.cacheManager, id)
	})
}

// Update saves profile fields; XP is only changed through AddXP
func (u *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := u.helpers.getDB(tx)
	if err := db.WithContext(ctx).Omit("xp_points", clause.Associations).Save(user).Error; err != nil {
		return writeErr(err, "failed to update user")
	}
	u.invalidateUser(ctx, db, user.ID)
	return nil
}

func (u *UserPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := u.helpers.getDB(tx)
	query := u.helpers.ApplyUserFilters(db.WithContext(ctx).Model(&models.User{}), filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []*models.User
	if err := paginate(query, filters.Limit, filters.Offset).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// ===== GAMIFICATION =====

// AddXP applies delta in a single UPDATE so concurrent awards never lose
// increments. The guard in the WHERE clause keeps the balance non-negative.
func (u *UserPostgreSQL) AddXP(ctx context.Context, tx *gorm.DB, id string, delta int) (*models.User, error) {
	base := u.helpers.getDB(tx)
	db := base.WithContext(ctx)

	result := db.Model(&models.User{}).
		Where("id = ? AND xp_points + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"xp_points":  gorm.Expr("xp_points + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to add xp: %w", result.Error)
	}

	user, err := u.fetchByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("user %s has %d xp, delta %d: %w", id, user.XPPoints, delta, repositories.ErrInsufficientXP)
	}

	u.invalidateUser(ctx, base, id)
	return user, nil
}

func (u *UserPostgreSQL) UpdateStreak(ctx context.Context, tx *gorm.DB, id string, streak int, lastActive time.Time) error {
	db := u.helpers.getDB(tx)
	result := db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"current_streak":   streak,
			"last_active_date": lastActive,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update streak: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "user", id)
	}
	u.invalidateUser(ctx, db, id)
	return nil
}

// GetLeaderboard returns active users by XP, ties broken by id
func (u *UserPostgreSQL) GetLeaderboard(ctx context.Context, tx *gorm.DB, limit int) ([]*models.User, error) {
	db := u.helpers.getDB(tx)

	fetch := func() (interface{}, error) {
		var users []*models.User
		if err := db.WithContext(ctx).
			Where("is_active = ?", true).
			Order("xp_points DESC").
			Order("id ASC").
			Limit(limit).
			Find(&users).Error; err != nil {
			return nil, fmt.Errorf("failed to get leaderboard: %w", err)
		}
		return users, nil
	}

	// Reads inside a transaction must see uncommitted XP changes
	if tx != nil {
		users, err := fetch()
		if err != nil {
			return nil, err
		}
		return users.([]*models.User), nil
	}

	var users []*models.User
	if err := u.cacheManager.Leaderboard.CacheOrExecute(ctx, fmt.Sprintf("limit:%d", limit), &users, u.leaderboardTTL, fetch); err != nil {
		return nil, err
	}
	return users, nil
}

// ===== ACCOUNT STATE =====

func (u *UserPostgreSQL) SetRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) error {
	return u.updateColumn(ctx, tx, id, "role", role)
}

func (u *UserPostgreSQL) SetActive(ctx context.Context, tx *gorm.DB, id string, active bool) error {
	// InvalidateUserCache also drops the leaderboard, which only ranks
	// active users
	return u.updateColumn(ctx, tx, id, "is_active", active)
}

func (u *UserPostgreSQL) updateColumn(ctx context.Context, tx *gorm.DB, id, column string, value interface{}) error {
	db := u.helpers.getDB(tx)
	result := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "user", id)
	}
	u.invalidateUser(ctx, db, id)
	return nil
}
