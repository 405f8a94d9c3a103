package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	config       RepositoryConfig
	cacheManager *cache.CacheManager

	// Repository instances
	user               repositories.UserRepository
	teacherApplication repositories.TeacherApplicationRepository
	course             repositories.CourseRepository
	module             repositories.ModuleRepository
	session            repositories.SessionRepository
	quiz               repositories.QuizRepository
	enrollment         repositories.EnrollmentRepository
	badge              repositories.BadgeRepository
	community          repositories.CommunityRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB             *gorm.DB
	RedisClient    *redis.Client
	LeaderboardTTL time.Duration
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	return newRepositoryFor(config.DB, config, cache.NewCacheManager(config.RedisClient))
}

func newRepositoryFor(db *gorm.DB, config RepositoryConfig, cacheManager *cache.CacheManager) *PostgreSQLRepository {
	return &PostgreSQLRepository{
		db:                 db,
		config:             config,
		cacheManager:       cacheManager,
		user:               NewUserPostgreSQL(db, config.RedisClient, config.LeaderboardTTL),
		teacherApplication: NewTeacherApplicationPostgreSQL(db),
		course:             NewCoursePostgreSQL(db, config.RedisClient),
		module:             NewModulePostgreSQL(db),
		session:            NewSessionPostgreSQL(db),
		quiz:               NewQuizPostgreSQL(db),
		enrollment:         NewEnrollmentPostgreSQL(db, config.RedisClient),
		badge:              NewBadgePostgreSQL(db),
		community:          NewCommunityPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) User() repositories.UserRepository { return r.user }

func (r *PostgreSQLRepository) TeacherApplication() repositories.TeacherApplicationRepository {
	return r.teacherApplication
}

func (r *PostgreSQLRepository) Course() repositories.CourseRepository { return r.course }

func (r *PostgreSQLRepository) Module() repositories.ModuleRepository { return r.module }

func (r *PostgreSQLRepository) Session() repositories.SessionRepository { return r.session }

func (r *PostgreSQLRepository) Quiz() repositories.QuizRepository { return r.quiz }

func (r *PostgreSQLRepository) Enrollment() repositories.EnrollmentRepository { return r.enrollment }

func (r *PostgreSQLRepository) Badge() repositories.BadgeRepository { return r.badge }

func (r *PostgreSQLRepository) Community() repositories.CommunityRepository { return r.community }

// WithTransaction executes fn with repositories bound to a single transaction.
// Cache invalidations issued by fn run only after a successful commit.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	txCtx, pending := cache.DeferInvalidation(ctx)
	if err := r.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepositoryFor(tx, r.config, r.cacheManager))
	}); err != nil {
		return err
	}
	pending.Flush(ctx)
	return nil
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.config.RedisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.config.RedisClient != nil {
		if err := r.config.RedisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize verifies connections and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown closes the database and cache connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
