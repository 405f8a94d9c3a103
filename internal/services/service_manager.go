package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Gamification rules
	XPPerLesson             int
	XPCourseCompletion      int
	DefaultLeaderboardLimit int

	// Global settings
	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	// Service instances
	courseService       CourseService
	progressService     ProgressService
	quizService         QuizService
	gamificationService GamificationService
	communityService    CommunityService
	userService         UserService
	exportService       ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      validator,
		eventPublisher: publisher,
		config:         config,
	}
}

// DefaultServiceManagerConfig returns the standard gamification rules
func DefaultServiceManagerConfig() ServiceManagerConfig {
	return ServiceManagerConfig{
		XPPerLesson:             10,
		XPCourseCompletion:      50,
		DefaultLeaderboardLimit: 100,
		DefaultTimeout:          15 * time.Second,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ServiceManager {
	return NewServiceManager(db, repo, logger, validator, publisher, DefaultServiceManagerConfig())
}

// ===== LIFECYCLE MANAGEMENT =====

// Initialize initializes all services
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	base := newBaseService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher)

	gamification := NewGamificationService(base, sm.config.DefaultLeaderboardLimit)
	sm.gamificationService = gamification
	sm.courseService = NewCourseService(base)
	sm.progressService = NewProgressService(base, sm.config.XPPerLesson, sm.config.XPCourseCompletion)
	sm.quizService = NewQuizService(base)
	sm.communityService = NewCommunityService(base)
	sm.userService = NewUserService(base, gamification)
	sm.exportService = NewExportService(base, sm.courseService, gamification)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully",
		"xp_per_lesson", sm.config.XPPerLesson,
		"xp_course_completion", sm.config.XPCourseCompletion)

	return nil
}

// ===== SERVICE GETTERS =====

func (sm *serviceManager) Course() CourseService {
	sm.mustBeInitialized()
	return sm.courseService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mustBeInitialized()
	return sm.progressService
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mustBeInitialized()
	return sm.quizService
}

func (sm *serviceManager) Gamification() GamificationService {
	sm.mustBeInitialized()
	return sm.gamificationService
}

func (sm *serviceManager) Community() CommunityService {
	sm.mustBeInitialized()
	return sm.communityService
}

func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Export() ExportService {
	sm.mustBeInitialized()
	return sm.exportService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// ===== HEALTH AND MONITORING =====

// HealthCheck performs health check on the backing stores
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down all services
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
