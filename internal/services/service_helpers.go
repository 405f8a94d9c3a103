package services

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/cache"
	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/validator"
)

// baseService carries the dependencies every domain service needs
type baseService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	now            func() time.Time
}

func newBaseService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) baseService {
	return baseService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
		now:            time.Now,
	}
}

// withTx executes a function within a transaction. Cache invalidations
// issued by repositories on tx are held back until the commit succeeds.
func (s *baseService) withTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	txCtx, pending := cache.DeferInvalidation(ctx)
	if err := s.db.WithContext(txCtx).Transaction(fn); err != nil {
		return err
	}
	pending.Flush(ctx)
	return nil
}

// publish sends an event; failures are logged and never surface to callers
func (s *baseService) publish(ctx context.Context, eventType events.EventType, data map[string]interface{}) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "event_id", event.ID, "error", err)
	}
}

// today truncates the service clock to a UTC calendar day
func (s *baseService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// canManageCourse reports whether the caller owns the course or is an admin
func canManageCourse(course *models.Course, caller Caller) bool {
	return caller.IsAdmin() || course.IsOwnedBy(caller.ID)
}

// canViewCourse hides unpublished courses from everyone but owner and admins
func canViewCourse(course *models.Course, caller *Caller) bool {
	if course.Status == models.CourseStatusPublished {
		return true
	}
	return caller != nil && canManageCourse(course, *caller)
}

// nextStreak applies the daily streak rule: same day keeps the streak,
// the following day extends it, any gap restarts it at 1.
func nextStreak(user *models.User, today time.Time) (streak int, changed bool) {
	if user.LastActiveDate == nil {
		return 1, true
	}
	last := user.LastActiveDate.UTC()
	lastDay := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)

	switch {
	case lastDay.Equal(today):
		return user.CurrentStreak, false
	case lastDay.AddDate(0, 0, 1).Equal(today):
		return user.CurrentStreak + 1, true
	default:
		return 1, true
	}
}

// touchStreakTx updates the user's streak for today inside tx
func touchStreakTx(ctx context.Context, repo repositories.Repository, tx *gorm.DB, userID string, today time.Time) (*models.User, error) {
	user, err := repo.User().GetByID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	streak, changed := nextStreak(user, today)
	if !changed {
		return user, nil
	}
	if err := repo.User().UpdateStreak(ctx, tx, userID, streak, today); err != nil {
		return nil, err
	}
	user.CurrentStreak = streak
	user.LastActiveDate = &today
	return user, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
