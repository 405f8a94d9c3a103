package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

const maxLeaderboardLimit = 1000

type gamificationService struct {
	baseService
	defaultLeaderboardLimit int
}

func NewGamificationService(base baseService, defaultLeaderboardLimit int) GamificationService {
	if defaultLeaderboardLimit <= 0 {
		defaultLeaderboardLimit = 100
	}
	return &gamificationService{
		baseService:             base,
		defaultLeaderboardLimit: defaultLeaderboardLimit,
	}
}

// ===== XP AND STREAKS =====

// AddUserXP applies delta atomically. A change that would leave a negative
// balance is rejected as a validation error.
func (s *gamificationService) AddUserXP(ctx context.Context, userID string, delta int, reason string) (*models.User, error) {
	user, err := s.addXP(ctx, nil, userID, delta)
	if err != nil {
		return nil, err
	}

	s.logger.Info("XP applied", "user_id", userID, "delta", delta, "xp_points", user.XPPoints, "reason", reason)
	s.publishXP(ctx, user, delta, reason, nil)
	return user, nil
}

// publishXP reports an XP change; deductions get their own event type
func (s *baseService) publishXP(ctx context.Context, user *models.User, delta int, reason string, extra map[string]interface{}) {
	eventType := events.UserXPAwarded
	if delta < 0 {
		eventType = events.UserXPDeducted
	}
	data := map[string]interface{}{
		"userId":   user.ID,
		"delta":    delta,
		"xpPoints": user.XPPoints,
		"reason":   reason,
	}
	for k, v := range extra {
		data[k] = v
	}
	s.publish(ctx, eventType, data)
}

func (s *gamificationService) addXP(ctx context.Context, tx *gorm.DB, userID string, delta int) (*models.User, error) {
	user, err := s.repo.User().AddXP(ctx, tx, userID, delta)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		if errors.Is(err, repositories.ErrInsufficientXP) {
			current, getErr := s.repo.User().GetByID(ctx, tx, userID)
			if getErr != nil {
				return nil, fmt.Errorf("failed to add xp: %w", err)
			}
			if errors := s.validator.GetBusinessValidator().ValidateXPChange(current.XPPoints, delta); len(errors) > 0 {
				return nil, errors
			}
		}
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return user, nil
}

func (s *gamificationService) TouchStreak(ctx context.Context, userID string, today time.Time) (*models.User, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	user, err := touchStreakTx(ctx, s.repo, nil, userID, day)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to touch streak: %w", err)
	}
	return user, nil
}

// ===== BADGES =====

func (s *gamificationService) ListUserBadges(ctx context.Context, userID string) ([]*BadgeEarned, error) {
	earned, err := s.repo.Badge().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}

	badges := make([]*BadgeEarned, 0, len(earned))
	for _, ub := range earned {
		if ub.Badge == nil {
			continue
		}
		badges = append(badges, &BadgeEarned{Badge: ub.Badge, EarnedAt: ub.EarnedAt})
	}
	return badges, nil
}

// AwardBadge records the badge once and grants its XP reward in the same
// transaction. Repeated awards return the existing record without XP.
func (s *gamificationService) AwardBadge(ctx context.Context, userID string, req *AwardBadgeRequest, caller Caller) (*models.UserBadge, error) {
	s.logger.Info("Awarding badge", "user_id", userID, "badge_id", req.BadgeID, "admin_id", caller.ID)

	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, userID, "badge", "award", "admin role required")
	}
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	badge, err := s.repo.Badge().GetByID(ctx, nil, req.BadgeID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrBadgeNotFound
		}
		return nil, fmt.Errorf("failed to get badge: %w", err)
	}
	if _, err := s.repo.User().GetByID(ctx, nil, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	userBadge := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badge.ID,
		EarnedAt: s.now().UTC(),
		Metadata: req.Metadata,
	}

	var (
		created bool
		updated *models.User
	)
	err = s.withTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, err = s.repo.Badge().Award(ctx, tx, userBadge)
		if err != nil {
			return err
		}
		if created && badge.XPReward > 0 {
			if updated, err = s.addXP(ctx, tx, userID, badge.XPReward); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award badge: %w", err)
	}

	if !created {
		return s.findUserBadge(ctx, userID, badge.ID)
	}

	userBadge.Badge = badge
	s.publish(ctx, events.BadgeAwarded, map[string]interface{}{
		"userId":   userID,
		"badgeId":  badge.ID,
		"xpReward": badge.XPReward,
	})
	if updated != nil {
		s.publishXP(ctx, updated, badge.XPReward, "badge", map[string]interface{}{"badgeId": badge.ID})
	}
	return userBadge, nil
}

func (s *gamificationService) findUserBadge(ctx context.Context, userID, badgeID string) (*models.UserBadge, error) {
	earned, err := s.repo.Badge().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	for _, ub := range earned {
		if ub.BadgeID == badgeID {
			return ub, nil
		}
	}
	return nil, ErrBadgeNotFound
}

func (s *gamificationService) CreateBadge(ctx context.Context, req *CreateBadgeRequest, caller Caller) (*models.Badge, error) {
	if !caller.IsAdmin() {
		return nil, NewPermissionError(caller.ID, "", "badge", "create", "admin role required")
	}
	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	badge := &models.Badge{
		Name:        req.Name,
		Description: req.Description,
		IconURL:     req.IconURL,
		BadgeType:   req.BadgeType,
		Criteria:    req.Criteria,
		XPReward:    req.XPReward,
	}
	if err := s.repo.Badge().Create(ctx, nil, badge); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, NewConflictError("badge", fmt.Sprintf("a badge named %q already exists", req.Name))
		}
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}
	return badge, nil
}

func (s *gamificationService) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	badges, err := s.repo.Badge().List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	return badges, nil
}

// ===== LEADERBOARD =====

func (s *gamificationService) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	users, err := s.repo.User().GetLeaderboard(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return models.NewLeaderboard(users), nil
}
