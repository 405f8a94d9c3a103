package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateCourseCache drops cached course listings and the course's stats
func InvalidateCourseCache(ctx context.Context, cm *CacheManager, courseID string) {
	SafeInvalidatePattern(ctx, cm.Course, "list:*")
	InvalidateCourseStats(ctx, cm, courseID)
}

// InvalidateCourseStats drops the cached aggregates of one course
func InvalidateCourseStats(ctx context.Context, cm *CacheManager, courseID string) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("course:%s:*", courseID))
}

// InvalidateLeaderboardCache drops every cached leaderboard page
func InvalidateLeaderboardCache(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Leaderboard, "*")
}

// InvalidateUserCache drops a cached user and the leaderboard it may appear in
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("id:%s", userID))
	InvalidateLeaderboardCache(ctx, cm)
}
