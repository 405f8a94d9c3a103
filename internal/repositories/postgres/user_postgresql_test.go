package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/testutil"
)

func TestUserPostgreSQL_AddXP_ConcurrentIncrementsAreLossless(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, nil, 0)
	user := testutil.SeedUser(t, db, models.RoleLearner, 7)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AddXP(context.Background(), nil, user.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.GetByID(context.Background(), nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 7+n, got.XPPoints)
}

func TestUserPostgreSQL_AddXP(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, nil, 0)
	ctx := context.Background()

	t.Run("returns updated user", func(t *testing.T) {
		user := testutil.SeedUser(t, db, models.RoleLearner, 10)
		updated, err := repo.AddXP(ctx, nil, user.ID, 15)
		require.NoError(t, err)
		assert.Equal(t, 25, updated.XPPoints)
	})

	t.Run("rejects going below zero", func(t *testing.T) {
		user := testutil.SeedUser(t, db, models.RoleLearner, 5)
		_, err := repo.AddXP(ctx, nil, user.ID, -6)
		assert.ErrorIs(t, err, repositories.ErrInsufficientXP)

		got, err := repo.GetByID(ctx, nil, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, got.XPPoints)
	})

	t.Run("allows going to exactly zero", func(t *testing.T) {
		user := testutil.SeedUser(t, db, models.RoleLearner, 5)
		updated, err := repo.AddXP(ctx, nil, user.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, 0, updated.XPPoints)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := repo.AddXP(ctx, nil, "missing", 1)
		assert.True(t, repositories.IsNotFoundError(err))
	})
}

func TestUserPostgreSQL_GetLeaderboard(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, nil, 0)
	ctx := context.Background()

	low := testutil.SeedUser(t, db, models.RoleLearner, 10)
	high := testutil.SeedUser(t, db, models.RoleLearner, 300)
	mid := testutil.SeedUser(t, db, models.RoleTeacher, 120)
	inactive := testutil.SeedUser(t, db, models.RoleLearner, 9999)
	require.NoError(t, repo.SetActive(ctx, nil, inactive.ID, false))

	t.Run("orders by xp and excludes inactive users", func(t *testing.T) {
		users, err := repo.GetLeaderboard(ctx, nil, 100)
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, []string{high.ID, mid.ID, low.ID}, []string{users[0].ID, users[1].ID, users[2].ID})
		for _, u := range users {
			assert.True(t, u.IsActive)
			assert.NotEqual(t, inactive.ID, u.ID)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		users, err := repo.GetLeaderboard(ctx, nil, 2)
		require.NoError(t, err)
		assert.Len(t, users, 2)
		assert.Equal(t, high.ID, users[0].ID)
	})
}

func TestUserPostgreSQL_GetLeaderboard_CacheInvalidatedOnXPChange(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, client, time.Minute)
	ctx := context.Background()

	first := testutil.SeedUser(t, db, models.RoleLearner, 100)
	second := testutil.SeedUser(t, db, models.RoleLearner, 50)

	users, err := repo.GetLeaderboard(ctx, nil, 10)
	require.NoError(t, err)
	require.Equal(t, first.ID, users[0].ID)
	assert.True(t, mr.Exists("leaderboard:limit:10"))

	_, err = repo.AddXP(ctx, nil, second.ID, 100)
	require.NoError(t, err)
	assert.False(t, mr.Exists("leaderboard:limit:10"))

	users, err = repo.GetLeaderboard(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, second.ID, users[0].ID)
	assert.Equal(t, 150, users[0].XPPoints)
}

func TestUserPostgreSQL_SetActive_DropsFromCachedLeaderboard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, client, time.Minute)
	ctx := context.Background()

	top := testutil.SeedUser(t, db, models.RoleLearner, 100)
	testutil.SeedUser(t, db, models.RoleLearner, 50)

	users, err := repo.GetLeaderboard(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)

	require.NoError(t, repo.SetActive(ctx, nil, top.ID, false))
	assert.False(t, mr.Exists("leaderboard:limit:10"))

	users, err = repo.GetLeaderboard(ctx, nil, 10)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.NotEqual(t, top.ID, users[0].ID)
}

func TestUserPostgreSQL_UpdateStreak(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, nil, 0)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleLearner, 0)

	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStreak(ctx, nil, user.ID, 4, today))

	got, err := repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.CurrentStreak)
	require.NotNil(t, got.LastActiveDate)
	assert.True(t, today.Equal(got.LastActiveDate.UTC()))

	err = repo.UpdateStreak(ctx, nil, "missing", 1, today)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestUserPostgreSQL_UpdateKeepsXP(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, nil, 0)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleLearner, 40)

	stale, err := repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)

	_, err = repo.AddXP(ctx, nil, user.ID, 10)
	require.NoError(t, err)

	stale.FullName = "Renamed"
	require.NoError(t, repo.Update(ctx, nil, stale))

	got, err := repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.FullName)
	assert.Equal(t, 50, got.XPPoints)
}

func TestUserPostgreSQL_GetByID_CachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewTestDB(t)
	repo := NewUserPostgreSQL(db, client, time.Minute)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleLearner, 10)
	key := "user:id:" + user.ID

	got, err := repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.XPPoints)
	assert.True(t, mr.Exists(key))

	// A write that bypasses the repository is not seen until the entry drops
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("full_name", "Renamed").Error)
	got, err = repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.FullName, got.FullName)

	_, err = repo.AddXP(ctx, nil, user.ID, 5)
	require.NoError(t, err)
	assert.False(t, mr.Exists(key))

	got, err = repo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 15, got.XPPoints)
	assert.Equal(t, "Renamed", got.FullName)

	t.Run("missing user is not cached", func(t *testing.T) {
		_, err := repo.GetByID(ctx, nil, "missing")
		assert.True(t, repositories.IsNotFoundError(err))
		assert.False(t, mr.Exists("user:id:missing"))
	})
}

func TestPostgreSQLRepository_WithTransaction_InvalidatesAfterCommit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, RedisClient: client, LeaderboardTTL: time.Minute})
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleLearner, 10)

	warm := func() {
		_, err := repo.User().GetLeaderboard(ctx, nil, 10)
		require.NoError(t, err)
		require.True(t, mr.Exists("leaderboard:limit:10"))
	}

	t.Run("commit", func(t *testing.T) {
		warm()
		err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if _, err := tx.User().AddXP(ctx, nil, user.ID, 5); err != nil {
				return err
			}
			assert.True(t, mr.Exists("leaderboard:limit:10"), "cache must survive until commit")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, mr.Exists("leaderboard:limit:10"))
	})

	t.Run("rollback", func(t *testing.T) {
		warm()
		err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			if _, err := tx.User().AddXP(ctx, nil, user.ID, 5); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)
		assert.True(t, mr.Exists("leaderboard:limit:10"))

		users, err := repo.User().GetLeaderboard(ctx, nil, 10)
		require.NoError(t, err)
		assert.Equal(t, 15, users[0].XPPoints)
	})
}
