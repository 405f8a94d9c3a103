package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/testutil"
)

func TestCommunityPostgreSQL_ListPosts(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommunityPostgreSQL(db)
	ctx := context.Background()
	author := testutil.SeedUser(t, db, models.RoleLearner, 0)
	courseID := "course-1"

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	older := &models.Post{UserID: author.ID, Title: "older", Content: "x", PostType: models.PostDiscussion, Status: models.ContentActive, CreatedAt: base}
	newer := &models.Post{UserID: author.ID, Title: "newer", Content: "x", PostType: models.PostQuestion, Status: models.ContentActive, CourseID: &courseID, CreatedAt: base.Add(time.Hour)}
	hidden := &models.Post{UserID: author.ID, Title: "hidden", Content: "x", PostType: models.PostDiscussion, Status: models.ContentHidden, CreatedAt: base.Add(2 * time.Hour)}
	for _, p := range []*models.Post{older, newer, hidden} {
		require.NoError(t, repo.CreatePost(ctx, nil, p))
	}

	posts, err := repo.ListPosts(ctx, nil, repositories.PostFilters{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{hidden.ID, newer.ID, older.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	active := models.ContentActive
	posts, err = repo.ListPosts(ctx, nil, repositories.PostFilters{Status: &active})
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = repo.ListPosts(ctx, nil, repositories.PostFilters{CourseID: &courseID})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, newer.ID, posts[0].ID)
}

func TestCommunityPostgreSQL_IncrementCommentCount(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommunityPostgreSQL(db)
	ctx := context.Background()
	author := testutil.SeedUser(t, db, models.RoleLearner, 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c", PostType: models.PostDiscussion}
	require.NoError(t, repo.CreatePost(ctx, nil, post))

	require.NoError(t, repo.IncrementCommentCount(ctx, nil, post.ID, 1))
	require.NoError(t, repo.IncrementCommentCount(ctx, nil, post.ID, 1))

	got, err := repo.GetPostByID(ctx, nil, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)

	err = repo.IncrementCommentCount(ctx, nil, "missing", 1)
	assert.True(t, repositories.IsNotFoundError(err))
}

func TestBadgePostgreSQL_AwardIsIdempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBadgePostgreSQL(db)
	ctx := context.Background()
	user := testutil.SeedUser(t, db, models.RoleLearner, 0)

	badge := &models.Badge{Name: "First Steps", BadgeType: models.BadgeAchievement, XPReward: 20}
	require.NoError(t, repo.Create(ctx, nil, badge))

	created, err := repo.Award(ctx, nil, &models.UserBadge{UserID: user.ID, BadgeID: badge.ID})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Award(ctx, nil, &models.UserBadge{UserID: user.ID, BadgeID: badge.ID})
	require.NoError(t, err)
	assert.False(t, created)

	earned, err := repo.ListByUser(ctx, nil, user.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	require.NotNil(t, earned[0].Badge)
	assert.Equal(t, "First Steps", earned[0].Badge.Name)
	assert.False(t, earned[0].EarnedAt.IsZero())
}

func TestPostgreSQLRepository_WithTransactionRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db})
	ctx := context.Background()
	author := testutil.SeedUser(t, db, models.RoleLearner, 0)

	post := &models.Post{UserID: author.ID, Title: "t", Content: "c", PostType: models.PostDiscussion}
	require.NoError(t, repo.Community().CreatePost(ctx, nil, post))

	err := repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Community().CreateComment(ctx, nil, &models.Comment{PostID: post.ID, UserID: author.ID, Content: "hi"}); err != nil {
			return err
		}
		return txRepo.Community().IncrementCommentCount(ctx, nil, "missing", 1)
	})
	require.Error(t, err)

	comments, err := repo.Community().ListComments(ctx, nil, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}
