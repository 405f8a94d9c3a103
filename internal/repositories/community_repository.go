package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
)

// CommunityRepository interface for posts and comments
type CommunityRepository interface {
	// Posts
	CreatePost(ctx context.Context, tx *gorm.DB, post *models.Post) error
	GetPostByID(ctx context.Context, tx *gorm.DB, id string) (*models.Post, error)
	ListPosts(ctx context.Context, tx *gorm.DB, filters PostFilters) ([]*models.Post, error)
	IncrementCommentCount(ctx context.Context, tx *gorm.DB, postID string, delta int) error

	// Comments
	CreateComment(ctx context.Context, tx *gorm.DB, comment *models.Comment) error
	GetCommentByID(ctx context.Context, tx *gorm.DB, id string) (*models.Comment, error)
	ListComments(ctx context.Context, tx *gorm.DB, postID string) ([]*models.Comment, error)
}

// TeacherApplicationRepository interface for teacher onboarding
type TeacherApplicationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, app *models.TeacherApplication) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TeacherApplication, error)
	GetPendingByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.TeacherApplication, error)
	List(ctx context.Context, tx *gorm.DB, filters TeacherApplicationFilters) ([]*models.TeacherApplication, error)
	Update(ctx context.Context, tx *gorm.DB, app *models.TeacherApplication) error
}
