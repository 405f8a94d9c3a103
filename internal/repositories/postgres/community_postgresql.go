package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type CommunityPostgreSQL struct {
	helpers *SharedHelpers
}

func NewCommunityPostgreSQL(db *gorm.DB) repositories.CommunityRepository {
	return &CommunityPostgreSQL{helpers: NewSharedHelpers(db)}
}

// ===== POSTS =====

func (r *CommunityPostgreSQL) CreatePost(ctx context.Context, tx *gorm.DB, post *models.Post) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(post).Error; err != nil {
		return writeErr(err, "failed to create post")
	}
	return nil
}

func (r *CommunityPostgreSQL) GetPostByID(ctx context.Context, tx *gorm.DB, id string) (*models.Post, error) {
	db := r.helpers.getDB(tx)
	var post models.Post
	if err := db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

// ListPosts returns posts newest first
func (r *CommunityPostgreSQL) ListPosts(ctx context.Context, tx *gorm.DB, filters repositories.PostFilters) ([]*models.Post, error) {
	db := r.helpers.getDB(tx)
	query := r.helpers.ApplyPostFilters(db.WithContext(ctx).Model(&models.Post{}), filters)

	var posts []*models.Post
	if err := paginate(query, filters.Limit, filters.Offset).
		Order("created_at DESC").
		Order("id ASC").
		Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// IncrementCommentCount adjusts the counter in place
func (r *CommunityPostgreSQL) IncrementCommentCount(ctx context.Context, tx *gorm.DB, postID string, delta int) error {
	db := r.helpers.getDB(tx)
	result := db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to update comment count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound, "post", postID)
	}
	return nil
}

// ===== COMMENTS =====

func (r *CommunityPostgreSQL) CreateComment(ctx context.Context, tx *gorm.DB, comment *models.Comment) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(comment).Error; err != nil {
		return writeErr(err, "failed to create comment")
	}
	return nil
}

func (r *CommunityPostgreSQL) GetCommentByID(ctx context.Context, tx *gorm.DB, id string) (*models.Comment, error) {
	db := r.helpers.getDB(tx)
	var comment models.Comment
	if err := db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &comment, nil
}

func (r *CommunityPostgreSQL) ListComments(ctx context.Context, tx *gorm.DB, postID string) ([]*models.Comment, error) {
	db := r.helpers.getDB(tx)
	var comments []*models.Comment
	if err := db.WithContext(ctx).
		Where("post_id = ? AND status = ?", postID, models.ContentActive).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// ===== TEACHER APPLICATIONS =====

type TeacherApplicationPostgreSQL struct {
	helpers *SharedHelpers
}

func NewTeacherApplicationPostgreSQL(db *gorm.DB) repositories.TeacherApplicationRepository {
	return &TeacherApplicationPostgreSQL{helpers: NewSharedHelpers(db)}
}

func (r *TeacherApplicationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, app *models.TeacherApplication) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(app).Error; err != nil {
		return writeErr(err, "failed to create teacher application")
	}
	return nil
}

func (r *TeacherApplicationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.TeacherApplication, error) {
	db := r.helpers.getDB(tx)
	var app models.TeacherApplication
	if err := db.WithContext(ctx).First(&app, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "teacher application", id)
	}
	return &app, nil
}

func (r *TeacherApplicationPostgreSQL) GetPendingByUser(ctx context.Context, tx *gorm.DB, userID string) (*models.TeacherApplication, error) {
	db := r.helpers.getDB(tx)
	var app models.TeacherApplication
	if err := db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.ApplicationPending).
		First(&app).Error; err != nil {
		return nil, notFound(err, "pending teacher application for user", userID)
	}
	return &app, nil
}

func (r *TeacherApplicationPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.TeacherApplicationFilters) ([]*models.TeacherApplication, error) {
	db := r.helpers.getDB(tx)
	query := db.WithContext(ctx).Model(&models.TeacherApplication{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}

	var apps []*models.TeacherApplication
	if err := query.Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, fmt.Errorf("failed to list teacher applications: %w", err)
	}
	return apps, nil
}

func (r *TeacherApplicationPostgreSQL) Update(ctx context.Context, tx *gorm.DB, app *models.TeacherApplication) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Save(app).Error; err != nil {
		return writeErr(err, "failed to update teacher application")
	}
	return nil
}
