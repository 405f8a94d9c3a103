package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/nduva/learning-service/internal/events"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
)

type communityService struct {
	baseService
}

func NewCommunityService(base baseService) CommunityService {
	return &communityService{baseService: base}
}

// ===== POSTS =====

func (s *communityService) CreatePost(ctx context.Context, req *CreatePostRequest, author Caller) (*models.Post, error) {
	s.logger.Info("Creating post", "user_id", author.ID, "post_type", req.PostType)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if req.CourseID != nil {
		if _, err := s.repo.Course().GetByID(ctx, nil, *req.CourseID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrCourseNotFound
			}
			return nil, fmt.Errorf("failed to get course: %w", err)
		}
	}

	postType := req.PostType
	if postType == "" {
		postType = models.PostDiscussion
	}

	post := &models.Post{
		UserID:   author.ID,
		CourseID: req.CourseID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		PostType: postType,
		Status:   models.ContentActive,
	}
	if err := s.repo.Community().CreatePost(ctx, nil, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	s.publish(ctx, events.PostCreated, map[string]interface{}{
		"postId":   post.ID,
		"userId":   author.ID,
		"courseId": derefString(post.CourseID),
		"postType": post.PostType,
	})

	return post, nil
}

func (s *communityService) ListPosts(ctx context.Context, filters repositories.PostFilters) ([]*models.Post, error) {
	posts, err := s.repo.Community().ListPosts(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (s *communityService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	post, err := s.repo.Community().GetPostByID(ctx, nil, postID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

// ===== COMMENTS =====

// CreateComment inserts the comment and bumps the post's comment count in
// one transaction
func (s *communityService) CreateComment(ctx context.Context, postID string, req *CreateCommentRequest, author Caller) (*models.Comment, error) {
	s.logger.Info("Creating comment", "post_id", postID, "user_id", author.ID)

	if errors := s.validator.GetBusinessValidator().Validate(req); len(errors) > 0 {
		return nil, errors
	}

	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	if req.ParentCommentID != nil {
		parent, err := s.repo.Community().GetCommentByID(ctx, nil, *req.ParentCommentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrCommentNotFound
			}
			return nil, fmt.Errorf("failed to get parent comment: %w", err)
		}
		if errors := s.validator.GetBusinessValidator().ValidateCommentParent(parent, postID); len(errors) > 0 {
			return nil, errors
		}
	}

	comment := &models.Comment{
		PostID:          postID,
		UserID:          author.ID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
		Status:          models.ContentActive,
	}

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Community().CreateComment(ctx, tx, comment); err != nil {
			return err
		}
		return s.repo.Community().IncrementCommentCount(ctx, tx, postID, 1)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.publish(ctx, events.CommentCreated, map[string]interface{}{
		"commentId": comment.ID,
		"postId":    postID,
		"userId":    author.ID,
	})

	return comment, nil
}

func (s *communityService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	comments, err := s.repo.Community().ListComments(ctx, nil, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}
