package models

import (
	"time"

	"gorm.io/gorm"
)

type PostType string

const (
	PostDiscussion      PostType = "discussion"
	PostQuestion        PostType = "question"
	PostProjectShowcase PostType = "project_showcase"
)

type ContentStatus string

const (
	ContentActive  ContentStatus = "active"
	ContentHidden  ContentStatus = "hidden"
	ContentDeleted ContentStatus = "deleted"
)

type Post struct {
	ID           string        `json:"id" gorm:"primaryKey;size:255"`
	UserID       string        `json:"userId" gorm:"not null;size:255;index"`
	CourseID     *string       `json:"courseId" gorm:"size:255;index"`
	Title        string        `json:"title" gorm:"not null;size:200"`
	Content      string        `json:"content" gorm:"not null;type:text"`
	PostType     PostType      `json:"postType" gorm:"not null;size:30;default:discussion"`
	LikeCount    int           `json:"likeCount" gorm:"not null;default:0"`
	CommentCount int           `json:"commentCount" gorm:"not null;default:0"`
	IsPinned     bool          `json:"isPinned" gorm:"not null;default:false"`
	Status       ContentStatus `json:"status" gorm:"not null;size:20;default:active;index"`

	CreatedAt time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

type Comment struct {
	ID              string        `json:"id" gorm:"primaryKey;size:255"`
	PostID          string        `json:"postId" gorm:"not null;size:255;index"`
	UserID          string        `json:"userId" gorm:"not null;size:255;index"`
	Content         string        `json:"content" gorm:"not null;type:text"`
	LikeCount       int           `json:"likeCount" gorm:"not null;default:0"`
	ParentCommentID *string       `json:"parentCommentId" gorm:"size:255;index"`
	Status          ContentStatus `json:"status" gorm:"not null;size:20;default:active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
