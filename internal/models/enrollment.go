package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

type Enrollment struct {
	ID                 string           `json:"id" gorm:"primaryKey;size:255"`
	UserID             string           `json:"userId" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course"`
	CourseID           string           `json:"courseId" gorm:"not null;size:255;uniqueIndex:idx_enrollment_user_course;index"`
	EnrolledAt         time.Time        `json:"enrolledAt" gorm:"not null"`
	ProgressPercentage int              `json:"progressPercentage" gorm:"not null;default:0"`
	CompletedLessons   int              `json:"completedLessons" gorm:"not null;default:0"`
	Status             EnrollmentStatus `json:"status" gorm:"not null;size:20;default:active;index"`
	LastAccessedAt     *time.Time       `json:"lastAccessedAt"`
	CompletedAt        *time.Time       `json:"completedAt"`

	Course *Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	if e.EnrolledAt.IsZero() {
		e.EnrolledAt = time.Now().UTC()
	}
	return nil
}

type BadgeType string

const (
	BadgeAchievement BadgeType = "achievement"
	BadgeStreak      BadgeType = "streak"
	BadgeCompletion  BadgeType = "completion"
	BadgeCommunity   BadgeType = "community"
)

// Badge is a badge template; criteria are descriptive only
type Badge struct {
	ID          string         `json:"id" gorm:"primaryKey;size:255"`
	Name        string         `json:"name" gorm:"not null;size:100;uniqueIndex"`
	Description *string        `json:"description" gorm:"type:text"`
	IconURL     *string        `json:"iconUrl" gorm:"size:500"`
	BadgeType   BadgeType      `json:"badgeType" gorm:"not null;size:20"`
	Criteria    datatypes.JSON `json:"criteria"`
	XPReward    int            `json:"xpReward" gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (Badge) TableName() string {
	return "badges"
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// UserBadge records that a user earned a badge
type UserBadge struct {
	ID       string         `json:"id" gorm:"primaryKey;size:255"`
	UserID   string         `json:"userId" gorm:"not null;size:255;uniqueIndex:idx_user_badge"`
	BadgeID  string         `json:"badgeId" gorm:"not null;size:255;uniqueIndex:idx_user_badge"`
	EarnedAt time.Time      `json:"earnedAt" gorm:"not null"`
	Metadata datatypes.JSON `json:"metadata"`

	Badge *Badge `json:"badge,omitempty" gorm:"foreignKey:BadgeID"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}

func (ub *UserBadge) BeforeCreate(tx *gorm.DB) error {
	ensureID(&ub.ID)
	if ub.EarnedAt.IsZero() {
		ub.EarnedAt = time.Now().UTC()
	}
	return nil
}
