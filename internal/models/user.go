package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleLearner UserRole = "learner"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// IsValid reports whether r is a known role
func (r UserRole) IsValid() bool {
	switch r {
	case RoleLearner, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether the role may create and edit courses
func (r UserRole) CanAuthor() bool {
	return r == RoleTeacher || r == RoleAdmin
}

type User struct {
	ID              string     `json:"id" gorm:"primaryKey;size:255"`
	Email           *string    `json:"email" gorm:"uniqueIndex;size:255"`
	FirstName       *string    `json:"firstName" gorm:"size:100"`
	LastName        *string    `json:"lastName" gorm:"size:100"`
	FullName        string     `json:"fullName" gorm:"size:200"`
	ProfileImageURL *string    `json:"profileImageUrl" gorm:"size:500"`
	DateOfBirth     *time.Time `json:"dateOfBirth"`
	Role            UserRole   `json:"role" gorm:"not null;size:20;default:learner;index"`

	// Gamification
	XPPoints       int        `json:"xpPoints" gorm:"not null;default:0;index"`
	CurrentStreak  int        `json:"currentStreak" gorm:"not null;default:0"`
	LastActiveDate *time.Time `json:"lastActiveDate"`

	Preferences datatypes.JSON `json:"preferences"`

	// Teacher profile
	Bio                *string        `json:"bio" gorm:"type:text"`
	ExpertiseAreas     datatypes.JSON `json:"expertiseAreas"`
	TeachingExperience *string        `json:"teachingExperience" gorm:"type:text"`
	WebsiteURL         *string        `json:"websiteUrl" gorm:"size:500"`
	LinkedinURL        *string        `json:"linkedinUrl" gorm:"size:500"`
	TwitterURL         *string        `json:"twitterUrl" gorm:"size:500"`

	IsActive bool `json:"isActive" gorm:"not null;default:true;index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// DisplayName returns the full name, falling back to first/last name
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	return name
}

// UserPreferences is the shape read by onboarding; everything else in
// the preferences bag is passed through untouched.
type UserPreferences struct {
	Interests     []string `json:"interests,omitempty"`
	SkillLevel    string   `json:"skillLevel,omitempty"`
	LearningGoals string   `json:"learningGoals,omitempty"`
	LearningStyle string   `json:"learningStyle,omitempty"`
}
