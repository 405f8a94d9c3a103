package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

type TeacherApplication struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:255"`
	UserID             string            `json:"userId" gorm:"not null;size:255;index"`
	ExpertiseAreas     datatypes.JSON    `json:"expertiseAreas"`
	TeachingExperience string            `json:"teachingExperience" gorm:"not null;type:text"`
	CourseIdeas        string            `json:"courseIdeas" gorm:"not null;type:text"`
	Bio                string            `json:"bio" gorm:"not null;type:text"`
	WebsiteURL         *string           `json:"websiteUrl" gorm:"size:500"`
	LinkedinURL        *string           `json:"linkedinUrl" gorm:"size:500"`
	TwitterURL         *string           `json:"twitterUrl" gorm:"size:500"`
	Status             ApplicationStatus `json:"status" gorm:"not null;size:20;default:pending;index"`
	ReviewedBy         *string           `json:"reviewedBy" gorm:"size:255"`
	ReviewedAt         *time.Time        `json:"reviewedAt"`
	ReviewNotes        *string           `json:"reviewNotes" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (TeacherApplication) TableName() string {
	return "teacher_applications"
}

func (a *TeacherApplication) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
