package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AgeGroup string

const (
	AgeGroup10To13 AgeGroup = "10-13"
	AgeGroup14To17 AgeGroup = "14-17"
	AgeGroup18To21 AgeGroup = "18-21"
)

type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusArchived  CourseStatus = "archived"
)

type LessonType string

const (
	LessonVideo   LessonType = "video"
	LessonProject LessonType = "project"
	LessonQuiz    LessonType = "quiz"
)

type Course struct {
	ID                       string          `json:"id" gorm:"primaryKey;size:255"`
	Title                    string          `json:"title" gorm:"not null;size:200;index"`
	Description              *string         `json:"description" gorm:"type:text"`
	ThumbnailURL             *string         `json:"thumbnailUrl" gorm:"size:500"`
	CreatedByTeacherID       string          `json:"createdByTeacherId" gorm:"not null;size:255;index"`
	AgeGroup                 AgeGroup        `json:"ageGroup" gorm:"not null;size:10;index"`
	Difficulty               DifficultyLevel `json:"difficulty" gorm:"not null;size:20;index"`
	EstimatedDurationMinutes *int            `json:"estimatedDuration"`
	LearningObjectives       datatypes.JSON  `json:"learningObjectives"`
	Status                   CourseStatus    `json:"status" gorm:"not null;size:20;default:draft;index"`
	TotalLessons             int             `json:"totalLessons" gorm:"not null;default:0"`
	PublishedAt              *time.Time      `json:"publishedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Modules []Module `json:"modules,omitempty" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// IsOwnedBy reports whether userID authored the course
func (c *Course) IsOwnedBy(userID string) bool {
	return c.CreatedByTeacherID == userID
}

type Module struct {
	ID            string  `json:"id" gorm:"primaryKey;size:255"`
	CourseID      string  `json:"courseId" gorm:"not null;size:255;uniqueIndex:idx_module_course_order"`
	SequenceOrder int     `json:"sequenceOrder" gorm:"not null;uniqueIndex:idx_module_course_order"`
	Title         string  `json:"title" gorm:"not null;size:200"`
	Description   *string `json:"description" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Sessions []CourseSession `json:"sessions,omitempty" gorm:"foreignKey:ModuleID"`
}

func (Module) TableName() string {
	return "modules"
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// CourseSession is a single lesson inside a module
type CourseSession struct {
	ID              string         `json:"id" gorm:"primaryKey;size:255"`
	ModuleID        string         `json:"moduleId" gorm:"not null;size:255;uniqueIndex:idx_session_module_order"`
	SequenceOrder   int            `json:"sequenceOrder" gorm:"not null;uniqueIndex:idx_session_module_order"`
	Title           string         `json:"title" gorm:"not null;size:200"`
	Description     *string        `json:"description" gorm:"type:text"`
	VideoURL        *string        `json:"videoUrl" gorm:"size:500"`
	DurationSeconds *int           `json:"durationSeconds"`
	Transcript      datatypes.JSON `json:"transcript"`
	Captions        datatypes.JSON `json:"captions"`
	LessonType      LessonType     `json:"lessonType" gorm:"not null;size:20;default:video"`
	Prerequisites   datatypes.JSON `json:"prerequisites"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CourseSession) TableName() string {
	return "course_sessions"
}

func (s *CourseSession) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
