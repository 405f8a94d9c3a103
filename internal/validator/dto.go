package validator

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/nduva/learning-service/internal/models"
)

// ===== COURSE AUTHORING =====

// CourseCreateRequest represents the request structure for creating courses
type CourseCreateRequest struct {
	Title              string                 `json:"title" validate:"required,course_title"`
	Description        *string                `json:"description" validate:"omitempty,max=5000"`
	ThumbnailURL       *string                `json:"thumbnailUrl" validate:"omitempty,url,max=500"`
	AgeGroup           models.AgeGroup        `json:"ageGroup" validate:"required,age_group"`
	Difficulty         models.DifficultyLevel `json:"difficulty" validate:"required,difficulty"`
	EstimatedDuration  *int                   `json:"estimatedDuration" validate:"omitempty,min=1,max=100000"`
	LearningObjectives []string               `json:"learningObjectives" validate:"omitempty,max=50,dive,max=500"`
}

// CourseUpdateRequest carries only the fields to change
type CourseUpdateRequest struct {
	Title              *string                 `json:"title" validate:"omitempty,course_title"`
	Description        *string                 `json:"description" validate:"omitempty,max=5000"`
	ThumbnailURL       *string                 `json:"thumbnailUrl" validate:"omitempty,url,max=500"`
	AgeGroup           *models.AgeGroup        `json:"ageGroup" validate:"omitempty,age_group"`
	Difficulty         *models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty"`
	EstimatedDuration  *int                    `json:"estimatedDuration" validate:"omitempty,min=1,max=100000"`
	LearningObjectives []string                `json:"learningObjectives" validate:"omitempty,max=50,dive,max=500"`
}

// CourseListRequest is bound from the query string
type CourseListRequest struct {
	AgeGroup   *models.AgeGroup        `form:"ageGroup" json:"ageGroup" validate:"omitempty,age_group"`
	Difficulty *models.DifficultyLevel `form:"difficulty" json:"difficulty" validate:"omitempty,difficulty"`
	Status     *models.CourseStatus    `form:"status" json:"status" validate:"omitempty,course_status"`
	Limit      int                     `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
	Offset     int                     `form:"offset" json:"offset" validate:"omitempty,min=0"`
}

type ModuleCreateRequest struct {
	SequenceOrder int     `json:"sequenceOrder" validate:"required,min=1"`
	Title         string  `json:"title" validate:"required,min=1,max=200"`
	Description   *string `json:"description" validate:"omitempty,max=5000"`
}

type SessionCreateRequest struct {
	SequenceOrder   int               `json:"sequenceOrder" validate:"required,min=1"`
	Title           string            `json:"title" validate:"required,min=1,max=200"`
	Description     *string           `json:"description" validate:"omitempty,max=5000"`
	VideoURL        *string           `json:"videoUrl" validate:"omitempty,url,max=500"`
	DurationSeconds *int              `json:"durationSeconds" validate:"omitempty,min=0"`
	LessonType      models.LessonType `json:"lessonType" validate:"omitempty,lesson_type"`
	Transcript      datatypes.JSON    `json:"transcript"`
	Captions        datatypes.JSON    `json:"captions"`
	Prerequisites   []string          `json:"prerequisites" validate:"omitempty,dive,required"`
}

// ===== QUIZZES =====

type QuizCreateRequest struct {
	Title                  string                `json:"title" validate:"required,min=1,max=200"`
	Description            *string               `json:"description" validate:"omitempty,max=5000"`
	PassingScorePercentage *int                  `json:"passingScorePercentage" validate:"omitempty,min=1,max=100"`
	TimeLimitMinutes       *int                  `json:"timeLimitMinutes" validate:"omitempty,min=1,max=600"`
	MaxAttempts            *int                  `json:"maxAttempts" validate:"omitempty,min=1,max=100"`
	XPReward               int                   `json:"xpReward" validate:"min=0,max=10000"`
	Questions              []QuizQuestionRequest `json:"questions" validate:"required,min=1,max=100,dive"`
}

// QuizQuestionRequest is stored in the order given
type QuizQuestionRequest struct {
	QuestionText  string              `json:"questionText" validate:"required,min=1,max=2000"`
	QuestionType  models.QuestionType `json:"questionType" validate:"required,question_type"`
	Options       []string            `json:"options" validate:"omitempty,max=20,dive,min=1,max=500"`
	CorrectAnswer json.RawMessage     `json:"correctAnswer" validate:"required"`
	Explanation   *string             `json:"explanation" validate:"omitempty,max=2000"`
	Points        int                 `json:"points" validate:"omitempty,min=1,max=1000"`
}

// QuizSubmitRequest maps question ids to answers; unanswered questions
// score zero
type QuizSubmitRequest struct {
	Answers          map[string]json.RawMessage `json:"answers" validate:"required"`
	TimeTakenSeconds *int                       `json:"timeTakenSeconds" validate:"omitempty,min=0"`
}

// ===== PROGRESS & GAMIFICATION =====

type EnrollRequest struct {
	CourseID string `json:"courseId" validate:"required"`
}

// ProgressUpdateRequest values are clamped server-side rather than rejected
type ProgressUpdateRequest struct {
	ProgressPercentage int `json:"progressPercentage"`
	CompletedLessons   int `json:"completedLessons"`
}

type BadgeCreateRequest struct {
	Name        string           `json:"name" validate:"required,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=1000"`
	IconURL     *string          `json:"iconUrl" validate:"omitempty,url,max=500"`
	BadgeType   models.BadgeType `json:"badgeType" validate:"required,badge_type"`
	Criteria    datatypes.JSON   `json:"criteria"`
	XPReward    int              `json:"xpReward" validate:"min=0,max=10000"`
}

type AwardBadgeRequest struct {
	BadgeID  string         `json:"badgeId" validate:"required"`
	Metadata datatypes.JSON `json:"metadata"`
}

type XPAdjustRequest struct {
	Delta  int     `json:"delta" validate:"nonzero"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// ===== COMMUNITY =====

type PostCreateRequest struct {
	Title    string          `json:"title" validate:"required,min=1,max=200"`
	Content  string          `json:"content" validate:"required,min=1,max=10000"`
	PostType models.PostType `json:"postType" validate:"omitempty,post_type"`
	CourseID *string         `json:"courseId" validate:"omitempty,min=1"`
}

type PostListRequest struct {
	CourseID *string               `form:"courseId" json:"courseId"`
	Status   *models.ContentStatus `form:"status" json:"status" validate:"omitempty,content_status"`
	Limit    int                   `form:"limit" json:"limit" validate:"omitempty,min=1,max=200"`
	Offset   int                   `form:"offset" json:"offset" validate:"omitempty,min=0"`
}

type CommentCreateRequest struct {
	Content         string  `json:"content" validate:"required,min=1,max=5000"`
	ParentCommentID *string `json:"parentCommentId" validate:"omitempty,min=1"`
}

// ===== IDENTITY & ONBOARDING =====

type CompleteProfileRequest struct {
	FirstName   string                  `json:"firstName" validate:"required,min=1,max=100"`
	LastName    string                  `json:"lastName" validate:"required,min=1,max=100"`
	Role        models.UserRole         `json:"role" validate:"required,profile_role"`
	DateOfBirth *string                 `json:"dateOfBirth" validate:"omitempty,date_of_birth"`
	Preferences *models.UserPreferences `json:"preferences"`
}

type TeacherApplicationRequest struct {
	ExpertiseAreas     []string `json:"expertiseAreas" validate:"required,min=1,max=20,dive,min=1,max=100"`
	TeachingExperience string   `json:"teachingExperience" validate:"required,min=50,max=5000"`
	CourseIdeas        string   `json:"courseIdeas" validate:"required,min=50,max=5000"`
	Bio                string   `json:"bio" validate:"required,min=100,max=5000"`
	WebsiteURL         *string  `json:"websiteUrl" validate:"omitempty,url,max=500"`
	LinkedinURL        *string  `json:"linkedinUrl" validate:"omitempty,url,max=500"`
	TwitterURL         *string  `json:"twitterUrl" validate:"omitempty,url,max=500"`
}

type ReviewApplicationRequest struct {
	Status      models.ApplicationStatus `json:"status" validate:"required,oneof=approved rejected"`
	ReviewNotes *string                  `json:"reviewNotes" validate:"omitempty,max=2000"`
}
