package services

import (
	"context"
	"time"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/validator"
)

// ===== CALLER =====

// Caller is the authenticated user on whose behalf an operation runs
type Caller struct {
	ID   string
	Role models.UserRole
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func (c Caller) CanAuthor() bool {
	return c.Role.CanAuthor()
}

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateCourseRequest = validator.CourseCreateRequest
type UpdateCourseRequest = validator.CourseUpdateRequest
type CreateModuleRequest = validator.ModuleCreateRequest
type CreateSessionRequest = validator.SessionCreateRequest
type ProgressUpdateRequest = validator.ProgressUpdateRequest
type CreateQuizRequest = validator.QuizCreateRequest
type SubmitQuizRequest = validator.QuizSubmitRequest
type CreateBadgeRequest = validator.BadgeCreateRequest
type AwardBadgeRequest = validator.AwardBadgeRequest
type CreatePostRequest = validator.PostCreateRequest
type CreateCommentRequest = validator.CommentCreateRequest
type CompleteProfileRequest = validator.CompleteProfileRequest
type TeacherApplicationRequest = validator.TeacherApplicationRequest
type ReviewApplicationRequest = validator.ReviewApplicationRequest

// CourseListFilters mirrors the public course listing query
type CourseListFilters struct {
	AgeGroup   *models.AgeGroup
	Difficulty *models.DifficultyLevel
	Status     *models.CourseStatus
	Limit      int
	Offset     int
}

// ProgressResult reports what a progress update changed
type ProgressResult struct {
	Enrollment *models.Enrollment `json:"enrollment"`
	XPAwarded  int                `json:"xpAwarded"`
	Completed  bool               `json:"completed"`
}

// QuizResult is a graded attempt with the per-question breakdown
type QuizResult struct {
	Attempt           *models.QuizAttempt `json:"attempt"`
	Questions         []QuestionResult    `json:"questions"`
	XPAwarded         int                 `json:"xpAwarded"`
	AttemptsRemaining int                 `json:"attemptsRemaining"`
}

// BadgeEarned is a badge together with when the user earned it
type BadgeEarned struct {
	*models.Badge
	EarnedAt time.Time `json:"earnedAt"`
}

// ExportFile is a generated spreadsheet ready to stream
type ExportFile struct {
	FileName string
	Content  []byte
}

// IdentityClaims is what the identity provider tells us about a caller
type IdentityClaims struct {
	ID              string
	Email           string
	DisplayName     string
	ProfileImageURL string
}

// ===== SERVICE INTERFACES =====

type CourseService interface {
	Create(ctx context.Context, req *CreateCourseRequest, caller Caller) (*models.Course, error)
	Update(ctx context.Context, courseID string, req *UpdateCourseRequest, caller Caller) (*models.Course, error)
	Publish(ctx context.Context, courseID string, caller Caller) (*models.Course, error)
	Archive(ctx context.Context, courseID string, caller Caller) (*models.Course, error)
	Get(ctx context.Context, courseID string, caller *Caller) (*models.Course, error)
	List(ctx context.Context, filters CourseListFilters, caller *Caller) ([]*models.Course, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]*models.Course, error)
	GetAnalytics(ctx context.Context, courseID string, caller Caller) (*models.CourseAnalytics, error)

	CreateModule(ctx context.Context, courseID string, req *CreateModuleRequest, caller Caller) (*models.Module, error)
	ListModules(ctx context.Context, courseID string, caller *Caller) ([]*models.Module, error)
	DeleteModule(ctx context.Context, moduleID string, caller Caller) error

	CreateSession(ctx context.Context, moduleID string, req *CreateSessionRequest, caller Caller) (*models.CourseSession, error)
	ListSessions(ctx context.Context, moduleID string, caller *Caller) ([]*models.CourseSession, error)
	DeleteSession(ctx context.Context, sessionID string, caller Caller) error
}

type ProgressService interface {
	// Enroll is idempotent; created is false when the enrollment already existed
	Enroll(ctx context.Context, courseID string, caller Caller) (enrollment *models.Enrollment, created bool, err error)
	ListMyEnrollments(ctx context.Context, caller Caller) ([]*models.Enrollment, error)
	RecordProgress(ctx context.Context, enrollmentID string, req *ProgressUpdateRequest, caller Caller) (*ProgressResult, error)
}

type QuizService interface {
	CreateQuiz(ctx context.Context, sessionID string, req *CreateQuizRequest, caller Caller) (*models.Quiz, error)
	// GetQuiz strips answer keys unless the caller manages the course
	GetQuiz(ctx context.Context, sessionID string, caller *Caller) (*models.Quiz, error)
	SubmitAttempt(ctx context.Context, quizID string, req *SubmitQuizRequest, caller Caller) (*QuizResult, error)
	ListMyAttempts(ctx context.Context, quizID string, caller Caller) ([]*models.QuizAttempt, error)
}

type GamificationService interface {
	AddUserXP(ctx context.Context, userID string, delta int, reason string) (*models.User, error)
	TouchStreak(ctx context.Context, userID string, today time.Time) (*models.User, error)
	ListUserBadges(ctx context.Context, userID string) ([]*BadgeEarned, error)
	AwardBadge(ctx context.Context, userID string, req *AwardBadgeRequest, caller Caller) (*models.UserBadge, error)
	CreateBadge(ctx context.Context, req *CreateBadgeRequest, caller Caller) (*models.Badge, error)
	ListBadges(ctx context.Context) ([]*models.Badge, error)
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

type CommunityService interface {
	CreatePost(ctx context.Context, req *CreatePostRequest, author Caller) (*models.Post, error)
	ListPosts(ctx context.Context, filters repositories.PostFilters) ([]*models.Post, error)
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	CreateComment(ctx context.Context, postID string, req *CreateCommentRequest, author Caller) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
}

type UserService interface {
	// ResolveIdentity finds or creates the user behind verified identity claims
	ResolveIdentity(ctx context.Context, claims IdentityClaims) (*models.User, error)
	// EnsureDevUser returns the development user, creating it on first use
	EnsureDevUser(ctx context.Context, userID string) (*models.User, error)
	GetCurrentUser(ctx context.Context, caller Caller) (*models.User, error)
	CompleteProfile(ctx context.Context, req *CompleteProfileRequest, caller Caller) (*models.User, error)

	SubmitTeacherApplication(ctx context.Context, req *TeacherApplicationRequest, caller Caller) (*models.TeacherApplication, error)
	ListTeacherApplications(ctx context.Context, status *models.ApplicationStatus, caller Caller) ([]*models.TeacherApplication, error)
	ReviewTeacherApplication(ctx context.Context, applicationID string, req *ReviewApplicationRequest, caller Caller) (*models.TeacherApplication, error)

	ListUsers(ctx context.Context, filters repositories.UserFilters, caller Caller) ([]*models.User, int64, error)
	DeactivateUser(ctx context.Context, userID string, caller Caller) (*models.User, error)
	AdjustUserXP(ctx context.Context, userID string, delta int, caller Caller) (*models.User, error)
}

type ExportService interface {
	ExportCourseAnalytics(ctx context.Context, courseID string, caller Caller) (*ExportFile, error)
	ExportLeaderboard(ctx context.Context, limit int) (*ExportFile, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Course() CourseService
	Progress() ProgressService
	Quiz() QuizService
	Gamification() GamificationService
	Community() CommunityService
	User() UserService
	Export() ExportService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
