package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nduva/learning-service/internal/config"
	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

const healthCheckTimeout = 3 * time.Second

type HandlerManager struct {
	courseHandler       *CourseHandler
	enrollmentHandler   *EnrollmentHandler
	quizHandler         *QuizHandler
	gamificationHandler *GamificationHandler
	communityHandler    *CommunityHandler
	userHandler         *UserHandler
	authMiddleware      *CasdoorAuthMiddleware
	rateLimiter         *RateLimiter
	serviceManager      services.ServiceManager
	rateLimitPerMinute  int
}

// NewHandlerManager wires handlers to services. redisClient may be nil, in
// which case write requests are not rate limited.
func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	cfg *config.Config,
	redisClient *redis.Client,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(cfg.AuthMode, cfg.Casdoor, serviceManager.User(), logger)
	return newHandlerManager(serviceManager, validator, logger, cfg, redisClient, authMiddleware)
}

func newHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	cfg *config.Config,
	redisClient *redis.Client,
	authMiddleware *CasdoorAuthMiddleware,
) *HandlerManager {
	var limiter *RateLimiter
	if redisClient != nil {
		limiter = NewRateLimiter(redisClient, logger)
	}

	return &HandlerManager{
		courseHandler:       NewCourseHandler(serviceManager.Course(), serviceManager.Export(), validator, logger),
		enrollmentHandler:   NewEnrollmentHandler(serviceManager.Progress(), validator, logger),
		quizHandler:         NewQuizHandler(serviceManager.Quiz(), logger),
		gamificationHandler: NewGamificationHandler(serviceManager.Gamification(), serviceManager.User(), serviceManager.Export(), validator, logger),
		communityHandler:    NewCommunityHandler(serviceManager.Community(), validator, logger),
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		authMiddleware:      authMiddleware,
		rateLimiter:         limiter,
		serviceManager:      serviceManager,
		rateLimitPerMinute:  cfg.RateLimitPerMinute,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.health)

	api := router.Group("/api")

	// Public reads; the caller is resolved when credentials are present
	public := api.Group("")
	public.Use(hm.authMiddleware.OptionalAuthMiddleware())
	{
		public.GET("/courses", hm.courseHandler.ListCourses)
		public.GET("/courses/:id", hm.courseHandler.GetCourse)
		public.GET("/courses/:id/modules", hm.courseHandler.ListModules)
		public.GET("/modules/:moduleId/sessions", hm.courseHandler.ListSessions)
		public.GET("/sessions/:sessionId/quiz", hm.quizHandler.GetQuiz)

		public.GET("/leaderboard", hm.gamificationHandler.GetLeaderboard)
		public.GET("/leaderboard/export", hm.gamificationHandler.ExportLeaderboard)
		public.GET("/badges", hm.gamificationHandler.ListBadges)

		public.GET("/posts", hm.communityHandler.ListPosts)
		public.GET("/posts/:postId", hm.communityHandler.GetPost)
		public.GET("/posts/:postId/comments", hm.communityHandler.ListComments)
	}

	authed := api.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	authed.Use(WritesOnly(hm.rateLimiter.Limit("write", hm.rateLimitPerMinute, time.Minute)))
	{
		// Identity bootstrap
		authed.GET("/auth/user", hm.userHandler.GetAuthUser)
		authed.POST("/auth/complete-profile", hm.userHandler.CompleteProfile)
		authed.POST("/teacher-applications", hm.userHandler.SubmitTeacherApplication)

		// Enrollment & progress
		authed.GET("/enrollments/me", hm.enrollmentHandler.ListMyEnrollments)
		authed.POST("/enrollments", hm.enrollmentHandler.Enroll)
		authed.PUT("/enrollments/:id/progress", hm.enrollmentHandler.UpdateProgress)
		authed.GET("/users/me/badges", hm.gamificationHandler.ListMyBadges)

		// Quizzes
		authed.POST("/quizzes/:quizId/attempts", hm.quizHandler.SubmitAttempt)
		authed.GET("/quizzes/:quizId/attempts/me", hm.quizHandler.ListMyAttempts)

		// Community writes
		authed.POST("/posts", hm.communityHandler.CreatePost)
		authed.POST("/posts/:postId/comments", hm.communityHandler.CreateComment)

		// Course authoring - Teachers and Admins only
		authoring := authed.Group("")
		authoring.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher))
		{
			authoring.POST("/courses", hm.courseHandler.CreateCourse)
			authoring.PUT("/courses/:id", hm.courseHandler.UpdateCourse)
			authoring.POST("/courses/:id/publish", hm.courseHandler.PublishCourse)
			authoring.POST("/courses/:id/archive", hm.courseHandler.ArchiveCourse)
			authoring.GET("/courses/:id/analytics", hm.courseHandler.GetCourseAnalytics)
			authoring.GET("/courses/:id/analytics/export", hm.courseHandler.ExportCourseAnalytics)
			authoring.POST("/courses/:id/modules", hm.courseHandler.CreateModule)
			authoring.DELETE("/modules/:moduleId", hm.courseHandler.DeleteModule)
			authoring.POST("/modules/:moduleId/sessions", hm.courseHandler.CreateSession)
			authoring.DELETE("/sessions/:sessionId", hm.courseHandler.DeleteSession)
			authoring.POST("/sessions/:sessionId/quiz", hm.quizHandler.CreateQuiz)
			authoring.GET("/teacher/courses", hm.courseHandler.ListTeacherCourses)
		}

		// Administration - Admins only
		admin := authed.Group("")
		admin.Use(hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin))
		{
			admin.POST("/badges", hm.gamificationHandler.CreateBadge)
			admin.GET("/admin/users", hm.userHandler.ListUsers)
			admin.POST("/admin/users/:id/badges", hm.gamificationHandler.AwardBadge)
			admin.POST("/admin/users/:id/xp", hm.gamificationHandler.AdjustXP)
			admin.POST("/admin/users/:id/deactivate", hm.gamificationHandler.DeactivateUser)
			admin.GET("/admin/teacher-applications", hm.userHandler.ListTeacherApplications)
			admin.PUT("/admin/teacher-applications/:id/review", hm.userHandler.ReviewTeacherApplication)
		}
	}
}

// health reports liveness plus store reachability
func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "learning-service",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "learning-service",
	})
}
