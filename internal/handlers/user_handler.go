package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// GetAuthUser returns the signed-in user
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/user [get]
func (h *UserHandler) GetAuthUser(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	user, err := h.userService.GetCurrentUser(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// CompleteProfile finishes onboarding for the signed-in user
// @Summary Complete profile
// @Tags auth
// @Accept json
// @Produce json
// @Param profile body services.CompleteProfileRequest true "Profile data"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /auth/complete-profile [post]
func (h *UserHandler) CompleteProfile(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req services.CompleteProfileRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Completing profile", "role", req.Role)

	user, err := h.userService.CompleteProfile(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// SubmitTeacherApplication submits the caller's application to teach
// @Summary Apply to teach
// @Tags teacher-applications
// @Accept json
// @Produce json
// @Param application body services.TeacherApplicationRequest true "Application"
// @Success 201 {object} models.TeacherApplication
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 409 {object} ErrorResponse "Pending application exists"
// @Router /teacher-applications [post]
func (h *UserHandler) SubmitTeacherApplication(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req services.TeacherApplicationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting teacher application")

	application, err := h.userService.SubmitTeacherApplication(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, application)
}

// ===== ADMIN =====

// ListTeacherApplications lists applications, optionally by status
// @Summary List teacher applications
// @Tags admin
// @Produce json
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} models.TeacherApplication
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /admin/teacher-applications [get]
func (h *UserHandler) ListTeacherApplications(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	applications, err := h.userService.ListTeacherApplications(
		c.Request.Context(),
		queryPtr[models.ApplicationStatus](c, "status"),
		caller,
	)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, applications)
}

// ReviewTeacherApplication approves or rejects an application
// @Summary Review teacher application
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param review body services.ReviewApplicationRequest true "Decision"
// @Success 200 {object} models.TeacherApplication
// @Failure 400 {object} ErrorResponse "Bad request"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Already reviewed"
// @Router /admin/teacher-applications/{id}/review [put]
func (h *UserHandler) ReviewTeacherApplication(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ReviewApplicationRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Reviewing teacher application", "application_id", id, "status", req.Status)

	application, err := h.userService.ReviewTeacherApplication(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, application)
}

// ListUsers lists users with optional filtering
// @Summary List users
// @Tags admin
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Param q query string false "Search query (name or email)"
// @Param role query string false "Filter by role (learner, teacher, admin)"
// @Param active query bool false "Filter by active flag"
// @Success 200 {object} map[string]interface{} "User list response"
// @Failure 403 {object} ErrorResponse "Forbidden"
// @Router /admin/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing users")

	filters := h.parseUserFilters(c)

	users, total, err := h.userService.ListUsers(c.Request.Context(), filters, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	page := (filters.Offset / max(filters.Limit, 1)) + 1

	response := map[string]interface{}{
		"users": users,
		"total": total,
		"page":  page,
		"size":  filters.Limit,
	}

	c.JSON(http.StatusOK, response)
}

// ===== HELPER METHODS =====

func (h *UserHandler) parseUserFilters(c *gin.Context) repositories.UserFilters {
	page := 1
	size := 10

	if p := parseIntQuery(c, "page", 1); p > 0 {
		page = p
	}
	if s := parseIntQuery(c, "size", 10); s > 0 && s <= 100 {
		size = s
	}

	filters := repositories.UserFilters{
		Role:   queryPtr[models.UserRole](c, "role"),
		Limit:  size,
		Offset: (page - 1) * size,
		Query:  c.Query("q"),
	}

	if activeStr := c.Query("active"); activeStr != "" {
		if active, err := strconv.ParseBool(activeStr); err == nil {
			filters.IsActive = &active
		}
	}

	return filters
}
