package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

type EnrollmentHandler struct {
	BaseHandler
	progressService services.ProgressService
	validator       *validator.Validator
}

func NewEnrollmentHandler(
	progressService services.ProgressService,
	validator *validator.Validator,
	logger utils.Logger,
) *EnrollmentHandler {
	return &EnrollmentHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		validator:       validator,
	}
}

// Enroll enrolls the caller in a published course. Enrolling twice returns
// the existing enrollment.
// @Summary Enroll in course
// @Tags enrollments
// @Accept json
// @Produce json
// @Param enrollment body validator.EnrollRequest true "Course to enroll in"
// @Success 201 {object} models.Enrollment "Created"
// @Success 200 {object} models.Enrollment "Already enrolled"
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req validator.EnrollRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Enrolling in course", "course_id", req.CourseID)

	enrollment, created, err := h.progressService.Enroll(c.Request.Context(), req.CourseID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, enrollment)
}

// ListMyEnrollments lists the caller's enrollments with their courses
// @Summary List own enrollments
// @Tags enrollments
// @Produce json
// @Success 200 {array} models.Enrollment
// @Failure 500 {object} ErrorResponse
// @Router /enrollments/me [get]
func (h *EnrollmentHandler) ListMyEnrollments(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	enrollments, err := h.progressService.ListMyEnrollments(c.Request.Context(), caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, enrollments)
}

// UpdateProgress records lesson progress for an enrollment
// @Summary Record progress
// @Tags enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param progress body services.ProgressUpdateRequest true "Completed lessons"
// @Success 200 {object} services.ProgressResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /enrollments/{id}/progress [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.ProgressUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Recording progress", "enrollment_id", id, "completed_lessons", req.CompletedLessons)

	result, err := h.progressService.RecordProgress(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
