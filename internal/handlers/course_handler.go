package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
	exportService services.ExportService
	validator     *validator.Validator
}

func NewCourseHandler(
	courseService services.CourseService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
		exportService: exportService,
		validator:     validator,
	}
}

// ListCourses lists courses, published only unless a status is given
// @Summary List courses
// @Tags courses
// @Produce json
// @Param ageGroup query string false "Age group (10-13, 14-17, 18-21)"
// @Param difficulty query string false "Difficulty level"
// @Param status query string false "Course status (default: published)"
// @Success 200 {array} models.Course
// @Failure 500 {object} ErrorResponse
// @Router /courses [get]
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var req validator.CourseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	courses, err := h.courseService.List(c.Request.Context(), services.CourseListFilters{
		AgeGroup:   req.AgeGroup,
		Difficulty: req.Difficulty,
		Status:     req.Status,
		Limit:      req.Limit,
		Offset:     req.Offset,
	}, optionalCaller(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourse returns a course with its modules and sessions
// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [get]
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.Get(c.Request.Context(), id, optionalCaller(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// CreateCourse creates a draft course owned by the caller
// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param course body services.CreateCourseRequest true "Course data"
// @Success 201 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /courses [post]
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req services.CreateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating course", "title", req.Title)

	course, err := h.courseService.Create(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, course)
}

// UpdateCourse applies a partial update to a course
// @Summary Update course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param course body services.UpdateCourseRequest true "Fields to change"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id} [put]
func (h *CourseHandler) UpdateCourse(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateCourseRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating course", "course_id", id)

	course, err := h.courseService.Update(c.Request.Context(), id, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// PublishCourse moves a draft course to published
// @Summary Publish course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/publish [post]
func (h *CourseHandler) PublishCourse(c *gin.Context) {
	h.transition(c, "Publishing course", h.courseService.Publish)
}

// ArchiveCourse moves a course to archived
// @Summary Archive course
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.Course
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/archive [post]
func (h *CourseHandler) ArchiveCourse(c *gin.Context) {
	h.transition(c, "Archiving course", h.courseService.Archive)
}

func (h *CourseHandler) transition(c *gin.Context, msg string, apply func(context.Context, string, services.Caller) (*models.Course, error)) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, msg, "course_id", id)

	course, err := apply(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, course)
}

// ListTeacherCourses lists the caller's own courses in every status
// @Summary List own courses
// @Tags courses
// @Produce json
// @Success 200 {array} models.Course
// @Failure 403 {object} ErrorResponse
// @Router /teacher/courses [get]
func (h *CourseHandler) ListTeacherCourses(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	courses, err := h.courseService.ListByTeacher(c.Request.Context(), caller.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, courses)
}

// GetCourseAnalytics returns enrollment aggregates for a course
// @Summary Course analytics
// @Tags courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} models.CourseAnalytics
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/analytics [get]
func (h *CourseHandler) GetCourseAnalytics(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	analytics, err := h.courseService.GetAnalytics(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}

// ExportCourseAnalytics streams the course analytics workbook
// @Summary Export course analytics
// @Tags courses
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /courses/{id}/analytics/export [get]
func (h *CourseHandler) ExportCourseAnalytics(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	id, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting course analytics", "course_id", id)

	file, err := h.exportService.ExportCourseAnalytics(c.Request.Context(), id, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	writeExport(c, file)
}

// ===== MODULES & SESSIONS =====

// ListModules lists a course's modules in order
// @Summary List modules
// @Tags modules
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {array} models.Module
// @Router /courses/{id}/modules [get]
func (h *CourseHandler) ListModules(c *gin.Context) {
	courseID, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	modules, err := h.courseService.ListModules(c.Request.Context(), courseID, optionalCaller(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, modules)
}

// CreateModule adds a module to a course
// @Summary Create module
// @Tags modules
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param module body services.CreateModuleRequest true "Module data"
// @Success 201 {object} models.Module
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /courses/{id}/modules [post]
func (h *CourseHandler) CreateModule(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	courseID, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.CreateModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating module", "course_id", courseID, "sequence_order", req.SequenceOrder)

	module, err := h.courseService.CreateModule(c.Request.Context(), courseID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, module)
}

// DeleteModule removes a module and its sessions
// @Summary Delete module
// @Tags modules
// @Param moduleId path string true "Module ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /modules/{moduleId} [delete]
func (h *CourseHandler) DeleteModule(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	moduleID, ok := parseStringIDParam(c, "moduleId")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting module", "module_id", moduleID)

	if err := h.courseService.DeleteModule(c.Request.Context(), moduleID, caller); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListSessions lists a module's sessions in order
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Param moduleId path string true "Module ID"
// @Success 200 {array} models.CourseSession
// @Router /modules/{moduleId}/sessions [get]
func (h *CourseHandler) ListSessions(c *gin.Context) {
	moduleID, ok := parseStringIDParam(c, "moduleId")
	if !ok {
		return
	}

	sessions, err := h.courseService.ListSessions(c.Request.Context(), moduleID, optionalCaller(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// CreateSession adds a session to a module
// @Summary Create session
// @Tags sessions
// @Accept json
// @Produce json
// @Param moduleId path string true "Module ID"
// @Param session body services.CreateSessionRequest true "Session data"
// @Success 201 {object} models.CourseSession
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /modules/{moduleId}/sessions [post]
func (h *CourseHandler) CreateSession(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	moduleID, ok := parseStringIDParam(c, "moduleId")
	if !ok {
		return
	}

	var req services.CreateSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating session", "module_id", moduleID)

	session, err := h.courseService.CreateSession(c.Request.Context(), moduleID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// DeleteSession removes a session
// @Summary Delete session
// @Tags sessions
// @Param sessionId path string true "Session ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{sessionId} [delete]
func (h *CourseHandler) DeleteSession(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	sessionID, ok := parseStringIDParam(c, "sessionId")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting session", "session_id", sessionID)

	if err := h.courseService.DeleteSession(c.Request.Context(), sessionID, caller); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func writeExport(c *gin.Context, file *services.ExportFile) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, xlsxContentType, file.Content)
}
