package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/models"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries logging and error mapping shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) requestLogger(c *gin.Context) utils.Logger {
	return utils.FromContext(c.Request.Context(), h.logger)
}

// LogRequest logs an incoming request with optional key/value pairs
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.requestLogger(c).Info(msg, append(args, "user_id", c.GetString("user_id"))...)
}

// LogError logs a failed operation
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.requestLogger(c).Error(msg, append(args, "error", err)...)
}

// handleServiceError maps service errors onto HTTP status codes. Unknown
// errors are logged and reported without internal detail.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var verr *validator.ValidationError
	var perr *services.PermissionError
	var cerr *services.ConflictError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: verrs})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Validation failed", Details: validator.ValidationErrors{*verr}})
	case errors.As(err, &perr):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden", Details: perr.Reason})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden"})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: notFoundMessage(err)})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, ErrorResponse{Message: cerr.Message})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "Conflict"})
	default:
		h.LogError(c, err, "Request failed", "request_id", c.GetString("request_id"))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error"})
	}
}

func notFoundMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	if msg == "" {
		return "Not found"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// ===== REQUEST HELPERS =====

// requireCaller returns the authenticated caller or writes 401
func (h *BaseHandler) requireCaller(c *gin.Context) (services.Caller, bool) {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User not authenticated"})
		return services.Caller{}, false
	}
	role, _ := GetUserRoleFromContext(c)
	return services.Caller{ID: userID, Role: role}, true
}

// optionalCaller returns the caller when one was resolved, nil otherwise
func optionalCaller(c *gin.Context) *services.Caller {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		return nil
	}
	role, _ := GetUserRoleFromContext(c)
	return &services.Caller{ID: userID, Role: role}
}

func (h *BaseHandler) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

func parseStringIDParam(c *gin.Context, param string) (string, bool) {
	id := strings.TrimSpace(c.Param(param))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return "", false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func queryPtr[T ~string](c *gin.Context, param string) *T {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		return nil
	}
	v := T(raw)
	return &v
}

// roleOf is a small adapter for places that only have a role string
func roleOf(v interface{}) models.UserRole {
	switch r := v.(type) {
	case models.UserRole:
		return r
	case string:
		return models.UserRole(r)
	}
	return ""
}
