package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// GetQuiz returns the quiz of a session
// @Summary Get session quiz
// @Description Answer keys are included only for the course owner and admins
// @Tags quizzes
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} models.Quiz
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{sessionId}/quiz [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	sessionID, ok := parseStringIDParam(c, "sessionId")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetQuiz(c.Request.Context(), sessionID, optionalCaller(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// CreateQuiz attaches a quiz to a quiz session
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param quiz body services.CreateQuizRequest true "Quiz data"
// @Success 201 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{sessionId}/quiz [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	sessionID, ok := parseStringIDParam(c, "sessionId")
	if !ok {
		return
	}

	var req services.CreateQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz", "session_id", sessionID)

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), sessionID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quiz)
}

// SubmitAttempt grades a quiz attempt
// @Summary Submit quiz attempt
// @Tags quizzes
// @Accept json
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Param attempt body services.SubmitQuizRequest true "Answers keyed by question id"
// @Success 201 {object} services.QuizResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{quizId}/attempts [post]
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	quizID, ok := parseStringIDParam(c, "quizId")
	if !ok {
		return
	}

	var req services.SubmitQuizRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.quizService.SubmitAttempt(c.Request.Context(), quizID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListMyAttempts lists the caller's attempts at a quiz
// @Summary List my quiz attempts
// @Tags quizzes
// @Produce json
// @Param quizId path string true "Quiz ID"
// @Success 200 {array} models.QuizAttempt
// @Router /quizzes/{quizId}/attempts/me [get]
func (h *QuizHandler) ListMyAttempts(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	quizID, ok := parseStringIDParam(c, "quizId")
	if !ok {
		return
	}

	attempts, err := h.quizService.ListMyAttempts(c.Request.Context(), quizID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempts)
}
