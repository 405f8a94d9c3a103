package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

type GamificationHandler struct {
	BaseHandler
	gamificationService services.GamificationService
	userService         services.UserService
	exportService       services.ExportService
	validator           *validator.Validator
}

func NewGamificationHandler(
	gamificationService services.GamificationService,
	userService services.UserService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *GamificationHandler {
	return &GamificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		gamificationService: gamificationService,
		userService:         userService,
		exportService:       exportService,
		validator:           validator,
	}
}

// GetLeaderboard returns active users ranked by XP
// @Summary Leaderboard
// @Tags gamification
// @Produce json
// @Param limit query int false "Number of entries (default: 100, max: 1000)"
// @Success 200 {array} models.LeaderboardEntry
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard [get]
func (h *GamificationHandler) GetLeaderboard(c *gin.Context) {
	entries, err := h.gamificationService.GetLeaderboard(c.Request.Context(), parseIntQuery(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}

// ExportLeaderboard streams the leaderboard as a workbook
// @Summary Export leaderboard
// @Tags gamification
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param limit query int false "Number of entries"
// @Success 200 {file} file
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard/export [get]
func (h *GamificationHandler) ExportLeaderboard(c *gin.Context) {
	h.LogRequest(c, "Exporting leaderboard")

	file, err := h.exportService.ExportLeaderboard(c.Request.Context(), parseIntQuery(c, "limit", 0))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	writeExport(c, file)
}

// ListMyBadges lists the badges the caller has earned
// @Summary Own badges
// @Tags gamification
// @Produce json
// @Success 200 {array} services.BadgeEarned
// @Failure 500 {object} ErrorResponse
// @Router /users/me/badges [get]
func (h *GamificationHandler) ListMyBadges(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	badges, err := h.gamificationService.ListUserBadges(c.Request.Context(), caller.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, badges)
}

// ListBadges lists badge templates
// @Summary List badges
// @Tags gamification
// @Produce json
// @Success 200 {array} models.Badge
// @Router /badges [get]
func (h *GamificationHandler) ListBadges(c *gin.Context) {
	badges, err := h.gamificationService.ListBadges(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, badges)
}

// CreateBadge creates a badge template
// @Summary Create badge
// @Tags gamification
// @Accept json
// @Produce json
// @Param badge body services.CreateBadgeRequest true "Badge data"
// @Success 201 {object} models.Badge
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /badges [post]
func (h *GamificationHandler) CreateBadge(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req services.CreateBadgeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating badge", "name", req.Name)

	badge, err := h.gamificationService.CreateBadge(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, badge)
}

// ===== ADMIN =====

// AwardBadge awards a badge to a user
// @Summary Award badge
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param award body services.AwardBadgeRequest true "Badge to award"
// @Success 201 {object} models.UserBadge
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/badges [post]
func (h *GamificationHandler) AwardBadge(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	userID, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req services.AwardBadgeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Awarding badge", "target_user_id", userID, "badge_id", req.BadgeID)

	award, err := h.gamificationService.AwardBadge(c.Request.Context(), userID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, award)
}

// AdjustXP adds or removes XP from a user
// @Summary Adjust XP
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param adjustment body validator.XPAdjustRequest true "XP delta"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/xp [post]
func (h *GamificationHandler) AdjustXP(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	userID, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	var req validator.XPAdjustRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Adjusting XP", "target_user_id", userID, "delta", req.Delta)

	user, err := h.userService.AdjustUserXP(c.Request.Context(), userID, req.Delta, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// DeactivateUser blocks a user from signing in
// @Summary Deactivate user
// @Tags admin
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /admin/users/{id}/deactivate [post]
func (h *GamificationHandler) DeactivateUser(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	userID, ok := parseStringIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deactivating user", "target_user_id", userID)

	user, err := h.userService.DeactivateUser(c.Request.Context(), userID, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
