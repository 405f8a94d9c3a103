package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nduva/learning-service/internal/repositories"
	"github.com/nduva/learning-service/internal/services"
	"github.com/nduva/learning-service/internal/utils"
	"github.com/nduva/learning-service/internal/validator"
)

type CommunityHandler struct {
	BaseHandler
	communityService services.CommunityService
	validator        *validator.Validator
}

func NewCommunityHandler(
	communityService services.CommunityService,
	validator *validator.Validator,
	logger utils.Logger,
) *CommunityHandler {
	return &CommunityHandler{
		BaseHandler:      NewBaseHandler(logger),
		communityService: communityService,
		validator:        validator,
	}
}

// ListPosts lists community posts, newest first
// @Summary List posts
// @Tags community
// @Produce json
// @Param courseId query string false "Only posts attached to this course"
// @Param status query string false "Content status"
// @Success 200 {array} models.Post
// @Failure 400 {object} ErrorResponse
// @Router /posts [get]
func (h *CommunityHandler) ListPosts(c *gin.Context) {
	var req validator.PostListRequest
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

	posts, err := h.communityService.ListPosts(c.Request.Context(), repositories.PostFilters{
		CourseID: req.CourseID,
		Status:   req.Status,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

// CreatePost creates a community post
// @Summary Create post
// @Tags community
// @Accept json
// @Produce json
// @Param post body services.CreatePostRequest true "Post data"
// @Success 201 {object} models.Post
// @Failure 400 {object} ErrorResponse
// @Router /posts [post]
func (h *CommunityHandler) CreatePost(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}

	var req services.CreatePostRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating post")

	post, err := h.communityService.CreatePost(c.Request.Context(), &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

// GetPost returns a single post
// @Summary Get post
// @Tags community
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} ErrorResponse
// @Router /posts/{postId} [get]
func (h *CommunityHandler) GetPost(c *gin.Context) {
	postID, ok := parseStringIDParam(c, "postId")
	if !ok {
		return
	}

	post, err := h.communityService.GetPost(c.Request.Context(), postID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

// ListComments lists a post's comments, oldest first
// @Summary List comments
// @Tags community
// @Produce json
// @Param postId path string true "Post ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} ErrorResponse
// @Router /posts/{postId}/comments [get]
func (h *CommunityHandler) ListComments(c *gin.Context) {
	postID, ok := parseStringIDParam(c, "postId")
	if !ok {
		return
	}

	comments, err := h.communityService.ListComments(c.Request.Context(), postID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment or reply to a post
// @Summary Create comment
// @Tags community
// @Accept json
// @Produce json
// @Param postId path string true "Post ID"
// @Param comment body services.CreateCommentRequest true "Comment data"
// @Success 201 {object} models.Comment
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /posts/{postId}/comments [post]
func (h *CommunityHandler) CreateComment(c *gin.Context) {
	caller, ok := h.requireCaller(c)
	if !ok {
		return
	}
	postID, ok := parseStringIDParam(c, "postId")
	if !ok {
		return
	}

	var req services.CreateCommentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating comment", "post_id", postID)

	comment, err := h.communityService.CreateComment(c.Request.Context(), postID, &req, caller)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}
