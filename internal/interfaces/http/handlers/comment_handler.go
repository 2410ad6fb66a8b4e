package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
)

// CommentHandler handles HTTP requests for offer comments.
type CommentHandler struct {
	comments service.CommentService
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// List returns the latest comments of offer :id.
func (h *CommentHandler) List(c *gin.Context) {
	comments, err := h.comments.FindByOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, comments)
}

// Create posts a comment by the caller on offer :id.
func (h *CommentHandler) Create(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	var req dto.CreateCommentRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	req.OfferID = c.Param("id")
	req.AuthorID = sub

	comment, err := h.comments.Create(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, comment)
}
