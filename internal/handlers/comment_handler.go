package handlers

import (
	"net/http"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles comment requests
type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

func (h *CommentHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/stories/:id/comments", h.ListComments)
}

func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/stories/:id/comments", h.CreateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.comments.AddComment(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, comment)
}

func (h *CommentHandler) ListComments(c echo.Context) error {
	comments, err := h.comments.ListComments(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *CommentHandler) DeleteComment(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.comments.DeleteComment(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
