package handlers

import (
	"net/http"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// RelationshipHandler exposes the follow, like and bookmark toggles.
type RelationshipHandler struct {
	engine *services.RelationshipEngine
}

func NewRelationshipHandler(engine *services.RelationshipEngine) *RelationshipHandler {
	return &RelationshipHandler{engine: engine}
}

func (h *RelationshipHandler) RegisterRelationshipRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
	g.POST("/follow/:id", h.ToggleFollow)
	g.GET("/users/:id/follow-status", h.FollowStatus)
	g.POST("/stories/:id/like", h.ToggleLike)
	g.POST("/bookmarks/:storyId", h.ToggleBookmark)
}

func (h *RelationshipHandler) ToggleFollow(c echo.Context) error {
	res, err := h.engine.ToggleFollow(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *RelationshipHandler) FollowStatus(c echo.Context) error {
	res, err := h.engine.FollowStatus(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *RelationshipHandler) ToggleLike(c echo.Context) error {
	res, err := h.engine.ToggleLike(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *RelationshipHandler) ToggleBookmark(c echo.Context) error {
	res, err := h.engine.ToggleBookmark(c.Request().Context(), middleware.UserID(c), c.Param("storyId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}
