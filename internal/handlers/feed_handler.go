package handlers

import (
	"net/http"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the viewer-relative story feed
type FeedHandler struct {
	feed *services.FeedAssembler
}

func NewFeedHandler(feed *services.FeedAssembler) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes expects g to run optional auth.
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed query: category, sort=recent|popular|trending.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	filter := services.FeedFilter{
		Category: c.QueryParam("category"),
		Sort:     services.ParseFeedSort(c.QueryParam("sort")),
	}
	feed, err := h.feed.AssembleFeed(c.Request().Context(), middleware.UserID(c), filter)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, feed)
}
