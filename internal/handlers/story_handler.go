package handlers

import (
	"net/http"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/models"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// StoryHandler handles story, chapter and bookmark-list requests
type StoryHandler struct {
	stories *services.StoryService
	feed    *services.FeedAssembler
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(stories *services.StoryService, feed *services.FeedAssembler) *StoryHandler {
	return &StoryHandler{stories: stories, feed: feed}
}

// RegisterPublicRoutes registers the read-only story routes.
func (h *StoryHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/stories", h.ListStories)
	g.GET("/stories/:id", h.GetStory)
	g.GET("/stories/user/:userId", h.ListStoriesByAuthor)
	g.GET("/stories/:id/chapters", h.ListChapters)
	g.PATCH("/stories/:id/read", h.IncrementReads)
	g.GET("/chapters/:id", h.GetChapter)
}

// RegisterStoryRoutes registers the routes that need an authenticated author.
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.POST("/stories", h.CreateStory)
	g.PUT("/stories/:id", h.UpdateStory)
	g.DELETE("/stories/:id", h.DeleteStory)
	g.POST("/chapters/story/:storyId", h.AddChapter)
	g.PUT("/chapters/:id", h.UpdateChapter)
	g.DELETE("/chapters/:id", h.DeleteChapter)
	g.GET("/bookmarks", h.ListBookmarks)
}

func (h *StoryHandler) CreateStory(c echo.Context) error {
	var req models.CreateStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.stories.CreateStory(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// ListStories returns published stories, optionally filtered by ?category=.
func (h *StoryHandler) ListStories(c echo.Context) error {
	stories, err := h.stories.ListStories(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) GetStory(c echo.Context) error {
	story, err := h.stories.GetStory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, story)
}

// ListStoriesByAuthor includes drafts only when the caller is the author.
func (h *StoryHandler) ListStoriesByAuthor(c echo.Context) error {
	stories, err := h.stories.ListStoriesByAuthor(c.Request().Context(), middleware.UserID(c), c.Param("userId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stories)
}

func (h *StoryHandler) UpdateStory(c echo.Context) error {
	var req models.UpdateStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.stories.UpdateStory(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) DeleteStory(c echo.Context) error {
	if err := h.stories.DeleteStory(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Story deleted"})
}

func (h *StoryHandler) IncrementReads(c echo.Context) error {
	reads, err := h.feed.IncrementReads(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reads": reads})
}

func (h *StoryHandler) AddChapter(c echo.Context) error {
	var req models.ChapterInput
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chapter, err := h.stories.AddChapter(c.Request().Context(), middleware.UserID(c), c.Param("storyId"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, chapter)
}

func (h *StoryHandler) ListChapters(c echo.Context) error {
	chapters, err := h.stories.ListChapters(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chapters)
}

func (h *StoryHandler) GetChapter(c echo.Context) error {
	chapter, err := h.stories.GetChapter(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chapter)
}

func (h *StoryHandler) UpdateChapter(c echo.Context) error {
	var req models.UpdateChapterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	chapter, err := h.stories.UpdateChapter(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chapter)
}

func (h *StoryHandler) DeleteChapter(c echo.Context) error {
	if err := h.stories.DeleteChapter(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Chapter deleted"})
}

func (h *StoryHandler) ListBookmarks(c echo.Context) error {
	stories, err := h.stories.ListBookmarks(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, stories)
}
