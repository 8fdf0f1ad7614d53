package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles HTTP requests related to notifications
type NotificationHandler struct {
	notifier *services.Notifier
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifier *services.Notifier) *NotificationHandler {
	return &NotificationHandler{notifier: notifier}
}

// RegisterNotificationRoutes registers notification-related routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PATCH("/notifications/read-all", h.MarkAllAsRead)
	g.PATCH("/notifications/:id/read", h.MarkAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
}

// GetNotifications lists the caller's notifications. Query: page, limit, filter=all|unread.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	unreadOnly := c.QueryParam("filter") == "unread"

	list, err := h.notifier.List(c.Request().Context(), middleware.UserID(c), page, limit, unreadOnly)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	count, err := h.notifier.UnreadCount(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unreadCount": count})
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifier.MarkRead(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	if err := h.notifier.MarkAllRead(c.Request().Context(), middleware.UserID(c)); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.notifier.Delete(c.Request().Context(), middleware.UserID(c), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
