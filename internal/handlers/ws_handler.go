package handlers

import (
	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// WSHandler upgrades clients onto the realtime hub.
type WSHandler struct {
	hub    *realtime.Hub
	tokens middleware.TokenParser
	log    logrus.FieldLogger
}

func NewWSHandler(hub *realtime.Hub, tokens middleware.TokenParser, log logrus.FieldLogger) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens, log: log}
}

// Connect subscribes the socket to the feed topic and, when ?token= is a
// valid session token, to the caller's notification topic. It returns once
// the socket closes.
func (h *WSHandler) Connect(c echo.Context) error {
	topics := []string{realtime.FeedTopic}
	if token := c.QueryParam("token"); token != "" {
		if claims, err := h.tokens.Parse(token); err == nil {
			topics = append(topics, realtime.UserTopic(claims.UserID))
		}
	}
	if err := h.hub.Serve(c.Response(), c.Request(), topics); err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
	}
	return nil
}
