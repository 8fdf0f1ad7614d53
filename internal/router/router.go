package router

import (
	"github.com/anonto42/storyhive/backend/internal/handlers"
	"github.com/anonto42/storyhive/backend/internal/middleware"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Deps are the wired services the routes are served by.
type Deps struct {
	Tokens        *services.TokenManager
	Accounts      *services.AccountService
	Relationships *services.RelationshipEngine
	Stories       *services.StoryService
	Feed          *services.FeedAssembler
	Comments      *services.CommentService
	Notifier      *services.Notifier
	Hub           *realtime.Hub
	Log           logrus.FieldLogger
}

// SetupRoutes configures all application routes under /api.
func SetupRoutes(e *echo.Echo, d Deps) {
	api := e.Group("/api")
	api.GET("/health", handlers.HealthCheck)
	api.GET("/ws", handlers.NewWSHandler(d.Hub, d.Tokens, d.Log).Connect)

	authHandler := handlers.NewAuthHandler(d.Accounts)
	userHandler := handlers.NewUserHandler(d.Accounts)
	relationshipHandler := handlers.NewRelationshipHandler(d.Relationships)
	storyHandler := handlers.NewStoryHandler(d.Stories, d.Feed)
	commentHandler := handlers.NewCommentHandler(d.Comments)
	notificationHandler := handlers.NewNotificationHandler(d.Notifier)
	feedHandler := handlers.NewFeedHandler(d.Feed)

	// --- Unprotected routes for authentication ---
	authHandler.RegisterAuthRoutes(api.Group("/auth"))

	// --- Public routes; a valid token still identifies the viewer ---
	public := api.Group("", middleware.OptionalJWTAuth(d.Tokens))
	userHandler.RegisterPublicRoutes(public)
	storyHandler.RegisterPublicRoutes(public)
	commentHandler.RegisterPublicRoutes(public)
	feedHandler.RegisterFeedRoutes(public)

	// --- Protected routes (require JWT authentication) ---
	protected := api.Group("", middleware.JWTAuthMiddleware(d.Tokens))
	userHandler.RegisterProfileRoutes(protected)
	relationshipHandler.RegisterRelationshipRoutes(protected)
	storyHandler.RegisterStoryRoutes(protected)
	commentHandler.RegisterCommentRoutes(protected)
	notificationHandler.RegisterNotificationRoutes(protected)

	d.Log.Info("All routes configured")
}
