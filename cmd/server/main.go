package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/storyhive/backend/internal/blob"
	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/anonto42/storyhive/backend/internal/router"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/anonto42/storyhive/backend/internal/validators"
	"github.com/anonto42/storyhive/backend/pkg/config"
	"github.com/anonto42/storyhive/backend/pkg/firebase"
	"github.com/anonto42/storyhive/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, envFile := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	if !envFile {
		log.Debug("No .env file found, assuming environment variables are set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize storage")
	}
	defer closeStore()

	hub := realtime.NewHub(log, cfg.CORSOrigin)
	defer hub.Close()
	publisher := setupRealtime(ctx, cfg, hub, log)

	tokens := services.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	notifier := services.NewNotifier(store, publisher, log)
	feed := services.NewFeedAssembler(store, log)
	accounts := services.NewAccountService(store, tokens, identityVerifier(ctx, cfg, log), avatarStore(ctx, cfg, log), log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, cfg, log)
	router.SetupRoutes(e, router.Deps{
		Tokens:        tokens,
		Accounts:      accounts,
		Relationships: services.NewRelationshipEngine(store, notifier, log),
		Stories:       services.NewStoryService(store, notifier, publisher, log),
		Feed:          feed,
		Comments:      services.NewCommentService(store, notifier, log),
		Notifier:      notifier,
		Hub:           hub,
		Log:           log,
	})

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// openStore selects the storage backend named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*repositories.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("Using the in-memory store; data is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	db, err := config.InitDB(cfg, log, repositories.RelationalModels()...)
	if err != nil {
		return nil, nil, err
	}
	mongoDB := db.Mongo.Database(cfg.MongoDatabase)
	if err := repositories.EnsureMongoIndexes(ctx, mongoDB); err != nil {
		db.CloseDB()
		return nil, nil, err
	}
	if !cfg.MongoTransactions {
		log.Info("Mongo transactions disabled; run cmd/reconcile to repair follow edges after failures")
	}
	return repositories.NewStore(db.Mongo, mongoDB, db.Postgres, cfg.MongoTransactions), db.CloseDB, nil
}

// setupRealtime returns the publisher services push through. With Redis,
// events go through Redis and every process relays them into its own hub.
func setupRealtime(ctx context.Context, cfg *config.Config, hub *realtime.Hub, log logrus.FieldLogger) realtime.Publisher {
	if cfg.RedisURL == "" {
		return hub
	}
	client, err := realtime.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, realtime events stay local")
		return hub
	}
	if err := realtime.NewRelay(client, hub, log).Start(ctx); err != nil {
		log.WithError(err).Warn("Redis relay not started, realtime events stay local")
		client.Close()
		return hub
	}
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	log.Info("Realtime events fan out through Redis")
	return realtime.NewRedisPublisher(client)
}

// identityVerifier returns nil when Firebase is not configured, which turns
// federated login off.
func identityVerifier(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) services.IdentityVerifier {
	if cfg.FirebaseCredentialsPath == "" {
		return nil
	}
	app, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, log)
	if err != nil {
		log.WithError(err).Warn("Firebase login disabled")
		return nil
	}
	return firebase.NewVerifier(app.AuthClient)
}

func avatarStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) services.AvatarStore {
	if cfg.BlobEndpoint == "" {
		return nil
	}
	store, err := blob.New(blob.Config{
		Endpoint:  cfg.BlobEndpoint,
		AccessKey: cfg.BlobAccessKey,
		SecretKey: cfg.BlobSecretKey,
		Bucket:    cfg.BlobBucket,
		UseSSL:    cfg.BlobUseSSL,
		PublicURL: cfg.BlobPublicURL,
	})
	if err != nil {
		log.WithError(err).Warn("Avatar uploads disabled")
		return nil
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.WithError(err).Warn("Avatar uploads disabled")
		return nil
	}
	return store
}
