// Command reconcile repairs asymmetric follow edges left behind by follow
// toggles that failed halfway while Mongo transactions were disabled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/storyhive/backend/internal/realtime"
	"github.com/anonto42/storyhive/backend/internal/repositories"
	"github.com/anonto42/storyhive/backend/internal/services"
	"github.com/anonto42/storyhive/backend/pkg/config"
	"github.com/anonto42/storyhive/backend/pkg/logger"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, _ := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("Nothing to reconcile in the in-memory store")
	}
	db, err := config.InitDB(cfg, log, repositories.RelationalModels()...)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize databases")
	}
	defer db.CloseDB()

	store := repositories.NewStore(db.Mongo, db.Mongo.Database(cfg.MongoDatabase), db.Postgres, false)
	notifier := services.NewNotifier(store, realtime.NopPublisher{}, log)
	engine := services.NewRelationshipEngine(store, notifier, log)

	report, err := engine.ReconcileFollowGraph(ctx)
	if err != nil {
		log.WithError(err).Error("Reconcile aborted")
		db.CloseDB()
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"users":             report.UsersChecked,
		"followers_added":   report.FollowersAdded,
		"followers_removed": report.FollowersRemoved,
		"following_removed": report.FollowingRemoved,
	}).Info("Follow graph reconciled")
}
