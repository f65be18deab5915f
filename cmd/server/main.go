package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"palantir/internal/auth"
	"palantir/internal/commons"
	"palantir/internal/config"
	apperrors "palantir/internal/errors"
	"palantir/internal/infrastructure/logger"
	"palantir/internal/infrastructure/mysql"
	"palantir/internal/order"
	"palantir/internal/resources"
	"palantir/internal/server"
	"palantir/internal/session"
	sessionrepo "palantir/internal/session/repository"
	"palantir/internal/upstream"

	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	sess := session.New()

	var store session.Store
	if cfg.Database.PersistSession {
		db, err := mysql.NewConnection(cfg.Database)
		if err != nil {
			zapLogger.Fatal("connecting to database", zap.Error(err))
		}
		defer db.Close()
		zapLogger.Info("database connected")

		store = sessionrepo.NewMySQLSessionRepository(db)
		restoreSession(sess, store, zapLogger)
	} else {
		zapLogger.Info("session persistence disabled, running in-memory")
	}

	client := upstream.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, sess, store, zapLogger)
	zapLogger.Info("upstream client ready", zap.String("backend", cfg.Backend.BaseURL))

	ordersCtrl := order.NewModule(client, zapLogger)
	authCtrl := auth.NewController(client, zapLogger)
	resourcesCtrl := resources.NewController(client, zapLogger)

	router := server.NewRouter(ordersCtrl, authCtrl, resourcesCtrl, zapLogger)

	srv := server.New(cfg.Server.Port, router, zapLogger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			zapLogger.Fatal("server error", zap.Error(err))
		}
	}()

	<-quit
	zapLogger.Info("received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server shutdown failed", zap.Error(err))
	}

	zapLogger.Info("server stopped gracefully")
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return commons.LoadConfig(path)
	}
	return config.Load()
}

func restoreSession(sess *session.Session, store session.Store, zapLogger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tokens, user, err := store.Load(ctx)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			zapLogger.Warn("loading stored session failed", zap.Error(err))
		}
		return
	}

	sess.Set(tokens, user)
	zapLogger.Info("session restored from store")
}
