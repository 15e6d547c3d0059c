// The authentication service serves only the /v1/auth routes over the
// shared user store, so credentials can be handled apart from the
// cadastral API.
package main

import (
	"context"
	"log"

	"github.com/gartstein/safework/internal/safework/app"
	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/config"
	"github.com/gartstein/safework/internal/safework/handlers"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)
	logger = logger.Named("authentication")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hasher := auth.NewHasher(cfg.BcryptCost)
	repo, err := app.OpenRepository(ctx, cfg, hasher, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() { _ = repo.Close() }()

	store, closeCache, err := app.OpenCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer closeCache()

	authSvc, err := app.NewAuthService(cfg, repo, hasher, store, logger)
	if err != nil {
		logger.Fatal("failed to initialize authentication", zap.Error(err))
	}

	routes, err := handlers.NewHTTPHandler(nil, authSvc, repo.Ping, logger).Routes()
	if err != nil {
		logger.Fatal("failed to register HTTP routes", zap.Error(err))
	}

	server := handlers.NewServer(0, cfg.AuthHTTPPort, logger)
	server.SetHTTPHandler(routes)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server failed", zap.Error(err))
			cancel()
		}
	}()

	app.WaitForShutdown(ctx, logger)
	server.Stop()
}
