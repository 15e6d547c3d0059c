package main

import (
	"context"
	"log"
	"time"

	"github.com/gartstein/safework/internal/safework/app"
	"github.com/gartstein/safework/internal/safework/auth"
	"github.com/gartstein/safework/internal/safework/config"
	"github.com/gartstein/safework/internal/safework/controller"
	"github.com/gartstein/safework/internal/safework/events"
	"github.com/gartstein/safework/internal/safework/handlers"
	"go.uber.org/zap"
	"google.golang.org/grpc"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hasher := auth.NewHasher(cfg.BcryptCost)
	repo, err := app.OpenRepository(ctx, cfg, hasher, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}()

	store, closeCache, err := app.OpenCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize cache", zap.Error(err))
	}
	defer closeCache()

	producer := newProducer(ctx, cfg, logger)
	defer producer.Close()

	authSvc, err := app.NewAuthService(cfg, repo, hasher, store, logger)
	if err != nil {
		logger.Fatal("failed to initialize authentication", zap.Error(err))
	}
	registry := controller.NewService(repo, producer, hasher, logger)

	routes, err := handlers.NewHTTPHandler(registry, authSvc, repo.Ping, logger).Routes()
	if err != nil {
		logger.Fatal("failed to register HTTP routes", zap.Error(err))
	}

	authInterceptor := auth.NewAuthInterceptor(authSvc)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger,
		grpc.UnaryInterceptor(authInterceptor.Unary()),
		grpc.StreamInterceptor(authInterceptor.Stream()),
	)
	server.SetHTTPHandler(routes)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server failed", zap.Error(err))
			cancel()
		}
	}()

	app.WaitForShutdown(ctx, logger)
	server.Stop()
	logger.Info("Servers stopped properly")
}

type eventProducer interface {
	controller.EventProducer
	Close()
}

// newProducer returns a Kafka producer, or a discarding one when no broker
// is configured.
func newProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) eventProducer {
	if !cfg.KafkaEnabled() {
		logger.Info("Kafka disabled, entity events are discarded")
		return events.Discard{}
	}

	topicCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := events.EnsureTopic(topicCtx, cfg.KafkaBrokers, cfg.Topic, 1, logger); err != nil {
		logger.Warn("Failed to ensure Kafka topic, relying on auto creation", zap.Error(err))
	}
	return events.NewProducer(cfg.KafkaBrokers, cfg.Topic, cfg.KafkaQueueSize, logger)
}
