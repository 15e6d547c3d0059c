// The audit service consumes the entity event topic and writes every event
// to its structured log.
package main

import (
	"context"
	"log"

	"github.com/gartstein/safework/internal/safework/app"
	"github.com/gartstein/safework/internal/safework/config"
	"github.com/gartstein/safework/internal/safework/events"
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
	logger = logger.Named("audit")

	if !cfg.KafkaEnabled() {
		logger.Fatal("KAFKA_BROKERS is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, cfg.Topic, logger)
	defer consumer.Close()
	consumer.RegisterHandler(events.LogHandler(logger))

	done := consumer.Start(ctx)

	logger.Info("Consuming entity events", zap.String("topic", cfg.Topic), zap.String("group", cfg.KafkaGroupID))
	app.WaitForShutdown(ctx, logger)
	cancel()
	<-done
}
