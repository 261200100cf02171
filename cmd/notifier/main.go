package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/delivery/events"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// The notifier tails the review event stream and logs every event. It is
// the integration point for outbound notifications (email, webhooks).
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting notifier...")

	consumer, err := events.NewConsumer(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS consumer", err)
	}
	defer consumer.Close()

	if err := consumer.Subscribe(events.StreamSubjects, events.LoggingHandler(appLogger)); err != nil {
		appLogger.Fatal("Failed to subscribe to review events", err)
	}

	appLogger.Info("Notifier listening for review events")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Notifier stopped")
}
