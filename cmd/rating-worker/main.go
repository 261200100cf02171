package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/delivery/events"
	"github.com/reviewhub/catalog-reviews/internal/pkg/database"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	"github.com/reviewhub/catalog-reviews/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)
	appLogger.Info("Starting rating worker...")

	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL")

	ratingWorker := worker.NewRatingWorker(worker.NewCalculator(db, appLogger), appLogger)

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}
	appLogger.Infof("Connected to NATS JetStream at %s", cfg.NATS.URL)

	if err := events.NewStreamConfig(js, appLogger).Ensure(); err != nil {
		appLogger.Fatal("Failed to provision stream topology", err)
	}

	sub, err := js.PullSubscribe(events.StreamSubjects, events.ConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.StreamName,
		"consumer": events.ConsumerName,
	}).Info("Consuming review events")

	go consume(sub, ratingWorker, appLogger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	appLogger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := ratingWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Error during shutdown", err)
	}

	appLogger.Info("Rating worker stopped")
}

// consume pulls event batches and feeds them to the worker. A nack hands
// the event back to JetStream for redelivery with backoff; after the
// consumer's delivery limit the event is dropped, which is fine because
// the next mutation on the product recomputes the summary from scratch.
func consume(sub *nats.Subscription, ratingWorker *worker.RatingWorker, appLogger *logger.Logger) {
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if err == nats.ErrTimeout {
				continue
			}
			appLogger.Error("Failed to fetch messages from JetStream", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, msg := range msgs {
			if err := ratingWorker.HandleEvent(msg.Data); err != nil {
				appLogger.Error("Failed to handle event", err)
				if nakErr := msg.Nak(); nakErr != nil {
					appLogger.Error("Failed to NAK message", nakErr)
				}
				continue
			}
			if ackErr := msg.Ack(); ackErr != nil {
				appLogger.Error("Failed to ACK message", ackErr)
			}
		}
	}
}
