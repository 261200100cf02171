//go:build integration
// +build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/catalog-reviews/internal/config"
	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/database"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	"github.com/reviewhub/catalog-reviews/internal/repository/postgres"
	"github.com/reviewhub/catalog-reviews/internal/worker"
)

func strPtr(s string) *string {
	return &s
}

func TestRatingWorker_EndToEnd(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	calculator := worker.NewCalculator(db, log)
	ratingWorker := worker.NewRatingWorker(calculator, log)

	_, err = nc.Subscribe("reviews.events", func(msg *nats.Msg) {
		_ = ratingWorker.HandleEvent(msg.Data)
	})
	require.NoError(t, err)

	productRepo := postgres.NewProductRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)

	ctx := context.Background()

	product := &domain.Product{
		Name:        "Rating Worker Product",
		Description: strPtr("Integration test product"),
		Price:       99.99,
		IsAvailable: true,
	}
	err = productRepo.Create(ctx, product)
	require.NoError(t, err)

	defer func() {
		_ = productRepo.Delete(ctx, product.ID)
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = ratingWorker.Shutdown(shutdownCtx)
	}()

	// Average of these is 4.4
	ratings := []int{5, 4, 5, 3, 5}
	reviewIDs := make([]uuid.UUID, len(ratings))

	for i, rating := range ratings {
		review := &domain.Review{
			ProductID: product.ID,
			UserID:    uuid.New(),
			Rating:    rating,
			Title:     fmt.Sprintf("Worker review %d", i),
			Content:   "Posted by the worker integration suite.",
		}
		err = reviewRepo.Create(ctx, review)
		require.NoError(t, err)
		reviewIDs[i] = review.ID

		event := worker.ReviewEvent{
			EventType: "review.created",
			ProductID: product.ID,
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		err = nc.Publish("reviews.events", eventData)
		require.NoError(t, err)
	}

	// Wait for the debounce window plus processing time
	time.Sleep(2 * time.Second)

	updatedProduct, err := productRepo.GetByID(ctx, product.ID)
	require.NoError(t, err)

	assert.InDelta(t, 4.4, updatedProduct.AverageRating, 0.1)
	assert.Equal(t, len(ratings), updatedProduct.ReviewsCount)

	for _, reviewID := range reviewIDs {
		_ = reviewRepo.Delete(ctx, reviewID)
	}
}

func TestRatingWorker_DebouncesBurstOfEvents(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	defer db.Close()

	nc, err := nats.Connect(cfg.NATS.URL)
	require.NoError(t, err)
	defer nc.Close()

	calculator := worker.NewCalculator(db, log)
	ratingWorker := worker.NewRatingWorker(calculator, log)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ratingWorker.Shutdown(shutdownCtx)
	}()

	productID := uuid.New()

	// A burst of events for the same product collapses into one pending update
	for i := 0; i < 20; i++ {
		event := worker.ReviewEvent{
			EventType: "review.updated",
			ProductID: productID,
			Timestamp: time.Now(),
		}
		eventData, _ := json.Marshal(event)
		require.NoError(t, ratingWorker.HandleEvent(eventData))
	}

	assert.Equal(t, 1, ratingWorker.GetPendingCount())
}
