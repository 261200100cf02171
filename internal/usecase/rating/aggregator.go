package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// Aggregator recomputes a product's denormalized rating summary from the
// review collection and writes it back to the catalog record. Callers
// triggering it from a review mutation log failures and carry on: a failed
// refresh costs a bounded staleness window until the next mutation, never
// the mutation itself.
type Aggregator struct {
	reviews domain.ReviewRepository
	catalog domain.CatalogStore
	logger  *logger.Logger
}

// NewAggregator creates a new rating aggregator
func NewAggregator(reviews domain.ReviewRepository, catalog domain.CatalogStore, log *logger.Logger) *Aggregator {
	return &Aggregator{
		reviews: reviews,
		catalog: catalog,
		logger:  log,
	}
}

// Refresh recomputes the aggregate for a product and writes
// average_rating/reviews_count back to the catalog record
func (a *Aggregator) Refresh(ctx context.Context, productID uuid.UUID) error {
	stats, err := a.reviews.AggregateStats(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to aggregate review stats: %w", err)
	}

	summary := domain.RatingSummary{
		AverageRating: stats.AverageRating,
		ReviewsCount:  stats.TotalReviews,
	}

	if err := a.catalog.UpdateRatingSummary(ctx, productID, summary); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Product deleted while the refresh was in flight; nothing to update
			a.logger.WithFields(map[string]interface{}{
				"product_id": productID,
			}).Info("Product not found, skipping rating refresh")
			return nil
		}
		return fmt.Errorf("failed to write rating summary: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"product_id":     productID,
		"average_rating": summary.AverageRating,
		"reviews_count":  summary.ReviewsCount,
	}).Debug("Refreshed product rating summary")

	return nil
}
