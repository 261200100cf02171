package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// Calculator recomputes a product's denormalized rating summary directly in
// SQL. It backs the async rating worker: the inline aggregator keeps the
// summary fresh on the happy path, the worker re-runs the same full
// recomputation from events so any refresh that failed inline is corrected.
type Calculator struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewCalculator creates a new rating calculator
func NewCalculator(db *sqlx.DB, logger *logger.Logger) *Calculator {
	return &Calculator{
		db:     db,
		logger: logger,
	}
}

// CalculateAndUpdate recalculates average rating and review count for a
// product and updates the catalog row. Full recalculation keeps the summary
// self-correcting regardless of which mutation triggered it.
func (c *Calculator) CalculateAndUpdate(ctx context.Context, productID uuid.UUID) error {
	query := `
		UPDATE products
		SET
			average_rating = COALESCE(
				(SELECT ROUND(AVG(rating)::numeric, 1)
				 FROM reviews
				 WHERE product_id = $1),
				0
			),
			reviews_count = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
			updated_at = $2
		WHERE id = $1
	`

	result, err := c.db.ExecContext(ctx, query, productID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update product rating summary: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Product deleted since the event was published - not an error, just log
	if rowsAffected == 0 {
		c.logger.WithFields(map[string]any{
			"product_id": productID.String(),
		}).Info("Product not found, skipping rating summary update")
		return nil
	}

	c.logger.WithFields(map[string]any{
		"product_id": productID.String(),
	}).Info("Successfully updated product rating summary")

	return nil
}

// GetCurrentSummary retrieves the current denormalized summary for
// verification (used in tests)
func (c *Calculator) GetCurrentSummary(ctx context.Context, productID uuid.UUID) (float64, int, error) {
	var row struct {
		AverageRating float64 `db:"average_rating"`
		ReviewsCount  int     `db:"reviews_count"`
	}

	query := `SELECT average_rating, reviews_count FROM products WHERE id = $1`
	if err := c.db.GetContext(ctx, &row, query, productID); err != nil {
		return 0, 0, fmt.Errorf("failed to get current rating summary: %w", err)
	}

	return row.AverageRating, row.ReviewsCount, nil
}
