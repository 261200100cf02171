package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Product represents a catalog item. AverageRating and ReviewsCount are
// denormalized from the review collection and refreshed by the rating
// aggregator after every review mutation.
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	Description   *string   `json:"description,omitempty" db:"description"`
	Price         float64   `json:"price" db:"price" validate:"required,gte=0"`
	StockCount    int       `json:"stock_count" db:"stock_count" validate:"gte=0"`
	Brand         *string   `json:"brand,omitempty" db:"brand"`
	ImageURL      *string   `json:"image_url,omitempty" db:"image_url"`
	IsAvailable   bool      `json:"is_available" db:"is_available"`
	AverageRating float64   `json:"average_rating" db:"average_rating"`
	ReviewsCount  int       `json:"reviews_count" db:"reviews_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// RatingSummary is the pair of derived fields written back to a product
// by the rating aggregator
type RatingSummary struct {
	AverageRating float64
	ReviewsCount  int
}

// CatalogStore is the subset of product access the review core depends on
type CatalogStore interface {
	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// UpdateRatingSummary writes the denormalized rating fields
	UpdateRatingSummary(ctx context.Context, id uuid.UUID, summary RatingSummary) error
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	CatalogStore

	// Create creates a new product
	Create(ctx context.Context, product *Product) error

	// List retrieves a paginated list of products
	List(ctx context.Context, limit, offset int) ([]*Product, error)

	// Update updates an existing product's own fields
	Update(ctx context.Context, product *Product) error

	// Delete removes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// Count returns the total number of products
	Count(ctx context.Context) (int, error)
}
