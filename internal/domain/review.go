package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Review represents a user-submitted review of a catalog product.
// At most one review exists per (user, product) pair; the pair is backed
// by a unique index in storage.
type Review struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	ProductID        uuid.UUID      `json:"product_id" db:"product_id" validate:"required"`
	UserID           uuid.UUID      `json:"user_id" db:"user_id" validate:"required"`
	Rating           int            `json:"rating" db:"rating" validate:"required,min=1,max=5"`
	Title            string         `json:"title" db:"title" validate:"required,max=100"`
	Content          string         `json:"content" db:"content" validate:"required,max=2000"`
	Pros             pq.StringArray `json:"pros" db:"pros" validate:"dive,max=200"`
	Cons             pq.StringArray `json:"cons" db:"cons" validate:"dive,max=200"`
	VerifiedPurchase bool           `json:"verified_purchase" db:"verified_purchase"`
	HelpfulVotes     int            `json:"helpful_votes" db:"helpful_votes"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// ReviewUpdate is a partial update of a review. Only the author-editable
// fields are represented; nil means "leave unchanged".
type ReviewUpdate struct {
	Rating  *int      `json:"rating,omitempty"`
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Pros    *[]string `json:"pros,omitempty"`
	Cons    *[]string `json:"cons,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all
func (u *ReviewUpdate) IsEmpty() bool {
	return u.Rating == nil && u.Title == nil && u.Content == nil &&
		u.Pros == nil && u.Cons == nil
}

// ReviewFilter narrows a review listing. Optional fields are pointers or
// zero values; translation to storage predicates happens inside the
// repository, never in callers.
type ReviewFilter struct {
	ProductID    *uuid.UUID
	UserID       *uuid.UUID
	MinRating    *int
	MaxRating    *int
	VerifiedOnly bool
	// Search is a case-insensitive substring match over title and content
	Search string
}

// Sortable review fields, validated against a whitelist in the repository
const (
	SortByCreatedAt    = "created_at"
	SortByUpdatedAt    = "updated_at"
	SortByRating       = "rating"
	SortByHelpfulVotes = "helpful_votes"
)

// ReviewSort selects the ordering of a review listing
type ReviewSort struct {
	Field      string
	Descending bool
}

// DefaultReviewSort is newest-first
func DefaultReviewSort() ReviewSort {
	return ReviewSort{Field: SortByCreatedAt, Descending: true}
}

// ReviewPage selects a 1-based page of a review listing
type ReviewPage struct {
	Page  int
	Limit int
}

// Offset returns the number of rows to skip
func (p ReviewPage) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ReviewStats is the full aggregate over a product's reviews
type ReviewStats struct {
	AverageRating      float64     `json:"average_rating"`
	TotalReviews       int         `json:"total_reviews"`
	RatingDistribution map[int]int `json:"rating_distribution"`
	VerifiedCount      int         `json:"verified_count"`
	VerifiedPercentage int         `json:"verified_percentage"`
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// Create inserts a new review. Returns ErrAlreadyExists when the
	// (user_id, product_id) uniqueness constraint is violated; the
	// constraint is the authoritative duplicate guard.
	Create(ctx context.Context, review *Review) error

	// GetByID retrieves a review by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Review, error)

	// FindByUserAndProduct returns the user's review of a product, or
	// ErrNotFound when none exists
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*Review, error)

	// List returns the filtered, sorted page of reviews plus the total
	// count of rows matching the filter
	List(ctx context.Context, filter ReviewFilter, sort ReviewSort, page ReviewPage) ([]*Review, int, error)

	// Update applies a partial update to the author-editable fields
	Update(ctx context.Context, id uuid.UUID, update ReviewUpdate) (*Review, error)

	// Delete removes a review
	Delete(ctx context.Context, id uuid.UUID) error

	// AggregateStats recomputes the aggregate over all reviews of a product
	AggregateStats(ctx context.Context, productID uuid.UUID) (*ReviewStats, error)
}
