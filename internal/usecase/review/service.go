package review

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	"github.com/reviewhub/catalog-reviews/internal/pkg/validator"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// RatingRefresher recomputes a product's denormalized rating summary
type RatingRefresher interface {
	Refresh(ctx context.Context, productID uuid.UUID) error
}

// ReviewCache caches product-scoped review reads
type ReviewCache interface {
	GetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int) ([]*domain.Review, int, error)
	SetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int, reviews []*domain.Review, total int) error
	GetProductStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error)
	SetProductStats(ctx context.Context, productID uuid.UUID, stats *domain.ReviewStats) error
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// ReviewEvent represents an event related to a review
type ReviewEvent struct {
	EventType string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	ProductID uuid.UUID      `json:"product_id"`
	Review    *domain.Review `json:"review,omitempty"`
}

// ListQuery is a normalized review listing request
type ListQuery struct {
	Filter domain.ReviewFilter
	Sort   domain.ReviewSort
	Page   domain.ReviewPage
}

// Service orchestrates review writes and reads: validation, uniqueness,
// persistence, rating refresh, caching and event publication. It holds no
// locks; correctness under concurrent writes is delegated to the storage
// constraints.
type Service struct {
	repo       domain.ReviewRepository
	catalog    domain.CatalogStore
	aggregator RatingRefresher
	cache      ReviewCache
	publisher  EventPublisher
	logger     *logger.Logger
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	catalog domain.CatalogStore,
	aggregator RatingRefresher,
	cache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:       repo,
		catalog:    catalog,
		aggregator: aggregator,
		cache:      cache,
		publisher:  publisher,
		logger:     log,
	}
}

// Create validates the submitted payload, checks the target product exists,
// and inserts the review. The duplicate pre-check produces a friendly error
// for the common case; the unique constraint inside repo.Create is the
// authoritative guard when two submissions race.
func (s *Service) Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	draft, verr := ValidateDraft(input)
	if verr != nil {
		s.logger.Debugf("Review validation failed: %v", verr)
		return nil, verr
	}

	if err := validator.Get().StructCtx(ctx, draft); err != nil {
		s.logger.Error("Review draft failed struct validation", err)
		return nil, &domain.ValidationError{Fields: []domain.FieldError{{Message: "Invalid review payload"}}}
	}

	if _, err := s.catalog.GetByID(ctx, draft.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", draft.ProductID)
		} else {
			s.logger.Error("Failed to check product existence", err)
		}
		return nil, err
	}

	_, err := s.repo.FindByUserAndProduct(ctx, draft.UserID, draft.ProductID)
	if err == nil {
		return nil, domain.ErrAlreadyExists
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("Failed to check for existing review", err)
		return nil, err
	}

	if err := s.repo.Create(ctx, draft); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the race against a concurrent submission; same outcome
			// as the pre-check
			return nil, domain.ErrAlreadyExists
		}
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	s.afterMutation(ctx, "review.created", draft.ProductID, draft)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  draft.ID,
		"product_id": draft.ProductID,
		"user_id":    draft.UserID,
		"rating":     draft.Rating,
	}).Info("Review created successfully")

	return draft, nil
}

// GetByID retrieves a review by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", id)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	return review, nil
}

// List returns the filtered, sorted page of reviews plus the total count.
// Product-scoped listings with the default sort are served from cache.
func (s *Service) List(ctx context.Context, query ListQuery) ([]*domain.Review, int, error) {
	query = normalizeQuery(query)

	cacheable := s.isCacheable(query)
	if cacheable {
		reviews, total, err := s.cache.GetReviewsList(ctx, *query.Filter.ProductID, query.Page.Page, query.Page.Limit)
		if err == nil {
			s.logger.Debugf("Cache hit for product %s reviews (page=%d, limit=%d)",
				query.Filter.ProductID, query.Page.Page, query.Page.Limit)
			return reviews, total, nil
		}
	}

	reviews, total, err := s.repo.List(ctx, query.Filter, query.Sort, query.Page)
	if err != nil {
		s.logger.Error("Failed to list reviews", err)
		return nil, 0, err
	}

	if cacheable {
		if err := s.cache.SetReviewsList(ctx, *query.Filter.ProductID, query.Page.Page, query.Page.Limit, reviews, total); err != nil {
			s.logger.Warnf("Failed to cache reviews for product %s: %v", query.Filter.ProductID, err)
		}
	}

	return reviews, total, nil
}

// Update applies a partial update to a review's author-editable fields.
// Only the author may edit; the rating summary is refreshed afterwards.
func (s *Service) Update(ctx context.Context, id, callerID uuid.UUID, update domain.ReviewUpdate) (*domain.Review, error) {
	if verr := ValidateUpdate(&update); verr != nil {
		s.logger.Debugf("Review update validation failed: %v", verr)
		return nil, verr
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to get review for update", err)
		}
		return nil, err
	}

	if existing.UserID != callerID {
		s.logger.WithFields(map[string]interface{}{
			"review_id": id,
			"author_id": existing.UserID,
			"caller_id": callerID,
		}).Warn("Rejected review update by non-author")
		return nil, domain.ErrForbidden
	}

	updated, err := s.repo.Update(ctx, id, update)
	if err != nil {
		s.logger.Error("Failed to update review", err)
		return nil, err
	}

	s.afterMutation(ctx, "review.updated", updated.ProductID, updated)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  updated.ID,
		"product_id": updated.ProductID,
		"rating":     updated.Rating,
	}).Info("Review updated successfully")

	return updated, nil
}

// Delete removes a review and refreshes the product's rating summary.
// Deleting a missing id reports ErrNotFound identically on every call.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	// Product ID is needed for the rating refresh but only stored on the
	// review record
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to get review for deletion", err)
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to delete review", err)
		}
		return err
	}

	s.afterMutation(ctx, "review.deleted", review.ProductID, review)

	s.logger.WithFields(map[string]interface{}{
		"review_id":  id,
		"product_id": review.ProductID,
	}).Info("Review deleted successfully")

	return nil
}

// ProductStats returns the full review aggregate for a product
func (s *Service) ProductStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	if _, err := s.catalog.GetByID(ctx, productID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", productID)
		} else {
			s.logger.Error("Failed to check product existence", err)
		}
		return nil, err
	}

	stats, err := s.cache.GetProductStats(ctx, productID)
	if err == nil {
		s.logger.Debugf("Cache hit for product %s stats", productID)
		return stats, nil
	}

	stats, err = s.repo.AggregateStats(ctx, productID)
	if err != nil {
		s.logger.Error("Failed to aggregate review stats", err)
		return nil, err
	}

	if err := s.cache.SetProductStats(ctx, productID, stats); err != nil {
		s.logger.Warnf("Failed to cache stats for product %s: %v", productID, err)
	}

	return stats, nil
}

// afterMutation runs the side effects every review mutation shares: the
// unconditional rating refresh (failure logged, never surfaced), cache
// invalidation, and event publication.
func (s *Service) afterMutation(ctx context.Context, eventType string, productID uuid.UUID, review *domain.Review) {
	if err := s.aggregator.Refresh(ctx, productID); err != nil {
		s.logger.Errorf(err, "Failed to refresh rating summary for product %s", productID)
	}

	if err := s.cache.InvalidateProduct(ctx, productID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", productID, err)
	}

	s.publishEvent(ctx, eventType, productID, review)
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(ctx context.Context, eventType string, productID uuid.UUID, review *domain.Review) {
	event := ReviewEvent{
		EventType: eventType,
		Timestamp: time.Now(),
		ProductID: productID,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), "reviews.events", data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}

// isCacheable reports whether a listing can be served by the product-scoped
// cache: product filter only, default sort
func (s *Service) isCacheable(query ListQuery) bool {
	f := query.Filter
	return f.ProductID != nil && f.UserID == nil && f.MinRating == nil &&
		f.MaxRating == nil && !f.VerifiedOnly && f.Search == "" &&
		query.Sort == domain.DefaultReviewSort()
}

func normalizeQuery(query ListQuery) ListQuery {
	if query.Page.Page < 1 {
		query.Page.Page = 1
	}
	if query.Page.Limit <= 0 || query.Page.Limit > maxLimit {
		query.Page.Limit = defaultLimit
	}
	if _, ok := map[string]bool{
		domain.SortByCreatedAt:    true,
		domain.SortByUpdatedAt:    true,
		domain.SortByRating:       true,
		domain.SortByHelpfulVotes: true,
	}[query.Sort.Field]; !ok {
		query.Sort = domain.DefaultReviewSort()
	}
	return query
}
