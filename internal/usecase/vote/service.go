package vote

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// ReviewCacheInvalidator drops cached product reads after a vote changes a
// review's counter
type ReviewCacheInvalidator interface {
	InvalidateProduct(ctx context.Context, productID uuid.UUID) error
}

// Service tracks helpful-vote feedback on reviews. One vote per
// (review, voter); self-votes are rejected; the counter delta is applied
// atomically at the storage layer together with the vote record.
type Service struct {
	reviews domain.ReviewRepository
	votes   domain.VoteRepository
	cache   ReviewCacheInvalidator
	logger  *logger.Logger
}

// NewService creates a new vote service
func NewService(
	reviews domain.ReviewRepository,
	votes domain.VoteRepository,
	cache ReviewCacheInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		reviews: reviews,
		votes:   votes,
		cache:   cache,
		logger:  log,
	}
}

// Cast records a helpful/unhelpful vote on a review and returns the review
// with its adjusted counter. The HasVoted pre-check yields a friendly error;
// the unique index inside CastVote is the guard when two votes race.
// A vote does not touch the product's rating summary, so no refresh runs.
func (s *Service) Cast(ctx context.Context, reviewID, voterID uuid.UUID, helpful bool) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Review not found: %s", reviewID)
		} else {
			s.logger.Error("Failed to get review for vote", err)
		}
		return nil, err
	}

	if review.UserID == voterID {
		s.logger.WithFields(map[string]interface{}{
			"review_id": reviewID,
			"voter_id":  voterID,
		}).Warn("Rejected self-vote")
		return nil, domain.ErrSelfVote
	}

	voted, err := s.votes.HasVoted(ctx, reviewID, voterID)
	if err != nil {
		s.logger.Error("Failed to check for existing vote", err)
		return nil, err
	}
	if voted {
		return nil, domain.ErrAlreadyExists
	}

	updated, err := s.votes.CastVote(ctx, reviewID, voterID, helpful)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost the race against a concurrent vote from the same voter
			return nil, domain.ErrAlreadyExists
		}
		s.logger.Error("Failed to cast vote", err)
		return nil, err
	}

	if err := s.cache.InvalidateProduct(ctx, updated.ProductID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for product %s: %v", updated.ProductID, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"review_id":     reviewID,
		"voter_id":      voterID,
		"helpful":       helpful,
		"helpful_votes": updated.HelpfulVotes,
	}).Info("Vote recorded successfully")

	return updated, nil
}
