package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Vote records that a voter has cast helpful feedback on a review.
// One vote per (review, voter) pair, backed by a unique index.
type Vote struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ReviewID  uuid.UUID `json:"review_id" db:"review_id"`
	VoterID   uuid.UUID `json:"voter_id" db:"voter_id"`
	Helpful   bool      `json:"helpful" db:"helpful"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VoteRepository defines the interface for vote data access
type VoteRepository interface {
	// CastVote records the vote and applies the signed counter delta to the
	// review in a single transaction. The counter update is an atomic
	// in-place increment, never read-modify-write. Returns ErrAlreadyExists
	// when the voter has already voted on the review, ErrNotFound when the
	// review does not exist.
	CastVote(ctx context.Context, reviewID, voterID uuid.UUID, helpful bool) (*Review, error)

	// HasVoted reports whether the voter already has a vote on the review
	HasVoted(ctx context.Context, reviewID, voterID uuid.UUID) (bool, error)
}
