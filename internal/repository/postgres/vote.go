package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/reviewhub/catalog-reviews/internal/domain"
)

// VoteRepository implements domain.VoteRepository for PostgreSQL
type VoteRepository struct {
	db *sqlx.DB
}

// NewVoteRepository creates a new PostgreSQL vote repository
func NewVoteRepository(db *sqlx.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// CastVote records the vote and applies the counter delta in one transaction.
// The unique index on (review_id, voter_id) rejects duplicate votes even when
// two requests race past the service-level check. The counter update is a
// single in-place increment so concurrent votes never lose each other.
func (r *VoteRepository) CastVote(ctx context.Context, reviewID, voterID uuid.UUID, helpful bool) (*domain.Review, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO review_votes (review_id, voter_id, helpful)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.ExecContext(ctx, insertQuery, reviewID, voterID, helpful); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	delta := 1
	if !helpful {
		delta = -1
	}

	updateQuery := fmt.Sprintf(`
		UPDATE reviews
		SET helpful_votes = helpful_votes + $1
		WHERE id = $2
		RETURNING %s
	`, reviewColumns)

	var review domain.Review
	err = tx.QueryRowxContext(ctx, updateQuery, delta, reviewID).StructScan(&review)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &review, nil
}

// HasVoted reports whether the voter already has a vote on the review
func (r *VoteRepository) HasVoted(ctx context.Context, reviewID, voterID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM review_votes WHERE review_id = $1 AND voter_id = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, reviewID, voterID); err != nil {
		return false, err
	}

	return exists, nil
}
