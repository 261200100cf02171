package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewhub/catalog-reviews/internal/domain"
)

func newVoteTestRepo(t *testing.T) (*VoteRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewVoteRepository(sqlxDB), mock, func() { _ = db.Close() }
}

func TestVoteRepository_CastVote_HelpfulAppliesPositiveDelta(t *testing.T) {
	repo, mock, closeFn := newVoteTestRepo(t)
	defer closeFn()

	reviewID := uuid.New()
	voterID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_votes").
		WithArgs(reviewID, voterID, true).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE reviews").
		WithArgs(1, reviewID).
		WillReturnRows(sqlmock.NewRows(reviewRowColumns).AddRow(
			reviewID, uuid.New(), uuid.New(), 5, "Great", "Loved it",
			"{}", "{}", false, 4, now, now,
		))
	mock.ExpectCommit()

	review, err := repo.CastVote(context.Background(), reviewID, voterID, true)

	assert.NoError(t, err)
	assert.Equal(t, 4, review.HelpfulVotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_CastVote_UnhelpfulAppliesNegativeDelta(t *testing.T) {
	repo, mock, closeFn := newVoteTestRepo(t)
	defer closeFn()

	reviewID := uuid.New()
	voterID := uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_votes").
		WithArgs(reviewID, voterID, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE reviews").
		WithArgs(-1, reviewID).
		WillReturnRows(sqlmock.NewRows(reviewRowColumns).AddRow(
			reviewID, uuid.New(), uuid.New(), 5, "Great", "Loved it",
			"{}", "{}", false, 2, now, now,
		))
	mock.ExpectCommit()

	review, err := repo.CastVote(context.Background(), reviewID, voterID, false)

	assert.NoError(t, err)
	assert.Equal(t, 2, review.HelpfulVotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_CastVote_DuplicateRollsBack(t *testing.T) {
	repo, mock, closeFn := newVoteTestRepo(t)
	defer closeFn()

	reviewID := uuid.New()
	voterID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_votes").
		WithArgs(reviewID, voterID, true).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "review_votes_review_voter_unique"})
	mock.ExpectRollback()

	review, err := repo.CastVote(context.Background(), reviewID, voterID, true)

	assert.Nil(t, review)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_CastVote_ReviewMissingRollsBack(t *testing.T) {
	repo, mock, closeFn := newVoteTestRepo(t)
	defer closeFn()

	reviewID := uuid.New()
	voterID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO review_votes").
		WithArgs(reviewID, voterID, true).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "review_votes_review_id_fkey"})
	mock.ExpectRollback()

	review, err := repo.CastVote(context.Background(), reviewID, voterID, true)

	assert.Nil(t, review)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVoteRepository_HasVoted(t *testing.T) {
	repo, mock, closeFn := newVoteTestRepo(t)
	defer closeFn()

	reviewID := uuid.New()
	voterID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(reviewID, voterID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	voted, err := repo.HasVoted(context.Background(), reviewID, voterID)

	assert.NoError(t, err)
	assert.True(t, voted)
}
