package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/reviewhub/catalog-reviews/internal/domain"
)

const reviewColumns = `id, product_id, user_id, rating, title, content, pros, cons,
	verified_purchase, helpful_votes, created_at, updated_at`

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// foreignKeyViolation is the PostgreSQL error code for FK violations
const foreignKeyViolation = "23503"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}

// sortColumns whitelists the fields a listing may be ordered by. Anything
// outside this map falls back to created_at.
var sortColumns = map[string]string{
	domain.SortByCreatedAt:    "created_at",
	domain.SortByUpdatedAt:    "updated_at",
	domain.SortByRating:       "rating",
	domain.SortByHelpfulVotes: "helpful_votes",
}

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review. The unique index on (product_id, user_id)
// is the authoritative duplicate guard: a violation maps to
// domain.ErrAlreadyExists regardless of any pre-check the caller ran.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	query := `
		INSERT INTO reviews (product_id, user_id, rating, title, content, pros, cons, verified_purchase)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, helpful_votes, created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		review.ProductID,
		review.UserID,
		review.Rating,
		review.Title,
		review.Content,
		review.Pros,
		review.Cons,
		review.VerifiedPurchase,
	).Scan(
		&review.ID,
		&review.HelpfulVotes,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrNotFound
		}
		return err
	}

	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	var review domain.Review
	err := r.db.GetContext(ctx, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// FindByUserAndProduct returns the user's review of a product
func (r *ReviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE user_id = $1 AND product_id = $2`, reviewColumns)

	var review domain.Review
	err := r.db.GetContext(ctx, &review, query, userID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// buildFilter translates a domain filter into a WHERE clause and its
// positional arguments. Filters stay typed all the way to this point.
func buildFilter(filter domain.ReviewFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ProductID != nil {
		conditions = append(conditions, fmt.Sprintf("product_id = %s", arg(*filter.ProductID)))
	}
	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = %s", arg(*filter.UserID)))
	}
	if filter.MinRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating >= %s", arg(*filter.MinRating)))
	}
	if filter.MaxRating != nil {
		conditions = append(conditions, fmt.Sprintf("rating <= %s", arg(*filter.MaxRating)))
	}
	if filter.VerifiedOnly {
		conditions = append(conditions, "verified_purchase = TRUE")
	}
	if filter.Search != "" {
		p := arg(filter.Search)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE '%%' || %s || '%%' OR content ILIKE '%%' || %s || '%%')", p, p))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns the filtered, sorted page of reviews plus the total count
// matching the filter
func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter, sort domain.ReviewSort, page domain.ReviewPage) ([]*domain.Review, int, error) {
	where, args := buildFilter(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM reviews" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(
		"SELECT %s FROM reviews%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		reviewColumns, where, column, direction, len(args)+1, len(args)+2,
	)
	args = append(args, page.Limit, page.Offset())

	reviews := []*domain.Review{}
	if err := r.db.SelectContext(ctx, &reviews, query, args...); err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// Update applies a partial update to the author-editable fields
func (r *ReviewRepository) Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate) (*domain.Review, error) {
	var sets []string
	var args []interface{}

	set := func(column string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Rating != nil {
		set("rating", *update.Rating)
	}
	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Content != nil {
		set("content", *update.Content)
	}
	if update.Pros != nil {
		set("pros", pq.StringArray(*update.Pros))
	}
	if update.Cons != nil {
		set("cons", pq.StringArray(*update.Cons))
	}
	set("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE reviews SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), reviewColumns,
	)

	var review domain.Review
	err := r.db.QueryRowxContext(ctx, query, args...).StructScan(&review)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &review, nil
}

// Delete removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// statsRow is the single-row summary half of AggregateStats
type statsRow struct {
	AverageRating float64 `db:"average_rating"`
	TotalReviews  int     `db:"total_reviews"`
	VerifiedCount int     `db:"verified_count"`
}

// AggregateStats recomputes the full aggregate over a product's reviews.
// Full recomputation is O(n) in the product's review count; acceptable at
// moderate scale and self-correcting after any missed refresh.
func (r *ReviewRepository) AggregateStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	summaryQuery := `
		SELECT
			COALESCE(ROUND(AVG(rating)::numeric, 1), 0) AS average_rating,
			COUNT(*) AS total_reviews,
			COUNT(*) FILTER (WHERE verified_purchase) AS verified_count
		FROM reviews
		WHERE product_id = $1
	`

	var row statsRow
	if err := r.db.GetContext(ctx, &row, summaryQuery, productID); err != nil {
		return nil, err
	}

	stats := &domain.ReviewStats{
		AverageRating:      row.AverageRating,
		TotalReviews:       row.TotalReviews,
		VerifiedCount:      row.VerifiedCount,
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	if row.TotalReviews > 0 {
		stats.VerifiedPercentage = int(float64(row.VerifiedCount)/float64(row.TotalReviews)*100 + 0.5)
	}

	distributionQuery := `
		SELECT rating, COUNT(*) AS count
		FROM reviews
		WHERE product_id = $1
		GROUP BY rating
	`

	rows, err := r.db.QueryxContext(ctx, distributionQuery, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, err
		}
		stats.RatingDistribution[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
