package review

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/reviewhub/catalog-reviews/internal/domain"
)

const (
	maxTitleLen   = 100
	maxContentLen = 2000
	maxItemLen    = 200
)

// CreateReviewInput is the raw submitted payload for a new review.
// Pointer fields distinguish "absent" from zero values.
type CreateReviewInput struct {
	ProductID        string   `json:"product_id"`
	UserID           string   `json:"user_id"`
	Rating           *int     `json:"rating"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Pros             []string `json:"pros"`
	Cons             []string `json:"cons"`
	VerifiedPurchase *bool    `json:"verified_purchase"`
}

// ValidateDraft checks every field rule and either returns a typed draft or
// the complete list of field errors. It never stops at the first failure.
func ValidateDraft(input CreateReviewInput) (*domain.Review, *domain.ValidationError) {
	verr := &domain.ValidationError{}

	var productID, userID uuid.UUID
	var err error

	if input.ProductID == "" {
		verr.Add("product_id", "Product ID is required")
	} else if productID, err = uuid.Parse(input.ProductID); err != nil {
		verr.Add("product_id", "Invalid product ID format")
	}

	if input.UserID == "" {
		verr.Add("user_id", "User ID is required")
	} else if userID, err = uuid.Parse(input.UserID); err != nil {
		verr.Add("user_id", "Invalid user ID format")
	}

	rating := 0
	if input.Rating == nil {
		verr.Add("rating", "Rating is required")
	} else {
		rating = *input.Rating
		switch {
		case rating < 1:
			verr.Add("rating", "Rating must be at least 1")
		case rating > 5:
			verr.Add("rating", "Rating cannot exceed 5")
		}
	}

	title := strings.TrimSpace(input.Title)
	switch {
	case title == "":
		verr.Add("title", "Title is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		verr.Add("title", fmt.Sprintf("Title cannot exceed %d characters", maxTitleLen))
	}

	content := strings.TrimSpace(input.Content)
	switch {
	case content == "":
		verr.Add("content", "Content is required")
	case utf8.RuneCountInString(content) > maxContentLen:
		verr.Add("content", fmt.Sprintf("Content cannot exceed %d characters", maxContentLen))
	}

	pros := validateItems(verr, "pros", input.Pros)
	cons := validateItems(verr, "cons", input.Cons)

	if verr.HasErrors() {
		return nil, verr
	}

	draft := &domain.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    rating,
		Title:     title,
		Content:   content,
		Pros:      pq.StringArray(pros),
		Cons:      pq.StringArray(cons),
	}
	if input.VerifiedPurchase != nil {
		draft.VerifiedPurchase = *input.VerifiedPurchase
	}

	return draft, nil
}

// validateItems trims each entry and checks the per-item length limit.
// A nil slice defaults to empty, never NULL.
func validateItems(verr *domain.ValidationError, field string, items []string) []string {
	out := make([]string, 0, len(items))
	for i, item := range items {
		trimmed := strings.TrimSpace(item)
		if utf8.RuneCountInString(trimmed) > maxItemLen {
			verr.Add(field, fmt.Sprintf("%s[%d] cannot exceed %d characters", field, i, maxItemLen))
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

// ValidateUpdate checks a partial update against the same field rules.
// An update carrying no fields at all is itself a validation error.
func ValidateUpdate(update *domain.ReviewUpdate) *domain.ValidationError {
	verr := &domain.ValidationError{}

	if update.IsEmpty() {
		verr.Add("", "No valid fields provided for update")
		return verr
	}

	if update.Rating != nil {
		switch {
		case *update.Rating < 1:
			verr.Add("rating", "Rating must be at least 1")
		case *update.Rating > 5:
			verr.Add("rating", "Rating cannot exceed 5")
		}
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		switch {
		case title == "":
			verr.Add("title", "Title is required")
		case utf8.RuneCountInString(title) > maxTitleLen:
			verr.Add("title", fmt.Sprintf("Title cannot exceed %d characters", maxTitleLen))
		default:
			update.Title = &title
		}
	}

	if update.Content != nil {
		content := strings.TrimSpace(*update.Content)
		switch {
		case content == "":
			verr.Add("content", "Content is required")
		case utf8.RuneCountInString(content) > maxContentLen:
			verr.Add("content", fmt.Sprintf("Content cannot exceed %d characters", maxContentLen))
		default:
			update.Content = &content
		}
	}

	if update.Pros != nil {
		pros := validateItems(verr, "pros", *update.Pros)
		update.Pros = &pros
	}
	if update.Cons != nil {
		cons := validateItems(verr, "cons", *update.Cons)
		update.Cons = &cons
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
