package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/delivery/http/request"
	"github.com/reviewhub/catalog-reviews/internal/delivery/http/response"
	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	"github.com/reviewhub/catalog-reviews/internal/usecase/review"
	"github.com/reviewhub/catalog-reviews/internal/usecase/vote"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	reviews *review.Service
	votes   *vote.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *review.Service, votes *vote.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		votes:   votes,
		logger:  log,
	}
}

// UpdateReviewRequest represents the request body for updating a review.
// user_id identifies the caller; only the review's author may edit.
type UpdateReviewRequest struct {
	UserID  string    `json:"user_id"`
	Rating  *int      `json:"rating,omitempty"`
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Pros    *[]string `json:"pros,omitempty"`
	Cons    *[]string `json:"cons,omitempty"`
}

// VoteRequest represents the request body for voting on a review
type VoteRequest struct {
	UserID  string `json:"user_id"`
	Helpful *bool  `json:"helpful"`
}

// Create handles POST /api/v1/reviews
// @Summary Submit a review
// @Description Submit a review for a product. One review per user per product; the product's rating summary is refreshed automatically.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param review body review.CreateReviewInput true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]interface{} "Validation failed"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 409 {object} map[string]string "User already reviewed this product"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input review.CreateReviewInput
	if err := request.DecodeJSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.reviews.Create(r.Context(), input)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, created)
}

// List handles GET /api/v1/reviews
// @Summary List reviews
// @Description List reviews with optional filters, sorting and pagination.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param page query int false "1-based page" default(1)
// @Param limit query int false "Items per page (max 100)" default(10)
// @Param sortBy query string false "Sort field: created_at, updated_at, rating, helpful_votes" default(created_at)
// @Param sortOrder query string false "asc or desc" default(desc)
// @Param productId query string false "Filter by product ID (UUID)"
// @Param userId query string false "Filter by user ID (UUID)"
// @Param minRating query int false "Minimum rating"
// @Param maxRating query int false "Maximum rating"
// @Param verifiedOnly query bool false "Verified purchases only"
// @Param search query string false "Substring match over title and content"
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} map[string]string "Malformed filter"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := parseListQuery(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	reviews, total, err := h.reviews.List(r.Context(), query)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, "reviews", reviews, total, query.Page.Page, query.Page.Limit)
}

// GetByID handles GET /api/v1/reviews/:id
// @Summary Get a review by ID
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Review details"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [get]
func (h *ReviewHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	rev, err := h.reviews.GetByID(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, rev)
}

// Update handles PATCH /api/v1/reviews/:id
// @Summary Update a review
// @Description Update the author-editable fields of a review. Only the author may edit; the product's rating summary is refreshed automatically.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Param review body UpdateReviewRequest true "Fields to update"
// @Success 200 {object} map[string]interface{} "Review updated successfully"
// @Failure 400 {object} map[string]interface{} "Validation failed"
// @Failure 403 {object} map[string]string "Caller is not the author"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [patch]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req UpdateReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	callerID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	update := domain.ReviewUpdate{
		Rating:  req.Rating,
		Title:   req.Title,
		Content: req.Content,
		Pros:    req.Pros,
		Cons:    req.Cons,
	}

	updated, err := h.reviews.Update(r.Context(), id, callerID, update)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, updated)
}

// Delete handles DELETE /api/v1/reviews/:id
// @Summary Delete a review
// @Description Delete a review. The product's rating summary is refreshed automatically.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Success 200 {object} map[string]interface{} "Review deleted successfully"
// @Failure 400 {object} map[string]string "Invalid review ID"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [delete]
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	if err := h.reviews.Delete(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}

	response.Message(w, "Review deleted successfully")
}

// Vote handles POST /api/v1/reviews/:id/vote
// @Summary Vote on a review
// @Description Mark a review helpful or unhelpful. One vote per user per review; authors cannot vote on their own reviews.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Review ID (UUID)"
// @Param vote body VoteRequest true "Vote details"
// @Success 200 {object} map[string]interface{} "Review with adjusted vote counter"
// @Failure 400 {object} map[string]string "Missing fields, self-vote or duplicate vote"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id}/vote [post]
func (h *ReviewHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req VoteRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.UserID == "" || req.Helpful == nil {
		response.Error(w, http.StatusBadRequest, "User ID and helpful flag are required")
		return
	}

	voterID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	updated, err := h.votes.Cast(r.Context(), id, voterID, *req.Helpful)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSelfVote):
			response.Error(w, http.StatusBadRequest, "Cannot vote on your own review")
		case errors.Is(err, domain.ErrAlreadyExists):
			response.Error(w, http.StatusBadRequest, "You have already voted on this review")
		default:
			h.handleError(w, err)
		}
		return
	}

	response.Success(w, updated)
}

// ProductStats handles GET /api/v1/products/:id/reviews/stats
// @Summary Get review statistics for a product
// @Description Full aggregate over a product's reviews: average, count, rating distribution and verified-purchase share.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Success 200 {object} map[string]interface{} "Review statistics"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 404 {object} map[string]string "Product not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews/stats [get]
func (h *ReviewHandler) ProductStats(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	stats, err := h.reviews.ProductStats(r.Context(), productID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, stats)
}

// GetByProductID handles GET /api/v1/products/:id/reviews
// @Summary List reviews for a product
// @Description Paginated, product-scoped review listing. Results are cached.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param id path string true "Product ID (UUID)"
// @Param page query int false "1-based page" default(1)
// @Param limit query int false "Items per page (max 100)" default(10)
// @Success 200 {object} map[string]interface{} "Paginated list of reviews"
// @Failure 400 {object} map[string]string "Invalid product ID"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /products/{id}/reviews [get]
func (h *ReviewHandler) GetByProductID(w http.ResponseWriter, r *http.Request) {
	productID, err := request.GetUUIDParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid product ID")
		return
	}

	page, limit := request.GetPageParams(r)
	query := review.ListQuery{
		Filter: domain.ReviewFilter{ProductID: &productID},
		Sort:   domain.DefaultReviewSort(),
		Page:   domain.ReviewPage{Page: page, Limit: limit},
	}

	reviews, total, err := h.reviews.List(r.Context(), query)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Paginated(w, "reviews", reviews, total, page, limit)
}

// parseListQuery translates query parameters into a typed listing request
func parseListQuery(r *http.Request) (review.ListQuery, error) {
	var query review.ListQuery

	productID, err := request.GetOptionalUUIDQuery(r, "productId")
	if err != nil {
		return query, err
	}
	userID, err := request.GetOptionalUUIDQuery(r, "userId")
	if err != nil {
		return query, err
	}
	minRating, err := request.GetOptionalIntQuery(r, "minRating")
	if err != nil {
		return query, err
	}
	maxRating, err := request.GetOptionalIntQuery(r, "maxRating")
	if err != nil {
		return query, err
	}

	page, limit := request.GetPageParams(r)

	sort := domain.DefaultReviewSort()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		sort.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		sort.Descending = !strings.EqualFold(order, "asc")
	}

	query = review.ListQuery{
		Filter: domain.ReviewFilter{
			ProductID:    productID,
			UserID:       userID,
			MinRating:    minRating,
			MaxRating:    maxRating,
			VerifiedOnly: request.GetBoolQuery(r, "verifiedOnly"),
			Search:       r.URL.Query().Get("search"),
		},
		Sort: sort,
		Page: domain.ReviewPage{Page: page, Limit: limit},
	}

	return query, nil
}

// handleError maps service layer errors to HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(w, verr.Messages())
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review or product not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, "You have already reviewed this product")
	case errors.Is(err, domain.ErrForbidden):
		response.Error(w, http.StatusForbidden, "Only the review author can do that")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
