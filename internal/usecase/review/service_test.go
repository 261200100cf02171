package review

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.Review, error) {
	args := m.Called(ctx, userID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) List(ctx context.Context, filter domain.ReviewFilter, sort domain.ReviewSort, page domain.ReviewPage) ([]*domain.Review, int, error) {
	args := m.Called(ctx, filter, sort, page)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewRepository) Update(ctx context.Context, id uuid.UUID, update domain.ReviewUpdate) (*domain.Review, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) AggregateStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

// MockCatalogStore is a mock implementation of domain.CatalogStore
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockCatalogStore) UpdateRatingSummary(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	args := m.Called(ctx, id, summary)
	return args.Error(0)
}

// MockRatingRefresher is a mock implementation of RatingRefresher
type MockRatingRefresher struct {
	mock.Mock
}

func (m *MockRatingRefresher) Refresh(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockReviewCache is a mock implementation of ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int) ([]*domain.Review, int, error) {
	args := m.Called(ctx, productID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*domain.Review), args.Int(1), args.Error(2)
}

func (m *MockReviewCache) SetReviewsList(ctx context.Context, productID uuid.UUID, page, limit int, reviews []*domain.Review, total int) error {
	args := m.Called(ctx, productID, page, limit, reviews, total)
	return args.Error(0)
}

func (m *MockReviewCache) GetProductStats(ctx context.Context, productID uuid.UUID) (*domain.ReviewStats, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

func (m *MockReviewCache) SetProductStats(ctx context.Context, productID uuid.UUID, stats *domain.ReviewStats) error {
	args := m.Called(ctx, productID, stats)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateProduct(ctx context.Context, productID uuid.UUID) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// stubPublisher swallows events; publication happens on a background
// goroutine so asserting on it would race the test
type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	return nil
}

func newTestService(repo *MockReviewRepository, catalog *MockCatalogStore, aggregator *MockRatingRefresher, cache *MockReviewCache) *Service {
	return NewService(repo, catalog, aggregator, cache, stubPublisher{}, logger.New("test"))
}

func intPtr(v int) *int { return &v }

func validInput(productID, userID uuid.UUID) CreateReviewInput {
	return CreateReviewInput{
		ProductID: productID.String(),
		UserID:    userID.String(),
		Rating:    intPtr(5),
		Title:     "Great product",
		Content:   "Exceeded my expectations in every way.",
		Pros:      []string{"sturdy", "cheap"},
		Cons:      []string{"heavy"},
	}
}

func TestService_Create_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	userID := uuid.New()

	mockCatalog.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	mockRepo.On("FindByUserAndProduct", mock.Anything, userID, productID).Return(nil, domain.ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.Review) bool {
		return r.ProductID == productID && r.UserID == userID && r.Rating == 5
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Review).ID = uuid.New()
	}).Return(nil)
	mockAggregator.On("Refresh", mock.Anything, productID).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)

	created, err := service.Create(context.Background(), validInput(productID, userID))

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)
	mockRepo.AssertExpectations(t)
	mockAggregator.AssertExpectations(t)
}

func TestService_Create_CollectsAllValidationErrors(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	input := CreateReviewInput{
		ProductID: "not-a-uuid",
		Rating:    intPtr(9),
	}

	created, err := service.Create(context.Background(), input)

	assert.Nil(t, created)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages(), "Invalid product ID format")
	assert.Contains(t, verr.Messages(), "User ID is required")
	assert.Contains(t, verr.Messages(), "Rating cannot exceed 5")
	assert.Contains(t, verr.Messages(), "Title is required")
	assert.Contains(t, verr.Messages(), "Content is required")
	mockRepo.AssertNotCalled(t, "Create")
	mockCatalog.AssertNotCalled(t, "GetByID")
}

func TestService_Create_ProductNotFound(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	userID := uuid.New()

	mockCatalog.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	created, err := service.Create(context.Background(), validInput(productID, userID))

	assert.Nil(t, created)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Create_DuplicateDetectedByPrecheck(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	userID := uuid.New()

	mockCatalog.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	mockRepo.On("FindByUserAndProduct", mock.Anything, userID, productID).
		Return(&domain.Review{ID: uuid.New(), ProductID: productID, UserID: userID}, nil)

	created, err := service.Create(context.Background(), validInput(productID, userID))

	assert.Nil(t, created)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_Create_DuplicateDetectedByConstraint(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	userID := uuid.New()

	// The pre-check misses the concurrent submission; the unique
	// constraint catches it
	mockCatalog.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	mockRepo.On("FindByUserAndProduct", mock.Anything, userID, productID).Return(nil, domain.ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrAlreadyExists)

	created, err := service.Create(context.Background(), validInput(productID, userID))

	assert.Nil(t, created)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	mockAggregator.AssertNotCalled(t, "Refresh")
}

func TestService_Create_AggregatorFailureDoesNotFailCreate(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	userID := uuid.New()

	mockCatalog.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	mockRepo.On("FindByUserAndProduct", mock.Anything, userID, productID).Return(nil, domain.ErrNotFound)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	mockAggregator.On("Refresh", mock.Anything, productID).Return(errors.New("db unreachable"))
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)

	created, err := service.Create(context.Background(), validInput(productID, userID))

	assert.NoError(t, err)
	assert.NotNil(t, created)
	mockAggregator.AssertExpectations(t)
}

func TestService_GetByID_NotFound(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	reviewID := uuid.New()
	mockRepo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	rev, err := service.GetByID(context.Background(), reviewID)

	assert.Nil(t, rev)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Update_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	reviewID := uuid.New()
	productID := uuid.New()
	authorID := uuid.New()
	update := domain.ReviewUpdate{Rating: intPtr(3)}

	existing := &domain.Review{ID: reviewID, ProductID: productID, UserID: authorID, Rating: 5}
	updated := &domain.Review{ID: reviewID, ProductID: productID, UserID: authorID, Rating: 3}

	mockRepo.On("GetByID", mock.Anything, reviewID).Return(existing, nil)
	mockRepo.On("Update", mock.Anything, reviewID, update).Return(updated, nil)
	mockAggregator.On("Refresh", mock.Anything, productID).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)

	result, err := service.Update(context.Background(), reviewID, authorID, update)

	assert.NoError(t, err)
	assert.Equal(t, 3, result.Rating)
	mockRepo.AssertExpectations(t)
	mockAggregator.AssertExpectations(t)
}

func TestService_Update_NonAuthorForbidden(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	reviewID := uuid.New()
	authorID := uuid.New()
	callerID := uuid.New()

	mockRepo.On("GetByID", mock.Anything, reviewID).
		Return(&domain.Review{ID: reviewID, UserID: authorID}, nil)

	result, err := service.Update(context.Background(), reviewID, callerID, domain.ReviewUpdate{Rating: intPtr(1)})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	mockRepo.AssertNotCalled(t, "Update")
}

func TestService_Update_EmptyUpdateRejected(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	result, err := service.Update(context.Background(), uuid.New(), uuid.New(), domain.ReviewUpdate{})

	assert.Nil(t, result)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Messages(), "No valid fields provided for update")
	mockRepo.AssertNotCalled(t, "GetByID")
}

func TestService_Delete_Success(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	reviewID := uuid.New()
	productID := uuid.New()

	mockRepo.On("GetByID", mock.Anything, reviewID).
		Return(&domain.Review{ID: reviewID, ProductID: productID}, nil)
	mockRepo.On("Delete", mock.Anything, reviewID).Return(nil)
	mockAggregator.On("Refresh", mock.Anything, productID).Return(nil)
	mockCache.On("InvalidateProduct", mock.Anything, productID).Return(nil)

	err := service.Delete(context.Background(), reviewID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockAggregator.AssertExpectations(t)
}

func TestService_Delete_NotFoundEveryTime(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	reviewID := uuid.New()
	mockRepo.On("GetByID", mock.Anything, reviewID).Return(nil, domain.ErrNotFound)

	// Deleting a missing id reports the same outcome on every call
	assert.ErrorIs(t, service.Delete(context.Background(), reviewID), domain.ErrNotFound)
	assert.ErrorIs(t, service.Delete(context.Background(), reviewID), domain.ErrNotFound)
	mockAggregator.AssertNotCalled(t, "Refresh")
}

func TestService_List_CacheHit(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	cached := []*domain.Review{{ID: uuid.New(), ProductID: productID}}

	query := ListQuery{
		Filter: domain.ReviewFilter{ProductID: &productID},
		Sort:   domain.DefaultReviewSort(),
		Page:   domain.ReviewPage{Page: 1, Limit: 10},
	}

	mockCache.On("GetReviewsList", mock.Anything, productID, 1, 10).Return(cached, 1, nil)

	reviews, total, err := service.List(context.Background(), query)

	assert.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, cached, reviews)
	mockRepo.AssertNotCalled(t, "List")
}

func TestService_List_FilteredQuerySkipsCache(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	minRating := 4
	query := ListQuery{
		Filter: domain.ReviewFilter{ProductID: &productID, MinRating: &minRating},
		Sort:   domain.DefaultReviewSort(),
		Page:   domain.ReviewPage{Page: 1, Limit: 10},
	}

	mockRepo.On("List", mock.Anything, query.Filter, query.Sort, query.Page).
		Return([]*domain.Review{}, 0, nil)

	_, _, err := service.List(context.Background(), query)

	assert.NoError(t, err)
	mockCache.AssertNotCalled(t, "GetReviewsList")
	mockCache.AssertNotCalled(t, "SetReviewsList")
}

func TestService_List_NormalizesPageAndSort(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	query := ListQuery{
		Filter: domain.ReviewFilter{Search: "battery"},
		Sort:   domain.ReviewSort{Field: "password"},
		Page:   domain.ReviewPage{Page: -3, Limit: 10000},
	}

	mockRepo.On("List", mock.Anything, query.Filter, domain.DefaultReviewSort(),
		domain.ReviewPage{Page: 1, Limit: 10}).
		Return([]*domain.Review{}, 0, nil)

	_, _, err := service.List(context.Background(), query)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_ProductStats_CacheMiss(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	stats := &domain.ReviewStats{
		AverageRating:      4.0,
		TotalReviews:       3,
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 1, 4: 1, 5: 1},
		VerifiedCount:      2,
		VerifiedPercentage: 67,
	}

	mockCatalog.On("GetByID", mock.Anything, productID).Return(&domain.Product{ID: productID}, nil)
	mockCache.On("GetProductStats", mock.Anything, productID).Return(nil, errors.New("cache miss"))
	mockRepo.On("AggregateStats", mock.Anything, productID).Return(stats, nil)
	mockCache.On("SetProductStats", mock.Anything, productID, stats).Return(nil)

	result, err := service.ProductStats(context.Background(), productID)

	assert.NoError(t, err)
	assert.Equal(t, stats, result)
	mockCache.AssertExpectations(t)
}

func TestService_ProductStats_ProductNotFound(t *testing.T) {
	mockRepo := new(MockReviewRepository)
	mockCatalog := new(MockCatalogStore)
	mockAggregator := new(MockRatingRefresher)
	mockCache := new(MockReviewCache)
	service := newTestService(mockRepo, mockCatalog, mockAggregator, mockCache)

	productID := uuid.New()
	mockCatalog.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	result, err := service.ProductStats(context.Background(), productID)

	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockRepo.AssertNotCalled(t, "AggregateStats")
}
