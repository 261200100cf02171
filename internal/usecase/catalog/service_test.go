package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// MockProductRepository is a mock implementation of domain.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, limit, offset int) ([]*domain.Product, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Product), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) UpdateRatingSummary(ctx context.Context, id uuid.UUID, summary domain.RatingSummary) error {
	args := m.Called(ctx, id, summary)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestService_Create_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	product := &domain.Product{
		Name:  "Test Product",
		Price: 99.99,
	}

	mockRepo.On("Create", mock.Anything, product).Return(nil)

	err := service.Create(context.Background(), product)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_Create_InvalidInput(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	product := &domain.Product{
		Name:  "", // Invalid: empty name
		Price: 99.99,
	}

	err := service.Create(context.Background(), product)

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	mockRepo.AssertNotCalled(t, "Create")
}

func TestService_GetByID_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	productID := uuid.New()
	expectedProduct := &domain.Product{
		ID:            productID,
		Name:          "Test Product",
		Price:         99.99,
		AverageRating: 4.2,
		ReviewsCount:  8,
	}

	mockRepo.On("GetByID", mock.Anything, productID).Return(expectedProduct, nil)

	product, err := service.GetByID(context.Background(), productID)

	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)
	mockRepo.AssertExpectations(t)
}

func TestService_GetByID_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	productID := uuid.New()

	mockRepo.On("GetByID", mock.Anything, productID).Return(nil, domain.ErrNotFound)

	product, err := service.GetByID(context.Background(), productID)

	assert.Nil(t, product)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_List_ClampsLimit(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	mockRepo.On("List", mock.Anything, 20, 0).Return([]*domain.Product{}, nil)
	mockRepo.On("Count", mock.Anything).Return(0, nil)

	_, total, err := service.List(context.Background(), 5000, -10)

	assert.NoError(t, err)
	assert.Equal(t, 0, total)
	mockRepo.AssertExpectations(t)
}

func TestService_Update_NotFound(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	product := &domain.Product{
		ID:    uuid.New(),
		Name:  "Missing",
		Price: 10,
	}

	mockRepo.On("Update", mock.Anything, product).Return(domain.ErrNotFound)

	err := service.Update(context.Background(), product)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Delete_Success(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := NewService(mockRepo, logger.New("test"))

	productID := uuid.New()
	mockRepo.On("Delete", mock.Anything, productID).Return(nil)

	err := service.Delete(context.Background(), productID)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}
