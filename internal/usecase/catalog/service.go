package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/reviewhub/catalog-reviews/internal/domain"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
	"github.com/reviewhub/catalog-reviews/internal/pkg/validator"
)

// Service handles catalog item business logic
type Service struct {
	repo   domain.ProductRepository
	logger *logger.Logger
}

// NewService creates a new catalog service
func NewService(repo domain.ProductRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// Create creates a new product
func (s *Service) Create(ctx context.Context, product *domain.Product) error {
	if err := validator.Get().StructCtx(ctx, product); err != nil {
		s.logger.Error("Product validation failed", err)
		return &domain.ValidationError{Fields: []domain.FieldError{{Message: "Invalid product payload"}}}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		s.logger.Error("Failed to create product", err)
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product created successfully")

	return nil
}

// GetByID retrieves a product by ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	return product, nil
}

// List retrieves a paginated list of products
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Product, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	return products, total, nil
}

// Update updates an existing product
func (s *Service) Update(ctx context.Context, product *domain.Product) error {
	if err := validator.Get().StructCtx(ctx, product); err != nil {
		s.logger.Error("Product validation failed", err)
		return &domain.ValidationError{Fields: []domain.FieldError{{Message: "Invalid product payload"}}}
	}

	if err := s.repo.Update(ctx, product); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to update product", err)
		}
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	}).Info("Product updated successfully")

	return nil
}

// Delete removes a product
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("Failed to delete product", err)
		}
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": id,
	}).Info("Product deleted successfully")

	return nil
}
