package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

// ProductDTO is the outward-facing product representation.
type ProductDTO struct {
	ID          uuid.UUID          `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Brand       *string            `json:"brand,omitempty"`
	Price       decimal.Decimal    `json:"price"`
	StockQty    int                `json:"stock_qty"`
	CategoryID  *uuid.UUID         `json:"category_id,omitempty"`
	// CategoryTitle is populated on detail reads only.
	CategoryTitle *string            `json:"category_title,omitempty"`
	State         enums.ProductState `json:"state"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ListResult bundles a product page with its pagination metadata.
type ListResult struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

// CreateInput captures the payload for a new product.
type CreateInput struct {
	Title       string
	Description string
	Brand       *string
	Price       decimal.Decimal
	StockQty    int
	CategoryID  *uuid.UUID
}

// UpdateInput captures a partial product update.
type UpdateInput struct {
	Title       *string
	Description *string
	Brand       *string
	Price       *decimal.Decimal
	StockQty    *int
	CategoryID  *uuid.UUID
	// ClearCategory detaches the product from its category.
	ClearCategory bool
	State         *enums.ProductState
}

// Service exposes catalog product operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*ProductDTO, error)
	Get(ctx context.Context, id uuid.UUID, includeRetired bool) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error)
	Retire(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, input ListInput) (*ListResult, error)
}

type categoryChecker interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type service struct {
	repo       Repository
	categories categoryChecker
}

// NewService constructs a product service with the provided stack.
func NewService(repo Repository, categories categoryChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category repository is required")
	}
	return &service{repo: repo, categories: categories}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*ProductDTO, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.StockQty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be non-negative")
	}
	if err := s.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &models.Product{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Brand:       input.Brand,
		Price:       input.Price,
		StockQty:    input.StockQty,
		CategoryID:  input.CategoryID,
		State:       enums.ProductStateActive,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return toDTO(product), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, includeRetired bool) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !includeRetired && !product.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	dto := toDTO(product)
	if product.CategoryID != nil {
		if category, err := s.categories.FindByID(ctx, *product.CategoryID); err == nil {
			dto.CategoryTitle = &category.Title
		}
	}
	return dto, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
		}
		product.Title = title
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Brand != nil {
		product.Brand = input.Brand
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		product.Price = *input.Price
	}
	if input.StockQty != nil {
		if *input.StockQty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock quantity must be non-negative")
		}
		product.StockQty = *input.StockQty
	}
	switch {
	case input.ClearCategory:
		product.CategoryID = nil
	case input.CategoryID != nil:
		if err := s.checkCategory(ctx, input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}
	if input.State != nil {
		if !input.State.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product state")
		}
		product.State = *input.State
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return toDTO(product), nil
}

func (s *service) Retire(ctx context.Context, id uuid.UUID) error {
	product, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive() {
		return nil
	}
	if err := s.repo.Retire(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retire product")
	}
	return nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.Filters.Availability != nil && !input.Filters.Availability.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid availability filter")
	}
	if input.Sort != "" && !input.Sort.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sort key")
	}

	records, total, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	out := make([]ProductDTO, 0, len(records))
	for i := range records {
		out = append(out, *toDTO(&records[i]))
	}
	return &ListResult{
		Products: out,
		Meta:     pagination.MetaFor(input.Pagination, total),
	}, nil
}

func (s *service) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.FindByID(ctx, *id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load category")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

func toDTO(product *models.Product) *ProductDTO {
	return &ProductDTO{
		ID:          product.ID,
		Title:       product.Title,
		Description: product.Description,
		Brand:       product.Brand,
		Price:       product.Price,
		StockQty:    product.StockQty,
		CategoryID:  product.CategoryID,
		State:       product.State,
		CreatedAt:   product.CreatedAt,
	}
}
