package basket

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
)

// PositionDTO is one line item in the basket snapshot.
type PositionDTO struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductTitle string          `json:"product_title"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// BasketDTO is the outward-facing basket snapshot.
type BasketDTO struct {
	ID        uuid.UUID       `json:"id"`
	Positions []PositionDTO   `json:"positions"`
	Total     decimal.Decimal `json:"total"`
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes basket operations for a single authenticated user.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*BasketDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*BasketDTO, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*BasketDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*BasketDTO, error)
	Clear(ctx context.Context, userID uuid.UUID) (*BasketDTO, error)
}

type service struct {
	repo     Repository
	products productLoader
}

// NewService constructs a basket service with the provided stack.
func NewService(repo Repository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("basket repository is required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader is required")
	}
	return &service{repo: repo, products: products}, nil
}

// Get returns the user's basket, creating an empty one on first access.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*BasketDTO, error) {
	basket, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, basket)
}

// AddItem creates or increments the position after checking live stock.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*BasketDTO, error) {
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	product, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	basket, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.FindPosition(ctx, basket.ID, productID)
	switch {
	case err == nil:
		newQty := position.Quantity + quantity
		if newQty > product.StockQty {
			return nil, insufficientStock(productID, product.StockQty)
		}
		position.Quantity = newQty
		if err := s.repo.SavePosition(ctx, position); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update basket position")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if quantity > product.StockQty {
			return nil, insufficientStock(productID, product.StockQty)
		}
		fresh := &models.BasketPosition{
			BasketID:  basket.ID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := s.repo.SavePosition(ctx, fresh); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create basket position")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket position")
	}

	return s.snapshot(ctx, basket)
}

// UpdateQuantity sets the position quantity. A quantity below 1 removes
// the position instead of failing.
func (s *service) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*BasketDTO, error) {
	basket, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.FindPosition(ctx, basket.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "basket position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket position")
	}

	if quantity < 1 {
		if err := s.repo.DeletePosition(ctx, position.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete basket position")
		}
		return s.snapshot(ctx, basket)
	}

	product, err := s.loadActiveProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQty {
		return nil, insufficientStock(productID, product.StockQty)
	}

	position.Quantity = quantity
	if err := s.repo.SavePosition(ctx, position); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update basket position")
	}
	return s.snapshot(ctx, basket)
}

// RemoveItem deletes the position for the product.
func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*BasketDTO, error) {
	basket, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	position, err := s.repo.FindPosition(ctx, basket.ID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "basket position not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket position")
	}

	if err := s.repo.DeletePosition(ctx, position.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete basket position")
	}
	return s.snapshot(ctx, basket)
}

// Clear removes every position. Clearing an empty basket succeeds.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*BasketDTO, error) {
	basket, err := s.getOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteAllPositions(ctx, basket.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear basket")
	}
	return s.snapshot(ctx, basket)
}

func (s *service) getOrCreate(ctx context.Context, userID uuid.UUID) (*models.Basket, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	basket, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return basket, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
	}

	fresh := &models.Basket{UserID: userID}
	if err := s.repo.Create(ctx, fresh); err != nil {
		// A concurrent first access may have created it already.
		if existing, lookupErr := s.repo.FindByUserID(ctx, userID); lookupErr == nil {
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create basket")
	}
	return fresh, nil
}

func (s *service) loadActiveProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) snapshot(ctx context.Context, basket *models.Basket) (*BasketDTO, error) {
	positions, err := s.repo.ListPositions(ctx, basket.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list basket positions")
	}

	out := &BasketDTO{
		ID:        basket.ID,
		Positions: make([]PositionDTO, 0, len(positions)),
		Total:     decimal.Zero,
	}
	for _, position := range positions {
		dto := PositionDTO{
			ProductID: position.ProductID,
			Quantity:  position.Quantity,
		}
		if position.Product != nil {
			dto.ProductTitle = position.Product.Title
			dto.UnitPrice = position.Product.Price
			dto.Subtotal = position.Product.Price.Mul(decimal.NewFromInt(int64(position.Quantity)))
		}
		out.Total = out.Total.Add(dto.Subtotal)
		out.Positions = append(out.Positions, dto)
	}
	return out, nil
}

func insufficientStock(productID uuid.UUID, available int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  available,
		})
}
