package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/internal/basket"
	"github.com/dkotlyarov/shoplite-backend/internal/policy"
	"github.com/dkotlyarov/shoplite-backend/internal/products"
	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/metrics"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

// Principal identifies the acting user for policy checks.
type Principal struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the order placement and fulfillment workflow.
type Service interface {
	Checkout(ctx context.Context, principal Principal, input CheckoutInput) (*OrderDTO, error)
	Get(ctx context.Context, principal Principal, orderID uuid.UUID) (*OrderDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error)
	Cancel(ctx context.Context, principal Principal, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo     Repository
	baskets  basket.Repository
	products products.Repository
	tx       txRunner
	metrics  *metrics.OrderMetrics
}

// ServiceParams bundles the dependencies required to build an order service.
type ServiceParams struct {
	OrderRepo   Repository
	BasketRepo  basket.Repository
	ProductRepo products.Repository
	Tx          txRunner
	Metrics     *metrics.OrderMetrics
}

// NewService constructs an order service with the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if params.BasketRepo == nil {
		return nil, fmt.Errorf("basket repository is required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("product repository is required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.OrderRepo,
		baskets:  params.BasketRepo,
		products: params.ProductRepo,
		tx:       params.Tx,
		metrics:  params.Metrics,
	}, nil
}

// Checkout converts the user's basket into an order inside a single
// transaction: stock is re-checked and decremented per position, prices
// are snapshotted, and the basket is emptied. Any failure rolls the
// whole operation back.
func (s *service) Checkout(ctx context.Context, principal Principal, input CheckoutInput) (*OrderDTO, error) {
	address := strings.TrimSpace(input.DeliveryAddress)
	if address == "" {
		return nil, s.checkoutFailed(pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required"))
	}
	if !input.PaymentMethod.IsValid() {
		return nil, s.checkoutFailed(pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method"))
	}

	started := time.Now()
	var created *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		baskets := s.baskets.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.repo.WithTx(tx)

		record, err := baskets.FindByUserID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeEmptyBasket, "basket is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load basket")
		}

		positions, err := baskets.ListPositions(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list basket positions")
		}
		if len(positions) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyBasket, "basket is empty")
		}

		total := decimal.Zero
		orderPositions := make([]models.OrderPosition, 0, len(positions))
		for _, position := range positions {
			product, err := productRepo.FindByID(ctx, position.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
			}
			if !product.IsActive() {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available")
			}

			ok, err := productRepo.DecrementStock(ctx, product.ID, position.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrement stock")
			}
			if !ok {
				// Re-read for the available count; another checkout may
				// have drained the stock since the load above.
				available := 0
				if current, reloadErr := productRepo.FindByID(ctx, product.ID); reloadErr == nil {
					available = current.StockQty
				}
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
					WithDetails(map[string]any{
						"product_id": product.ID,
						"available":  available,
					})
			}

			productID := product.ID
			orderPositions = append(orderPositions, models.OrderPosition{
				ProductID: &productID,
				Quantity:  position.Quantity,
				UnitPrice: product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(position.Quantity))))
		}

		userID := principal.UserID
		order := &models.Order{
			UserID:          &userID,
			Status:          enums.OrderStatusProcessing,
			DeliveryAddress: address,
			PaymentMethod:   input.PaymentMethod,
			TotalPrice:      total,
			Comment:         input.Comment,
			Positions:       orderPositions,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}

		if err := baskets.DeleteAllPositions(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear basket")
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, s.checkoutFailed(err)
	}

	s.metrics.IncCreated()
	s.metrics.ObserveCheckoutDuration(time.Since(started))
	return toDTO(created), nil
}

func (s *service) Get(ctx context.Context, principal Principal, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessOrder(principal.Role, principal.UserID, order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return toDTO(order), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	normalized := pagination.Normalize(params)
	records, total, err := s.repo.ListByUser(ctx, userID, normalized.Offset(), normalized.PageSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildListResult(records, normalized, total), nil
}

func (s *service) ListAll(ctx context.Context, filter ListFilter, params pagination.Params) (*ListResult, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status filter")
	}
	normalized := pagination.Normalize(params)
	records, total, err := s.repo.ListAll(ctx, filter, normalized.Offset(), normalized.PageSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return buildListResult(records, normalized, total), nil
}

// Cancel is the user-initiated path. It is stricter than the status
// table: owners may only cancel while the order is still processing.
func (s *service) Cancel(ctx context.Context, principal Principal, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessOrder(principal.Role, principal.UserID, order.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if order.Status != enums.OrderStatusProcessing {
		return nil, invalidTransition(order.Status, enums.OrderStatusCancelled)
	}
	return s.cancel(ctx, order)
}

// UpdateStatus drives the fulfillment state machine. Cancelling through
// this path restocks the order's positions atomically with the status write.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	order, err := s.load(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, invalidTransition(order.Status, next)
	}

	if next == enums.OrderStatusCancelled {
		return s.cancel(ctx, order)
	}

	if err := s.repo.UpdateStatus(ctx, orderID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	order.Status = next
	return toDTO(order), nil
}

// cancel restores stock for every position and marks the order cancelled
// in one transaction. Positions whose product was deleted are skipped.
func (s *service) cancel(ctx context.Context, order *models.Order) (*OrderDTO, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.products.WithTx(tx)
		orderRepo := s.repo.WithTx(tx)

		for _, position := range order.Positions {
			if position.ProductID == nil {
				continue
			}
			if err := productRepo.IncrementStock(ctx, *position.ProductID, position.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restore stock")
			}
		}
		if err := orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCancelled()
	order.Status = enums.OrderStatusCancelled
	return toDTO(order), nil
}

func (s *service) load(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) checkoutFailed(err error) error {
	reason := "internal"
	if typed := pkgerrors.As(err); typed != nil {
		reason = strings.ToLower(string(typed.Code()))
	}
	s.metrics.IncCheckoutFailure(reason)
	return err
}

func buildListResult(records []models.Order, params pagination.Params, total int64) *ListResult {
	out := &ListResult{
		Orders: make([]OrderDTO, 0, len(records)),
		Meta:   pagination.MetaFor(params, total),
	}
	for i := range records {
		out.Orders = append(out.Orders, *toDTO(&records[i]))
	}
	return out
}

func invalidTransition(current, requested enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not permitted").
		WithDetails(map[string]any{
			"current":   current,
			"requested": requested,
		})
}
