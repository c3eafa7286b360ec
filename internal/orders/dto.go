package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

// CheckoutInput captures the payload required to place an order.
type CheckoutInput struct {
	DeliveryAddress string
	PaymentMethod   enums.PaymentMethod
	Comment         *string
}

// PositionDTO is one immutable line item of an order.
type PositionDTO struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the outward-facing order snapshot.
type OrderDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          *uuid.UUID          `json:"user_id,omitempty"`
	Status          enums.OrderStatus   `json:"status"`
	DeliveryAddress string              `json:"delivery_address"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	TotalPrice      decimal.Decimal     `json:"total_price"`
	Comment         *string             `json:"comment,omitempty"`
	Positions       []PositionDTO       `json:"positions"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ListResult bundles an order page with its pagination metadata.
type ListResult struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

func toDTO(order *models.Order) *OrderDTO {
	out := &OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		Status:          order.Status,
		DeliveryAddress: order.DeliveryAddress,
		PaymentMethod:   order.PaymentMethod,
		TotalPrice:      order.TotalPrice,
		Comment:         order.Comment,
		Positions:       make([]PositionDTO, 0, len(order.Positions)),
		CreatedAt:       order.CreatedAt,
	}
	for _, position := range order.Positions {
		out.Positions = append(out.Positions, PositionDTO{
			ProductID: position.ProductID,
			Quantity:  position.Quantity,
			UnitPrice: position.UnitPrice,
			Subtotal:  position.UnitPrice.Mul(decimal.NewFromInt(int64(position.Quantity))),
		})
	}
	return out
}
