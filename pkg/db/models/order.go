package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
)

// Order is an immutable snapshot of a checked-out basket. Only the status
// field changes after creation.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	User            *User               `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'processing'"`
	DeliveryAddress string              `gorm:"column:delivery_address;not null"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	TotalPrice      decimal.Decimal     `gorm:"column:total_price;type:numeric(14,2);not null"`
	Comment         *string             `gorm:"column:comment"`
	Positions       []OrderPosition     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderPosition is one immutable line item of an order. UnitPrice is the
// product price frozen at checkout time.
type OrderPosition struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (p *OrderPosition) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
