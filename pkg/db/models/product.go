package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
)

// Product represents the canonical catalog listing. Retired products are
// kept so order history keeps resolving.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Title       string             `gorm:"column:title;not null"`
	Description string             `gorm:"column:description;not null;default:''"`
	Brand       *string            `gorm:"column:brand"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	StockQty    int                `gorm:"column:stock_qty;not null;default:0"`
	CategoryID  *uuid.UUID         `gorm:"column:category_id;type:uuid;index"`
	Category    *Category          `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL"`
	State       enums.ProductState `gorm:"column:state;type:text;not null;default:'active'"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsActive reports whether the product can be listed and purchased.
func (p *Product) IsActive() bool {
	return p.State == enums.ProductStateActive
}
