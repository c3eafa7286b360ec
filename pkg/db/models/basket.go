package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Basket holds a user's unsubmitted positions. Exactly one per user,
// created lazily on first access.
type Basket struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Positions []BasketPosition `gorm:"foreignKey:BasketID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Basket) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BasketPosition is one line item in a basket, unique per (basket, product).
type BasketPosition struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BasketID  uuid.UUID `gorm:"column:basket_id;type:uuid;not null;uniqueIndex:idx_basket_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_basket_product"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int       `gorm:"column:quantity;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *BasketPosition) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
