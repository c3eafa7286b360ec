package basket

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
)

// Repository exposes persistence operations for baskets and positions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Basket, error)
	Create(ctx context.Context, basket *models.Basket) error
	FindPosition(ctx context.Context, basketID, productID uuid.UUID) (*models.BasketPosition, error)
	SavePosition(ctx context.Context, position *models.BasketPosition) error
	DeletePosition(ctx context.Context, positionID uuid.UUID) error
	DeleteAllPositions(ctx context.Context, basketID uuid.UUID) error
	ListPositions(ctx context.Context, basketID uuid.UUID) ([]models.BasketPosition, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a basket repository tied to the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Basket, error) {
	var basket models.Basket
	err := r.db.WithContext(ctx).
		Preload("Positions").
		Where("user_id = ?", userID).
		First(&basket).Error
	if err != nil {
		return nil, err
	}
	return &basket, nil
}

func (r *repository) Create(ctx context.Context, basket *models.Basket) error {
	return r.db.WithContext(ctx).Create(basket).Error
}

func (r *repository) FindPosition(ctx context.Context, basketID, productID uuid.UUID) (*models.BasketPosition, error) {
	var position models.BasketPosition
	err := r.db.WithContext(ctx).
		Where("basket_id = ? AND product_id = ?", basketID, productID).
		First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (r *repository) SavePosition(ctx context.Context, position *models.BasketPosition) error {
	return r.db.WithContext(ctx).Save(position).Error
}

func (r *repository) DeletePosition(ctx context.Context, positionID uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.BasketPosition{}, "id = ?", positionID).Error
}

func (r *repository) DeleteAllPositions(ctx context.Context, basketID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("basket_id = ?", basketID).
		Delete(&models.BasketPosition{}).Error
}

func (r *repository) ListPositions(ctx context.Context, basketID uuid.UUID) ([]models.BasketPosition, error) {
	var positions []models.BasketPosition
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("basket_id = ?", basketID).
		Order("created_at ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}
