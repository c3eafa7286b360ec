package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

// Repository defines persistence operations for catalog products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Retire(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, input ListInput) ([]models.Product, int64, error)
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a product repository tied to the provided DB handle.
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

func (r *repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Retire soft-deletes the product so order history keeps resolving.
func (r *repository) Retire(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("state", enums.ProductStateRetired).Error
}

func (r *repository) List(ctx context.Context, input ListInput) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	query = applyFilters(query, input.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params := pagination.Normalize(input.Pagination)
	var out []models.Product
	err := query.
		Order(orderClause(input.Sort)).
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// DecrementStock conditionally subtracts qty, refusing to go below zero.
// Returns false when the product is missing, retired, or short on stock;
// inspecting RowsAffected keeps the check-and-decrement atomic under
// concurrent checkouts.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND state = ? AND stock_qty >= ?", id, enums.ProductStateActive, qty).
		Update("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementStock returns qty units to the product. Missing products are a
// no-op so cancellation restock stays best-effort.
func (r *repository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_qty", gorm.Expr("stock_qty + ?", qty)).Error
}

func applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if !filters.IncludeAll {
		query = query.Where("state = ?", enums.ProductStateActive)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"lower(title) LIKE ? OR lower(description) LIKE ? OR lower(coalesce(brand, '')) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filters.Brand != nil {
		query = query.Where("brand = ?", *filters.Brand)
	}
	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.PriceMin != nil {
		query = query.Where("price >= ?", *filters.PriceMin)
	}
	if filters.PriceMax != nil {
		query = query.Where("price <= ?", *filters.PriceMax)
	}
	if filters.Availability != nil {
		switch *filters.Availability {
		case enums.AvailabilityInStock:
			query = query.Where("stock_qty > ?", enums.LowStockThreshold)
		case enums.AvailabilityLowStock:
			query = query.Where("stock_qty >= 1 AND stock_qty <= ?", enums.LowStockThreshold)
		case enums.AvailabilityOutOfStock:
			query = query.Where("stock_qty = 0")
		}
	}
	return query
}

func orderClause(sort enums.SortKey) string {
	switch sort {
	case enums.SortKeyPriceAsc:
		return "price ASC"
	case enums.SortKeyPriceDesc:
		return "price DESC"
	case enums.SortKeyTitleAsc:
		return "title ASC"
	case enums.SortKeyTitleDesc:
		return "title DESC"
	default:
		return "created_at DESC"
	}
}
