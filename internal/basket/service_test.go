package basket

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/internal/products"
	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
)

func setupBasketTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:basket_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Basket{},
		&models.BasketPosition{},
	))
	return db
}

func newBasketService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	svc, err := NewService(NewRepository(db), products.NewRepository(db))
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, title string, price string, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		Title:    title,
		Price:    decimal.RequireFromString(price),
		StockQty: stock,
		State:    enums.ProductStateActive,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func TestGetCreatesEmptyBasket(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()

	snapshot, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Positions)
	assert.True(t, snapshot.Total.IsZero())

	// Second access returns the same basket.
	again, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, again.ID)
}

func TestAddItemAccumulatesQuantity(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "mug", "9.50", 10)

	_, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	snapshot, err := svc.AddItem(ctx, userID, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 5, snapshot.Positions[0].Quantity)
	assert.True(t, snapshot.Total.Equal(decimal.RequireFromString("47.50")),
		"expected total 47.50, got %s", snapshot.Total)
}

func TestAddItemRejectsOverStock(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "lamp", "30.00", 5)

	_, err := svc.AddItem(ctx, userID, product.ID, 4)
	require.NoError(t, err)

	// 4 already reserved, another 2 would exceed the 5 in stock.
	_, err = svc.AddItem(ctx, userID, product.ID, 2)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, details["available"])

	// The basket keeps the previous quantity.
	snapshot, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 4, snapshot.Positions[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, uuid.New(), uuid.New(), 0)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.AddItem(ctx, uuid.New(), uuid.New(), 1)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAddItemRejectsRetiredProduct(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	product := seedProduct(t, db, "old", "5.00", 3)
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("state", enums.ProductStateRetired).Error)

	_, err := svc.AddItem(ctx, uuid.New(), product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateQuantity(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "chair", "40.00", 8)

	_, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	snapshot, err := svc.UpdateQuantity(ctx, userID, product.ID, 6)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 6, snapshot.Positions[0].Quantity)

	// Zero removes the position instead of failing.
	snapshot, err = svc.UpdateQuantity(ctx, userID, product.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Positions)

	_, err = svc.UpdateQuantity(ctx, userID, product.ID, 1)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateQuantityOverStock(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "desk", "99.00", 5)

	_, err := svc.AddItem(ctx, userID, product.ID, 2)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, userID, product.ID, 9)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 5, details["available"])

	snapshot, err := svc.Get(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 2, snapshot.Positions[0].Quantity)
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	product := seedProduct(t, db, "shelf", "20.00", 4)

	_, err := svc.AddItem(ctx, userID, product.ID, 1)
	require.NoError(t, err)

	snapshot, err := svc.RemoveItem(ctx, userID, product.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Positions)

	_, err = svc.RemoveItem(ctx, userID, product.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	db := setupBasketTestDB(t)
	svc := newBasketService(t, db)
	ctx := context.Background()
	userID := uuid.New()
	first := seedProduct(t, db, "fork", "1.00", 10)
	second := seedProduct(t, db, "spoon", "1.50", 10)

	_, err := svc.AddItem(ctx, userID, first.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, second.ID, 3)
	require.NoError(t, err)

	snapshot, err := svc.Clear(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Positions)
	assert.True(t, snapshot.Total.IsZero())

	// Clearing an already empty basket succeeds.
	snapshot, err = svc.Clear(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Positions)
}
