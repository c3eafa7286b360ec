package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dkotlyarov/shoplite-backend/internal/basket"
	"github.com/dkotlyarov/shoplite-backend/internal/products"
	"github.com/dkotlyarov/shoplite-backend/pkg/db/models"
	"github.com/dkotlyarov/shoplite-backend/pkg/enums"
	pkgerrors "github.com/dkotlyarov/shoplite-backend/pkg/errors"
	"github.com/dkotlyarov/shoplite-backend/pkg/pagination"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Basket{},
		&models.BasketPosition{},
		&models.Order{},
		&models.OrderPosition{},
	))
	return db
}

func newOrdersService(t *testing.T, db *gorm.DB) (Service, Repository, products.Repository, basket.Repository) {
	t.Helper()

	orderRepo := NewRepository(db)
	productRepo := products.NewRepository(db)
	basketRepo := basket.NewRepository(db)

	svc, err := NewService(ServiceParams{
		OrderRepo:   orderRepo,
		BasketRepo:  basketRepo,
		ProductRepo: productRepo,
		Tx:          &gormTxRunner{db: db},
	})
	require.NoError(t, err)
	return svc, orderRepo, productRepo, basketRepo
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

func seedBasket(t *testing.T, db *gorm.DB, userID uuid.UUID, items map[uuid.UUID]int) *models.Basket {
	t.Helper()

	record := &models.Basket{UserID: userID}
	require.NoError(t, db.Create(record).Error)
	for productID, qty := range items {
		position := &models.BasketPosition{
			BasketID:  record.ID,
			ProductID: productID,
			Quantity:  qty,
		}
		require.NoError(t, db.Create(position).Error)
	}
	return record
}

func currentStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()

	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", productID).Error)
	return product.StockQty
}

func checkoutInput() CheckoutInput {
	return CheckoutInput{
		DeliveryAddress: "1 Main St",
		PaymentMethod:   enums.PaymentMethodCard,
	}
}

func TestCheckoutCreatesOrder(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, basketRepo := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	cheap := seedProduct(t, db, "pencil", "1.50", 10)
	dear := seedProduct(t, db, "notebook", "12.00", 4)
	record := seedBasket(t, db, userID, map[uuid.UUID]int{
		cheap.ID: 3,
		dear.ID:  2,
	})

	order, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusProcessing, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("28.50")),
		"expected total 28.50, got %s", order.TotalPrice)
	assert.Len(t, order.Positions, 2)

	assert.Equal(t, 7, currentStock(t, db, cheap.ID))
	assert.Equal(t, 2, currentStock(t, db, dear.ID))

	positions, err := basketRepo.ListPositions(ctx, record.ID)
	require.NoError(t, err)
	assert.Empty(t, positions, "basket should be emptied after checkout")
}

func TestCheckoutSnapshotsUnitPrice(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, orderRepo, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, db, "mug", "9.99", 5)
	seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 1})

	order, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	// Price changes after checkout must not affect the order.
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price", decimal.RequireFromString("19.99")).Error)

	stored, err := orderRepo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Positions, 1)
	assert.True(t, stored.Positions[0].UnitPrice.Equal(decimal.RequireFromString("9.99")))
}

func TestCheckoutEmptyBasket(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	// No basket at all.
	_, err := svc.Checkout(ctx, Principal{UserID: uuid.New(), Role: enums.UserRoleUser}, checkoutInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeEmptyBasket, typed.Code())

	// Basket exists but has no positions.
	userID := uuid.New()
	seedBasket(t, db, userID, nil)
	_, err = svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeEmptyBasket, typed.Code())
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, basketRepo := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	plenty := seedProduct(t, db, "stapler", "5.00", 100)
	scarce := seedProduct(t, db, "lamp", "30.00", 1)
	record := seedBasket(t, db, userID, map[uuid.UUID]int{
		plenty.ID: 2,
		scarce.ID: 3,
	})

	_, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, scarce.ID, details["product_id"])
	assert.Equal(t, 1, details["available"])

	// The whole transaction rolls back: no stock movement, no order,
	// basket untouched.
	assert.Equal(t, 100, currentStock(t, db, plenty.ID))
	assert.Equal(t, 1, currentStock(t, db, scarce.ID))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Zero(t, orderCount)

	positions, err := basketRepo.ListPositions(ctx, record.ID)
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestCheckoutConcurrentLastUnit(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	// A single connection forces the two transactions to serialize the
	// way concurrent row writes would on Postgres.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	product := seedProduct(t, db, "last lamp", "30.00", 1)
	first := uuid.New()
	second := uuid.New()
	seedBasket(t, db, first, map[uuid.UUID]int{product.ID: 1})
	seedBasket(t, db, second, map[uuid.UUID]int{product.ID: 1})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, userID := range []uuid.UUID{first, second} {
		wg.Add(1)
		go func(i int, userID uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
		}(i, userID)
	}
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	require.Len(t, failed, 1, "exactly one of two competing checkouts must fail")

	typed := pkgerrors.As(failed[0])
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0, details["available"])

	assert.Equal(t, 0, currentStock(t, db, product.ID))

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestCheckoutRetiredProduct(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, productRepo, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, db, "ghost", "3.00", 10)
	seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 1})
	require.NoError(t, productRepo.Retire(ctx, product.ID))

	_, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCheckoutValidation(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()
	principal := Principal{UserID: uuid.New(), Role: enums.UserRoleUser}

	_, err := svc.Checkout(ctx, principal, CheckoutInput{
		DeliveryAddress: "   ",
		PaymentMethod:   enums.PaymentMethodCard,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = svc.Checkout(ctx, principal, CheckoutInput{
		DeliveryAddress: "1 Main St",
		PaymentMethod:   enums.PaymentMethod("barter"),
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCancelRestoresStock(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, db, "kettle", "25.00", 6)
	seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 4})

	principal := Principal{UserID: userID, Role: enums.UserRoleUser}
	order, err := svc.Checkout(ctx, principal, checkoutInput())
	require.NoError(t, err)
	require.Equal(t, 2, currentStock(t, db, product.ID))

	cancelled, err := svc.Cancel(ctx, principal, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 6, currentStock(t, db, product.ID))
}

func TestCancelSkipsRestockForDeletedProduct(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	kept := seedProduct(t, db, "teapot", "20.00", 5)
	doomed := seedProduct(t, db, "saucer", "4.00", 5)
	seedBasket(t, db, userID, map[uuid.UUID]int{
		kept.ID:   2,
		doomed.ID: 3,
	})

	principal := Principal{UserID: userID, Role: enums.UserRoleUser}
	order, err := svc.Checkout(ctx, principal, checkoutInput())
	require.NoError(t, err)

	require.NoError(t, db.Delete(&models.Product{}, "id = ?", doomed.ID).Error)

	cancelled, err := svc.Cancel(ctx, principal, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)

	// The surviving product is restocked; the deleted one is skipped
	// without failing the cancellation.
	assert.Equal(t, 5, currentStock(t, db, kept.ID))

	var missing int64
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", doomed.ID).Count(&missing).Error)
	assert.Zero(t, missing)
}

func TestCancelForbiddenForOtherUser(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	ownerID := uuid.New()
	product := seedProduct(t, db, "vase", "15.00", 3)
	seedBasket(t, db, ownerID, map[uuid.UUID]int{product.ID: 1})

	order, err := svc.Checkout(ctx, Principal{UserID: ownerID, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, Principal{UserID: uuid.New(), Role: enums.UserRoleUser}, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	// Staff may cancel on the owner's behalf while still processing.
	cancelled, err := svc.Cancel(ctx, Principal{UserID: uuid.New(), Role: enums.UserRoleManager}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
}

func TestUserCancelOnlyWhileProcessing(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, orderRepo, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, db, "chair", "45.00", 5)
	seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 2})

	principal := Principal{UserID: userID, Role: enums.UserRoleUser}
	order, err := svc.Checkout(ctx, principal, checkoutInput())
	require.NoError(t, err)

	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusAssembling))

	_, err = svc.Cancel(ctx, principal, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, enums.OrderStatusAssembling, details["current"])
	assert.Equal(t, enums.OrderStatusCancelled, details["requested"])

	// Stock stays reserved by the order.
	assert.Equal(t, 3, currentStock(t, db, product.ID))
}

func TestUpdateStatusTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from    enums.OrderStatus
		to      enums.OrderStatus
		allowed bool
	}{
		{enums.OrderStatusProcessing, enums.OrderStatusAssembling, true},
		{enums.OrderStatusProcessing, enums.OrderStatusCancelled, true},
		{enums.OrderStatusProcessing, enums.OrderStatusDelivered, false},
		{enums.OrderStatusAssembling, enums.OrderStatusAssembled, true},
		{enums.OrderStatusAssembling, enums.OrderStatusCancelled, true},
		{enums.OrderStatusAssembling, enums.OrderStatusInTransit, false},
		{enums.OrderStatusAssembled, enums.OrderStatusInTransit, true},
		{enums.OrderStatusAssembled, enums.OrderStatusCancelled, false},
		{enums.OrderStatusInTransit, enums.OrderStatusDelivered, true},
		{enums.OrderStatusInTransit, enums.OrderStatusProcessing, false},
		{enums.OrderStatusDelivered, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusProcessing, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			t.Parallel()

			db := setupOrdersTestDB(t)
			svc, orderRepo, _, _ := newOrdersService(t, db)
			ctx := context.Background()

			userID := uuid.New()
			product := seedProduct(t, db, "box", "2.00", 20)
			seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 1})

			order, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
			require.NoError(t, err)
			require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, tc.from))

			updated, err := svc.UpdateStatus(ctx, order.ID, tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
				return
			}
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
		})
	}
}

func TestUpdateStatusCancelRestocks(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, orderRepo, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	userID := uuid.New()
	product := seedProduct(t, db, "plate", "8.00", 9)
	seedBasket(t, db, userID, map[uuid.UUID]int{product.ID: 4})

	order, err := svc.Checkout(ctx, Principal{UserID: userID, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)
	require.NoError(t, orderRepo.UpdateStatus(ctx, order.ID, enums.OrderStatusAssembling))

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, updated.Status)
	assert.Equal(t, 9, currentStock(t, db, product.ID))
}

func TestGetEnforcesOwnership(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	ownerID := uuid.New()
	product := seedProduct(t, db, "desk", "120.00", 2)
	seedBasket(t, db, ownerID, map[uuid.UUID]int{product.ID: 1})

	order, err := svc.Checkout(ctx, Principal{UserID: ownerID, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	_, err = svc.Get(ctx, Principal{UserID: ownerID, Role: enums.UserRoleUser}, order.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, Principal{UserID: uuid.New(), Role: enums.UserRoleUser}, order.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = svc.Get(ctx, Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}, order.ID)
	require.NoError(t, err)
}

func TestListForUserScopesToOwner(t *testing.T) {
	t.Parallel()

	db := setupOrdersTestDB(t)
	svc, _, _, _ := newOrdersService(t, db)
	ctx := context.Background()

	product := seedProduct(t, db, "pen", "1.00", 50)

	first := uuid.New()
	seedBasket(t, db, first, map[uuid.UUID]int{product.ID: 1})
	_, err := svc.Checkout(ctx, Principal{UserID: first, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	second := uuid.New()
	seedBasket(t, db, second, map[uuid.UUID]int{product.ID: 2})
	_, err = svc.Checkout(ctx, Principal{UserID: second, Role: enums.UserRoleUser}, checkoutInput())
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, first, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, int64(1), list.Meta.TotalObjects)

	all, err := svc.ListAll(ctx, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)

	status := enums.OrderStatusDelivered
	filtered, err := svc.ListAll(ctx, ListFilter{Status: &status}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, filtered.Orders)

	mine, err := svc.ListAll(ctx, ListFilter{UserID: &second}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, second, *mine.Orders[0].UserID)
}
