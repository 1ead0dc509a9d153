package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"mango-store/internal/apperr"
	"mango-store/internal/models"
	"mango-store/internal/order/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Product)(nil),
		(*models.VendorDetail)(nil),
		(*models.Cart)(nil),
		(*models.CartItem)(nil),
		(*models.Order)(nil),
		(*models.OrderDetail)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func insertProduct(t *testing.T, bunDB *bun.DB, id, vendorID string, price float64, stock int) {
	t.Helper()
	product := &models.Product{
		ID: id, Name: "product " + id, Price: price, Stock: stock,
		VendorID: vendorID, Available: true, CreatedAt: time.Now(),
	}
	_, err := bunDB.NewInsert().Model(product).Exec(context.Background())
	require.NoError(t, err)
}

func productStock(t *testing.T, bunDB *bun.DB, id string) int {
	t.Helper()
	var product models.Product
	err := bunDB.NewSelect().Model(&product).Where("id = ?", id).Scan(context.Background())
	require.NoError(t, err)
	return product.Stock
}

func TestCreateOrdersAndDeleteCart(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertProduct(t, bunDB, "p1", "vendor-a", 100, 10)
	insertProduct(t, bunDB, "p2", "vendor-b", 50, 8)

	cart := &models.Cart{ID: "cart-1", UserID: "user-1", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(cart).Exec(ctx)
	require.NoError(t, err)
	item := &models.CartItem{ID: "i1", CartID: "cart-1", ProductID: "p1", Quantity: 2}
	_, err = bunDB.NewInsert().Model(item).Exec(ctx)
	require.NoError(t, err)

	orders := []*models.Order{
		{
			ID: "o1", UserID: "user-1", Status: models.StatusPaid, TotalPrice: 200, CreatedAt: time.Now(),
			Details: []*models.OrderDetail{
				{ID: "d1", OrderID: "o1", ProductID: "p1", Quantity: 3, Price: 100},
			},
		},
		{
			ID: "o2", UserID: "user-1", Status: models.StatusPaid, TotalPrice: 250, CreatedAt: time.Now(),
			Details: []*models.OrderDetail{
				{ID: "d2", OrderID: "o2", ProductID: "p2", Quantity: 5, Price: 50},
			},
		},
	}

	err = orderDB.CreateOrdersAndDeleteCart(ctx, orders, "cart-1")
	require.NoError(t, err)

	// Stock moved for every detail.
	assert.Equal(t, 7, productStock(t, bunDB, "p1"))
	assert.Equal(t, 3, productStock(t, bunDB, "p2"))

	// Cart and its items are gone.
	exists, err := bunDB.NewSelect().Model((*models.Cart)(nil)).Where("id = ?", "cart-1").Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = bunDB.NewSelect().Model((*models.CartItem)(nil)).Where("cart_id = ?", "cart-1").Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	fetched, err := orderDB.GetOrderByID(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Len(t, fetched.Details, 1)
	assert.Equal(t, "p1", fetched.Details[0].ProductID)
}

func TestCreateOrdersGuardsStock(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertProduct(t, bunDB, "p1", "vendor-a", 100, 2)

	cart := &models.Cart{ID: "cart-1", UserID: "user-1", CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(cart).Exec(ctx)
	require.NoError(t, err)

	orders := []*models.Order{
		{
			ID: "o1", UserID: "user-1", Status: models.StatusPaid, TotalPrice: 300, CreatedAt: time.Now(),
			Details: []*models.OrderDetail{
				{ID: "d1", OrderID: "o1", ProductID: "p1", Quantity: 3, Price: 100},
			},
		},
	}

	// The decrement carries its own stock guard; a stale pre-checkout
	// read must not drive stock negative.
	err = orderDB.CreateOrdersAndDeleteCart(ctx, orders, "cart-1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	// The whole transaction rolled back: no order, stock untouched,
	// cart still there.
	gone, err := orderDB.GetOrderByID(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.Equal(t, 2, productStock(t, bunDB, "p1"))
	exists, err := bunDB.NewSelect().Model((*models.Cart)(nil)).Where("id = ?", "cart-1").Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReplaceOrderWithVendorOrders(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertProduct(t, bunDB, "p1", "vendor-a", 100, 10)
	insertProduct(t, bunDB, "p2", "vendor-b", 50, 10)

	source := &models.Order{ID: "src", UserID: "user-1", Status: models.StatusPending, TotalPrice: 350, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(source).Exec(ctx)
	require.NoError(t, err)
	for _, d := range []*models.OrderDetail{
		{ID: "sd1", OrderID: "src", ProductID: "p1", Quantity: 2, Price: 100},
		{ID: "sd2", OrderID: "src", ProductID: "p2", Quantity: 3, Price: 50},
	} {
		_, err = bunDB.NewInsert().Model(d).Exec(ctx)
		require.NoError(t, err)
	}

	vendorOrders := []*models.Order{
		{
			ID: "v1", UserID: "user-1", Status: models.StatusPaid, TotalPrice: 200, PaymentSlip: "slip", CreatedAt: time.Now(),
			Details: []*models.OrderDetail{{ID: "vd1", OrderID: "v1", ProductID: "p1", Quantity: 2, Price: 100}},
		},
		{
			ID: "v2", UserID: "user-1", Status: models.StatusPaid, TotalPrice: 150, PaymentSlip: "slip", CreatedAt: time.Now(),
			Details: []*models.OrderDetail{{ID: "vd2", OrderID: "v2", ProductID: "p2", Quantity: 3, Price: 50}},
		},
	}

	err = orderDB.ReplaceOrderWithVendorOrders(ctx, "src", vendorOrders)
	require.NoError(t, err)

	gone, err := orderDB.GetOrderByID(ctx, "src")
	require.NoError(t, err)
	assert.Nil(t, gone, "source order must be deleted")

	// Splitting the order must not move stock again.
	assert.Equal(t, 10, productStock(t, bunDB, "p1"))

	v1, err := orderDB.GetOrderByID(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, v1)
	assert.Equal(t, models.StatusPaid, v1.Status)
	assert.Equal(t, "slip", v1.PaymentSlip)
}

func TestCancelOrderAndRestock(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertProduct(t, bunDB, "p1", "vendor-a", 100, 7)
	insertProduct(t, bunDB, "p2", "vendor-a", 50, 5)

	order := &models.Order{ID: "o1", UserID: "user-1", Status: models.StatusPaid, CreatedAt: time.Now()}
	_, err := bunDB.NewInsert().Model(order).Exec(ctx)
	require.NoError(t, err)
	details := []*models.OrderDetail{
		{ID: "d1", OrderID: "o1", ProductID: "p1", Quantity: 3, Price: 100},
		{ID: "d2", OrderID: "o1", ProductID: "p2", Quantity: 5, Price: 50},
	}
	for _, d := range details {
		_, err = bunDB.NewInsert().Model(d).Exec(ctx)
		require.NoError(t, err)
	}
	order.Details = details

	err = orderDB.CancelOrderAndRestock(ctx, order)
	require.NoError(t, err)

	cancelled, err := orderDB.GetOrderByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, 10, productStock(t, bunDB, "p1"))
	assert.Equal(t, 10, productStock(t, bunDB, "p2"))
}

func TestGetOrdersForVendor(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	insertProduct(t, bunDB, "p1", "vendor-a", 100, 10)
	insertProduct(t, bunDB, "p2", "vendor-b", 50, 10)

	for _, o := range []*models.Order{
		{ID: "o1", UserID: "user-1", Status: models.StatusPaid, CreatedAt: time.Now()},
		{ID: "o2", UserID: "user-2", Status: models.StatusPaid, CreatedAt: time.Now()},
	} {
		_, err := bunDB.NewInsert().Model(o).Exec(ctx)
		require.NoError(t, err)
	}
	for _, d := range []*models.OrderDetail{
		{ID: "d1", OrderID: "o1", ProductID: "p1", Quantity: 1, Price: 100},
		{ID: "d2", OrderID: "o2", ProductID: "p2", Quantity: 1, Price: 50},
	} {
		_, err := bunDB.NewInsert().Model(d).Exec(ctx)
		require.NoError(t, err)
	}

	orders, err := orderDB.GetOrdersForVendor(ctx, "vendor-a")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
}

func TestGetVendorDetail(t *testing.T) {
	orderDB, bunDB := setupTestDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	detail := &models.VendorDetail{
		ID: uuid.NewString(), UserID: "vendor-a",
		StoreName: "Mango Fruits", PromptpayNumber: "0812345678",
	}
	_, err := bunDB.NewInsert().Model(detail).Exec(ctx)
	require.NoError(t, err)

	got, err := orderDB.GetVendorDetail(ctx, "vendor-a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Mango Fruits", got.StoreName)

	missing, err := orderDB.GetVendorDetail(ctx, "vendor-z")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
