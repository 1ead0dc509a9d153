package cart_test

import (
	"context"
	"testing"
	"time"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/cart"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/promo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) FindOrCreateByUser(ctx context.Context, userID string) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockDBLayer) FindOrCreateByToken(ctx context.Context, token string) (*models.Cart, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockDBLayer) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockDBLayer) GetByToken(ctx context.Context, token string) (*models.Cart, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Cart), args.Error(1)
}

func (m *MockDBLayer) ListAll(ctx context.Context) ([]*models.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Cart), args.Error(1)
}

func (m *MockDBLayer) SetFreeShipping(ctx context.Context, cartID string, freeShipping bool) error {
	args := m.Called(ctx, cartID, freeShipping)
	return args.Error(0)
}

func (m *MockDBLayer) GetItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockDBLayer) GetLineForProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockDBLayer) GetFreeSibling(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockDBLayer) InsertItem(ctx context.Context, item *models.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockDBLayer) UpdateItem(ctx context.Context, item *models.CartItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockDBLayer) DeleteItem(ctx context.Context, itemID string) error {
	args := m.Called(ctx, itemID)
	return args.Error(0)
}

func (m *MockDBLayer) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockPromotionSource struct {
	mock.Mock
}

func (m *MockPromotionSource) ActiveForProduct(ctx context.Context, productID string) ([]*models.Promotion, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Promotion), args.Error(1)
}

func newService() (*cart.CartService, *MockDBLayer, *MockPromotionSource) {
	db := new(MockDBLayer)
	promos := new(MockPromotionSource)
	svc := cart.NewCartService(db, promos, &promo.Evaluator{Stacking: promo.OverwriteLast}, logger.NewTestLogger())
	return svc, db, promos
}

func user() auth.Identity {
	return auth.Identity{UserID: "user-1", Role: auth.RoleCustomer}
}

func testProduct(price float64) *models.Product {
	return &models.Product{ID: "p1", Name: "Mango", Price: price, Stock: 50, VendorID: "vendor-a", Available: true}
}

func percentPromotion(value float64) *models.Promotion {
	p := &models.Promotion{
		ID: "promo-1", ProductID: "p1", DiscountValue: value,
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		PromotionType: &models.PromotionType{ID: "t1", Name: "percent_off"},
	}
	p.ResolveType()
	return p
}

func bogoPromotion() *models.Promotion {
	p := &models.Promotion{
		ID: "promo-2", ProductID: "p1",
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		PromotionType: &models.PromotionType{ID: "t3", Name: "buy_one_get_one"},
	}
	p.ResolveType()
	return p
}

// ---------------- GET OR CREATE ----------------

func TestGetOrCreateMintsTokenForAnonymous(t *testing.T) {
	svc, db, _ := newService()
	db.On("FindOrCreateByToken", mock.Anything, mock.Anything).Return(&models.Cart{ID: "cart-1"}, nil)

	_, token, err := svc.GetOrCreate(context.Background(), auth.Identity{})

	assert.NoError(t, err)
	assert.Len(t, token, 64, "token is 32 random bytes hex encoded")
}

func TestGetOrCreateReusesPresentedToken(t *testing.T) {
	svc, db, _ := newService()
	db.On("FindOrCreateByToken", mock.Anything, "existing-token").Return(&models.Cart{ID: "cart-1", Token: "existing-token"}, nil)

	_, token, err := svc.GetOrCreate(context.Background(), auth.Identity{CartToken: "existing-token"})

	assert.NoError(t, err)
	assert.Equal(t, "existing-token", token)
}

func TestGetOrCreateForUser(t *testing.T) {
	svc, db, _ := newService()
	db.On("FindOrCreateByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)

	cartModel, token, err := svc.GetOrCreate(context.Background(), user())

	assert.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, "user-1", cartModel.UserID)
}

func TestGetWithoutCart(t *testing.T) {
	svc, db, _ := newService()
	db.On("GetByUser", mock.Anything, "user-1").Return(nil, nil)

	_, err := svc.Get(context.Background(), user())

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ---------------- ADD ITEM ----------------

func TestAddItemAppliesPercentDiscount(t *testing.T) {
	svc, db, promos := newService()
	product := testProduct(100)
	db.On("GetProduct", mock.Anything, "p1").Return(product, nil)
	db.On("FindOrCreateByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetLineForProduct", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("InsertItem", mock.Anything, mock.Anything).Return(nil)
	db.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	promos.On("ActiveForProduct", mock.Anything, "p1").Return([]*models.Promotion{percentPromotion(10)}, nil)

	_, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "p1", Quantity: 3})

	assert.NoError(t, err)
	// 100 x 3 at 10 percent off.
	db.AssertCalled(t, "UpdateItem", mock.Anything, mock.MatchedBy(func(item *models.CartItem) bool {
		return item.ProductID == "p1" && item.Discount == 30
	}))
}

func TestAddItemBogoInsertsFreeSibling(t *testing.T) {
	svc, db, promos := newService()
	db.On("GetProduct", mock.Anything, "p1").Return(testProduct(100), nil)
	db.On("FindOrCreateByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetLineForProduct", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("InsertItem", mock.Anything, mock.Anything).Return(nil)
	db.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	promos.On("ActiveForProduct", mock.Anything, "p1").Return([]*models.Promotion{bogoPromotion()}, nil)

	_, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "p1", Quantity: 2})

	assert.NoError(t, err)
	// One insert for the purchased line and one for the free sibling
	// mirroring its quantity.
	db.AssertCalled(t, "InsertItem", mock.Anything, mock.MatchedBy(func(item *models.CartItem) bool {
		return item.IsFree && item.Quantity == 2
	}))
}

func TestAddItemMergesExistingLine(t *testing.T) {
	svc, db, promos := newService()
	existing := &models.CartItem{ID: "i1", CartID: "cart-1", ProductID: "p1", Quantity: 1, Product: testProduct(100)}
	db.On("GetProduct", mock.Anything, "p1").Return(testProduct(100), nil)
	db.On("FindOrCreateByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetLineForProduct", mock.Anything, "cart-1", "p1").Return(existing, nil)
	db.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	promos.On("ActiveForProduct", mock.Anything, "p1").Return([]*models.Promotion{}, nil)

	_, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "p1", Quantity: 2})

	assert.NoError(t, err)
	assert.Equal(t, 3, existing.Quantity)
	db.AssertNotCalled(t, "InsertItem", mock.Anything, mock.Anything)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc, db, _ := newService()
	db.On("GetProduct", mock.Anything, "ghost").Return(nil, nil)

	_, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "ghost", Quantity: 1})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAddItemZeroQuantity(t *testing.T) {
	svc, _, _ := newService()

	_, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "p1", Quantity: 0})

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

// ---------------- UPDATE / REMOVE ----------------

func TestUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	svc, db, _ := newService()
	line := &models.CartItem{ID: "i1", CartID: "cart-1", ProductID: "p1", Quantity: 2, Product: testProduct(100)}
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetItem", mock.Anything, "cart-1", "i1").Return(line, nil)
	db.On("DeleteItem", mock.Anything, "i1").Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(nil, nil)

	_, _, err := svc.UpdateItem(context.Background(), user(), "i1", models.UpdateItemRequest{Quantity: 0})

	assert.NoError(t, err)
	db.AssertCalled(t, "DeleteItem", mock.Anything, "i1")
}

func TestUpdateItemRejectsFreeLine(t *testing.T) {
	svc, db, _ := newService()
	sibling := &models.CartItem{ID: "i2", CartID: "cart-1", ProductID: "p1", Quantity: 2, IsFree: true, Product: testProduct(100)}
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetItem", mock.Anything, "cart-1", "i2").Return(sibling, nil)

	_, _, err := svc.UpdateItem(context.Background(), user(), "i2", models.UpdateItemRequest{Quantity: 50})

	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Equal(t, 2, sibling.Quantity, "bonus quantity stays pinned to the paid line")
	db.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	db.AssertNotCalled(t, "DeleteItem", mock.Anything, mock.Anything)
}

func TestRemoveItemDeletesFreeSibling(t *testing.T) {
	svc, db, _ := newService()
	line := &models.CartItem{ID: "i1", CartID: "cart-1", ProductID: "p1", Quantity: 2, Product: testProduct(100)}
	sibling := &models.CartItem{ID: "i2", CartID: "cart-1", ProductID: "p1", Quantity: 2, IsFree: true}
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetItem", mock.Anything, "cart-1", "i1").Return(line, nil)
	db.On("DeleteItem", mock.Anything, "i1").Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(sibling, nil)
	db.On("DeleteItem", mock.Anything, "i2").Return(nil)

	_, err := svc.RemoveItem(context.Background(), user(), "i1")

	assert.NoError(t, err)
	db.AssertCalled(t, "DeleteItem", mock.Anything, "i1")
	db.AssertCalled(t, "DeleteItem", mock.Anything, "i2")
}

func TestRemoveUnknownItem(t *testing.T) {
	svc, db, _ := newService()
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetItem", mock.Anything, "cart-1", "ghost").Return(nil, nil)

	_, err := svc.RemoveItem(context.Background(), user(), "ghost")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ---------------- FREE SHIPPING ----------------

func TestFreeShippingPromotionFlagsCart(t *testing.T) {
	svc, db, promos := newService()
	freeShipping := &models.Promotion{
		ID: "promo-3", ProductID: "p1",
		StartDate: time.Now().Add(-time.Hour), EndDate: time.Now().Add(time.Hour),
		PromotionType: &models.PromotionType{ID: "t4", Name: "free_shipping"},
	}
	freeShipping.ResolveType()

	db.On("GetProduct", mock.Anything, "p1").Return(testProduct(100), nil)
	db.On("FindOrCreateByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1"}, nil)
	db.On("GetLineForProduct", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("InsertItem", mock.Anything, mock.Anything).Return(nil)
	db.On("UpdateItem", mock.Anything, mock.Anything).Return(nil)
	db.On("GetFreeSibling", mock.Anything, "cart-1", "p1").Return(nil, nil)
	db.On("SetFreeShipping", mock.Anything, "cart-1", true).Return(nil)
	db.On("GetByUser", mock.Anything, "user-1").Return(&models.Cart{ID: "cart-1", UserID: "user-1", FreeShipping: true}, nil)
	promos.On("ActiveForProduct", mock.Anything, "p1").Return([]*models.Promotion{freeShipping}, nil)

	cartModel, _, err := svc.AddItem(context.Background(), user(), models.AddItemRequest{ProductID: "p1", Quantity: 1})

	assert.NoError(t, err)
	assert.True(t, cartModel.FreeShipping)
	db.AssertCalled(t, "SetFreeShipping", mock.Anything, "cart-1", true)
}

// ---------------- ADMIN LISTING ----------------

func TestListAllCartsRequiresAdmin(t *testing.T) {
	svc, db, _ := newService()

	_, err := svc.ListAll(context.Background(), user())

	assert.ErrorIs(t, err, apperr.ErrForbidden)
	db.AssertNotCalled(t, "ListAll", mock.Anything)
}

func TestListAllCartsForAdmin(t *testing.T) {
	svc, db, _ := newService()
	carts := []*models.Cart{{ID: "cart-1", UserID: "user-1"}, {ID: "cart-2", Token: "tok"}}
	db.On("ListAll", mock.Anything).Return(carts, nil)

	got, err := svc.ListAll(context.Background(), auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin})

	assert.NoError(t, err)
	assert.Len(t, got, 2)
}

// ---------------- TOTALS ----------------

func TestComputeTotalSkipsFreeLines(t *testing.T) {
	cartModel := &models.Cart{
		ID: "cart-1",
		Items: []*models.CartItem{
			{ID: "i1", ProductID: "p1", Quantity: 3, Discount: 30, Product: testProduct(100)},
			{ID: "i2", ProductID: "p1", Quantity: 3, IsFree: true, Product: testProduct(100)},
		},
	}

	assert.InDelta(t, 270, cart.ComputeTotal(cartModel), 0.001)
}
