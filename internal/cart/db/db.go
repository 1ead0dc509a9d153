package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mango-store/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- CARTS ----------------

// FindOrCreateByUser → idempotent find-or-create for an authenticated
// user's cart. Concurrent first accesses race on the unique user_id
// constraint; the losing insert is a no-op and both callers see one row.
func (d *DB) FindOrCreateByUser(ctx context.Context, userID string) (*models.Cart, error) {
	cart := &models.Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	_, err := d.Bun.NewInsert().
		Model(cart).
		On("CONFLICT (user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return d.GetByUser(ctx, userID)
}

// FindOrCreateByToken → same idempotent semantics for anonymous carts.
func (d *DB) FindOrCreateByToken(ctx context.Context, token string) (*models.Cart, error) {
	cart := &models.Cart{
		ID:        uuid.NewString(),
		Token:     token,
		CreatedAt: time.Now(),
	}
	_, err := d.Bun.NewInsert().
		Model(cart).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return d.GetByToken(ctx, token)
}

func (d *DB) GetByUser(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := d.Bun.NewSelect().
		Model(&cart).
		Relation("Items").
		Relation("Items.Product").
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (d *DB) GetByToken(ctx context.Context, token string) (*models.Cart, error) {
	var cart models.Cart
	err := d.Bun.NewSelect().
		Model(&cart).
		Relation("Items").
		Relation("Items.Product").
		Where("token = ?", token).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// ListAll → every cart with its items, newest first. Admin surface.
func (d *DB) ListAll(ctx context.Context) ([]*models.Cart, error) {
	var carts []*models.Cart
	err := d.Bun.NewSelect().
		Model(&carts).
		Relation("Items").
		Relation("Items.Product").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func (d *DB) SetFreeShipping(ctx context.Context, cartID string, freeShipping bool) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Cart)(nil)).
		Set("free_shipping = ?", freeShipping).
		Where("id = ?", cartID).
		Exec(ctx)
	return err
}

// ---------------- ITEMS ----------------

func (d *DB) GetItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error) {
	var item models.CartItem
	err := d.Bun.NewSelect().
		Model(&item).
		Relation("Product").
		Where("cart_item.id = ? AND cart_item.cart_id = ?", itemID, cartID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetLineForProduct → the single non-free line for a product in a cart,
// or nil. Free BOGO siblings are looked up separately.
func (d *DB) GetLineForProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	return d.lineForProduct(ctx, cartID, productID, false)
}

func (d *DB) GetFreeSibling(ctx context.Context, cartID, productID string) (*models.CartItem, error) {
	return d.lineForProduct(ctx, cartID, productID, true)
}

func (d *DB) lineForProduct(ctx context.Context, cartID, productID string, isFree bool) (*models.CartItem, error) {
	var item models.CartItem
	err := d.Bun.NewSelect().
		Model(&item).
		Relation("Product").
		Where("cart_item.cart_id = ? AND cart_item.product_id = ? AND cart_item.is_free = ?", cartID, productID, isFree).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (d *DB) InsertItem(ctx context.Context, item *models.CartItem) error {
	_, err := d.Bun.NewInsert().Model(item).Exec(ctx)
	return err
}

func (d *DB) UpdateItem(ctx context.Context, item *models.CartItem) error {
	_, err := d.Bun.NewUpdate().
		Model(item).
		Column("quantity", "shipping_address", "discount").
		Where("id = ?", item.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteItem(ctx context.Context, itemID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.CartItem)(nil)).
		Where("id = ?", itemID).
		Exec(ctx)
	return err
}

// ---------------- PRODUCTS ----------------

func (d *DB) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	err := d.Bun.NewSelect().
		Model(&product).
		Where("id = ?", productID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}
