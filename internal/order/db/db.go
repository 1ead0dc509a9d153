package db

import (
	"context"
	"database/sql"
	"errors"

	"mango-store/internal/apperr"
	"mango-store/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- READS ----------------

// GetOrderByID → fetch one order with its details and product rows.
func (d *DB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Relation("Details").
		Relation("Details.Product").
		Where("\"order\".id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DB) GetOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Relation("Details").
		Relation("Details.Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrdersForVendor → orders containing at least one of the vendor's
// products.
func (d *DB) GetOrdersForVendor(ctx context.Context, vendorID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Relation("Details").
		Relation("Details.Product").
		Where("\"order\".id IN (SELECT od.order_id FROM order_details od JOIN products p ON p.id = od.product_id WHERE p.vendor_id = ?)", vendorID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DB) GetAllOrders(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Relation("Details").
		Relation("Details.Product").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DB) GetVendorDetail(ctx context.Context, vendorID string) (*models.VendorDetail, error) {
	var detail models.VendorDetail
	err := d.Bun.NewSelect().
		Model(&detail).
		Where("user_id = ?", vendorID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ---------------- TRANSACTIONAL WRITES ----------------

func insertOrderTx(ctx context.Context, tx bun.Tx, order *models.Order) error {
	if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
		return err
	}
	for _, detail := range order.Details {
		if _, err := tx.NewInsert().Model(detail).Exec(ctx); err != nil {
			return err
		}
		// Ordered units leave the shelf now; cancel puts them back. The
		// stock guard makes concurrent checkouts race on this update
		// instead of the earlier read, so stock never goes negative.
		res, err := tx.NewUpdate().
			Model((*models.Product)(nil)).
			Set("stock = stock - ?", detail.Quantity).
			Where("id = ?", detail.ProductID).
			Where("stock >= ?", detail.Quantity).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return apperr.Conflict("insufficient stock for product %s", detail.ProductID)
		}
	}
	return nil
}

// CreateOrdersAndDeleteCart → persist the checkout result atomically:
// all orders with their details, the stock decrements, and the cart
// deletion either all commit or none do.
func (d *DB) CreateOrdersAndDeleteCart(ctx context.Context, orders []*models.Order, cartID string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, order := range orders {
			if err := insertOrderTx(ctx, tx, order); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().
			Model((*models.CartItem)(nil)).
			Where("cart_id = ?", cartID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.Cart)(nil)).
			Where("id = ?", cartID).
			Exec(ctx)
		return err
	})
}

// ReplaceOrderWithVendorOrders → the after-the-fact split: insert the
// vendor orders, update nothing else, and delete the source order last.
// Deleting the source inside the same transaction is the idempotency
// guard; a second split attempt finds no source order to work on.
// Stock already moved when the source order was created, so the vendor
// orders do not touch it again.
func (d *DB) ReplaceOrderWithVendorOrders(ctx context.Context, sourceID string, orders []*models.Order) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, order := range orders {
			if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
				return err
			}
			for _, detail := range order.Details {
				if _, err := tx.NewInsert().Model(detail).Exec(ctx); err != nil {
					return err
				}
			}
		}

		if _, err := tx.NewDelete().
			Model((*models.OrderDetail)(nil)).
			Where("order_id = ?", sourceID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().
			Model((*models.Order)(nil)).
			Where("id = ?", sourceID).
			Exec(ctx)
		return err
	})
}

// CancelOrderAndRestock → mark the order cancelled and put every line's
// units back on the shelf, atomically.
func (d *DB) CancelOrderAndRestock(ctx context.Context, order *models.Order) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Order)(nil)).
			Set("status = ?", models.StatusCancelled).
			Where("id = ?", order.ID).
			Exec(ctx); err != nil {
			return err
		}

		for _, detail := range order.Details {
			_, err := tx.NewUpdate().
				Model((*models.Product)(nil)).
				Set("stock = stock + ?", detail.Quantity).
				Where("id = ?", detail.ProductID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", status).
		Where("id = ?", orderID).
		Exec(ctx)
	return err
}
