package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mango-store/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
	// RequireStarted filters out promotions whose start_date is still in
	// the future. One flag for every call site; the legacy code disagreed
	// with itself between the cart and order flows.
	RequireStarted bool
}

// ---------------- PROMOTIONS ----------------

func (d *DB) activeQuery(q *bun.SelectQuery) *bun.SelectQuery {
	q = q.Where("end_date >= ?", time.Now())
	if d.RequireStarted {
		q = q.Where("start_date <= ?", time.Now())
	}
	return q
}

// ActiveForProduct → promotions currently active for one product, with
// their type resolved to the closed enum.
func (d *DB) ActiveForProduct(ctx context.Context, productID string) ([]*models.Promotion, error) {
	var promotions []*models.Promotion
	q := d.Bun.NewSelect().
		Model(&promotions).
		Relation("PromotionType").
		Where("product_id = ?", productID)
	if err := d.activeQuery(q).Scan(ctx); err != nil {
		return nil, err
	}
	for _, p := range promotions {
		p.ResolveType()
	}
	return promotions, nil
}

// HasActiveForProduct → true when the product already carries an active
// promotion. Enforced at creation time: one active promotion per product.
func (d *DB) HasActiveForProduct(ctx context.Context, productID string) (bool, error) {
	q := d.Bun.NewSelect().
		Model((*models.Promotion)(nil)).
		Where("product_id = ?", productID).
		Where("end_date >= ?", time.Now())
	return q.Exists(ctx)
}

func (d *DB) ListActive(ctx context.Context) ([]*models.Promotion, error) {
	var promotions []*models.Promotion
	q := d.Bun.NewSelect().
		Model(&promotions).
		Relation("PromotionType").
		Where("end_date >= ?", time.Now())
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	for _, p := range promotions {
		p.ResolveType()
	}
	return promotions, nil
}

func (d *DB) GetActive(ctx context.Context, id string) (*models.Promotion, error) {
	var promotion models.Promotion
	err := d.Bun.NewSelect().
		Model(&promotion).
		Relation("PromotionType").
		Where("promotion.id = ?", id).
		Where("end_date >= ?", time.Now()).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	promotion.ResolveType()
	return &promotion, nil
}

func (d *DB) Create(ctx context.Context, p *models.Promotion) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) Update(ctx context.Context, p *models.Promotion) error {
	_, err := d.Bun.NewUpdate().
		Model(p).
		Column("product_id", "promotion_type_id", "discount_value", "start_date", "end_date", "min_quantity", "min_price", "description").
		Where("id = ?", p.ID).
		Exec(ctx)
	return err
}

func (d *DB) Delete(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Promotion)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

// ---------------- PROMOTION TYPES ----------------

func (d *DB) CreateType(ctx context.Context, t *models.PromotionType) error {
	_, err := d.Bun.NewInsert().Model(t).Exec(ctx)
	return err
}

func (d *DB) ListTypes(ctx context.Context) ([]*models.PromotionType, error) {
	var types []*models.PromotionType
	if err := d.Bun.NewSelect().Model(&types).Scan(ctx); err != nil {
		return nil, err
	}
	return types, nil
}

func (d *DB) GetType(ctx context.Context, id string) (*models.PromotionType, error) {
	var t models.PromotionType
	err := d.Bun.NewSelect().
		Model(&t).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) UpdateType(ctx context.Context, t *models.PromotionType) error {
	_, err := d.Bun.NewUpdate().
		Model(t).
		Column("name", "description").
		Where("id = ?", t.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteType(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.PromotionType)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
