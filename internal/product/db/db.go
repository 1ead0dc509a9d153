package db

import (
	"context"
	"database/sql"
	"errors"

	"mango-store/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// ListAvailable → the storefront catalogue: available products with stock.
func (d *DB) ListAvailable(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	err := d.Bun.NewSelect().
		Model(&products).
		Where("available = ?", true).
		Where("stock > 0").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (d *DB) ListByVendor(ctx context.Context, vendorID string) ([]*models.Product, error) {
	var products []*models.Product
	err := d.Bun.NewSelect().
		Model(&products).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := d.Bun.NewSelect().
		Model(&product).
		Where("id = ?", id).
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

func (d *DB) Create(ctx context.Context, p *models.Product) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

func (d *DB) Update(ctx context.Context, p *models.Product) error {
	_, err := d.Bun.NewUpdate().
		Model(p).
		Column("name", "description", "price", "stock", "available").
		Where("id = ?", p.ID).
		Exec(ctx)
	return err
}

func (d *DB) Delete(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Product)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
