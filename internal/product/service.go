package product

import (
	"context"
	"fmt"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/logger"
	"mango-store/internal/models"

	"github.com/google/uuid"
)

type DBLayer interface {
	ListAvailable(ctx context.Context) ([]*models.Product, error)
	ListByVendor(ctx context.Context, vendorID string) ([]*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

type ProductService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewProductService(db DBLayer, log *logger.Logger) *ProductService {
	return &ProductService{DB: db, Logger: log}
}

// List is the public catalogue: available products only.
func (s *ProductService) List(ctx context.Context) ([]*models.Product, error) {
	return s.DB.ListAvailable(ctx)
}

// ListMine returns the vendor's own products, available or not.
func (s *ProductService) ListMine(ctx context.Context, id auth.Identity) ([]*models.Product, error) {
	if !id.IsVendor() && !id.IsAdmin() {
		return nil, apperr.Forbidden("role %q may not list vendor products", id.Role)
	}
	return s.DB.ListByVendor(ctx, id.UserID)
}

func (s *ProductService) Get(ctx context.Context, productID string) (*models.Product, error) {
	product, err := s.DB.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperr.NotFound("product %s not found", productID)
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, id auth.Identity, p *models.Product) (*models.Product, error) {
	if !id.IsVendor() && !id.IsAdmin() {
		return nil, apperr.Forbidden("role %q may not create products", id.Role)
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	p.ID = uuid.NewString()
	// Vendors own what they create; admins may create on a vendor's behalf.
	if !id.IsAdmin() || p.VendorID == "" {
		p.VendorID = id.UserID
	}
	if err := s.DB.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.Logger.Info("PRODUCT", fmt.Sprintf("created %s (%s) for vendor %s", p.ID, p.Name, p.VendorID))
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id auth.Identity, productID string, p *models.Product) (*models.Product, error) {
	existing, err := s.requireOwned(ctx, id, productID)
	if err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	p.ID = existing.ID
	p.VendorID = existing.VendorID
	if err := s.DB.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.Logger.Info("PRODUCT", fmt.Sprintf("updated %s", productID))
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id auth.Identity, productID string) error {
	if _, err := s.requireOwned(ctx, id, productID); err != nil {
		return err
	}
	if err := s.DB.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.Logger.Info("PRODUCT", fmt.Sprintf("deleted %s", productID))
	return nil
}

// requireOwned loads a product and checks the caller may modify it: the
// owning vendor or an admin.
func (s *ProductService) requireOwned(ctx context.Context, id auth.Identity, productID string) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if id.IsAdmin() {
		return product, nil
	}
	if id.IsVendor() && product.VendorID == id.UserID {
		return product, nil
	}
	return nil, apperr.Forbidden("product %s does not belong to you", productID)
}

func validate(p *models.Product) error {
	if p.Name == "" {
		return apperr.InvalidInput("name is required")
	}
	if p.Price < 0 {
		return apperr.InvalidInput("price must not be negative")
	}
	if p.Stock < 0 {
		return apperr.InvalidInput("stock must not be negative")
	}
	return nil
}
