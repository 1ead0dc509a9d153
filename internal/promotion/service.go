package promotion

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
	ActiveForProduct(ctx context.Context, productID string) ([]*models.Promotion, error)
	HasActiveForProduct(ctx context.Context, productID string) (bool, error)
	ListActive(ctx context.Context) ([]*models.Promotion, error)
	GetActive(ctx context.Context, id string) (*models.Promotion, error)
	Create(ctx context.Context, p *models.Promotion) error
	Update(ctx context.Context, p *models.Promotion) error
	Delete(ctx context.Context, id string) error
	CreateType(ctx context.Context, t *models.PromotionType) error
	ListTypes(ctx context.Context) ([]*models.PromotionType, error)
	GetType(ctx context.Context, id string) (*models.PromotionType, error)
	UpdateType(ctx context.Context, t *models.PromotionType) error
	DeleteType(ctx context.Context, id string) error
}

type PromotionService struct {
	DB     DBLayer
	Logger *logger.Logger
}

func NewPromotionService(db DBLayer, log *logger.Logger) *PromotionService {
	return &PromotionService{DB: db, Logger: log}
}

func requireVendorOrAdmin(id auth.Identity) error {
	if !id.IsAdmin() && !id.IsVendor() {
		return apperr.Forbidden("role %q may not manage promotions", id.Role)
	}
	return nil
}

// ActiveForProduct is the promotion feed for the cart evaluator.
func (s *PromotionService) ActiveForProduct(ctx context.Context, productID string) ([]*models.Promotion, error) {
	return s.DB.ActiveForProduct(ctx, productID)
}

func (s *PromotionService) List(ctx context.Context) ([]*models.Promotion, error) {
	return s.DB.ListActive(ctx)
}

func (s *PromotionService) Get(ctx context.Context, id string) (*models.Promotion, error) {
	p, err := s.DB.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("promotion %s not found", id)
	}
	return p, nil
}

// Create enforces the one-active-promotion-per-product invariant:
// a product with an unexpired promotion rejects a second one.
func (s *PromotionService) Create(ctx context.Context, id auth.Identity, p *models.Promotion) (*models.Promotion, error) {
	if err := requireVendorOrAdmin(id); err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	exists, err := s.DB.HasActiveForProduct(ctx, p.ProductID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.Conflict("product %s already has an active promotion", p.ProductID)
	}

	promoType, err := s.DB.GetType(ctx, p.PromotionTypeID)
	if err != nil {
		return nil, err
	}
	if promoType == nil {
		return nil, apperr.NotFound("promotion type %s not found", p.PromotionTypeID)
	}

	p.ID = uuid.NewString()
	p.PromotionType = promoType
	p.ResolveType()
	if err := s.DB.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	s.Logger.LogPromo("CREATE", p.ID, fmt.Sprintf("product %s type %s", p.ProductID, p.Type))
	return p, nil
}

func (s *PromotionService) Update(ctx context.Context, id auth.Identity, promotionID string, p *models.Promotion) (*models.Promotion, error) {
	if err := requireVendorOrAdmin(id); err != nil {
		return nil, err
	}
	if err := validate(p); err != nil {
		return nil, err
	}

	existing, err := s.DB.GetActive(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound("promotion %s not found", promotionID)
	}

	// Moving the promotion to a different product re-enters the
	// one-active-promotion-per-product check, same as Create.
	if p.ProductID != existing.ProductID {
		exists, err := s.DB.HasActiveForProduct(ctx, p.ProductID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperr.Conflict("product %s already has an active promotion", p.ProductID)
		}
	}

	p.ID = promotionID
	if err := s.DB.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update promotion: %w", err)
	}
	s.Logger.LogPromo("UPDATE", promotionID, "promotion updated")
	return s.Get(ctx, promotionID)
}

func (s *PromotionService) Delete(ctx context.Context, id auth.Identity, promotionID string) error {
	if err := requireVendorOrAdmin(id); err != nil {
		return err
	}
	if err := s.DB.Delete(ctx, promotionID); err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	s.Logger.LogPromo("DELETE", promotionID, "promotion deleted")
	return nil
}

func validate(p *models.Promotion) error {
	if p.ProductID == "" {
		return apperr.InvalidInput("product_id is required")
	}
	if p.PromotionTypeID == "" {
		return apperr.InvalidInput("promotion_type_id is required")
	}
	if p.EndDate.Before(p.StartDate) {
		return apperr.InvalidInput("end_date must not be before start_date")
	}
	if p.MinQuantity != nil && *p.MinQuantity < 0 {
		return apperr.InvalidInput("min_quantity must not be negative")
	}
	if p.MinPrice != nil && *p.MinPrice < 0 {
		return apperr.InvalidInput("min_price must not be negative")
	}
	return nil
}

// ---------------- PROMOTION TYPES ----------------

func (s *PromotionService) ListTypes(ctx context.Context) ([]*models.PromotionType, error) {
	return s.DB.ListTypes(ctx)
}

func (s *PromotionService) GetType(ctx context.Context, id string) (*models.PromotionType, error) {
	t, err := s.DB.GetType(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("promotion type %s not found", id)
	}
	return t, nil
}

func (s *PromotionService) CreateType(ctx context.Context, id auth.Identity, t *models.PromotionType) (*models.PromotionType, error) {
	if err := requireVendorOrAdmin(id); err != nil {
		return nil, err
	}
	if t.Name == "" {
		return nil, apperr.InvalidInput("name is required")
	}
	t.ID = uuid.NewString()
	if err := s.DB.CreateType(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create promotion type: %w", err)
	}
	return t, nil
}

func (s *PromotionService) UpdateType(ctx context.Context, id auth.Identity, typeID string, t *models.PromotionType) (*models.PromotionType, error) {
	if err := requireVendorOrAdmin(id); err != nil {
		return nil, err
	}
	existing, err := s.GetType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	t.ID = existing.ID
	if err := s.DB.UpdateType(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update promotion type: %w", err)
	}
	return t, nil
}

func (s *PromotionService) DeleteType(ctx context.Context, id auth.Identity, typeID string) error {
	if err := requireVendorOrAdmin(id); err != nil {
		return err
	}
	if err := s.DB.DeleteType(ctx, typeID); err != nil {
		return fmt.Errorf("failed to delete promotion type: %w", err)
	}
	return nil
}
