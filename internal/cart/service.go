package cart

import (
	"context"
	"fmt"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/promo"
	"mango-store/internal/utils"

	"github.com/google/uuid"
)

type DBLayer interface {
	FindOrCreateByUser(ctx context.Context, userID string) (*models.Cart, error)
	FindOrCreateByToken(ctx context.Context, token string) (*models.Cart, error)
	GetByUser(ctx context.Context, userID string) (*models.Cart, error)
	GetByToken(ctx context.Context, token string) (*models.Cart, error)
	ListAll(ctx context.Context) ([]*models.Cart, error)
	SetFreeShipping(ctx context.Context, cartID string, freeShipping bool) error
	GetItem(ctx context.Context, cartID, itemID string) (*models.CartItem, error)
	GetLineForProduct(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	GetFreeSibling(ctx context.Context, cartID, productID string) (*models.CartItem, error)
	InsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem) error
	DeleteItem(ctx context.Context, itemID string) error
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
}

// PromotionSource supplies the promotions currently active for a product.
type PromotionSource interface {
	ActiveForProduct(ctx context.Context, productID string) ([]*models.Promotion, error)
}

// CartService owns cart and line-item mutation. Every mutation recomputes
// the affected line's discount through the evaluator and persists it.
type CartService struct {
	DB        DBLayer
	Promos    PromotionSource
	Evaluator *promo.Evaluator
	Logger    *logger.Logger
}

func NewCartService(db DBLayer, promos PromotionSource, evaluator *promo.Evaluator, log *logger.Logger) *CartService {
	return &CartService{DB: db, Promos: promos, Evaluator: evaluator, Logger: log}
}

// GetOrCreate resolves the cart for an identity, creating it lazily.
// For a fully anonymous caller (no user, no token) it mints a fresh cart
// token; the second return value is the token the client must echo back
// as a bearer credential.
func (s *CartService) GetOrCreate(ctx context.Context, id auth.Identity) (*models.Cart, string, error) {
	if id.Authenticated() {
		cart, err := s.DB.FindOrCreateByUser(ctx, id.UserID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to find or create cart for user %s: %w", id.UserID, err)
		}
		return cart, "", nil
	}

	token := id.CartToken
	if token == "" {
		var err error
		token, err = utils.GenerateCartToken()
		if err != nil {
			return nil, "", err
		}
		s.Logger.LogCart("CREATE", "-", "issued new anonymous cart token")
	}

	cart, err := s.DB.FindOrCreateByToken(ctx, token)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find or create anonymous cart: %w", err)
	}
	return cart, token, nil
}

// Get resolves an existing cart without creating one. Checkout uses this:
// paying for a cart that was never created is a NotFound, not a lazy create.
func (s *CartService) Get(ctx context.Context, id auth.Identity) (*models.Cart, error) {
	var (
		cart *models.Cart
		err  error
	)
	switch {
	case id.Authenticated():
		cart, err = s.DB.GetByUser(ctx, id.UserID)
	case id.CartToken != "":
		cart, err = s.DB.GetByToken(ctx, id.CartToken)
	default:
		return nil, apperr.NotFound("cart not found for anonymous caller without token")
	}
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, apperr.NotFound("cart not found")
	}
	return cart, nil
}

// ListAll is the admin view of every cart in the system.
func (s *CartService) ListAll(ctx context.Context, id auth.Identity) ([]*models.Cart, error) {
	if !id.IsAdmin() {
		return nil, apperr.Forbidden("role %q may not list all carts", id.Role)
	}
	return s.DB.ListAll(ctx)
}

// AddItem merges into the existing non-free line for the product, or
// inserts a new one, then re-evaluates promotions for the line.
func (s *CartService) AddItem(ctx context.Context, id auth.Identity, req models.AddItemRequest) (*models.Cart, string, error) {
	if req.Quantity < 1 {
		return nil, "", apperr.InvalidInput("quantity must be at least 1, got %d", req.Quantity)
	}

	product, err := s.DB.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, "", err
	}
	if product == nil {
		return nil, "", apperr.NotFound("product %s not found", req.ProductID)
	}

	cart, token, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, "", err
	}

	line, err := s.DB.GetLineForProduct(ctx, cart.ID, req.ProductID)
	if err != nil {
		return nil, "", err
	}

	if line != nil {
		line.Quantity += req.Quantity
		line.ShippingAddress = req.ShippingAddress
		if err := s.DB.UpdateItem(ctx, line); err != nil {
			return nil, "", fmt.Errorf("failed to update cart line: %w", err)
		}
	} else {
		line = &models.CartItem{
			ID:              uuid.NewString(),
			CartID:          cart.ID,
			ProductID:       req.ProductID,
			Quantity:        req.Quantity,
			ShippingAddress: req.ShippingAddress,
			Product:         product,
		}
		if err := s.DB.InsertItem(ctx, line); err != nil {
			return nil, "", fmt.Errorf("failed to insert cart line: %w", err)
		}
	}
	line.Product = product

	if err := s.reevaluateLine(ctx, cart, line); err != nil {
		return nil, "", err
	}

	s.Logger.LogCart("ADD", cart.ID, fmt.Sprintf("product %s qty %d", req.ProductID, req.Quantity))
	cart, err = s.reload(ctx, cart, id, token)
	return cart, token, err
}

// UpdateItem sets a line's quantity; quantity zero deletes the line.
func (s *CartService) UpdateItem(ctx context.Context, id auth.Identity, itemID string, req models.UpdateItemRequest) (*models.Cart, string, error) {
	if req.Quantity < 0 {
		return nil, "", apperr.InvalidInput("quantity must not be negative, got %d", req.Quantity)
	}

	cart, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	line, err := s.DB.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, "", err
	}
	if line == nil {
		return nil, "", apperr.NotFound("cart item %s not found", itemID)
	}
	if line.IsFree {
		// Bonus lines track their paid sibling through the evaluator;
		// their quantity is never caller-controlled.
		return nil, "", apperr.InvalidInput("cart item %s is a promotional bonus line and cannot be edited", itemID)
	}

	if req.Quantity == 0 {
		if err := s.removeLine(ctx, cart.ID, line); err != nil {
			return nil, "", err
		}
		s.Logger.LogCart("REMOVE", cart.ID, fmt.Sprintf("line %s removed via zero quantity", itemID))
		cart, err = s.reload(ctx, cart, id, "")
		return cart, "", err
	}

	line.Quantity = req.Quantity
	if req.ShippingAddress != nil {
		line.ShippingAddress = *req.ShippingAddress
	}
	if err := s.DB.UpdateItem(ctx, line); err != nil {
		return nil, "", fmt.Errorf("failed to update cart line: %w", err)
	}

	if err := s.reevaluateLine(ctx, cart, line); err != nil {
		return nil, "", err
	}

	s.Logger.LogCart("UPDATE", cart.ID, fmt.Sprintf("line %s qty %d", itemID, req.Quantity))
	cart, err = s.reload(ctx, cart, id, "")
	return cart, "", err
}

// RemoveItem deletes a line unconditionally. No restock happens at this
// layer; stock only moves when orders are created or cancelled.
func (s *CartService) RemoveItem(ctx context.Context, id auth.Identity, itemID string) (*models.Cart, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	line, err := s.DB.GetItem(ctx, cart.ID, itemID)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, apperr.NotFound("cart item %s not found", itemID)
	}

	if err := s.removeLine(ctx, cart.ID, line); err != nil {
		return nil, err
	}

	s.Logger.LogCart("REMOVE", cart.ID, fmt.Sprintf("line %s removed", itemID))
	return s.reload(ctx, cart, id, "")
}

// removeLine deletes a line and, for a non-free line, its BOGO bonus
// sibling, which has no reason to outlive the purchase that earned it.
func (s *CartService) removeLine(ctx context.Context, cartID string, line *models.CartItem) error {
	if err := s.DB.DeleteItem(ctx, line.ID); err != nil {
		return fmt.Errorf("failed to delete cart line: %w", err)
	}
	if line.IsFree {
		return nil
	}
	sibling, err := s.DB.GetFreeSibling(ctx, cartID, line.ProductID)
	if err != nil {
		return err
	}
	if sibling != nil {
		if err := s.DB.DeleteItem(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to delete free sibling: %w", err)
		}
	}
	return nil
}

// reevaluateLine recomputes a line's discount and synchronizes its free
// sibling and the cart's free_shipping flag with the evaluator's result.
func (s *CartService) reevaluateLine(ctx context.Context, cart *models.Cart, line *models.CartItem) error {
	promotions, err := s.Promos.ActiveForProduct(ctx, line.ProductID)
	if err != nil {
		return fmt.Errorf("failed to load promotions for product %s: %w", line.ProductID, err)
	}

	res := s.Evaluator.Evaluate(promo.Line{
		ProductID: line.ProductID,
		UnitPrice: line.Product.Price,
		Quantity:  line.Quantity,
	}, promotions)

	line.Discount = res.Discount
	if err := s.DB.UpdateItem(ctx, line); err != nil {
		return fmt.Errorf("failed to persist line discount: %w", err)
	}

	sibling, err := s.DB.GetFreeSibling(ctx, cart.ID, line.ProductID)
	if err != nil {
		return err
	}

	switch {
	case res.FreeQuantity > 0 && sibling == nil:
		sibling = &models.CartItem{
			ID:              uuid.NewString(),
			CartID:          cart.ID,
			ProductID:       line.ProductID,
			Quantity:        res.FreeQuantity,
			ShippingAddress: line.ShippingAddress,
			IsFree:          true,
		}
		if err := s.DB.InsertItem(ctx, sibling); err != nil {
			return fmt.Errorf("failed to insert free sibling: %w", err)
		}
	case res.FreeQuantity > 0 && sibling != nil:
		sibling.Quantity = res.FreeQuantity
		sibling.ShippingAddress = line.ShippingAddress
		if err := s.DB.UpdateItem(ctx, sibling); err != nil {
			return fmt.Errorf("failed to update free sibling: %w", err)
		}
	case res.FreeQuantity == 0 && sibling != nil:
		if err := s.DB.DeleteItem(ctx, sibling.ID); err != nil {
			return fmt.Errorf("failed to delete stale free sibling: %w", err)
		}
	}

	if res.FreeShipping && !cart.FreeShipping {
		cart.FreeShipping = true
		if err := s.DB.SetFreeShipping(ctx, cart.ID, true); err != nil {
			return fmt.Errorf("failed to set free shipping: %w", err)
		}
	}

	return nil
}

func (s *CartService) reload(ctx context.Context, cart *models.Cart, id auth.Identity, token string) (*models.Cart, error) {
	if id.Authenticated() {
		return s.DB.GetByUser(ctx, id.UserID)
	}
	if token == "" {
		token = id.CartToken
	}
	if token == "" {
		token = cart.Token
	}
	return s.DB.GetByToken(ctx, token)
}

// ComputeTotal sums the non-free lines: price × quantity − discount.
// Free lines contribute nothing.
func ComputeTotal(cart *models.Cart) float64 {
	var total float64
	for _, item := range cart.Items {
		total += item.LineTotal()
	}
	return total
}

// View decorates each line with its promotion metadata for display.
// Read-only: discounts are not recomputed here.
func (s *CartService) View(ctx context.Context, cart *models.Cart, token string) (*models.CartView, error) {
	view := &models.CartView{
		CartID:       cart.ID,
		Token:        token,
		FreeShipping: cart.FreeShipping,
		Items:        make([]*models.CartItemView, 0, len(cart.Items)),
		Total:        ComputeTotal(cart),
	}

	for _, item := range cart.Items {
		iv := &models.CartItemView{CartItem: *item}
		promotions, err := s.Promos.ActiveForProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if len(promotions) > 0 {
			// The storefront shows one promotion per product; with the
			// overwrite-last stacking rule the last one wins.
			p := promotions[len(promotions)-1]
			iv.PromotionType = string(p.Type)
			iv.PromotionDescription = p.Description
		}
		view.Items = append(view.Items, iv)
	}

	return view, nil
}
