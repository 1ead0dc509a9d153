package order

import (
	"context"
	"encoding/base64"
	"fmt"

	"mango-store/internal/apperr"
	"mango-store/internal/auth"
	"mango-store/internal/cart"
	"mango-store/internal/logger"
	"mango-store/internal/models"
	"mango-store/internal/promptpay"

	"github.com/google/uuid"
)

type DBLayer interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error)
	GetOrdersForVendor(ctx context.Context, vendorID string) ([]*models.Order, error)
	GetAllOrders(ctx context.Context) ([]*models.Order, error)
	GetVendorDetail(ctx context.Context, vendorID string) (*models.VendorDetail, error)
	CreateOrdersAndDeleteCart(ctx context.Context, orders []*models.Order, cartID string) error
	ReplaceOrderWithVendorOrders(ctx context.Context, sourceID string, orders []*models.Order) error
	CancelOrderAndRestock(ctx context.Context, order *models.Order) error
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
}

// CartLayer is the slice of the cart service checkout needs.
type CartLayer interface {
	Get(ctx context.Context, id auth.Identity) (*models.Cart, error)
}

// SplitLock serializes the slip-upload split for one order.
type SplitLock interface {
	AcquireSplitLock(ctx context.Context, orderID, requestID string) (bool, error)
	ReleaseSplitLock(ctx context.Context, orderID, requestID string) error
}

// EventPublisher streams order lifecycle events.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderPaid(ctx context.Context, order *models.Order) error
	PublishOrderCancelled(ctx context.Context, order *models.Order) error
}

type OrderService struct {
	DB     DBLayer
	Cart   CartLayer
	Lock   SplitLock
	Events EventPublisher
	Logger *logger.Logger
}

func NewOrderService(db DBLayer, cartLayer CartLayer, lock SplitLock, events EventPublisher, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Cart: cartLayer, Lock: lock, Events: events, Logger: log}
}

// ---------------- CHECKOUT ----------------

// Checkout turns the caller's cart into orders. With a payment slip the
// cart splits immediately into one paid order per vendor; without one a
// single pending order covers the whole cart and splits later, when the
// slip arrives. Either way the cart is consumed and stock is decremented
// in the same transaction. Orders belong to a user, so checkout requires
// a signed-in caller even though the cart itself may be anonymous.
func (s *OrderService) Checkout(ctx context.Context, id auth.Identity, slip []byte) (*models.CheckoutResponse, error) {
	if !id.Authenticated() {
		return nil, apperr.Unauthorized("sign in to checkout")
	}

	cartModel, err := s.Cart.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(cartModel.Items) == 0 {
		return nil, apperr.InvalidInput("cart is empty")
	}
	if err := checkStock(cartModel); err != nil {
		return nil, err
	}

	var orders []*models.Order
	if len(slip) > 0 {
		encoded := base64.StdEncoding.EncodeToString(slip)
		orders = BuildVendorOrders(cartModel, id.UserID, encoded)
	} else {
		orders = []*models.Order{BuildSingleOrder(cartModel, id.UserID)}
	}

	if err := s.DB.CreateOrdersAndDeleteCart(ctx, orders, cartModel.ID); err != nil {
		return nil, fmt.Errorf("failed to create orders: %w", err)
	}

	for _, o := range orders {
		s.Logger.LogOrder("CREATE", o.ID, fmt.Sprintf("status %s total %.2f", o.Status, o.TotalPrice))
		if err := s.Events.PublishOrderCreated(ctx, o); err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("failed to publish created event for %s: %v", o.ID, err))
		}
		if o.Status == models.StatusPaid {
			if err := s.Events.PublishOrderPaid(ctx, o); err != nil {
				s.Logger.Warn("ORDER", fmt.Sprintf("failed to publish paid event for %s: %v", o.ID, err))
			}
		}
	}

	return &models.CheckoutResponse{Orders: orders}, nil
}

// checkStock rejects checkout when any product cannot cover the ordered
// quantity. Free lines consume real stock like any other line.
func checkStock(cartModel *models.Cart) error {
	needed := make(map[string]int)
	byID := make(map[string]*models.Product)
	for _, item := range cartModel.Items {
		needed[item.ProductID] += item.Quantity
		if item.Product != nil {
			byID[item.ProductID] = item.Product
		}
	}
	for productID, qty := range needed {
		product := byID[productID]
		if product == nil {
			return apperr.NotFound("product %s not found", productID)
		}
		if product.Stock < qty {
			return apperr.Conflict("insufficient stock for product %s: need %d, have %d", productID, qty, product.Stock)
		}
	}
	return nil
}

// ---------------- PAYMENT ----------------

// UploadSlip attaches a payment slip to a pending order and fans it out
// into per-vendor paid orders. The source order is always replaced, even
// for a single vendor, so its id stops resolving once payment lands. The
// redis lock keeps concurrent uploads from splitting the same order twice.
func (s *OrderService) UploadSlip(ctx context.Context, id auth.Identity, orderID string, slip []byte) (*models.CheckoutResponse, error) {
	if len(slip) == 0 {
		return nil, apperr.InvalidInput("payment slip is required")
	}

	order, err := s.getOwned(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending {
		return nil, apperr.InvalidInput("order %s is %s, only pending orders accept a payment slip", orderID, order.Status)
	}

	requestID := uuid.NewString()
	ok, err := s.Lock.AcquireSplitLock(ctx, orderID, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire split lock: %w", err)
	}
	if !ok {
		return nil, apperr.Conflict("payment for order %s is already being processed", orderID)
	}
	defer func() {
		if err := s.Lock.ReleaseSplitLock(ctx, orderID, requestID); err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("failed to release split lock for %s: %v", orderID, err))
		}
	}()

	order.PaymentSlip = base64.StdEncoding.EncodeToString(slip)

	vendorOrders := SplitOrder(order)
	if err := s.DB.ReplaceOrderWithVendorOrders(ctx, order.ID, vendorOrders); err != nil {
		return nil, fmt.Errorf("failed to split order %s: %w", order.ID, err)
	}
	s.Logger.LogOrder("SPLIT", order.ID, fmt.Sprintf("split into %d vendor orders", len(vendorOrders)))
	for _, o := range vendorOrders {
		if err := s.Events.PublishOrderPaid(ctx, o); err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("failed to publish paid event for %s: %v", o.ID, err))
		}
	}
	return &models.CheckoutResponse{Orders: vendorOrders}, nil
}

// QRPayments builds per-vendor PromptPay payment instructions for a
// pending order: each vendor's share of the total with that vendor's
// PromptPay QR.
func (s *OrderService) QRPayments(ctx context.Context, id auth.Identity, orderID string) ([]*models.QRPayment, error) {
	order, err := s.getOwned(ctx, id, orderID)
	if err != nil {
		return nil, err
	}

	groups := groupDetailsByVendor(order.Details)
	payments := make([]*models.QRPayment, 0, len(groups))
	for _, vendorID := range sortedVendorIDs(groups) {
		amount := totalForDetails(groups[vendorID])

		detail, err := s.DB.GetVendorDetail(ctx, vendorID)
		if err != nil {
			return nil, err
		}
		if detail == nil {
			return nil, apperr.NotFound("vendor detail for vendor %s not found", vendorID)
		}

		payment := &models.QRPayment{
			StoreName:        detail.StoreName,
			PromptpayNumber:  detail.PromptpayNumber,
			AdditionalQRInfo: detail.AdditionalQRInfo,
			Amount:           amount,
		}
		payload, err := promptpay.BuildPayload(detail.PromptpayNumber, amount)
		if err != nil {
			s.Logger.Warn("ORDER", fmt.Sprintf("vendor %s has unusable promptpay number: %v", vendorID, err))
		} else {
			png, err := promptpay.GenerateQR(payload)
			if err != nil {
				return nil, err
			}
			payment.Payload = payload
			payment.QRCode = base64.StdEncoding.EncodeToString(png)
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// ---------------- LIFECYCLE ----------------

// Cancel cancels an order and restocks every line. Only pending and paid
// orders may cancel; shipped, delivered and cancelled orders refuse.
func (s *OrderService) Cancel(ctx context.Context, id auth.Identity, orderID string) (*models.Order, error) {
	order, err := s.getOwned(ctx, id, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.StatusCancelled) {
		return nil, apperr.InvalidInput("order %s is %s and cannot be cancelled", orderID, order.Status)
	}

	if err := s.DB.CancelOrderAndRestock(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", orderID, err)
	}
	order.Status = models.StatusCancelled

	s.Logger.LogOrder("CANCEL", orderID, "order cancelled, stock restored")
	if err := s.Events.PublishOrderCancelled(ctx, order); err != nil {
		s.Logger.Warn("ORDER", fmt.Sprintf("failed to publish cancelled event for %s: %v", orderID, err))
	}
	return order, nil
}

// UpdateStatus moves an order along the lifecycle. Vendors and admins
// only; cancellation goes through Cancel so stock is restored.
func (s *OrderService) UpdateStatus(ctx context.Context, id auth.Identity, orderID, status string) (*models.Order, error) {
	if !id.IsAdmin() && !id.IsVendor() {
		return nil, apperr.Forbidden("role %q may not update order status", id.Role)
	}
	if !models.ValidStatus(status) {
		return nil, apperr.InvalidInput("unknown order status %q", status)
	}
	if status == models.StatusCancelled {
		return s.Cancel(ctx, id, orderID)
	}

	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, status) {
		return nil, apperr.InvalidInput("order %s cannot move from %s to %s", orderID, order.Status, status)
	}

	if err := s.DB.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = status
	s.Logger.LogOrder("STATUS", orderID, "status set to "+status)
	return order, nil
}

// ---------------- QUERIES ----------------

func (s *OrderService) Get(ctx context.Context, id auth.Identity, orderID string) (*models.Order, error) {
	return s.getOwned(ctx, id, orderID)
}

func (s *OrderService) ListMine(ctx context.Context, id auth.Identity) ([]*models.Order, error) {
	if !id.Authenticated() {
		return nil, apperr.Unauthorized("sign in to list orders")
	}
	return s.DB.GetOrdersByUser(ctx, id.UserID)
}

func (s *OrderService) ListForVendor(ctx context.Context, id auth.Identity) ([]*models.Order, error) {
	if !id.IsVendor() && !id.IsAdmin() {
		return nil, apperr.Forbidden("role %q may not list vendor orders", id.Role)
	}
	return s.DB.GetOrdersForVendor(ctx, id.UserID)
}

func (s *OrderService) ListAll(ctx context.Context, id auth.Identity) ([]*models.Order, error) {
	if !id.IsAdmin() {
		return nil, apperr.Forbidden("role %q may not list all orders", id.Role)
	}
	return s.DB.GetAllOrders(ctx)
}

func (s *OrderService) get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	return order, nil
}

// getOwned fetches an order and verifies the caller may touch it: the
// owner, an admin, or a vendor with a line in the order. An empty user id
// on either side never matches; an unauthenticated caller owns nothing.
func (s *OrderService) getOwned(ctx context.Context, id auth.Identity, orderID string) (*models.Order, error) {
	order, err := s.get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if id.IsAdmin() || (id.UserID != "" && order.UserID == id.UserID) {
		return order, nil
	}
	if id.IsVendor() {
		for _, detail := range order.Details {
			if detail.Product != nil && detail.Product.VendorID == id.UserID {
				return order, nil
			}
		}
	}
	return nil, apperr.Forbidden("order %s does not belong to you", orderID)
}

var _ CartLayer = (*cart.CartService)(nil)
