package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order status lifecycle: pending → paid → shipped → delivered, or
// cancelled from pending/paid. Cancelled and delivered are terminal.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// statusTransitions is the allowed transition table for updateStatus.
var statusTransitions = map[string][]string{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID           string    `bun:"id,pk" json:"id"`
	UserID       string    `bun:"user_id" json:"user_id"`
	TotalPrice   float64   `bun:"total_price" json:"total_price"`
	Status       string    `bun:"status" json:"status"`
	FreeShipping bool      `bun:"free_shipping" json:"free_shipping"`
	PaymentSlip  string    `bun:"payment_slip,nullzero" json:"payment_slip,omitempty"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`

	Details []*OrderDetail `bun:"rel:has-many,join:id=order_id" json:"order_details"`
}

type OrderDetail struct {
	bun.BaseModel `bun:"table:order_details"`

	ID        string `bun:"id,pk" json:"id"`
	OrderID   string `bun:"order_id" json:"order_id"`
	ProductID string `bun:"product_id" json:"product_id"`
	Quantity  int    `bun:"quantity" json:"quantity"`
	// Price is the unit price snapshot taken at order time. It must not
	// follow later product price changes.
	Price           float64 `bun:"price" json:"price"`
	Discount        float64 `bun:"discount" json:"discount"`
	ShippingAddress string  `bun:"shipping_address" json:"shipping_address"`
	IsFree          bool    `bun:"is_free" json:"is_free"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
}

// LineTotal is the amount this detail contributes to the order total.
func (d *OrderDetail) LineTotal() float64 {
	if d.IsFree {
		return 0
	}
	return d.Price*float64(d.Quantity) - d.Discount
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type CheckoutResponse struct {
	Orders []*Order `json:"orders"`
}

// QRPayment is the per-vendor PromptPay info shown on the payment page.
// QRCode carries the generated QR image as base64 PNG so the storefront
// can render it inline.
type QRPayment struct {
	StoreName        string  `json:"store_name"`
	PromptpayNumber  string  `json:"promptpay_number"`
	AdditionalQRInfo string  `json:"additional_qr_info,omitempty"`
	Amount           float64 `json:"amount"`
	Payload          string  `json:"payload,omitempty"`
	QRCode           string  `json:"qr_code,omitempty"`
}
