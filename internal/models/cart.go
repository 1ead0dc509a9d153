package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Cart belongs to exactly one identity: an authenticated user (UserID set)
// or an anonymous shopper (Token set). The two are mutually exclusive.
type Cart struct {
	bun.BaseModel `bun:"table:carts"`

	ID           string    `bun:"id,pk" json:"id"`
	UserID       string    `bun:"user_id,nullzero,unique" json:"user_id,omitempty"`
	Token        string    `bun:"token,nullzero,unique" json:"-"`
	FreeShipping bool      `bun:"free_shipping" json:"free_shipping"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`

	Items []*CartItem `bun:"rel:has-many,join:id=cart_id" json:"items"`
}

type CartItem struct {
	bun.BaseModel `bun:"table:cart_items"`

	ID              string  `bun:"id,pk" json:"id"`
	CartID          string  `bun:"cart_id" json:"cart_id"`
	ProductID       string  `bun:"product_id" json:"product_id"`
	Quantity        int     `bun:"quantity" json:"quantity"`
	ShippingAddress string  `bun:"shipping_address" json:"shipping_address"`
	Discount        float64 `bun:"discount" json:"discount"`
	IsFree          bool    `bun:"is_free" json:"is_free"`

	Product *Product `bun:"rel:belongs-to,join:product_id=id" json:"product,omitempty"`
}

// LineTotal is the amount this line contributes to the cart total.
// Free lines are promotional bonus units and contribute nothing.
func (i *CartItem) LineTotal() float64 {
	if i.IsFree || i.Product == nil {
		return 0
	}
	return i.Product.Price*float64(i.Quantity) - i.Discount
}

type AddItemRequest struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	ShippingAddress string `json:"shipping_address"`
}

type UpdateItemRequest struct {
	Quantity        int     `json:"quantity"`
	ShippingAddress *string `json:"shipping_address,omitempty"`
}

// CartItemView decorates a cart line with the promotion metadata the
// storefront shows next to it. Read-only projection.
type CartItemView struct {
	CartItem
	PromotionType        string `json:"promotion_type,omitempty"`
	PromotionDescription string `json:"promotion_description,omitempty"`
}

type CartView struct {
	CartID       string          `json:"cart_id"`
	Token        string          `json:"token,omitempty"`
	FreeShipping bool            `json:"free_shipping"`
	Items        []*CartItemView `json:"items"`
	Total        float64         `json:"total"`
}
