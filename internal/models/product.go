package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Product struct {
	bun.BaseModel `bun:"table:products"`

	ID          string    `bun:"id,pk" json:"id"`
	Name        string    `bun:"name" json:"name"`
	Description string    `bun:"description" json:"description"`
	Price       float64   `bun:"price" json:"price"`
	Stock       int       `bun:"stock" json:"stock"`
	VendorID    string    `bun:"vendor_id" json:"vendor_id"`
	Available   bool      `bun:"available" json:"available"`
	CreatedAt   time.Time `bun:"created_at" json:"created_at"`
}

// VendorDetail carries the store front info a vendor registers for
// receiving PromptPay payments.
type VendorDetail struct {
	bun.BaseModel `bun:"table:vendor_details"`

	ID               string `bun:"id,pk" json:"id"`
	UserID           string `bun:"user_id" json:"user_id"`
	StoreName        string `bun:"store_name" json:"store_name"`
	PromptpayNumber  string `bun:"promptpay_number" json:"promptpay_number"`
	AdditionalQRInfo string `bun:"additional_qr_info" json:"additional_qr_info,omitempty"`
}
