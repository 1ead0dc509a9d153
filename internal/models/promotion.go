package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PromoType is the closed set of promotion behaviours the evaluator knows.
// The promotion_types table stores display names (localized in the seed
// data); they are resolved to a PromoType once, at the data-access boundary.
type PromoType string

const (
	PercentOff   PromoType = "percent_off"
	FixedOff     PromoType = "fixed_off"
	BuyOneGetOne PromoType = "buy_one_get_one"
	FreeShipping PromoType = "free_shipping"
	UnknownPromo PromoType = "unknown"
)

// promoTypeNames maps stored promotion type names onto the closed enum.
// The first four entries are the canonical seed rows; the Thai names are
// the legacy rows the store launched with.
var promoTypeNames = map[string]PromoType{
	"percent_off":     PercentOff,
	"fixed_off":       FixedOff,
	"buy_one_get_one": BuyOneGetOne,
	"free_shipping":   FreeShipping,
	"ส่วนลดเปอร์เซ็นต์": PercentOff,
	"ส่วนลดคงที่":       FixedOff,
	"ซื้อหนึ่งแถมหนึ่ง":  BuyOneGetOne,
	"จัดส่งฟรี":         FreeShipping,
}

// ResolvePromoType maps a promotion type name onto the closed enum.
func ResolvePromoType(name string) PromoType {
	if t, ok := promoTypeNames[name]; ok {
		return t
	}
	return UnknownPromo
}

type PromotionType struct {
	bun.BaseModel `bun:"table:promotion_types"`

	ID          string `bun:"id,pk" json:"id"`
	Name        string `bun:"name" json:"name"`
	Description string `bun:"description" json:"description"`
}

type Promotion struct {
	bun.BaseModel `bun:"table:promotions"`

	ID              string    `bun:"id,pk" json:"id"`
	ProductID       string    `bun:"product_id" json:"product_id"`
	PromotionTypeID string    `bun:"promotion_type_id" json:"promotion_type_id"`
	DiscountValue   float64   `bun:"discount_value" json:"discount_value"`
	StartDate       time.Time `bun:"start_date" json:"start_date"`
	EndDate         time.Time `bun:"end_date" json:"end_date"`
	MinQuantity     *int      `bun:"min_quantity" json:"min_quantity,omitempty"`
	MinPrice        *float64  `bun:"min_price" json:"min_price,omitempty"`
	Description     string    `bun:"description" json:"description"`

	PromotionType *PromotionType `bun:"rel:belongs-to,join:promotion_type_id=id" json:"promotion_type,omitempty"`

	// Type is resolved from PromotionType.Name when the promotion is
	// loaded, so the evaluator never switches on raw name strings.
	Type PromoType `bun:"-" json:"type"`
}

// ResolveType fills Type from the joined promotion type row.
func (p *Promotion) ResolveType() {
	if p.PromotionType != nil {
		p.Type = ResolvePromoType(p.PromotionType.Name)
		return
	}
	p.Type = UnknownPromo
}
