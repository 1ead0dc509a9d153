package promo

import (
	"mango-store/internal/models"
)

// Stacking decides what happens when several promotions match one line.
type Stacking int

const (
	// OverwriteLast keeps only the last matching promotion's discount.
	// This is the storefront's historical behaviour.
	OverwriteLast Stacking = iota
	// SumAll accumulates the discounts of every matching promotion.
	SumAll
)

// Line is the unit the evaluator works on: one product at a quantity,
// priced at the current unit price.
type Line struct {
	ProductID string
	UnitPrice float64
	Quantity  int
}

// Applied records one promotion that matched, for storefront display.
type Applied struct {
	PromotionID string           `json:"promotion_id"`
	Type        models.PromoType `json:"type"`
	Description string           `json:"description"`
}

// Result is everything a matching set of promotions does to a line:
// a discount on the line itself, possibly a free bonus line of the same
// product, possibly free shipping on the owning cart or order.
type Result struct {
	Discount     float64
	FreeQuantity int
	FreeShipping bool
	Applied      []Applied
}

// Evaluator computes the promotion effects for cart lines.
type Evaluator struct {
	Stacking Stacking
}

func NewEvaluator(stacking Stacking) *Evaluator {
	return &Evaluator{Stacking: stacking}
}

// Eligible reports whether a promotion's thresholds are met by a line.
// Promotions that miss their thresholds are skipped silently; absence of
// any applicable promotion is the normal path.
func Eligible(p *models.Promotion, line Line) bool {
	if p.MinQuantity != nil && line.Quantity < *p.MinQuantity {
		return false
	}
	if p.MinPrice != nil && line.UnitPrice*float64(line.Quantity) < *p.MinPrice {
		return false
	}
	return true
}

// Evaluate applies every eligible promotion to the line, in iteration
// order. Discount-bearing promotions either overwrite or sum according to
// the stacking strategy; the final discount never exceeds the line
// subtotal and never goes negative.
func (e *Evaluator) Evaluate(line Line, promotions []*models.Promotion) Result {
	var res Result

	for _, p := range promotions {
		if !Eligible(p, line) {
			continue
		}

		switch p.Type {
		case models.PercentOff:
			amount := line.UnitPrice * p.DiscountValue / 100 * float64(line.Quantity)
			res.Discount = e.stack(res.Discount, amount)

		case models.FixedOff:
			amount := p.DiscountValue * float64(line.Quantity)
			res.Discount = e.stack(res.Discount, amount)

		case models.BuyOneGetOne:
			// Buy N get N: the bonus line mirrors the purchased quantity.
			res.FreeQuantity = line.Quantity

		case models.FreeShipping:
			res.FreeShipping = true

		default:
			// Unknown promotion types are ignored rather than failing
			// the whole cart mutation.
			continue
		}

		res.Applied = append(res.Applied, Applied{
			PromotionID: p.ID,
			Type:        p.Type,
			Description: p.Description,
		})
	}

	res.Discount = clamp(res.Discount, line.UnitPrice*float64(line.Quantity))
	return res
}

func (e *Evaluator) stack(current, amount float64) float64 {
	if e.Stacking == SumAll {
		return current + amount
	}
	return amount
}

// clamp keeps the discount within [0, subtotal] so a line total can never
// go negative.
func clamp(discount, subtotal float64) float64 {
	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
