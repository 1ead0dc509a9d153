package order

import (
	"sort"
	"time"

	"mango-store/internal/models"

	"github.com/google/uuid"
)

// The splitter partitions a multi-vendor cart or order into one order per
// vendor. It only builds the in-memory orders; persistence (and the
// delete-source-last guard) lives in the DB layer so the whole fan-out is
// one transaction.

// groupCartByVendor partitions cart lines by the owning product's vendor.
// Free lines follow their product's vendor like any other line.
func groupCartByVendor(items []*models.CartItem) map[string][]*models.CartItem {
	groups := make(map[string][]*models.CartItem)
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		vendorID := item.Product.VendorID
		groups[vendorID] = append(groups[vendorID], item)
	}
	return groups
}

func groupDetailsByVendor(details []*models.OrderDetail) map[string][]*models.OrderDetail {
	groups := make(map[string][]*models.OrderDetail)
	for _, detail := range details {
		if detail.Product == nil {
			continue
		}
		vendorID := detail.Product.VendorID
		groups[vendorID] = append(groups[vendorID], detail)
	}
	return groups
}

func sortedVendorIDs[T any](groups map[string][]T) []string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// totalForDetails sums the non-free details: price × quantity − discount.
func totalForDetails(details []*models.OrderDetail) float64 {
	var total float64
	for _, d := range details {
		total += d.LineTotal()
	}
	return total
}

// detailFromCartItem snapshots a cart line into an order detail. Price is
// captured from the product at this moment and never follows later
// product price changes.
func detailFromCartItem(orderID string, item *models.CartItem) *models.OrderDetail {
	return &models.OrderDetail{
		ID:              uuid.NewString(),
		OrderID:         orderID,
		ProductID:       item.ProductID,
		Quantity:        item.Quantity,
		Price:           item.Product.Price,
		Discount:        item.Discount,
		ShippingAddress: item.ShippingAddress,
		IsFree:          item.IsFree,
		Product:         item.Product,
	}
}

// BuildVendorOrders splits a cart into one paid order per vendor, each
// carrying the shared payment slip and its own total.
func BuildVendorOrders(cart *models.Cart, userID, paymentSlip string) []*models.Order {
	groups := groupCartByVendor(cart.Items)

	orders := make([]*models.Order, 0, len(groups))
	for _, vendorID := range sortedVendorIDs(groups) {
		items := groups[vendorID]
		o := &models.Order{
			ID:           uuid.NewString(),
			UserID:       userID,
			Status:       models.StatusPaid,
			FreeShipping: cart.FreeShipping,
			PaymentSlip:  paymentSlip,
			CreatedAt:    time.Now(),
		}
		for _, item := range items {
			o.Details = append(o.Details, detailFromCartItem(o.ID, item))
		}
		o.TotalPrice = totalForDetails(o.Details)
		orders = append(orders, o)
	}
	return orders
}

// BuildSingleOrder covers the deferred-payment path: one pending order
// over the whole cart, regardless of vendor count. It is split later,
// when the payment slip arrives.
func BuildSingleOrder(cart *models.Cart, userID string) *models.Order {
	o := &models.Order{
		ID:           uuid.NewString(),
		UserID:       userID,
		Status:       models.StatusPending,
		FreeShipping: cart.FreeShipping,
		CreatedAt:    time.Now(),
	}
	for _, item := range cart.Items {
		o.Details = append(o.Details, detailFromCartItem(o.ID, item))
	}
	o.TotalPrice = totalForDetails(o.Details)
	return o
}

// SplitOrder fans an unsplit order out into one paid order per vendor.
// Every resulting order inherits the source's payment slip; details keep
// their snapshotted price and discount. The source order is replaced, not
// appended to: the caller deletes it in the same transaction.
func SplitOrder(source *models.Order) []*models.Order {
	groups := groupDetailsByVendor(source.Details)

	orders := make([]*models.Order, 0, len(groups))
	for _, vendorID := range sortedVendorIDs(groups) {
		details := groups[vendorID]
		o := &models.Order{
			ID:           uuid.NewString(),
			UserID:       source.UserID,
			Status:       models.StatusPaid,
			FreeShipping: source.FreeShipping,
			PaymentSlip:  source.PaymentSlip,
			CreatedAt:    time.Now(),
		}
		for _, detail := range details {
			o.Details = append(o.Details, &models.OrderDetail{
				ID:              uuid.NewString(),
				OrderID:         o.ID,
				ProductID:       detail.ProductID,
				Quantity:        detail.Quantity,
				Price:           detail.Price,
				Discount:        detail.Discount,
				ShippingAddress: detail.ShippingAddress,
				IsFree:          detail.IsFree,
				Product:         detail.Product,
			})
		}
		o.TotalPrice = totalForDetails(o.Details)
		orders = append(orders, o)
	}
	return orders
}
