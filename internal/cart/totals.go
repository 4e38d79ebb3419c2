package cart

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"item_count"`
	HasPending bool            `json:"has_pending,omitempty"`
}

// ComputeTotals derives the badge/sidebar totals from one-time items only.
// Subscription rows are left to SubscriptionTotals; the two are never
// summed. Total floors at zero even when the discount exceeds the subtotal.
func ComputeTotals(items []Item, coupon *Coupon) Totals {
	t := sum(items, false)
	if coupon != nil {
		t.Discount = coupon.DiscountOn(t.Subtotal)
	}
	t.Total = decimal.Max(t.Subtotal.Sub(t.Discount), decimal.Zero)
	return t
}

// SubscriptionTotals totals the recurring items on their own. Coupons never
// apply to them here.
func SubscriptionTotals(items []Item) Totals {
	t := sum(items, true)
	t.Total = t.Subtotal
	return t
}

func sum(items []Item, subscriptions bool) Totals {
	t := Totals{
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
	for _, item := range items {
		if item.IsSubscription != subscriptions {
			continue
		}
		t.ItemCount += item.Quantity
		if item.Pending {
			t.HasPending = true
			continue
		}
		t.Subtotal = t.Subtotal.Add(item.LineTotal())
	}
	return t
}
