package service

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/beanline/storefront/internal/cart"
	"github.com/beanline/storefront/pkg/money"
)

// CartView is the JSON shape of a cart snapshot as the browser sees it:
// decimals for arithmetic plus preformatted strings for display.
type CartView struct {
	Items              []ItemView  `json:"items"`
	Loading            bool        `json:"loading"`
	Coupon             *CouponView `json:"coupon"`
	LoggedIn           bool        `json:"logged_in"`
	Totals             TotalsView  `json:"totals"`
	SubscriptionTotals TotalsView  `json:"subscription_totals"`
}

type ItemView struct {
	cart.Item
	LineTotal          decimal.Decimal `json:"line_total"`
	UnitPriceFormatted string          `json:"unit_price_formatted"`
	LineTotalFormatted string          `json:"line_total_formatted"`
}

type CouponView struct {
	cart.Coupon
	AmountFormatted string `json:"amount_formatted"`
}

type TotalsView struct {
	cart.Totals
	SubtotalFormatted string `json:"subtotal_formatted"`
	DiscountFormatted string `json:"discount_formatted"`
	TotalFormatted    string `json:"total_formatted"`
}

// CartEvent is pushed down the websocket on every state change.
type CartEvent struct {
	Type string   `json:"type"`
	Cart CartView `json:"cart"`
}

func NewCartView(snap cart.Snapshot, f *money.Formatter) CartView {
	items := make([]ItemView, len(snap.Items))
	for i, item := range snap.Items {
		line := item.LineTotal()
		items[i] = ItemView{
			Item:               item,
			LineTotal:          line,
			UnitPriceFormatted: f.Format(item.UnitPrice),
			LineTotalFormatted: f.Format(line),
		}
	}

	var coupon *CouponView
	if snap.Coupon != nil {
		amount := f.Format(snap.Coupon.Amount)
		if strings.EqualFold(string(snap.Coupon.DiscountType), string(cart.DiscountPercent)) {
			amount = snap.Coupon.Amount.String() + "%"
		}
		coupon = &CouponView{Coupon: *snap.Coupon, AmountFormatted: amount}
	}

	return CartView{
		Items:              items,
		Loading:            snap.Loading,
		Coupon:             coupon,
		LoggedIn:           snap.CustomerID != 0,
		Totals:             newTotalsView(snap.Totals, f),
		SubscriptionTotals: newTotalsView(snap.SubscriptionTotals, f),
	}
}

func newTotalsView(t cart.Totals, f *money.Formatter) TotalsView {
	return TotalsView{
		Totals:            t,
		SubtotalFormatted: f.Format(t.Subtotal),
		DiscountFormatted: f.Format(t.Discount),
		TotalFormatted:    f.Format(t.Total),
	}
}
