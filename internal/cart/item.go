// Package cart holds the session-scoped cart state of the storefront: line
// items, the applied coupon, the optimistic mutation engine that keeps that
// state in step with the remote cart service, and the derived totals.
package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Key is the natural identity of a line item. VariationID 0 means "no
// variation".
type Key struct {
	ProductID   int64
	VariationID int64
}

type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Item is one cart row. UnitPrice is already normalised to a single
// decimal when the item is built; nothing past ingestion inspects the
// service's price shape.
type Item struct {
	ProductID      int64           `json:"product_id"`
	VariationID    int64           `json:"variation_id"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Name           string          `json:"name"`
	ImageURL       string          `json:"image_url,omitempty"`
	Description    string          `json:"description,omitempty"`
	Attributes     []Attribute     `json:"attributes,omitempty"`
	IsSubscription bool            `json:"is_subscription"`

	// Pending marks a row inserted before the service confirmed it. Its
	// price is unknown and counts as zero until the next refresh.
	Pending bool `json:"pending,omitempty"`
}

func (i Item) Key() Key {
	return Key{ProductID: i.ProductID, VariationID: i.VariationID}
}

// LineTotal is UnitPrice × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddExtra carries the optional parts of an add: the variation and the
// display metadata forwarded to the service.
type AddExtra struct {
	VariationID  int64
	Name         string
	ImageURL     string
	Description  string
	Attributes   []Attribute
	Subscription bool
}

type DiscountType string

const (
	DiscountPercent   DiscountType = "percent"
	DiscountFixedCart DiscountType = "fixed_cart"
)

type Coupon struct {
	Code         string          `json:"code"`
	DiscountType DiscountType    `json:"discount_type"`
	Amount       decimal.Decimal `json:"amount"`
}

// DiscountOn returns the discount this coupon grants on subtotal, never
// negative. Unknown discount types grant nothing.
func (c Coupon) DiscountOn(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch DiscountType(strings.ToLower(string(c.DiscountType))) {
	case DiscountPercent:
		discount = subtotal.Mul(c.Amount).Div(decimal.NewFromInt(100))
	case DiscountFixedCart:
		discount = c.Amount
	default:
		return decimal.Zero
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		if item.Attributes != nil {
			out[i].Attributes = append([]Attribute(nil), item.Attributes...)
		}
	}
	return out
}

func cloneCoupon(c *Coupon) *Coupon {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
