package commerce

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Credentials identify whose cart a request addresses. They travel as
// cookies; the storefront never forwards bearer tokens to the cart service.
type Credentials struct {
	SessionID  string
	CustomerID uint
}

// Price is a per-unit price as the cart service reports it. The service is
// inconsistent about shape: line items carry {"finalPrice": x}, legacy
// endpoints send a bare number or numeric string. Both decode to Amount.
type Price struct {
	Amount decimal.Decimal
}

func NewPrice(amount decimal.Decimal) Price {
	return Price{Amount: amount}
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		FinalPrice decimal.Decimal `json:"finalPrice"`
	}{p.Amount})
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		p.Amount = decimal.Zero
		return nil
	}

	if data[0] == '{' {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(data, &nested); err != nil {
			return fmt.Errorf("price object: %w", err)
		}
		for _, key := range []string{"finalPrice", "final_price"} {
			if raw, ok := nested[key]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
				var amount decimal.Decimal
				if err := amount.UnmarshalJSON(raw); err != nil {
					return fmt.Errorf("price %s: %w", key, err)
				}
				p.Amount = amount
				return nil
			}
		}
		p.Amount = decimal.Zero
		return nil
	}

	var amount decimal.Decimal
	if err := amount.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	p.Amount = amount
	return nil
}

// Attribute is one display attribute of a line item, e.g. weight=250g.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attributes keeps the order the service sent. It decodes from either an
// array of {name, value} pairs or a JSON object, walking the object's tokens
// so key order survives.
type Attributes []Attribute

func (a *Attributes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}

	if data[0] == '[' {
		var pairs []Attribute
		if err := json.Unmarshal(data, &pairs); err != nil {
			return fmt.Errorf("attributes: %w", err)
		}
		*a = pairs
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("attributes: %w", err)
	}

	var out Attributes
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("attributes: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("attributes: unexpected key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("attributes %s: %w", name, err)
		}
		out = append(out, Attribute{Name: name, Value: attributeValue(raw)})
	}
	*a = out
	return nil
}

func attributeValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// LineItem is one cart row in the service's representation.
type LineItem struct {
	ProductID   int64      `json:"productId"`
	VariationID int64      `json:"variationId,omitempty"`
	Quantity    int        `json:"quantity"`
	Price       Price      `json:"price"`
	Name        string     `json:"name"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Description string     `json:"description,omitempty"`
	Attributes  Attributes `json:"attributes,omitempty"`
}

type Cart struct {
	Products             []LineItem `json:"products"`
	SubscriptionProducts []LineItem `json:"subscription_products"`
}

type CartResponse struct {
	OK    bool   `json:"ok"`
	Cart  *Cart  `json:"cart,omitempty"`
	Error string `json:"error,omitempty"`
}

// AddItemRequest adjusts a line by Quantity (which may be negative) or
// creates it when absent.
type AddItemRequest struct {
	ProductID      int64      `json:"productId"`
	Quantity       int        `json:"quantity"`
	VariationID    int64      `json:"variationId,omitempty"`
	Name           string     `json:"name,omitempty"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	Description    string     `json:"description,omitempty"`
	Attributes     Attributes `json:"attributes,omitempty"`
	IsSubscription bool       `json:"isSubscription,omitempty"`
}

type RemoveItemRequest struct {
	ProductID   int64 `json:"productId"`
	VariationID int64 `json:"variationId,omitempty"`
}

type MutationResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Coupon discount types understood by the service.
const (
	DiscountPercent   = "percent"
	DiscountFixedCart = "fixed_cart"
)

type Coupon struct {
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Amount       decimal.Decimal `json:"amount"`
}

type CouponResponse struct {
	Success bool    `json:"success"`
	Coupon  *Coupon `json:"coupon,omitempty"`
	Message string  `json:"message,omitempty"`
}
