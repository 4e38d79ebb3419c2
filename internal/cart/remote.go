package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/beanline/storefront/pkg/commerce"
)

// Identity is what the store presents to the remote service: the browser
// session and, once logged in, the customer.
type Identity struct {
	SessionID  string
	CustomerID uint
}

// AddRequest is an add/adjust mutation as sent to the remote service.
type AddRequest struct {
	ProductID int64
	Quantity  int
	Extra     AddExtra
}

// Remote is the cart service as the store consumes it. Implementations
// return errors wrapping ErrNetwork, ErrRejected (typically *RejectedError)
// or ErrMalformed.
type Remote interface {
	FetchCart(ctx context.Context, id Identity) ([]Item, error)
	AddItem(ctx context.Context, id Identity, req AddRequest) error
	RemoveItem(ctx context.Context, id Identity, key Key) error
	ApplyCoupon(ctx context.Context, id Identity, code string) (*Coupon, error)
	RemoveCoupon(ctx context.Context, id Identity) error
}

// CommerceRemote adapts the HTTP commerce client to Remote. It is the
// ingestion boundary: prices and attributes are normalised here.
type CommerceRemote struct {
	client *commerce.Client
}

func NewCommerceRemote(client *commerce.Client) *CommerceRemote {
	return &CommerceRemote{client: client}
}

func (r *CommerceRemote) FetchCart(ctx context.Context, id Identity) ([]Item, error) {
	resp, err := r.client.GetCart(ctx, credentials(id))
	if err != nil {
		return nil, classify(err)
	}
	if !resp.OK {
		return nil, &RejectedError{Message: resp.Error}
	}
	if resp.Cart == nil {
		return nil, fmt.Errorf("%w: cart missing from response", ErrMalformed)
	}
	return fromCommerceCart(resp.Cart), nil
}

func (r *CommerceRemote) AddItem(ctx context.Context, id Identity, req AddRequest) error {
	resp, err := r.client.AddItem(ctx, credentials(id), commerce.AddItemRequest{
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		VariationID:    req.Extra.VariationID,
		Name:           req.Extra.Name,
		ImageURL:       req.Extra.ImageURL,
		Description:    req.Extra.Description,
		Attributes:     toCommerceAttributes(req.Extra.Attributes),
		IsSubscription: req.Extra.Subscription,
	})
	if err != nil {
		return classify(err)
	}
	if !resp.OK {
		return &RejectedError{Message: resp.Error}
	}
	return nil
}

func (r *CommerceRemote) RemoveItem(ctx context.Context, id Identity, key Key) error {
	resp, err := r.client.RemoveItem(ctx, credentials(id), commerce.RemoveItemRequest{
		ProductID:   key.ProductID,
		VariationID: key.VariationID,
	})
	if err != nil {
		return classify(err)
	}
	if !resp.OK {
		return &RejectedError{Message: resp.Error}
	}
	return nil
}

func (r *CommerceRemote) ApplyCoupon(ctx context.Context, id Identity, code string) (*Coupon, error) {
	resp, err := r.client.ApplyCoupon(ctx, credentials(id), code)
	if err != nil {
		return nil, classify(err)
	}
	if !resp.Success || resp.Coupon == nil {
		return nil, &RejectedError{Message: resp.Message}
	}
	return &Coupon{
		Code:         resp.Coupon.Code,
		DiscountType: DiscountType(resp.Coupon.DiscountType),
		Amount:       resp.Coupon.Amount,
	}, nil
}

func (r *CommerceRemote) RemoveCoupon(ctx context.Context, id Identity) error {
	if err := r.client.RemoveCoupon(ctx, credentials(id)); err != nil {
		return classify(err)
	}
	return nil
}

func credentials(id Identity) commerce.Credentials {
	return commerce.Credentials{SessionID: id.SessionID, CustomerID: id.CustomerID}
}

func classify(err error) error {
	if errors.Is(err, commerce.ErrMalformedResponse) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func fromCommerceCart(c *commerce.Cart) []Item {
	items := make([]Item, 0, len(c.Products)+len(c.SubscriptionProducts))
	for _, li := range c.Products {
		if li.Quantity > 0 {
			items = append(items, fromLineItem(li, false))
		}
	}
	for _, li := range c.SubscriptionProducts {
		if li.Quantity > 0 {
			items = append(items, fromLineItem(li, true))
		}
	}
	return items
}

func fromLineItem(li commerce.LineItem, subscription bool) Item {
	var attrs []Attribute
	for _, a := range li.Attributes {
		attrs = append(attrs, Attribute{Name: a.Name, Value: a.Value})
	}
	return Item{
		ProductID:      li.ProductID,
		VariationID:    li.VariationID,
		Quantity:       li.Quantity,
		UnitPrice:      li.Price.Amount,
		Name:           li.Name,
		ImageURL:       li.ImageURL,
		Description:    li.Description,
		Attributes:     attrs,
		IsSubscription: subscription,
	}
}

func toCommerceAttributes(attrs []Attribute) commerce.Attributes {
	if len(attrs) == 0 {
		return nil
	}
	out := make(commerce.Attributes, len(attrs))
	for i, a := range attrs {
		out[i] = commerce.Attribute{Name: a.Name, Value: a.Value}
	}
	return out
}
