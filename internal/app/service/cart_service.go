package service

import (
	"context"

	"github.com/beanline/storefront/internal/cart"
	"github.com/beanline/storefront/internal/session"
	"github.com/beanline/storefront/pkg/logger"
)

// AddItemInput is an add/adjust request from the browser. Quantity is a
// signed delta.
type AddItemInput struct {
	ProductID    int64
	VariationID  int64
	Quantity     int
	Name         string
	ImageURL     string
	Description  string
	Attributes   []cart.Attribute
	Subscription bool
}

// CartService resolves the session's cart store, keeps its identity in step
// with the request's customer, and runs the operation. Every method returns
// the store's snapshot after the operation, successful or not.
type CartService interface {
	GetCart(ctx context.Context, sessionID string, customerID uint) cart.Snapshot
	Refresh(ctx context.Context, sessionID string, customerID uint) (cart.Snapshot, cart.Result)
	AddItem(ctx context.Context, sessionID string, customerID uint, in AddItemInput) (cart.Snapshot, cart.Result)
	RemoveItem(ctx context.Context, sessionID string, customerID uint, productID, variationID int64) (cart.Snapshot, cart.Result)
	ApplyCoupon(ctx context.Context, sessionID string, customerID uint, code string) (cart.Snapshot, cart.Result)
	RemoveCoupon(ctx context.Context, sessionID string, customerID uint) (cart.Snapshot, cart.Result)
	Logout(ctx context.Context, sessionID string) cart.Snapshot
	Current(sessionID string) cart.Snapshot
}

type cartService struct {
	registry *session.Registry
}

func NewCartService(registry *session.Registry) CartService {
	return &cartService{registry: registry}
}

// storeFor returns the session's store, switching it to customerID when the
// request carries a different signed-in customer. A request without a usable
// token keeps the current identity; only Logout clears it.
func (s *cartService) storeFor(ctx context.Context, sessionID string, customerID uint) *cart.Store {
	store, created := s.registry.Get(ctx, sessionID, customerID)
	if !created && customerID != 0 && store.CustomerID() != customerID {
		logger.Info("Reconciling cart identity", map[string]interface{}{
			"session_id":  sessionID,
			"customer_id": customerID,
		})
		store.SetUser(ctx, customerID)
	}
	return store
}

func (s *cartService) GetCart(ctx context.Context, sessionID string, customerID uint) cart.Snapshot {
	return s.storeFor(ctx, sessionID, customerID).Snapshot()
}

func (s *cartService) Refresh(ctx context.Context, sessionID string, customerID uint) (cart.Snapshot, cart.Result) {
	store := s.storeFor(ctx, sessionID, customerID)
	res := store.Refresh(ctx)
	return store.Snapshot(), res
}

func (s *cartService) AddItem(ctx context.Context, sessionID string, customerID uint, in AddItemInput) (cart.Snapshot, cart.Result) {
	logger.Debug("Adding item to cart", map[string]interface{}{
		"session_id":   sessionID,
		"product_id":   in.ProductID,
		"variation_id": in.VariationID,
		"quantity":     in.Quantity,
	})

	store := s.storeFor(ctx, sessionID, customerID)
	res := store.AddItem(ctx, in.ProductID, in.Quantity, cart.AddExtra{
		VariationID:  in.VariationID,
		Name:         in.Name,
		ImageURL:     in.ImageURL,
		Description:  in.Description,
		Attributes:   in.Attributes,
		Subscription: in.Subscription,
	})
	return store.Snapshot(), res
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID string, customerID uint, productID, variationID int64) (cart.Snapshot, cart.Result) {
	store := s.storeFor(ctx, sessionID, customerID)
	res := store.RemoveItem(ctx, productID, variationID)
	return store.Snapshot(), res
}

func (s *cartService) ApplyCoupon(ctx context.Context, sessionID string, customerID uint, code string) (cart.Snapshot, cart.Result) {
	store := s.storeFor(ctx, sessionID, customerID)
	res := store.ApplyCoupon(ctx, code)
	return store.Snapshot(), res
}

func (s *cartService) RemoveCoupon(ctx context.Context, sessionID string, customerID uint) (cart.Snapshot, cart.Result) {
	store := s.storeFor(ctx, sessionID, customerID)
	res := store.RemoveCoupon(ctx)
	return store.Snapshot(), res
}

// Logout clears the session's cart identity. A session without a store has
// nothing to clear and gets an empty snapshot.
func (s *cartService) Logout(ctx context.Context, sessionID string) cart.Snapshot {
	store, ok := s.registry.Lookup(sessionID)
	if !ok {
		return emptySnapshot()
	}
	store.SetUser(ctx, 0)
	logger.Info("Session logged out", map[string]interface{}{
		"session_id": sessionID,
	})
	return store.Snapshot()
}

// Current reads the session's snapshot without creating, loading or
// re-identifying the store, so it never waits on the network.
func (s *cartService) Current(sessionID string) cart.Snapshot {
	store, ok := s.registry.Lookup(sessionID)
	if !ok {
		return emptySnapshot()
	}
	return store.Snapshot()
}

func emptySnapshot() cart.Snapshot {
	return cart.Snapshot{Items: []cart.Item{}, Totals: cart.ComputeTotals(nil, nil), SubscriptionTotals: cart.SubscriptionTotals(nil)}
}
