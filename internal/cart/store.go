package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/beanline/storefront/pkg/logger"
)

// Snapshot is a read-only copy of the store's state with totals derived
// from it.
type Snapshot struct {
	Items              []Item  `json:"items"`
	Loading            bool    `json:"loading"`
	Coupon             *Coupon `json:"coupon"`
	CustomerID         uint    `json:"customer_id,omitempty"`
	Totals             Totals  `json:"totals"`
	SubscriptionTotals Totals  `json:"subscription_totals"`
}

// Store is the cart of one browser session. Only its own methods mutate
// items; everybody else reads through Snapshot or Subscribe.
//
// Mutations are applied optimistically, sent to the remote service, and
// rolled back to the pre-mutation snapshot when the service fails or says
// no. They are serialised through writeMu, so a rollback can never revert a
// concurrent mutation. SetUser(0) and Close do not wait on writeMu; they
// bump gen instead and any response belonging to an older gen is dropped.
type Store struct {
	remote    Remote
	sessionID string
	log       *logger.Logger

	writeMu sync.Mutex

	mu         sync.RWMutex
	items      []Item
	loading    bool
	coupon     *Coupon
	customerID uint
	gen        uint64
	closed     bool

	obsMu     sync.Mutex
	observers map[int]func(Snapshot)
	nextObs   int
}

func NewStore(remote Remote, sessionID string) *Store {
	return &Store{
		remote:    remote,
		sessionID: sessionID,
		log:       logger.WithContext(map[string]interface{}{"session_id": sessionID}),
		observers: make(map[int]func(Snapshot)),
	}
}

func (s *Store) SessionID() string {
	return s.sessionID
}

func (s *Store) CustomerID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.customerID
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) AppliedCoupon() *Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCoupon(s.coupon)
}

func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ComputeTotals(s.items, s.coupon)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := cloneItems(s.items)
	if items == nil {
		items = []Item{}
	}
	return Snapshot{
		Items:              items,
		Loading:            s.loading,
		Coupon:             cloneCoupon(s.coupon),
		CustomerID:         s.customerID,
		Totals:             ComputeTotals(s.items, s.coupon),
		SubscriptionTotals: SubscriptionTotals(s.items),
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change, outside the store's locks.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify() {
	s.obsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := s.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}

// Refresh replaces the items with the service's view of the cart. Any
// failure leaves the cart empty rather than stale.
func (s *Store) Refresh(ctx context.Context) Result {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked requires writeMu.
func (s *Store) refreshLocked(ctx context.Context) Result {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure(ErrClosed)
	}
	gen := s.gen
	id := s.identityLocked()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	items, err := s.remote.FetchCart(ctx, id)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Debug("Discarding refresh for superseded cart", nil)
		return success()
	}
	s.loading = false
	if err != nil {
		s.items = nil
	} else {
		s.items = items
	}
	count := len(s.items)
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.log.Warn("Cart refresh failed, cart emptied", map[string]interface{}{
			"error": err.Error(),
		})
		return failure(err)
	}

	s.log.Debug("Cart refreshed", map[string]interface{}{
		"count": count,
	})
	return success()
}

// AddItem adjusts the quantity of the (productID, extra.VariationID) line by
// delta. An existing line is updated immediately and rolled back if the
// service fails. A product not yet in the cart is inserted as a pending row
// and, once confirmed, the cart is refreshed to pick up real pricing. A
// delta that would take an existing line to zero or below removes the line.
func (s *Store) AddItem(ctx context.Context, productID int64, delta int, extra AddExtra) Result {
	if delta == 0 || productID <= 0 {
		return failure(ErrInvalidQuantity)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	key := Key{ProductID: productID, VariationID: extra.VariationID}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure(ErrClosed)
	}
	idx := indexOf(s.items, key)
	if idx >= 0 && s.items[idx].Quantity+delta <= 0 {
		s.mu.Unlock()
		return s.removeLocked(ctx, key)
	}
	if idx < 0 && delta < 0 {
		s.mu.Unlock()
		return failure(ErrInvalidQuantity)
	}

	snapshot := cloneItems(s.items)
	gen := s.gen
	id := s.identityLocked()

	next := cloneItems(s.items)
	provisional := idx < 0
	if provisional {
		next = append(next, Item{
			ProductID:      productID,
			VariationID:    extra.VariationID,
			Quantity:       delta,
			Name:           extra.Name,
			ImageURL:       extra.ImageURL,
			Description:    extra.Description,
			Attributes:     append([]Attribute(nil), extra.Attributes...),
			IsSubscription: extra.Subscription,
			Pending:        true,
		})
	} else {
		next[idx].Quantity += delta
	}
	s.items = next
	s.mu.Unlock()
	s.notify()

	err := s.remote.AddItem(ctx, id, AddRequest{ProductID: productID, Quantity: delta, Extra: extra})
	if err != nil {
		s.rollback(gen, snapshot)
		s.log.Warn("Add to cart failed, rolled back", map[string]interface{}{
			"product_id":   productID,
			"variation_id": extra.VariationID,
			"delta":        delta,
			"error":        err.Error(),
		})
		return failure(err)
	}

	s.log.Debug("Cart item adjusted", map[string]interface{}{
		"product_id":   productID,
		"variation_id": extra.VariationID,
		"delta":        delta,
		"provisional":  provisional,
	})

	if provisional && s.currentGen() == gen {
		if res := s.refreshLocked(ctx); !res.OK {
			s.log.Warn("Refresh after add failed", map[string]interface{}{
				"product_id": productID,
				"error":      res.Message,
			})
		}
	}
	return success()
}

// RemoveItem deletes the whole (productID, variationID) line regardless of
// its quantity.
func (s *Store) RemoveItem(ctx context.Context, productID, variationID int64) Result {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.removeLocked(ctx, Key{ProductID: productID, VariationID: variationID})
}

// removeLocked requires writeMu.
func (s *Store) removeLocked(ctx context.Context, key Key) Result {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure(ErrClosed)
	}
	snapshot := cloneItems(s.items)
	gen := s.gen
	id := s.identityLocked()

	next := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		if item.Key() != key {
			next = append(next, item)
		}
	}
	s.items = next
	s.mu.Unlock()
	s.notify()

	if err := s.remote.RemoveItem(ctx, id, key); err != nil {
		s.rollback(gen, snapshot)
		s.log.Warn("Remove from cart failed, rolled back", map[string]interface{}{
			"product_id":   key.ProductID,
			"variation_id": key.VariationID,
			"error":        err.Error(),
		})
		return failure(err)
	}

	s.log.Debug("Cart item removed", map[string]interface{}{
		"product_id":   key.ProductID,
		"variation_id": key.VariationID,
	})
	return success()
}

// ApplyCoupon replaces the applied coupon with the one the service returns
// for code. On any failure the current coupon stays as it was.
func (s *Store) ApplyCoupon(ctx context.Context, code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return failure(ErrInvalidCoupon)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return failure(ErrClosed)
	}
	gen := s.gen
	id := s.identityLocked()
	s.mu.RUnlock()

	coupon, err := s.remote.ApplyCoupon(ctx, id, code)
	if err != nil {
		s.log.Info("Coupon not applied", map[string]interface{}{
			"code":  code,
			"error": err.Error(),
		})
		return failure(err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return success()
	}
	s.coupon = coupon
	s.mu.Unlock()
	s.notify()

	s.log.Debug("Coupon applied", map[string]interface{}{
		"code":          coupon.Code,
		"discount_type": coupon.DiscountType,
	})
	return success()
}

// RemoveCoupon clears the coupon locally whatever the service says; the
// remote notification is best-effort.
func (s *Store) RemoveCoupon(ctx context.Context) Result {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure(ErrClosed)
	}
	id := s.identityLocked()
	s.coupon = nil
	s.mu.Unlock()
	s.notify()

	if err := s.remote.RemoveCoupon(ctx, id); err != nil {
		s.log.Warn("Remote coupon removal failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return success()
}

// SetUser records an identity transition. Logging out (customerID 0)
// clears the cart and coupon at once with no network call; logging in or
// switching customer clears them and refreshes from the service. Setting
// the current identity again is a no-op.
func (s *Store) SetUser(ctx context.Context, customerID uint) Result {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return failure(ErrClosed)
	}
	if s.customerID == customerID {
		s.mu.Unlock()
		return success()
	}
	previous := s.customerID
	s.customerID = customerID
	s.gen++
	s.items = nil
	s.coupon = nil
	s.loading = false
	s.mu.Unlock()
	s.notify()

	s.log.Info("Cart identity changed", map[string]interface{}{
		"previous_customer_id": previous,
		"customer_id":          customerID,
	})

	if customerID == 0 {
		return success()
	}
	return s.Refresh(ctx)
}

// Close disposes the store. Responses still in flight are discarded and
// every later call fails with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	s.items = nil
	s.coupon = nil
	s.loading = false
	s.mu.Unlock()

	s.obsMu.Lock()
	s.observers = make(map[int]func(Snapshot))
	s.obsMu.Unlock()
}

func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// rollback restores snapshot wholesale unless the store moved on to a new
// generation in the meantime.
func (s *Store) rollback(gen uint64, snapshot []Item) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.items = snapshot
	s.mu.Unlock()
	s.notify()
}

func (s *Store) currentGen() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

func (s *Store) identityLocked() Identity {
	return Identity{SessionID: s.sessionID, CustomerID: s.customerID}
}

func indexOf(items []Item, key Key) int {
	for i, item := range items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}
