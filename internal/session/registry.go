// Package session keeps one cart store per browser session and retires the
// ones nobody has touched for a while.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/beanline/storefront/internal/cart"
	"github.com/beanline/storefront/pkg/logger"
)

// Publisher receives every snapshot of every live store.
type Publisher interface {
	PublishSnapshot(sessionID string, snap cart.Snapshot)
	SessionClosed(sessionID string)
}

// Presence is implemented by publishers that know whether a session still
// has a listener attached. Sweep keeps those sessions alive.
type Presence interface {
	IsSessionOnline(sessionID string) bool
}

type entry struct {
	store       *cart.Store
	lastSeen    time.Time
	unsubscribe func()
}

type Registry struct {
	remote    cart.Remote
	publisher Publisher
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

// NewRegistry builds an empty registry. publisher may be nil.
func NewRegistry(remote cart.Remote, publisher Publisher) *Registry {
	return &Registry{
		remote:    remote,
		publisher: publisher,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

// Get returns the session's store, creating and loading it for customerID
// (0 for a guest) on first use. created reports whether this call made the
// store. An existing store is returned as is; identity changes go through
// Store.SetUser.
func (r *Registry) Get(ctx context.Context, sessionID string, customerID uint) (store *cart.Store, created bool) {
	r.mu.Lock()
	if e, ok := r.entries[sessionID]; ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.store, false
	}

	store = cart.NewStore(r.remote, sessionID)
	e := &entry{store: store, lastSeen: r.now()}
	if r.publisher != nil {
		e.unsubscribe = store.Subscribe(func(snap cart.Snapshot) {
			r.publisher.PublishSnapshot(sessionID, snap)
		})
	}
	r.entries[sessionID] = e
	r.mu.Unlock()

	logger.Debug("Cart store created", map[string]interface{}{
		"session_id": sessionID,
	})

	// an empty cart is still a usable cart; failures are already logged
	if customerID != 0 {
		store.SetUser(ctx, customerID)
	} else {
		store.Refresh(ctx)
	}
	return store, true
}

// Lookup returns the store without creating one.
func (r *Registry) Lookup(sessionID string) (*cart.Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[sessionID]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

// Remove closes and forgets the session's store.
func (r *Registry) Remove(sessionID string) bool {
	r.mu.Lock()
	e, ok := r.entries[sessionID]
	delete(r.entries, sessionID)
	r.mu.Unlock()

	if ok {
		r.retire(sessionID, e)
	}
	return ok
}

// Sweep closes every store idle for longer than ttl and returns how many
// were closed. A session with a listener online counts as active.
func (r *Registry) Sweep(ttl time.Duration) int {
	now := r.now()
	cutoff := now.Add(-ttl)
	presence, _ := r.publisher.(Presence)

	r.mu.Lock()
	idle := make(map[string]*entry)
	for sid, e := range r.entries {
		if !e.lastSeen.Before(cutoff) {
			continue
		}
		if presence != nil && presence.IsSessionOnline(sid) {
			e.lastSeen = now
			continue
		}
		idle[sid] = e
		delete(r.entries, sid)
	}
	r.mu.Unlock()

	for sid, e := range idle {
		r.retire(sid, e)
	}
	return len(idle)
}

// CloseAll retires every store, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for sid, e := range all {
		r.retire(sid, e)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SessionIDs lists live sessions in sorted order.
func (r *Registry) SessionIDs() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for sid := range r.entries {
		ids = append(ids, sid)
	}
	r.mu.Unlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) retire(sessionID string, e *entry) {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.store.Close()
	if r.publisher != nil {
		r.publisher.SessionClosed(sessionID)
	}
	logger.Debug("Cart store closed", map[string]interface{}{
		"session_id": sessionID,
	})
}
