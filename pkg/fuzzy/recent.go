package fuzzy

import (
	"sync"
	"time"

	"github.com/jwebster45206/table-assist/pkg/actorview"
)

// DefaultRecentTTL is how long inventory query results stay in context.
const DefaultRecentTTL = 5 * time.Minute

// RecentItemContext remembers the items returned by the latest inventory
// query so follow-up commands can refer to them loosely. It is shared by
// all requests and the last writer wins.
type RecentItemContext struct {
	mu        sync.Mutex
	items     []actorview.ItemCount
	timestamp time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewRecentItemContext creates a context. A nil clock uses time.Now.
func NewRecentItemContext(ttl time.Duration, now func() time.Time) *RecentItemContext {
	if ttl <= 0 {
		ttl = DefaultRecentTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RecentItemContext{ttl: ttl, now: now}
}

// Set replaces the remembered items and restarts the expiry window.
func (r *RecentItemContext) Set(items []actorview.ItemCount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append([]actorview.ItemCount(nil), items...)
	r.timestamp = r.now()
}

// Items returns the remembered items, or nil once timestamp+ttl has passed.
func (r *RecentItemContext) Items() []actorview.ItemCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 || r.now().After(r.timestamp.Add(r.ttl)) {
		return nil
	}
	return append([]actorview.ItemCount(nil), r.items...)
}
