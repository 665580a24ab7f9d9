package cache

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic cache key
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

// DefaultCollapseTTL is how long identical queries share one result.
const DefaultCollapseTTL = 30 * time.Second

// Collapse is the short-lived in-memory cache that merges repeated requests
// for the same query. It is an optimisation only; staleness policy lives in
// the persistent store.
type Collapse struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock clockwork.Clock
	items map[string]collapseEntry
}

type collapseEntry struct {
	articles []domain.Article
	storedAt time.Time
}

// NewCollapse creates a collapse cache. A nil clock means wall time.
func NewCollapse(ttl time.Duration, clock clockwork.Clock) *Collapse {
	if ttl <= 0 {
		ttl = DefaultCollapseTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Collapse{
		ttl:   ttl,
		clock: clock,
		items: make(map[string]collapseEntry),
	}
}

// Key hashes a normalized query into the map key.
func Key(query string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(query))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// TTL returns the freshness window.
func (c *Collapse) TTL() time.Duration { return c.ttl }

// Get returns a copy of the stored list when it is younger than the TTL.
func (c *Collapse) Get(query string) ([]domain.Article, bool) {
	c.mu.RLock()
	e, ok := c.items[Key(query)]
	c.mu.RUnlock()
	if !ok || c.clock.Since(e.storedAt) >= c.ttl {
		return nil, false
	}
	return cloneArticles(e.articles), true
}

// Set stores the list for query, replacing any previous entry.
func (c *Collapse) Set(query string, articles []domain.Article) {
	c.mu.Lock()
	c.items[Key(query)] = collapseEntry{articles: cloneArticles(articles), storedAt: c.clock.Now()}
	c.mu.Unlock()
}

// Sweep removes entries older than twice the TTL and reports how many went.
func (c *Collapse) Sweep() int {
	cutoff := c.clock.Now().Add(-2 * c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if e.storedAt.Before(cutoff) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (c *Collapse) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func cloneArticles(in []domain.Article) []domain.Article {
	if in == nil {
		return []domain.Article{}
	}
	out := make([]domain.Article, len(in))
	copy(out, in)
	return out
}
