package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

// Layer combines the collapse cache and the persistent slot.
//
// Writes to the slot are generation-guarded: each aggregation takes a
// generation with Begin and a Commit from an older generation than the last
// committed one is dropped, so a slow background refresh cannot overwrite a
// newer result.
type Layer struct {
	collapse *Collapse
	store    Store
	clock    clockwork.Clock
	log      logger.Logger

	gen       atomic.Uint64
	mu        sync.Mutex
	committed uint64
}

// NewLayer wires the two tiers together.
func NewLayer(collapse *Collapse, store Store, clock clockwork.Clock, log logger.Logger) *Layer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if collapse == nil {
		collapse = NewCollapse(DefaultCollapseTTL, clock)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Layer{collapse: collapse, store: store, clock: clock, log: logger.Ensure(log)}
}

// GetFresh consults the collapse cache.
func (l *Layer) GetFresh(query string) ([]domain.Article, bool) {
	return l.collapse.Get(query)
}

// GetPersisted reads the persistent slot.
func (l *Layer) GetPersisted() (domain.CacheEntry, bool, error) {
	entry, ok, err := l.store.Load()
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("load persisted cache: %w", err)
	}
	return entry, ok, nil
}

// Begin reserves the next write generation.
func (l *Layer) Begin() uint64 {
	return l.gen.Add(1)
}

// Commit refreshes the collapse entry for query and overwrites the persistent
// slot unless a newer generation has already been committed.
func (l *Layer) Commit(gen uint64, query string, articles []domain.Article) (bool, error) {
	l.collapse.Set(query, articles)

	l.mu.Lock()
	defer l.mu.Unlock()

	if gen < l.committed {
		l.log.DebugObj("stale cache write dropped", "cache_commit_stale", map[string]any{
			"generation": gen,
			"committed":  l.committed,
			"query":      query,
		})
		return false, nil
	}

	entry := domain.CacheEntry{Data: cloneArticles(articles), Timestamp: l.clock.Now(), Query: query}
	if err := l.store.Save(entry); err != nil {
		return false, fmt.Errorf("save persisted cache: %w", err)
	}
	l.committed = gen
	return true, nil
}

// Put writes unconditionally as the newest generation.
func (l *Layer) Put(query string, articles []domain.Article) error {
	_, err := l.Commit(l.Begin(), query, articles)
	return err
}

// Clear empties the persistent slot.
func (l *Layer) Clear() error {
	return l.store.Clear()
}

// Sweep evicts expired collapse entries.
func (l *Layer) Sweep() int {
	return l.collapse.Sweep()
}

// StartSweeper runs Sweep every collapse TTL until ctx is done.
func (l *Layer) StartSweeper(ctx context.Context) {
	ticker := l.clock.NewTicker(l.collapse.TTL())
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				if n := l.Sweep(); n > 0 {
					l.log.DebugObj("collapse cache swept", "cache_sweep", map[string]any{"removed": n})
				}
			}
		}
	}()
}

// Close closes the persistent store.
func (l *Layer) Close() error {
	return l.store.Close()
}
