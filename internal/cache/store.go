package cache

import (
	"sync"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

// Store is the persistent single-slot snapshot store.
type Store interface {
	// Load returns the stored entry; ok is false when the slot is empty.
	Load() (entry domain.CacheEntry, ok bool, err error)
	// Save overwrites the slot.
	Save(entry domain.CacheEntry) error
	// Clear empties the slot.
	Clear() error
	Close() error
}

// MemoryStore keeps the slot in process memory. Used when no cache path is
// configured and in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	entry *domain.CacheEntry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load() (domain.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.entry == nil {
		return domain.CacheEntry{}, false, nil
	}
	e := *s.entry
	e.Data = cloneArticles(e.Data)
	return e, true, nil
}

func (s *MemoryStore) Save(entry domain.CacheEntry) error {
	entry.Data = cloneArticles(entry.Data)
	s.mu.Lock()
	s.entry = &entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
