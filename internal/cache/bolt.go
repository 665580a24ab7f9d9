package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

var (
	bucketName = []byte("news_cache")
	slotKey    = []byte("cachedNewsData")
)

// BoltStore persists the snapshot slot in a bbolt file so it survives restarts.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load() (domain.CacheEntry, bool, error) {
	var (
		entry domain.CacheEntry
		found bool
	)

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get(slotKey)
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fmt.Errorf("decode cache entry: %w", err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.CacheEntry{}, false, err
	}
	return entry, found, nil
}

func (s *BoltStore) Save(entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(slotKey, raw)
	})
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(slotKey)
	})
}

func (s *BoltStore) Close() error { return s.db.Close() }
