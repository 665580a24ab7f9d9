package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

func storeRoundTrip(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	ts := time.UnixMilli(1746327721000).UTC()
	entry := domain.CacheEntry{Data: sampleArticles("a", "b"), Timestamp: ts, Query: "gpt"}
	require.NoError(t, s.Save(entry))

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gpt", got.Query)
	assert.True(t, got.Timestamp.Equal(ts))
	assert.Equal(t, entry.Data, got.Data)

	require.NoError(t, s.Save(domain.CacheEntry{Data: sampleArticles("c"), Timestamp: ts.Add(time.Minute)}))
	got, ok, err = s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.Data, 1)
	assert.Empty(t, got.Query)

	require.NoError(t, s.Clear())
	_, ok, err = s.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	storeRoundTrip(t, NewMemoryStore())
}

func TestBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ainews.db")
	s, err := OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	storeRoundTrip(t, s)
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ainews.db")

	s, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(domain.CacheEntry{Data: sampleArticles("kept"), Timestamp: time.UnixMilli(1000), Query: "q"}))
	require.NoError(t, s.Close())

	s, err = OpenBolt(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, ok, err := s.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "kept", got.Data[0].Title)
	assert.Equal(t, int64(1000), got.Timestamp.UnixMilli())
}
