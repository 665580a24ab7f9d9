package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishedTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{name: "rfc3339", raw: "2025-03-01T10:00:00Z", want: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), ok: true},
		{name: "nyt offset without colon", raw: "2025-03-01T10:00:00+0000", want: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), ok: true},
		{name: "empty", raw: "  ", ok: false},
		{name: "garbage", raw: "yesterday-ish", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Article{PublishedAt: tt.raw}.PublishedTime()
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %s", got)
			}
		})
	}
}

func TestSourcesKeepsFirstAppearanceOrder(t *testing.T) {
	got := Sources([]Article{
		{Source: "New York Times"},
		{Source: "The Guardian"},
		{Source: "New York Times"},
		{Source: ""},
		{Source: "Wired"},
	})
	assert.Equal(t, []string{"All", "New York Times", "The Guardian", "Wired"}, got)
	assert.Equal(t, []string{"All"}, Sources(nil))
}

func TestCacheEntryJSON(t *testing.T) {
	ts := time.Date(2025, 5, 4, 3, 2, 1, 0, time.UTC)
	in := CacheEntry{
		Data: []Article{{
			Title:       "GPT news",
			URL:         "https://example.com/a",
			Source:      "The Guardian",
			PublishedAt: "2025-05-04T00:00:00Z",
			ImageURL:    StringPtr("https://img.example.com/a.jpg"),
		}},
		Timestamp: ts,
		Query:     "gpt",
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"data": [{
			"title": "GPT news",
			"url": "https://example.com/a",
			"description": "",
			"source": "The Guardian",
			"publishedAt": "2025-05-04T00:00:00Z",
			"imageUrl": "https://img.example.com/a.jpg",
			"author": null
		}],
		"timestamp": 1746327721000,
		"query": "gpt"
	}`, string(raw))

	var out CacheEntry
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, ts.Equal(out.Timestamp))
	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, in.Query, out.Query)
}

func TestStringPtr(t *testing.T) {
	assert.Nil(t, StringPtr("   "))
	assert.Equal(t, "x", Deref(StringPtr(" x ")))
	assert.Equal(t, "", Deref(nil))
}
