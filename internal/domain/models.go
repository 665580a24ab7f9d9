package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Domain contains the canonical models shared by providers, caches and the controller.

// AllSources is the pseudo-source that disables source filtering.
const AllSources = "All"

// Article is the canonical, provider-independent news record.
type Article struct {
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Description string  `json:"description"`
	Source      string  `json:"source"`
	PublishedAt string  `json:"publishedAt"`
	ImageURL    *string `json:"imageUrl"`
	Author      *string `json:"author"`
}

// PublishedTime parses PublishedAt leniently. The bool is false when the value is
// empty or not a recognisable timestamp.
func (a Article) PublishedTime() (time.Time, bool) {
	raw := strings.TrimSpace(a.PublishedAt)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	t, err := dateparse.ParseStrict(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CacheEntry is the persisted aggregation snapshot.
type CacheEntry struct {
	Data      []Article `json:"data"`
	Timestamp time.Time `json:"-"`
	Query     string    `json:"query"`
}

// cacheEntryWire keeps the stored timestamp as unix milliseconds.
type cacheEntryWire struct {
	Data      []Article `json:"data"`
	Timestamp int64     `json:"timestamp"`
	Query     string    `json:"query"`
}

func (e CacheEntry) MarshalJSON() ([]byte, error) {
	data := e.Data
	if data == nil {
		data = []Article{}
	}
	return json.Marshal(cacheEntryWire{
		Data:      data,
		Timestamp: e.Timestamp.UnixMilli(),
		Query:     e.Query,
	})
}

func (e *CacheEntry) UnmarshalJSON(b []byte) error {
	var w cacheEntryWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.Data = w.Data
	e.Timestamp = time.UnixMilli(w.Timestamp).UTC()
	e.Query = w.Query
	return nil
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.Timestamp)
}

// Sources returns "All" followed by the distinct sources of articles, in order
// of first appearance.
func Sources(articles []Article) []string {
	out := []string{AllSources}
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if a.Source == "" {
			continue
		}
		if _, ok := seen[a.Source]; ok {
			continue
		}
		seen[a.Source] = struct{}{}
		out = append(out, a.Source)
	}
	return out
}

// StringPtr returns a pointer to the trimmed value, or nil when it is empty.
func StringPtr(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
