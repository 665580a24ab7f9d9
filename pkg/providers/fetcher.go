package providers

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/ainews/internal/logger"
	"github.com/Adda-Baaj/ainews/pkg/httpclient"
)

// FetcherRegistry keeps fetchers in registration order, which is also the
// deduplication priority during aggregation.
type FetcherRegistry struct {
	mu       sync.RWMutex
	ordered  []Fetcher
	fetchers map[string]Fetcher
}

// NewFetcherRegistry builds a registry for the provided fetcher implementations.
func NewFetcherRegistry(fetchers ...Fetcher) *FetcherRegistry {
	reg := &FetcherRegistry{
		fetchers: make(map[string]Fetcher, len(fetchers)),
	}

	for _, f := range fetchers {
		if f == nil {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(f.ID()))
		if _, dup := reg.fetchers[key]; dup {
			continue
		}
		reg.fetchers[key] = f
		reg.ordered = append(reg.ordered, f)
	}

	return reg
}

// FetcherFor selects the fetcher registered under id.
func (r *FetcherRegistry) FetcherFor(id string) (Fetcher, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if key == "" {
		return nil, fmt.Errorf("provider id is empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if f, ok := r.fetchers[key]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for provider %q", id)
}

// Select returns the fetchers named by ids in registration order, or every
// fetcher when ids is empty.
func (r *FetcherRegistry) Select(ids []string) ([]Fetcher, error) {
	if len(ids) == 0 {
		return r.All(), nil
	}

	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		f, err := r.FetcherFor(id)
		if err != nil {
			return nil, err
		}
		want[strings.ToLower(f.ID())] = struct{}{}
	}

	out := make([]Fetcher, 0, len(want))
	for _, f := range r.All() {
		if _, ok := want[strings.ToLower(f.ID())]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// All returns the fetchers in registration order.
func (r *FetcherRegistry) All() []Fetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Fetcher, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// DefaultHTTPClient returns a tuned client for provider fetchers.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(MaxTimeout) }

// NewHTTPClient returns a client whose transport timeout covers the longest
// configured provider deadline, so per-call contexts stay in charge.
func NewHTTPClient(s Settings) HTTPClient {
	return httpclient.NewRestyClient(s.MaxTimeout())
}

// Settings bundles the three provider configurations.
type Settings struct {
	Guardian Provider
	NYT      Provider
	GNews    Provider
}

// MaxTimeout returns the longest request deadline among the providers,
// never below MaxTimeout.
func (s Settings) MaxTimeout() time.Duration {
	longest := MaxTimeout
	for _, p := range []Provider{s.Guardian, s.NYT, s.GNews} {
		if d := p.RequestTimeout(); d > longest {
			longest = d
		}
	}
	return longest
}

// DefaultFetcherRegistry wires the Guardian, NYT and GNews fetchers in
// aggregation order.
func DefaultFetcherRegistry(client HTTPClient, s Settings, log logger.Logger) *FetcherRegistry {
	if client == nil {
		client = DefaultHTTPClient()
	}

	return NewFetcherRegistry(
		NewGuardianFetcher(client, s.Guardian, log),
		NewNYTFetcher(client, s.NYT, log),
		NewGNewsFetcher(client, s.GNews, log),
	)
}
