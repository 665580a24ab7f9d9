package aggregator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/ainews/internal/cache"
	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/pkg/providers"
)

type stubFetcher struct {
	id       string
	articles []domain.Article
	err      error
	delay    time.Duration
	block    chan struct{}
	calls    atomic.Int32
}

func (s *stubFetcher) ID() string { return s.id }

func (s *stubFetcher) Fetch(ctx context.Context, _ string) ([]domain.Article, error) {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.articles, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events [][]domain.Article
	err    error
}

func (p *recordingPublisher) PublishSnapshot(_ context.Context, _ string, articles []domain.Article, _ time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, articles)
	return p.err
}

func art(title, url, source, published string) domain.Article {
	return domain.Article{Title: title, URL: url, Description: "about ai", Source: source, PublishedAt: published}
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MinInterval = 0
	return opts
}

func newTestAggregator(opts Options, fetchers ...providers.Fetcher) (*Aggregator, *cache.Layer) {
	clock := clockwork.NewFakeClock()
	layer := cache.NewLayer(cache.NewCollapse(30*time.Second, clock), cache.NewMemoryStore(), clock, nil)
	return New(fetchers, layer, opts, nil, WithClock(clock)), layer
}

func TestAggregateMergesDedupesAndSorts(t *testing.T) {
	guardian := &stubFetcher{id: "guardian", articles: []domain.Article{
		art("G1", "u1", "The Guardian", "2025-05-01T10:00:00Z"),
	}}
	nyt := &stubFetcher{id: "nyt", err: &providers.ProviderError{Provider: "nyt", Timeout: true, Err: errors.New("deadline")}}
	gnews := &stubFetcher{id: "gnews", articles: []domain.Article{
		art("X1", "u1", "Reuters", "2025-05-02T09:00:00Z"),
		art("X2", "u2", "Reuters", "2025-05-03T08:00:00Z"),
	}}

	agg, layer := newTestAggregator(testOptions(), guardian, nyt, gnews)

	got, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u2", got[0].URL)
	assert.Equal(t, "u1", got[1].URL)
	assert.Equal(t, "The Guardian", got[1].Source, "first occurrence in provider order wins")

	entry, ok, err := layer.GetPersisted()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gpt", entry.Query)
	assert.Equal(t, got, entry.Data)
}

func TestAggregateSortKeepsProviderOrderOnTies(t *testing.T) {
	ts := "2025-05-01T10:00:00Z"
	a := &stubFetcher{id: "guardian", articles: []domain.Article{art("A", "a", "G", ts), art("Bad", "bad", "G", "not a date")}}
	b := &stubFetcher{id: "nyt", articles: []domain.Article{art("B", "b", "N", ts), art("New", "new", "N", "2025-06-01T00:00:00Z")}}

	agg, _ := newTestAggregator(testOptions(), a, b)
	got, err := agg.Aggregate(context.Background(), "q")
	require.NoError(t, err)

	urls := make([]string, 0, len(got))
	for _, g := range got {
		urls = append(urls, g.URL)
	}
	assert.Equal(t, []string{"new", "a", "b", "bad"}, urls)
}

func TestAggregateRelevanceFilterToggle(t *testing.T) {
	offTopic := domain.Article{Title: "Cricket scores", URL: "c", Description: "weekend round-up", Source: "S", PublishedAt: "2025-05-01T10:00:00Z"}
	onTopic := domain.Article{Title: "New LLM released", URL: "l", Description: "", Source: "S", PublishedAt: "2025-05-01T09:00:00Z"}

	t.Run("on", func(t *testing.T) {
		f := &stubFetcher{id: "guardian", articles: []domain.Article{offTopic, onTopic}}
		agg, _ := newTestAggregator(testOptions(), f)
		got, err := agg.Aggregate(context.Background(), "q")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "l", got[0].URL)
	})

	t.Run("off", func(t *testing.T) {
		opts := testOptions()
		opts.RelevanceFilter = false
		f := &stubFetcher{id: "guardian", articles: []domain.Article{offTopic, onTopic}}
		agg, _ := newTestAggregator(opts, f)
		got, err := agg.Aggregate(context.Background(), "q")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestAggregateAllEmptyIsSuccess(t *testing.T) {
	agg, layer := newTestAggregator(testOptions(),
		&stubFetcher{id: "guardian"},
		&stubFetcher{id: "nyt", err: providers.ErrProviderUnavailable},
		&stubFetcher{id: "gnews", articles: []domain.Article{}},
	)

	got, err := agg.Aggregate(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	entry, ok, err := layer.GetPersisted()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DefaultQuery, entry.Query)
}

func TestAggregateAllFailed(t *testing.T) {
	pub := &recordingPublisher{}
	clock := clockwork.NewFakeClock()
	layer := cache.NewLayer(nil, cache.NewMemoryStore(), clock, nil)
	agg := New([]providers.Fetcher{
		&stubFetcher{id: "guardian", err: providers.ErrProviderUnavailable},
		&stubFetcher{id: "nyt", err: &providers.ProviderError{Provider: "nyt", StatusCode: 500, Err: errors.New("boom")}},
		&stubFetcher{id: "gnews", err: &providers.ProviderError{Provider: "gnews", StatusCode: 429, Err: errors.New("quota")}},
	}, layer, testOptions(), nil, WithClock(clock), WithPublisher(pub))

	_, err := agg.Aggregate(context.Background(), "q")
	require.ErrorIs(t, err, ErrAllProvidersFailed)

	_, ok, err := layer.GetPersisted()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, pub.events)
}

func TestAggregateCollapsesRepeatedQueries(t *testing.T) {
	f := &stubFetcher{id: "guardian", articles: []domain.Article{art("A", "a", "G", "2025-05-01T10:00:00Z")}}
	agg, _ := newTestAggregator(testOptions(), f)

	first, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background(), "  gpt  ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestAggregateConcurrentCallsShareOneFanOut(t *testing.T) {
	release := make(chan struct{})
	f := &stubFetcher{id: "guardian", block: release, articles: []domain.Article{art("A", "a", "G", "2025-05-01T10:00:00Z")}}
	agg, _ := newTestAggregator(testOptions(), f)

	const callers = 5
	var wg sync.WaitGroup
	results := make([][]domain.Article, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = agg.Aggregate(context.Background(), "gpt")
		}(i)
	}

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 1)
	}
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestAggregateCancelledWritesNothing(t *testing.T) {
	f := &stubFetcher{id: "guardian", block: make(chan struct{})}
	pub := &recordingPublisher{}
	clock := clockwork.NewFakeClock()
	layer := cache.NewLayer(nil, cache.NewMemoryStore(), clock, nil)
	agg := New([]providers.Fetcher{f}, layer, testOptions(), nil, WithClock(clock), WithPublisher(pub))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := agg.Aggregate(ctx, "gpt")
		done <- err
	}()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("aggregate did not return after cancel")
	}

	// Give the abandoned fan-out time to unwind.
	time.Sleep(20 * time.Millisecond)
	_, ok, err := layer.GetPersisted()
	require.NoError(t, err)
	assert.False(t, ok)
	_, hit := layer.GetFresh("gpt")
	assert.False(t, hit)
	assert.Empty(t, pub.events)
}

func TestAggregatePublishesSnapshot(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("sink down")}
	clock := clockwork.NewFakeClock()
	f := &stubFetcher{id: "guardian", articles: []domain.Article{art("A", "a", "G", "2025-05-01T10:00:00Z")}}
	agg := New([]providers.Fetcher{f}, nil, testOptions(), nil, WithClock(clock), WithPublisher(pub))

	got, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err, "publish errors never fail aggregation")
	require.Len(t, pub.events, 1)
	assert.Equal(t, got, pub.events[0])
}

type upperEnricher struct{}

func (upperEnricher) Enrich(_ context.Context, in []domain.Article) []domain.Article {
	out := make([]domain.Article, len(in))
	for i, a := range in {
		a.ImageURL = domain.StringPtr("https://img/" + a.URL)
		out[i] = a
	}
	return out
}

func TestAggregateRunsEnricher(t *testing.T) {
	f := &stubFetcher{id: "guardian", articles: []domain.Article{art("A", "a", "G", "2025-05-01T10:00:00Z")}}
	agg := New([]providers.Fetcher{f}, nil, testOptions(), nil, WithEnricher(upperEnricher{}))

	got, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://img/a", domain.Deref(got[0].ImageURL))
}

func TestAggregateHonoursMinInterval(t *testing.T) {
	f := &stubFetcher{id: "guardian", articles: []domain.Article{art("A", "a", "G", "2025-05-01T10:00:00Z")}}
	opts := DefaultOptions()
	opts.MinInterval = time.Hour
	agg, _ := newTestAggregator(opts, f)

	_, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = agg.Aggregate(ctx, "llm")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), f.calls.Load(), "second fan-out must wait for its slot")
}

func TestAggregateWithoutCredentialsIsEmptySuccess(t *testing.T) {
	registry := providers.DefaultFetcherRegistry(nil, providers.Settings{}, nil)
	agg, layer := newTestAggregator(testOptions(), registry.All()...)

	got, err := agg.Aggregate(context.Background(), "gpt")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got)

	entry, ok, err := layer.GetPersisted()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, entry.Data)
}

func TestAggregateFailsOnlyWhenEveryEnabledProviderFailed(t *testing.T) {
	agg, _ := newTestAggregator(testOptions(),
		&stubFetcher{id: "guardian", err: providers.ErrProviderUnavailable},
		&stubFetcher{id: "nyt", err: providers.ErrProviderUnavailable},
		&stubFetcher{id: "gnews", err: &providers.ProviderError{Provider: "gnews", Timeout: true, Err: context.DeadlineExceeded}},
	)

	_, err := agg.Aggregate(context.Background(), "gpt")
	require.ErrorIs(t, err, ErrAllProvidersFailed)
}
