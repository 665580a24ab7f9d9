package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/Adda-Baaj/ainews/internal/cache"
	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
	"github.com/Adda-Baaj/ainews/pkg/providers"
)

// ErrAllProvidersFailed is returned when every enabled provider failed.
// It differs from a successful aggregation that found nothing.
var ErrAllProvidersFailed = errors.New("all providers failed")

// DefaultQuery is searched when the user query is blank.
const DefaultQuery = `("artificial intelligence" OR "machine learning" OR "AI" OR "Deep Learning")`

// DefaultMinInterval spaces consecutive fan-outs.
const DefaultMinInterval = time.Second

// Enricher fills gaps in the final article list (images, descriptions).
type Enricher interface {
	Enrich(ctx context.Context, articles []domain.Article) []domain.Article
}

// Publisher receives every successful aggregation.
type Publisher interface {
	PublishSnapshot(ctx context.Context, query string, articles []domain.Article, fetchedAt time.Time) error
}

// Options tune aggregation behaviour.
type Options struct {
	DefaultQuery    string
	RelevanceFilter bool
	Keywords        []string
	// MinInterval is the minimum gap between fan-outs; 0 disables pacing.
	MinInterval time.Duration
}

// DefaultOptions returns the stock settings.
func DefaultOptions() Options {
	return Options{
		DefaultQuery:    DefaultQuery,
		RelevanceFilter: true,
		Keywords:        append([]string(nil), DefaultKeywords...),
		MinInterval:     DefaultMinInterval,
	}
}

// Outcome is the result of one provider call inside a fan-out.
type Outcome struct {
	Provider string
	Articles []domain.Article
	Err      error
}

// OK reports whether the provider answered.
func (o Outcome) OK() bool { return o.Err == nil }

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithEnricher runs e over every aggregated list before it is cached.
func WithEnricher(e Enricher) Option {
	return func(a *Aggregator) { a.enricher = e }
}

// WithPublisher forwards every aggregated list to p.
func WithPublisher(p Publisher) Option {
	return func(a *Aggregator) { a.publisher = p }
}

// WithClock overrides the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(a *Aggregator) {
		if c != nil {
			a.clock = c
		}
	}
}

// Aggregator fans a query out to every provider and merges the answers.
type Aggregator struct {
	fetchers  []providers.Fetcher
	cache     *cache.Layer
	opts      Options
	keywords  []string
	limiter   *rate.Limiter
	group     singleflight.Group
	enricher  Enricher
	publisher Publisher
	clock     clockwork.Clock
	log       logger.Logger
}

// New builds an Aggregator over fetchers, which are merged in the given order.
func New(fetchers []providers.Fetcher, layer *cache.Layer, opts Options, log logger.Logger, options ...Option) *Aggregator {
	if opts.DefaultQuery == "" {
		opts.DefaultQuery = DefaultQuery
	}
	if len(opts.Keywords) == 0 {
		opts.Keywords = DefaultKeywords
	}

	a := &Aggregator{
		fetchers: fetchers,
		cache:    layer,
		opts:     opts,
		keywords: normalizeKeywords(opts.Keywords),
		clock:    clockwork.NewRealClock(),
		log:      logger.Ensure(log),
	}
	if a.cache == nil {
		a.cache = cache.NewLayer(nil, nil, nil, log)
	}
	if opts.MinInterval > 0 {
		a.limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}
	for _, o := range options {
		o(a)
	}
	return a
}

// NormalizeQuery trims query and substitutes the default when it is blank.
func (a *Aggregator) NormalizeQuery(query string) string {
	return Normalize(query, a.opts.DefaultQuery)
}

// Aggregate returns the merged, deduplicated and sorted article list for query.
//
// It fails only when ctx is done or with ErrAllProvidersFailed. Concurrent
// calls for the same query share a single fan-out.
func (a *Aggregator) Aggregate(ctx context.Context, query string) ([]domain.Article, error) {
	q := a.NormalizeQuery(query)

	if articles, ok := a.cache.GetFresh(q); ok {
		a.log.DebugObj("serving collapsed result", "aggregate_cache_hit", map[string]any{
			"query":    q,
			"articles": len(articles),
		})
		return articles, nil
	}

	for {
		ch := a.group.DoChan(cache.Key(q), func() (any, error) {
			return a.run(ctx, q)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				// The shared call belonged to a caller that gave up; retry under ours.
				if res.Shared && providers.IsCancellation(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			articles, _ := res.Val.([]domain.Article)
			out := make([]domain.Article, len(articles))
			copy(out, articles)
			return out, nil
		}
	}
}

func (a *Aggregator) run(ctx context.Context, q string) ([]domain.Article, error) {
	gen := a.cache.Begin()

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("wait for fan-out slot: %w", context.DeadlineExceeded)
		}
	}

	started := a.clock.Now()
	outcomes := a.fanOut(ctx, q)
	if err := ctx.Err(); err != nil {
		a.log.DebugObj("aggregation cancelled", "aggregate_cancelled", map[string]any{"query": q})
		return nil, err
	}

	combined, ok, failed := a.collect(q, outcomes)
	if ok == 0 && failed > 0 {
		a.log.WarnObj("no provider answered", "aggregate_all_failed", map[string]any{
			"query":     q,
			"providers": failed,
		})
		return nil, ErrAllProvidersFailed
	}

	result := a.Process(combined)

	if a.enricher != nil {
		result = a.enricher.Enrich(ctx, result)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	committed, err := a.cache.Commit(gen, q, result)
	if err != nil {
		a.log.ErrorObj("failed to persist aggregation", "cache_write_failed", map[string]any{
			"query": q,
			"error": err.Error(),
		})
	}

	fetchedAt := a.clock.Now()
	if a.publisher != nil {
		if err := a.publisher.PublishSnapshot(ctx, q, result, fetchedAt); err != nil {
			a.log.WarnObj("snapshot publish failed", "snapshot_publish_failed", map[string]any{
				"query": q,
				"error": err.Error(),
			})
		}
	}

	a.log.InfoObj("aggregation complete", "aggregate_done", map[string]any{
		"query":       q,
		"articles":    len(result),
		"providers":   ok,
		"persisted":   committed,
		"duration_ms": fetchedAt.Sub(started).Milliseconds(),
	})

	return result, nil
}

// fanOut calls every fetcher concurrently. Results land in per-provider slots
// so the merge order never depends on completion order.
func (a *Aggregator) fanOut(ctx context.Context, q string) []Outcome {
	outcomes := make([]Outcome, len(a.fetchers))

	var wg sync.WaitGroup
	for i, f := range a.fetchers {
		wg.Add(1)
		go func(i int, f providers.Fetcher) {
			defer wg.Done()
			articles, err := f.Fetch(ctx, q)
			if articles == nil {
				articles = []domain.Article{}
			}
			outcomes[i] = Outcome{Provider: f.ID(), Articles: articles, Err: err}
		}(i, f)
	}
	wg.Wait()

	return outcomes
}

// collect concatenates successful outcomes in provider order and logs the
// suppressed failures. It returns how many enabled providers answered and how
// many failed; providers without a credential count as neither.
func (a *Aggregator) collect(q string, outcomes []Outcome) ([]domain.Article, int, int) {
	var (
		combined []domain.Article
		ok       int
		failed   int
	)

	for _, o := range outcomes {
		var perr *providers.ProviderError
		switch {
		case o.OK():
			ok++
			combined = append(combined, o.Articles...)
		case errors.Is(o.Err, providers.ErrProviderUnavailable):
			a.log.DebugObj("provider skipped", "provider_unavailable", map[string]any{
				"provider_id": o.Provider,
			})
		case errors.As(o.Err, &perr):
			failed++
			a.log.WarnObj("provider fetch failed", "provider_fetch_failed", map[string]any{
				"provider_id": o.Provider,
				"query":       q,
				"status":      perr.StatusCode,
				"timeout":     perr.Timeout,
				"error":       perr.Error(),
			})
		default:
			failed++
			a.log.WarnObj("provider fetch failed", "provider_fetch_failed", map[string]any{
				"provider_id": o.Provider,
				"query":       q,
				"error":       o.Err.Error(),
			})
		}
	}

	if combined == nil {
		combined = []domain.Article{}
	}
	return combined, ok, failed
}

// Process applies dedupe, the optional relevance filter and the date sort.
func (a *Aggregator) Process(articles []domain.Article) []domain.Article {
	out := Dedupe(articles)
	if a.opts.RelevanceFilter {
		out = FilterRelevant(out, a.keywords)
	}
	SortByPublished(out)
	return out
}
