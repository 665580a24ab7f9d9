package controller

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
	"github.com/Adda-Baaj/ainews/pkg/providers"
)

// User-facing status messages.
const (
	MsgDegraded = "Using cached data. Unable to fetch latest news."
	MsgFailed   = "Failed to fetch news. Please try again later."
)

// Default timings.
const (
	DefaultDebounce       = 500 * time.Millisecond
	DefaultFreshWindow    = 5 * time.Minute
	DefaultFallbackWindow = 24 * time.Hour
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateError      State = "error"
)

// Searcher runs one aggregation.
type Searcher interface {
	Aggregate(ctx context.Context, query string) ([]domain.Article, error)
}

// Snapshots exposes the persisted slot.
type Snapshots interface {
	GetPersisted() (domain.CacheEntry, bool, error)
}

// Options configures timing.
type Options struct {
	Debounce       time.Duration
	FreshWindow    time.Duration
	FallbackWindow time.Duration
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		Debounce:       DefaultDebounce,
		FreshWindow:    DefaultFreshWindow,
		FallbackWindow: DefaultFallbackWindow,
	}
}

// View is the read model handed to presentation.
type View struct {
	Query          string           `json:"query"`
	Articles       []domain.Article `json:"articles"`
	Loading        bool             `json:"loading"`
	Error          string           `json:"error,omitempty"`
	Degraded       bool             `json:"degraded"`
	State          State            `json:"state"`
	Sources        []string         `json:"sources"`
	SelectedSource string           `json:"selectedSource"`
	FilterText     string           `json:"filterText"`
	UpdatedAt      *time.Time       `json:"updatedAt,omitempty"`
}

// Controller owns the query lifecycle: debounce, cache policy, foreground and
// background fetches, and the visible article list.
type Controller struct {
	search Searcher
	store  Snapshots
	opts   Options
	clock  clockwork.Clock
	log    logger.Logger

	mu          sync.Mutex
	base        context.Context
	state       State
	query       string
	articles    []domain.Article
	errMsg      string
	degraded    bool
	selected    string
	filter      string
	updatedAt   time.Time
	timer       clockwork.Timer
	debounceSeq uint64
	cancel      context.CancelFunc
	// Fetch generations: nextGen is handed out, appliedGen is the newest
	// applied result, minGen marks everything older as superseded.
	nextGen    uint64
	appliedGen uint64
	minGen     uint64

	inflight sync.WaitGroup
}

// New builds a Controller. A nil clock means wall time.
func New(search Searcher, store Snapshots, opts Options, clock clockwork.Clock, log logger.Logger) *Controller {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.FreshWindow <= 0 {
		opts.FreshWindow = def.FreshWindow
	}
	if opts.FallbackWindow <= 0 {
		opts.FallbackWindow = def.FallbackWindow
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Controller{
		search:   search,
		store:    store,
		opts:     opts,
		clock:    clock,
		log:      logger.Ensure(log),
		base:     context.Background(),
		state:    StateIdle,
		articles: []domain.Article{},
		selected: domain.AllSources,
	}
}

// Start applies the cache policy once against the persisted slot. Fetches
// started later are bound to ctx.
func (c *Controller) Start(ctx context.Context) {
	entry, ok := c.persisted()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.base = ctx
	c.applyPolicy(c.query, entry, ok)
}

// SetQuery records a query edit. Only the last edit inside the debounce window
// triggers a fetch. Any fetch still running for an earlier query is cancelled
// and its result ignored.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = query
	c.supersede()
	c.state = StateDebouncing

	if c.timer != nil {
		c.timer.Stop()
	}
	c.debounceSeq++
	seq := c.debounceSeq
	c.timer = c.clock.AfterFunc(c.opts.Debounce, func() { c.onDebounce(seq) })
}

// Retry starts an immediate foreground fetch for the current query.
func (c *Controller) Retry() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.debounceSeq++
	c.supersede()
	c.startFetch(strings.TrimSpace(c.query), false)
}

// SetSelectedSource narrows the view to one source; "" or "All" shows all.
func (c *Controller) SetSelectedSource(source string) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = domain.AllSources
	}

	c.mu.Lock()
	c.selected = source
	c.mu.Unlock()
}

// SetFilterText sets the local free-text filter.
func (c *Controller) SetFilterText(text string) {
	c.mu.Lock()
	c.filter = text
	c.mu.Unlock()
}

// View returns a snapshot of the visible state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		Query:          c.query,
		Articles:       filterArticles(c.articles, c.selected, c.filter),
		Loading:        c.state == StateLoading,
		Error:          c.errMsg,
		Degraded:       c.degraded,
		State:          c.state,
		Sources:        domain.Sources(c.articles),
		SelectedSource: c.selected,
		FilterText:     c.filter,
	}
	if !c.updatedAt.IsZero() {
		ts := c.updatedAt
		v.UpdatedAt = &ts
	}
	return v
}

// Wait blocks until every running fetch has finished.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

func (c *Controller) onDebounce(seq uint64) {
	entry, ok := c.persisted()

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.debounceSeq || c.state != StateDebouncing {
		return
	}
	c.timer = nil
	c.applyPolicy(c.query, entry, ok)
}

// applyPolicy decides between serving the persisted slot, serving it with a
// background refresh, or a foreground fetch. Caller holds c.mu.
func (c *Controller) applyPolicy(rawQuery string, entry domain.CacheEntry, ok bool) {
	q := strings.TrimSpace(rawQuery)
	age := entry.Age(c.clock.Now())
	matches := ok && (q == "" || entry.Query == q)

	switch {
	case matches && age < c.opts.FreshWindow:
		c.log.DebugObj("serving fresh cache", "controller_cache_fresh", map[string]any{
			"query":  q,
			"age_ms": age.Milliseconds(),
		})
		c.showEntry(entry, false)
	case matches && age < c.opts.FallbackWindow:
		c.log.DebugObj("serving cache, refreshing in background", "controller_cache_stale", map[string]any{
			"query":  q,
			"age_ms": age.Milliseconds(),
		})
		c.showEntry(entry, false)
		c.startFetch(q, true)
	default:
		c.startFetch(q, false)
	}
}

// startFetch launches an aggregation. Caller holds c.mu.
func (c *Controller) startFetch(q string, background bool) {
	ctx, cancel := context.WithCancel(c.base)
	if !background {
		if c.cancel != nil {
			c.cancel()
		}
		c.cancel = cancel
		c.state = StateLoading
	}

	c.nextGen++
	gen := c.nextGen

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer cancel()
		c.runFetch(ctx, q, gen, background)
	}()
}

func (c *Controller) runFetch(ctx context.Context, q string, gen uint64, background bool) {
	articles, err := c.search.Aggregate(ctx, q)

	var (
		entry domain.CacheEntry
		ok    bool
	)
	if err != nil && !background {
		entry, ok = c.persisted()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen < c.minGen || gen <= c.appliedGen {
		c.log.DebugObj("discarding superseded result", "controller_result_stale", map[string]any{
			"query":      q,
			"generation": gen,
		})
		return
	}
	if err != nil && (ctx.Err() != nil || providers.IsCancellation(err)) {
		return
	}
	if !background {
		c.cancel = nil
	}

	if err == nil {
		c.appliedGen = gen
		c.articles = articles
		if c.articles == nil {
			c.articles = []domain.Article{}
		}
		c.errMsg = ""
		c.degraded = false
		c.updatedAt = c.clock.Now()
		c.resetMissingSource()
		if !background || (c.state != StateLoading && c.state != StateDebouncing) {
			c.state = StateReady
		}
		return
	}

	if background {
		c.log.WarnObj("background refresh failed", "controller_refresh_failed", map[string]any{
			"query": q,
			"error": err.Error(),
		})
		return
	}

	c.appliedGen = gen
	if ok && entry.Age(c.clock.Now()) < c.opts.FallbackWindow {
		c.log.WarnObj("serving cached data after fetch failure", "controller_degraded", map[string]any{
			"query": q,
			"error": err.Error(),
		})
		c.showEntry(entry, true)
		return
	}

	c.log.ErrorObj("news fetch failed", "controller_fetch_failed", map[string]any{
		"query": q,
		"error": err.Error(),
	})
	c.state = StateError
	c.articles = []domain.Article{}
	c.errMsg = MsgFailed
	c.degraded = false
	c.resetMissingSource()
}

// showEntry makes a persisted entry visible. Caller holds c.mu.
func (c *Controller) showEntry(entry domain.CacheEntry, degraded bool) {
	c.articles = entry.Data
	if c.articles == nil {
		c.articles = []domain.Article{}
	}
	c.updatedAt = entry.Timestamp
	c.degraded = degraded
	c.errMsg = ""
	if degraded {
		c.errMsg = MsgDegraded
	}
	c.state = StateReady
	c.resetMissingSource()
}

// supersede cancels the running foreground fetch and marks every fetch
// started so far as stale. Caller holds c.mu.
func (c *Controller) supersede() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.minGen = c.nextGen + 1
}

func (c *Controller) resetMissingSource() {
	if c.selected == domain.AllSources {
		return
	}
	for _, a := range c.articles {
		if a.Source == c.selected {
			return
		}
	}
	c.selected = domain.AllSources
}

func (c *Controller) persisted() (domain.CacheEntry, bool) {
	if c.store == nil {
		return domain.CacheEntry{}, false
	}
	entry, ok, err := c.store.GetPersisted()
	if err != nil {
		c.log.WarnObj("persisted cache unreadable", "controller_cache_read_failed", map[string]any{
			"error": err.Error(),
		})
		return domain.CacheEntry{}, false
	}
	return entry, ok
}
