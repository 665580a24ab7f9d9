package publishers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

// Builder creates a Publisher from a config entry.
type Builder func(ctx context.Context, cfg Config, log Logger) (Publisher, error)

// Registry maps sink types to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry with the given builders.
func NewRegistry(builders map[string]Builder) *Registry {
	r := &Registry{builders: make(map[string]Builder, len(builders))}
	for typ, b := range builders {
		r.Register(typ, b)
	}
	return r
}

// DefaultRegistry knows the http and queue sinks.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string]Builder{
		TypeHTTP:  newHTTPPublisher,
		TypeQueue: newQueuePublisher,
	})
}

// Register associates a builder with a sink type.
func (r *Registry) Register(typ string, builder Builder) {
	if typ = strings.ToLower(strings.TrimSpace(typ)); typ == "" || builder == nil {
		return
	}
	r.mu.Lock()
	r.builders[typ] = builder
	r.mu.Unlock()
}

// Build instantiates the publisher for cfg.
func (r *Registry) Build(ctx context.Context, cfg Config, log Logger) (Publisher, error) {
	r.mu.RLock()
	builder := r.builders[strings.ToLower(cfg.Type)]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no publisher registered for type %q", cfg.Type)
	}
	return builder(ctx, cfg, log)
}

// BuildAll instantiates every enabled config.
func (r *Registry) BuildAll(ctx context.Context, cfgs []Config, log Logger) ([]Publisher, error) {
	var pubs []Publisher
	for _, cfg := range Enabled(cfgs) {
		pub, err := r.Build(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// Dispatcher fans snapshot events out to every configured publisher.
type Dispatcher struct {
	pubs []Publisher
	log  Logger
}

// NewDispatcher wraps pubs.
func NewDispatcher(pubs []Publisher, log Logger) *Dispatcher {
	return &Dispatcher{pubs: pubs, log: ensureLogger(log)}
}

// Len returns the number of sinks.
func (d *Dispatcher) Len() int { return len(d.pubs) }

// PublishSnapshot sends one event to every sink. All sinks are attempted;
// the failures are joined.
func (d *Dispatcher) PublishSnapshot(ctx context.Context, query string, articles []domain.Article, fetchedAt time.Time) error {
	if len(d.pubs) == 0 {
		return nil
	}

	evt := NewEvent(query, articles, fetchedAt)

	errs := make([]error, len(d.pubs))
	var wg sync.WaitGroup
	for i, p := range d.pubs {
		wg.Add(1)
		go func(i int, p Publisher) {
			defer wg.Done()
			if err := p.Publish(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.ID(), err)
			}
		}(i, p)
	}
	wg.Wait()

	err := errors.Join(errs...)
	if err == nil {
		d.log.InfoObj("snapshot published", "snapshot_published", map[string]any{
			"event_id": evt.ID,
			"query":    query,
			"sinks":    len(d.pubs),
			"articles": evt.ArticleCount,
		})
	}
	return err
}
