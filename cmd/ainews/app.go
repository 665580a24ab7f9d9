package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/Adda-Baaj/ainews/internal/aggregator"
	"github.com/Adda-Baaj/ainews/internal/cache"
	"github.com/Adda-Baaj/ainews/internal/config"
	"github.com/Adda-Baaj/ainews/internal/crawler"
	"github.com/Adda-Baaj/ainews/internal/logger"
	"github.com/Adda-Baaj/ainews/pkg/providers"
	"github.com/Adda-Baaj/ainews/pkg/publishers"
)

// app holds the wired components shared by subcommands.
type app struct {
	cfg   *config.Config
	log   *logger.ZapLogger
	clock clockwork.Clock
	cache *cache.Layer
	agg   *aggregator.Aggregator
}

// loadApp reads configuration, lets tweak adjust it, then wires the stack.
func loadApp(ctx context.Context, cfgPath string, tweak func(*config.Config)) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if tweak != nil {
		tweak(cfg)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()

	store, err := openStore(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	layer := cache.NewLayer(cache.NewCollapse(cfg.Cache.CollapseTTL, clock), store, clock, log)
	if cfg.Cache.Path == "" {
		log.WarnObj("cache.path is empty, snapshot kept in memory", "cache_memory_only", nil)
	}

	settings := cfg.ProviderSettings()
	client := providers.NewHTTPClient(settings)
	registry := providers.DefaultFetcherRegistry(client, settings, log)
	fetchers, err := registry.Select(cfg.Aggregator.Providers)
	if err != nil {
		_ = layer.Close()
		return nil, err
	}
	for _, f := range fetchers {
		log.DebugObj("provider registered", "provider_registered", map[string]any{"provider_id": f.ID()})
	}

	opts := []aggregator.Option{aggregator.WithClock(clock)}
	if cfg.Enrichment.Enabled {
		opts = append(opts, aggregator.WithEnricher(crawler.NewEnricher(client, crawler.Options{
			MaxArticles: cfg.Enrichment.MaxArticles,
			Workers:     cfg.Enrichment.Workers,
		}, log)))
	}
	if cfg.Publishers.File != "" {
		dispatcher, err := loadPublishers(ctx, cfg.Publishers.File, log)
		if err != nil {
			_ = layer.Close()
			return nil, err
		}
		opts = append(opts, aggregator.WithPublisher(dispatcher))
	}

	agg := aggregator.New(fetchers, layer, cfg.AggregatorOptions(), log, opts...)

	return &app{cfg: cfg, log: log, clock: clock, cache: layer, agg: agg}, nil
}

func openStore(path string) (cache.Store, error) {
	if path == "" {
		return cache.NewMemoryStore(), nil
	}
	store, err := cache.OpenBolt(path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	return store, nil
}

func loadPublishers(ctx context.Context, path string, log logger.Logger) (*publishers.Dispatcher, error) {
	cfgs, err := publishers.LoadFile(path)
	if err != nil {
		return nil, err
	}
	pubs, err := publishers.DefaultRegistry().BuildAll(ctx, cfgs, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	log.InfoObj("publishers loaded", "publishers_loaded", map[string]any{"count": len(pubs)})
	return publishers.NewDispatcher(pubs, log), nil
}

func (a *app) Close() error {
	return errors.Join(a.cache.Close(), a.log.Sync())
}
