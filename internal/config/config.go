package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/ainews/internal/aggregator"
	"github.com/Adda-Baaj/ainews/internal/controller"
	"github.com/Adda-Baaj/ainews/pkg/providers"
)

const envPrefix = "AINEWS"

// Config is the full runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Controller ControllerConfig `mapstructure:"controller"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Publishers PublishersConfig `mapstructure:"publishers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type CacheConfig struct {
	// Path of the bbolt file; empty keeps the snapshot in memory.
	Path           string        `mapstructure:"path"`
	CollapseTTL    time.Duration `mapstructure:"collapse_ttl"`
	FreshWindow    time.Duration `mapstructure:"fresh_window"`
	FallbackWindow time.Duration `mapstructure:"fallback_window"`
}

type ControllerConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type AggregatorConfig struct {
	DefaultQuery     string        `mapstructure:"default_query"`
	RelevanceFilter  bool          `mapstructure:"relevance_filter"`
	Keywords         []string      `mapstructure:"keywords"`
	MinFetchInterval time.Duration `mapstructure:"min_fetch_interval"`
	// Providers restricts the fan-out to these provider ids; empty means all.
	Providers []string `mapstructure:"providers"`
}

type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Boost       string        `mapstructure:"boost"`
	PageSize    int           `mapstructure:"page_size"`
	Max         int           `mapstructure:"max"`
	FallbackMax int           `mapstructure:"fallback_max"`
}

type ProvidersConfig struct {
	Guardian ProviderConfig `mapstructure:"guardian"`
	NYT      ProviderConfig `mapstructure:"nyt"`
	GNews    ProviderConfig `mapstructure:"gnews"`
}

type EnrichmentConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxArticles int  `mapstructure:"max_articles"`
	Workers     int  `mapstructure:"workers"`
}

type PublishersConfig struct {
	// File is a YAML or JSON publisher registry; empty disables publishing.
	File string `mapstructure:"file"`
}

// Load reads .env, the optional config file and the environment, in rising
// precedence. path may be empty.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, id := range []string{providers.ProviderGuardian, providers.ProviderNYT, providers.ProviderGNews} {
		key := "providers." + id + ".api_key"
		prefixed := envPrefix + "_PROVIDERS_" + strings.ToUpper(id) + "_API_KEY"
		bare := strings.ToUpper(id) + "_API_KEY"
		if err := v.BindEnv(key, prefixed, bare); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if file := resolveFile(path); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveFile(path string) string {
	if path = strings.TrimSpace(path); path != "" {
		return path
	}
	if env := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG")); env != "" {
		return env
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("cache.path", "data/ainews.db")
	v.SetDefault("cache.collapse_ttl", 30*time.Second)
	v.SetDefault("cache.fresh_window", controller.DefaultFreshWindow)
	v.SetDefault("cache.fallback_window", controller.DefaultFallbackWindow)

	v.SetDefault("controller.debounce", controller.DefaultDebounce)

	v.SetDefault("aggregator.default_query", aggregator.DefaultQuery)
	v.SetDefault("aggregator.relevance_filter", true)
	v.SetDefault("aggregator.keywords", aggregator.DefaultKeywords)
	v.SetDefault("aggregator.min_fetch_interval", aggregator.DefaultMinInterval)
	v.SetDefault("aggregator.providers", []string{})

	v.SetDefault("providers.guardian.base_url", "https://content.guardianapis.com")
	v.SetDefault("providers.guardian.timeout", 10*time.Second)
	v.SetDefault("providers.guardian.page_size", 50)
	v.SetDefault("providers.guardian.boost", `AND (technology OR AI OR "artificial intelligence")`)
	v.SetDefault("providers.guardian.api_key", "")

	v.SetDefault("providers.nyt.base_url", "https://api.nytimes.com")
	v.SetDefault("providers.nyt.timeout", 12*time.Second)
	v.SetDefault("providers.nyt.boost", "technology")
	v.SetDefault("providers.nyt.api_key", "")

	v.SetDefault("providers.gnews.base_url", "https://gnews.io")
	v.SetDefault("providers.gnews.timeout", 8*time.Second)
	v.SetDefault("providers.gnews.max", 20)
	v.SetDefault("providers.gnews.fallback_max", 10)
	v.SetDefault("providers.gnews.boost", "AND (AI OR technology)")
	v.SetDefault("providers.gnews.api_key", "")

	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.max_articles", 20)
	v.SetDefault("enrichment.workers", 5)

	v.SetDefault("publishers.file", "")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.Cache.FreshWindow <= 0 {
		errs = append(errs, errors.New("cache.fresh_window must be positive"))
	}
	if c.Cache.FreshWindow >= c.Cache.FallbackWindow {
		errs = append(errs, fmt.Errorf("cache.fresh_window (%s) must be shorter than cache.fallback_window (%s)", c.Cache.FreshWindow, c.Cache.FallbackWindow))
	}
	if c.Cache.CollapseTTL <= 0 {
		errs = append(errs, errors.New("cache.collapse_ttl must be positive"))
	}
	if c.Controller.Debounce <= 0 {
		errs = append(errs, errors.New("controller.debounce must be positive"))
	}
	if c.Aggregator.MinFetchInterval < 0 {
		errs = append(errs, errors.New("aggregator.min_fetch_interval must not be negative"))
	}
	for name, p := range map[string]ProviderConfig{
		providers.ProviderGuardian: c.Providers.Guardian,
		providers.ProviderNYT:      c.Providers.NYT,
		providers.ProviderGNews:    c.Providers.GNews,
	} {
		if p.Timeout < providers.MinTimeout || p.Timeout > providers.MaxTimeout {
			errs = append(errs, fmt.Errorf("providers.%s.timeout %s outside %s..%s", name, p.Timeout, providers.MinTimeout, providers.MaxTimeout))
		}
		if strings.TrimSpace(p.BaseURL) == "" {
			errs = append(errs, fmt.Errorf("providers.%s.base_url is required", name))
		}
	}
	for _, id := range c.Aggregator.Providers {
		switch strings.ToLower(strings.TrimSpace(id)) {
		case providers.ProviderGuardian, providers.ProviderNYT, providers.ProviderGNews:
		default:
			errs = append(errs, fmt.Errorf("aggregator.providers: unknown provider %q", id))
		}
	}
	if c.Enrichment.Enabled && c.Enrichment.Workers <= 0 {
		errs = append(errs, errors.New("enrichment.workers must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ProviderSettings maps the provider section onto fetcher settings.
func (c *Config) ProviderSettings() providers.Settings {
	p := c.Providers
	return providers.Settings{
		Guardian: providers.Provider{
			ID:       providers.ProviderGuardian,
			BaseURL:  p.Guardian.BaseURL,
			APIKey:   p.Guardian.APIKey,
			Timeout:  p.Guardian.Timeout,
			PageSize: p.Guardian.PageSize,
			Boost:    p.Guardian.Boost,
		},
		NYT: providers.Provider{
			ID:      providers.ProviderNYT,
			BaseURL: p.NYT.BaseURL,
			APIKey:  p.NYT.APIKey,
			Timeout: p.NYT.Timeout,
			Boost:   p.NYT.Boost,
		},
		GNews: providers.Provider{
			ID:               providers.ProviderGNews,
			BaseURL:          p.GNews.BaseURL,
			APIKey:           p.GNews.APIKey,
			Timeout:          p.GNews.Timeout,
			PageSize:         p.GNews.Max,
			FallbackPageSize: p.GNews.FallbackMax,
			Boost:            p.GNews.Boost,
		},
	}
}

// AggregatorOptions maps the aggregator section.
func (c *Config) AggregatorOptions() aggregator.Options {
	return aggregator.Options{
		DefaultQuery:    c.Aggregator.DefaultQuery,
		RelevanceFilter: c.Aggregator.RelevanceFilter,
		Keywords:        c.Aggregator.Keywords,
		MinInterval:     c.Aggregator.MinFetchInterval,
	}
}

// ControllerOptions maps the controller timings.
func (c *Config) ControllerOptions() controller.Options {
	return controller.Options{
		Debounce:       c.Controller.Debounce,
		FreshWindow:    c.Cache.FreshWindow,
		FallbackWindow: c.Cache.FallbackWindow,
	}
}
