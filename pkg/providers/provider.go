package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/pkg/httpclient"
)

// Provider identifiers, in aggregation order.
const (
	ProviderGuardian = "guardian"
	ProviderNYT      = "nyt"
	ProviderGNews    = "gnews"
)

// Per-provider request deadlines are kept within these bounds.
const (
	MinTimeout = 8 * time.Second
	MaxTimeout = 15 * time.Second
)

// ErrProviderUnavailable is returned when a provider has no credential configured.
var ErrProviderUnavailable = errors.New("provider unavailable: credential not configured")

// HTTPClient is the HTTP surface fetchers depend on.
type HTTPClient = httpclient.Client

// Fetcher searches one provider and returns normalized articles.
//
// Errors are one of ErrProviderUnavailable, *ProviderError, or the caller's
// context error when ctx was cancelled.
type Fetcher interface {
	ID() string
	Fetch(ctx context.Context, query string) ([]domain.Article, error)
}

// Provider holds the runtime settings for one upstream news API.
type Provider struct {
	ID       string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	PageSize int
	// FallbackPageSize is only used by GNews for its top-headlines retry.
	FallbackPageSize int
	// Boost is appended to every user query to bias relevance.
	Boost   string
	Headers map[string]string
}

// Enabled reports whether the provider has a credential.
func (p Provider) Enabled() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// RequestTimeout returns the per-call deadline, falling back to 10s.
func (p Provider) RequestTimeout() time.Duration {
	if p.Timeout <= 0 {
		return 10 * time.Second
	}
	return p.Timeout
}

// ProviderError describes an ordinary provider failure: transport, HTTP status
// or decoding. Aggregation suppresses these into an empty contribution.
type ProviderError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: timed out: %v", e.Provider, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsCancellation reports whether err stems from the caller giving up.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
