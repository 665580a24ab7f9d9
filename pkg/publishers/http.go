package publishers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpPublisher sends events as JSON to a webhook.
type httpPublisher struct {
	id     string
	cfg    HTTPConfig
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := resty.New().
		SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeaders(cfg.HTTP.Headers)

	return &httpPublisher{id: cfg.ID, cfg: *cfg.HTTP, client: client, log: ensureLogger(log)}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(evt).
		Execute(p.cfg.Method, p.cfg.URL)
	if err != nil {
		return fmt.Errorf("http publisher %s: %w", p.id, err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("http publisher %s: unexpected status %d", p.id, resp.StatusCode())
	}

	p.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": p.id,
		"event_id":     evt.ID,
		"status":       resp.StatusCode(),
	})
	return nil
}
