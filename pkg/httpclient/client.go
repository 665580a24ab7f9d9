package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultUserAgent = "ainews/1.0 (+https://github.com/Adda-Baaj/ainews)"

// Client is the minimal HTTP surface used by provider fetchers and the enricher.
type Client interface {
	GetWithParams(ctx context.Context, url string, params, headers map[string]string) (*resty.Response, error)
	// GetStream leaves the body unread; callers must close RawBody().
	GetStream(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
}

// RestyClient implements Client with a shared resty client.
type RestyClient struct {
	r *resty.Client
}

// NewRestyClient returns a client with the given overall request timeout.
// Callers still bound individual calls through their context.
func NewRestyClient(timeout time.Duration) *RestyClient {
	r := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", defaultUserAgent).
		SetHeader("Accept", "application/json")
	return &RestyClient{r: r}
}

// GetWithParams issues a GET request with the given query parameters.
func (c *RestyClient) GetWithParams(ctx context.Context, url string, params, headers map[string]string) (*resty.Response, error) {
	return c.get(c.request(ctx, params, headers), url)
}

// GetStream issues a GET request without buffering the body, so callers can
// bound how much of it they read.
func (c *RestyClient) GetStream(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.get(c.request(ctx, nil, headers).SetDoNotParseResponse(true), url)
}

func (c *RestyClient) request(ctx context.Context, params, headers map[string]string) *resty.Request {
	if ctx == nil {
		ctx = context.Background()
	}

	req := c.r.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	return req
}

func (c *RestyClient) get(req *resty.Request, url string) (*resty.Response, error) {
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}
