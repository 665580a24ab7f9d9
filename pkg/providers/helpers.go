package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// responseSnippet returns a truncated snippet of the response body for logging.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// Headers returns a copy of the provider's extra request headers.
func Headers(cfg Provider) map[string]string {
	if len(cfg.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		out[k] = v
	}
	return out
}

// getJSON performs one bounded GET and decodes a 200 response into out.
// A cancelled parent context is returned as-is; everything else becomes a
// *ProviderError with the API key scrubbed from the message.
func getJSON(ctx context.Context, client HTTPClient, cfg Provider, endpoint string, params map[string]string, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout())
	defer cancel()

	resp, err := client.GetWithParams(callCtx, endpoint, params, Headers(cfg))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
		// Flattened so a provider deadline never reads as caller cancellation.
		return &ProviderError{Provider: cfg.ID, Timeout: timedOut, Err: errors.New(redact(err.Error(), cfg.APIKey))}
	}

	if resp.StatusCode() != http.StatusOK {
		return &ProviderError{
			Provider:   cfg.ID,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("body: %s", responseSnippet(resp.Body())),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &ProviderError{Provider: cfg.ID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// redact removes the credential from transport errors, which embed the full URL.
func redact(msg, secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return msg
	}
	return strings.ReplaceAll(msg, secret, "REDACTED")
}

// boostQuery appends the provider's relevance terms to the user query.
func boostQuery(query, boost string) string {
	query = strings.TrimSpace(query)
	boost = strings.TrimSpace(boost)
	if boost == "" {
		return query
	}
	if query == "" {
		return boost
	}
	return query + " " + boost
}

// cleanAuthor strips a leading "By " and surrounding whitespace.
func cleanAuthor(raw string) *string {
	s := strings.TrimSpace(raw)
	if lower := strings.ToLower(s); lower == "by" || strings.HasPrefix(lower, "by ") {
		s = strings.TrimSpace(s[2:])
	}
	if s == "" {
		return nil
	}
	return &s
}

// htmlToText flattens an HTML fragment into plain text with single spaces.
func htmlToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.ContainsAny(raw, "<&") {
		return strings.Join(strings.Fields(raw), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.Join(strings.Fields(raw), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// firstNonEmpty returns the first non-blank value, trimmed.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// joinURL joins a base URL and a path with exactly one slash between them.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
