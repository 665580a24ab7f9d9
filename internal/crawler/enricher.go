package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
	"github.com/Adda-Baaj/ainews/pkg/httpclient"
	"github.com/Adda-Baaj/ainews/pkg/providers"
)

const (
	maxHTMLBodyBytes   = 1 << 20 // 1 MiB
	defaultWorkers     = 5
	defaultMaxArticles = 20
)

// Options bound the enrichment work done per aggregation.
type Options struct {
	// MaxArticles caps how many image-less articles are visited.
	MaxArticles int
	Workers     int
}

// Enricher fills missing images and descriptions from article pages' OpenGraph
// metadata.
type Enricher struct {
	client httpclient.Client
	opts   Options
	log    logger.Logger
}

// NewEnricher creates an Enricher with the given HTTP client and logger.
func NewEnricher(client httpclient.Client, opts Options, log logger.Logger) *Enricher {
	if client == nil {
		client = providers.DefaultHTTPClient()
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = defaultMaxArticles
	}
	return &Enricher{client: client, opts: opts, log: logger.Ensure(log)}
}

// Enrich returns a copy of articles where pages without an image have been
// scraped. Failed pages keep their original values; on cancel the partial
// result is returned.
func (e *Enricher) Enrich(ctx context.Context, articles []domain.Article) []domain.Article {
	out := make([]domain.Article, len(articles))
	copy(out, articles)

	var targets []int
	for i, a := range articles {
		if a.ImageURL == nil && a.URL != "" {
			targets = append(targets, i)
		}
		if len(targets) == e.opts.MaxArticles {
			break
		}
	}
	if len(targets) == 0 {
		return out
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup

	for workerID := range min(len(targets), e.opts.Workers) {
		wg.Add(1)
		go e.worker(ctx, workerID, jobCh, out, &wg)
	}

	for _, idx := range targets {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobCh <- idx:
		case <-ctx.Done():
		}
	}
	close(jobCh)
	wg.Wait()

	return out
}

// worker owns out[idx] for every index it receives, so no locking is needed.
func (e *Enricher) worker(ctx context.Context, workerID int, jobCh <-chan int, out []domain.Article, wg *sync.WaitGroup) {
	defer wg.Done()

	for idx := range jobCh {
		if ctx.Err() != nil {
			return
		}

		art := out[idx]
		enriched, err := e.fetchAndParse(ctx, art)
		if err != nil {
			e.log.WarnObj("article metadata scrape failed", "metadata_error", map[string]any{
				"worker_id": workerID,
				"source":    art.Source,
				"url":       art.URL,
				"error":     err.Error(),
			})
			continue
		}
		out[idx] = enriched
	}
}

func (e *Enricher) fetchAndParse(ctx context.Context, art domain.Article) (domain.Article, error) {
	e.log.DebugObj("scraping article metadata", "scrape_start", map[string]any{"url": art.URL})

	resp, err := e.client.GetStream(ctx, art.URL, map[string]string{"Accept": "text/html"})
	if err != nil {
		return art, fmt.Errorf("http fetch: %w", err)
	}
	body := resp.RawBody()
	if body == nil {
		return art, fmt.Errorf("status %d: empty body", resp.StatusCode())
	}
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return art, fmt.Errorf("status %d", resp.StatusCode())
	}

	// Only the head matters; never read more than maxHTMLBodyBytes.
	meta, err := parseMeta(io.LimitReader(body, maxHTMLBodyBytes))
	if err != nil {
		return art, err
	}

	updated := art
	if meta.ImageURL != "" {
		updated.ImageURL = domain.StringPtr(resolveURL(meta.ImageURL, art.URL))
	}
	if strings.TrimSpace(updated.Description) == "" && meta.Description != "" {
		updated.Description = meta.Description
	}
	return updated, nil
}

type pageMeta struct {
	Description string
	ImageURL    string
}

func parseMeta(body io.Reader) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
		ImageURL: firstNonEmpty(
			extract(`meta[property="og:image"]`),
			extract(`meta[name="twitter:image"]`),
		),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// resolveURL resolves a possibly relative URL against base.
func resolveURL(raw, base string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}
	return baseURL.ResolveReference(parsed).String()
}
