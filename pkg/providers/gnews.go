package providers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

const (
	gnewsSourceName    = "GNews"
	gnewsSearchPath    = "/api/v4/search"
	gnewsHeadlinesPath = "/api/v4/top-headlines"
	gnewsFallbackQuery = `"artificial intelligence"`
	gnewsLang          = "en"
	gnewsCountry       = "us"
)

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}

// gnewsFetcher searches GNews, degrading to technology headlines when the
// search endpoint refuses the key.
type gnewsFetcher struct {
	client HTTPClient
	cfg    Provider
	log    logger.Logger
}

// NewGNewsFetcher builds a Fetcher for the GNews API.
func NewGNewsFetcher(client HTTPClient, cfg Provider, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if cfg.ID == "" {
		cfg.ID = ProviderGNews
	}
	return &gnewsFetcher{client: client, cfg: cfg, log: logger.Ensure(log)}
}

func (f *gnewsFetcher) ID() string {
	return f.cfg.ID
}

func (f *gnewsFetcher) Fetch(ctx context.Context, query string) ([]domain.Article, error) {
	items, err := f.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return normalizeGNews(items), nil
}

func (f *gnewsFetcher) search(ctx context.Context, query string) ([]gnewsArticle, error) {
	if !f.cfg.Enabled() {
		return nil, ErrProviderUnavailable
	}

	params := map[string]string{
		"q":       boostQuery(query, f.cfg.Boost),
		"lang":    gnewsLang,
		"country": gnewsCountry,
		"max":     strconv.Itoa(pageSize(f.cfg.PageSize, 20)),
		"sortby":  "publishedAt",
		"apikey":  f.cfg.APIKey,
	}

	var body gnewsResponse
	err := getJSON(ctx, f.client, f.cfg, joinURL(f.cfg.BaseURL, gnewsSearchPath), params, &body)
	if err == nil {
		f.log.DebugObj("gnews search completed", "provider_fetch_ok", map[string]any{
			"provider_id": f.cfg.ID,
			"results":     len(body.Articles),
		})
		return body.Articles, nil
	}

	var perr *ProviderError
	if !errors.As(err, &perr) || !shouldFallback(perr.StatusCode) {
		return nil, err
	}

	f.log.WarnObj("gnews search refused, trying top headlines", "provider_fallback", map[string]any{
		"provider_id": f.cfg.ID,
		"status":      perr.StatusCode,
	})
	return f.topHeadlines(ctx)
}

// topHeadlines is the single degraded retry after a 403/429.
func (f *gnewsFetcher) topHeadlines(ctx context.Context) ([]gnewsArticle, error) {
	params := map[string]string{
		"lang":     gnewsLang,
		"country":  gnewsCountry,
		"max":      strconv.Itoa(pageSize(f.cfg.FallbackPageSize, 10)),
		"category": "technology",
		"q":        gnewsFallbackQuery,
		"apikey":   f.cfg.APIKey,
	}

	var body gnewsResponse
	if err := getJSON(ctx, f.client, f.cfg, joinURL(f.cfg.BaseURL, gnewsHeadlinesPath), params, &body); err != nil {
		return nil, err
	}
	return body.Articles, nil
}

func shouldFallback(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

// normalizeGNews maps GNews articles; the outlet name doubles as the author.
func normalizeGNews(items []gnewsArticle) []domain.Article {
	articles := make([]domain.Article, 0, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.URL)
		if title == "" || link == "" {
			continue
		}

		outlet := strings.TrimSpace(it.Source.Name)
		articles = append(articles, domain.Article{
			Title:       title,
			URL:         link,
			Description: firstNonEmpty(it.Description, it.Content),
			Source:      firstNonEmpty(outlet, gnewsSourceName),
			PublishedAt: strings.TrimSpace(it.PublishedAt),
			ImageURL:    domain.StringPtr(it.Image),
			Author:      cleanAuthor(outlet),
		})
	}
	return articles
}
