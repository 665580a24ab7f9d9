package providers

import (
	"context"
	"strconv"
	"strings"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

const (
	guardianSourceName = "The Guardian"
	guardianSearchPath = "/search"
	guardianShowFields = "thumbnail,trailText,byline"
)

type guardianResponse struct {
	Response struct {
		Status  string           `json:"status"`
		Results []guardianResult `json:"results"`
	} `json:"response"`
}

type guardianResult struct {
	WebTitle           string          `json:"webTitle"`
	WebURL             string          `json:"webUrl"`
	WebPublicationDate string          `json:"webPublicationDate"`
	Fields             *guardianFields `json:"fields"`
}

type guardianFields struct {
	Thumbnail string `json:"thumbnail"`
	TrailText string `json:"trailText"`
	Byline    string `json:"byline"`
}

// guardianFetcher searches the Guardian content API.
type guardianFetcher struct {
	client HTTPClient
	cfg    Provider
	log    logger.Logger
}

// NewGuardianFetcher builds a Fetcher for the Guardian content API.
func NewGuardianFetcher(client HTTPClient, cfg Provider, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if cfg.ID == "" {
		cfg.ID = ProviderGuardian
	}
	return &guardianFetcher{client: client, cfg: cfg, log: logger.Ensure(log)}
}

func (f *guardianFetcher) ID() string {
	return f.cfg.ID
}

func (f *guardianFetcher) Fetch(ctx context.Context, query string) ([]domain.Article, error) {
	results, err := f.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return normalizeGuardian(results), nil
}

func (f *guardianFetcher) search(ctx context.Context, query string) ([]guardianResult, error) {
	if !f.cfg.Enabled() {
		return nil, ErrProviderUnavailable
	}

	params := map[string]string{
		"q":           boostQuery(query, f.cfg.Boost),
		"api-key":     f.cfg.APIKey,
		"show-fields": guardianShowFields,
		"page-size":   strconv.Itoa(pageSize(f.cfg.PageSize, 50)),
		"order-by":    "newest",
	}

	var body guardianResponse
	if err := getJSON(ctx, f.client, f.cfg, joinURL(f.cfg.BaseURL, guardianSearchPath), params, &body); err != nil {
		return nil, err
	}

	f.log.DebugObj("guardian search completed", "provider_fetch_ok", map[string]any{
		"provider_id": f.cfg.ID,
		"results":     len(body.Response.Results),
	})
	return body.Response.Results, nil
}

// normalizeGuardian maps Guardian results to articles, dropping records
// without a title or URL.
func normalizeGuardian(results []guardianResult) []domain.Article {
	articles := make([]domain.Article, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.WebTitle)
		link := strings.TrimSpace(r.WebURL)
		if title == "" || link == "" {
			continue
		}

		var fields guardianFields
		if r.Fields != nil {
			fields = *r.Fields
		}

		articles = append(articles, domain.Article{
			Title:       title,
			URL:         link,
			Description: firstNonEmpty(htmlToText(fields.TrailText), title),
			Source:      guardianSourceName,
			PublishedAt: strings.TrimSpace(r.WebPublicationDate),
			ImageURL:    domain.StringPtr(fields.Thumbnail),
			Author:      cleanAuthor(fields.Byline),
		})
	}
	return articles
}

func pageSize(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
