package providers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

const (
	nytSourceName   = "New York Times"
	nytSearchPath   = "/svc/search/v2/articlesearch.json"
	nytFields       = "web_url,headline,snippet,pub_date,byline,multimedia"
	nytStaticHost   = "https://static01.nyt.com"
	nytSiteHost     = "https://www.nytimes.com"
	nytStaticPrefix = "images/"
)

// Subtypes preferred when picking an article image.
var nytPreferredSubtypes = map[string]struct{}{
	"xlarge":       {},
	"articleLarge": {},
	"thumbLarge":   {},
}

type nytResponse struct {
	Status   string `json:"status"`
	Response struct {
		Docs []nytDoc `json:"docs"`
	} `json:"response"`
}

type nytDoc struct {
	WebURL        string `json:"web_url"`
	Snippet       string `json:"snippet"`
	LeadParagraph string `json:"lead_paragraph"`
	PubDate       string `json:"pub_date"`
	Headline      struct {
		Main string `json:"main"`
	} `json:"headline"`
	Byline struct {
		Original string `json:"original"`
	} `json:"byline"`
	Multimedia nytMultimedia `json:"multimedia"`
}

type nytMedia struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
}

// nytMultimedia accepts both the legacy array form and the newer object form
// ({"default": {...}, "thumbnail": {...}}) of the multimedia field.
type nytMultimedia []nytMedia

func (m *nytMultimedia) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*m = nil
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var list []nytMedia
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*m = list
		return nil
	}

	var obj struct {
		Default   *struct{ URL string `json:"url"` } `json:"default"`
		Thumbnail *struct{ URL string `json:"url"` } `json:"thumbnail"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}

	var list []nytMedia
	if obj.Default != nil && obj.Default.URL != "" {
		list = append(list, nytMedia{URL: obj.Default.URL, Type: "image", Subtype: "xlarge"})
	}
	if obj.Thumbnail != nil && obj.Thumbnail.URL != "" {
		list = append(list, nytMedia{URL: obj.Thumbnail.URL, Type: "image", Subtype: "thumbnail"})
	}
	*m = list
	return nil
}

// nytFetcher searches the NYT Article Search API.
type nytFetcher struct {
	client HTTPClient
	cfg    Provider
	log    logger.Logger
}

// NewNYTFetcher builds a Fetcher for the NYT Article Search API.
func NewNYTFetcher(client HTTPClient, cfg Provider, log logger.Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if cfg.ID == "" {
		cfg.ID = ProviderNYT
	}
	return &nytFetcher{client: client, cfg: cfg, log: logger.Ensure(log)}
}

func (f *nytFetcher) ID() string {
	return f.cfg.ID
}

func (f *nytFetcher) Fetch(ctx context.Context, query string) ([]domain.Article, error) {
	docs, err := f.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return normalizeNYT(docs), nil
}

func (f *nytFetcher) search(ctx context.Context, query string) ([]nytDoc, error) {
	if !f.cfg.Enabled() {
		return nil, ErrProviderUnavailable
	}

	params := map[string]string{
		"q":       boostQuery(query, f.cfg.Boost),
		"api-key": f.cfg.APIKey,
		"fl":      nytFields,
		"sort":    "newest",
	}

	var body nytResponse
	if err := getJSON(ctx, f.client, f.cfg, joinURL(f.cfg.BaseURL, nytSearchPath), params, &body); err != nil {
		return nil, err
	}

	f.log.DebugObj("nyt search completed", "provider_fetch_ok", map[string]any{
		"provider_id": f.cfg.ID,
		"results":     len(body.Response.Docs),
	})
	return body.Response.Docs, nil
}

// normalizeNYT maps article search docs to articles.
func normalizeNYT(docs []nytDoc) []domain.Article {
	articles := make([]domain.Article, 0, len(docs))
	for _, d := range docs {
		title := strings.TrimSpace(d.Headline.Main)
		link := strings.TrimSpace(d.WebURL)
		if title == "" || link == "" {
			continue
		}

		articles = append(articles, domain.Article{
			Title:       title,
			URL:         link,
			Description: firstNonEmpty(d.Snippet, d.LeadParagraph),
			Source:      nytSourceName,
			PublishedAt: strings.TrimSpace(d.PubDate),
			ImageURL:    domain.StringPtr(nytImageURL(d.Multimedia)),
			Author:      cleanAuthor(d.Byline.Original),
		})
	}
	return articles
}

// nytImageURL picks the best multimedia entry and makes its URL absolute.
func nytImageURL(media []nytMedia) string {
	if len(media) == 0 {
		return ""
	}

	pick := media[0]
	for _, m := range media {
		if _, ok := nytPreferredSubtypes[m.Subtype]; ok || m.Type == "image" {
			pick = m
			break
		}
	}

	return resolveNYTMediaURL(pick.URL)
}

// resolveNYTMediaURL handles the three shapes NYT uses for media paths:
// absolute URLs, paths under the static image host, and site-relative paths.
func resolveNYTMediaURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(strings.TrimLeft(raw, "/"), nytStaticPrefix):
		return joinURL(nytStaticHost, raw)
	default:
		return joinURL(nytSiteHost, raw)
	}
}
