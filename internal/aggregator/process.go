package aggregator

import (
	"slices"
	"strings"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

// DefaultKeywords drive the relevance filter.
var DefaultKeywords = []string{
	"ai",
	"artificial intelligence",
	"machine learning",
	"deep learning",
	"neural",
	"llm",
	"gpt",
	"chatgpt",
	"openai",
	"generative",
	"robot",
	"automation",
	"algorithm",
}

// Normalize trims query and falls back to def when nothing is left.
func Normalize(query, def string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return strings.TrimSpace(def)
	}
	return q
}

// Dedupe keeps the first article seen for each URL. The result is never nil.
func Dedupe(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	seen := make(map[string]struct{}, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}

// FilterRelevant keeps articles whose title or description mentions one of
// keywords. Keywords must already be lower-case.
func FilterRelevant(articles []domain.Article, keywords []string) []domain.Article {
	if len(keywords) == 0 {
		return articles
	}

	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		text := strings.ToLower(a.Title + "\n" + a.Description)
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// SortByPublished orders newest first. Unparseable dates sink to the end and
// equal keys keep their input order.
func SortByPublished(articles []domain.Article) {
	slices.SortStableFunc(articles, func(x, y domain.Article) int {
		tx, okx := x.PublishedTime()
		ty, oky := y.PublishedTime()
		switch {
		case okx && oky:
			return ty.Compare(tx)
		case okx:
			return -1
		case oky:
			return 1
		default:
			return 0
		}
	})
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
