package controller

import (
	"strings"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

// filterArticles applies the source selection, then the free-text filter.
func filterArticles(articles []domain.Article, source, text string) []domain.Article {
	needle := strings.ToLower(strings.TrimSpace(text))
	all := source == "" || source == domain.AllSources

	out := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if !all && a.Source != source {
			continue
		}
		if needle != "" && !matchesText(a, needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesText(a domain.Article, needle string) bool {
	for _, field := range []string{a.Title, a.Description, a.Source, domain.Deref(a.Author)} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
