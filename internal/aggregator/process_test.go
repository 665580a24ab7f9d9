package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adda-Baaj/ainews/internal/domain"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gpt", Normalize("  gpt\t", DefaultQuery))
	assert.Equal(t, DefaultQuery, Normalize("   ", DefaultQuery))
	assert.Equal(t, DefaultQuery, Normalize("", DefaultQuery))
}

func TestDedupeNeverReturnsDuplicates(t *testing.T) {
	t.Parallel()

	in := []domain.Article{
		{URL: "a", Title: "1"},
		{URL: "b", Title: "2"},
		{URL: "a", Title: "3"},
		{URL: "b", Title: "4"},
		{URL: "c", Title: "5"},
	}
	out := Dedupe(in)

	titles := make([]string, 0, len(out))
	for _, a := range out {
		titles = append(titles, a.Title)
	}
	assert.Equal(t, []string{"1", "2", "5"}, titles)
	assert.NotNil(t, Dedupe(nil))
}

func TestFilterRelevant(t *testing.T) {
	t.Parallel()

	kw := normalizeKeywords([]string{" Machine Learning ", "GPT", ""})
	in := []domain.Article{
		{URL: "1", Title: "Advances in MACHINE learning"},
		{URL: "2", Title: "Sports", Description: "ChatGPT writes match reports"},
		{URL: "3", Title: "Weather", Description: "sunny"},
	}
	out := FilterRelevant(in, kw)
	assert.Len(t, out, 2)
	assert.Equal(t, "1", out[0].URL)
	assert.Equal(t, "2", out[1].URL)
}

func TestSortByPublishedIsNonIncreasing(t *testing.T) {
	t.Parallel()

	in := []domain.Article{
		{URL: "a", PublishedAt: "2025-05-01T10:00:00Z"},
		{URL: "b", PublishedAt: ""},
		{URL: "c", PublishedAt: "2025-05-03T10:00:00+02:00"},
		{URL: "d", PublishedAt: "2025-05-02"},
	}
	SortByPublished(in)

	got := []string{in[0].URL, in[1].URL, in[2].URL, in[3].URL}
	assert.Equal(t, []string{"c", "d", "a", "b"}, got)
}
