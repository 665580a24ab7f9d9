package publishers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Adda-Baaj/ainews/internal/domain"
	"github.com/Adda-Baaj/ainews/internal/logger"
)

// Logger is the logging surface publishers write to.
type Logger = logger.Logger

// Event is one aggregation snapshot sent downstream.
type Event struct {
	ID           string           `json:"id"`
	Query        string           `json:"query"`
	ArticleCount int              `json:"article_count"`
	Sources      []string         `json:"sources"`
	Articles     []domain.Article `json:"articles"`
	FetchedAt    time.Time        `json:"fetched_at"`
}

// NewEvent builds a snapshot event with a fresh id.
func NewEvent(query string, articles []domain.Article, fetchedAt time.Time) Event {
	if articles == nil {
		articles = []domain.Article{}
	}
	return Event{
		ID:           uuid.NewString(),
		Query:        query,
		ArticleCount: len(articles),
		Sources:      domain.Sources(articles)[1:],
		Articles:     articles,
		FetchedAt:    fetchedAt.UTC(),
	}
}

// Publisher delivers events to one sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

func ensureLogger(log Logger) Logger {
	return logger.Ensure(log)
}
