package publishers

import (
	"context"
	"fmt"
	"strconv"
)

// queueSender hides the provider SDK behind a single call.
type queueSender interface {
	Send(ctx context.Context, evt Event, payload []byte) (messageID string, err error)
}

// queuePublisher dispatches events to a cloud messaging provider.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
	log      Logger
}

func newQueuePublisher(ctx context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}

	var (
		sender queueSender
		err    error
	)
	switch cfg.Queue.Provider {
	case QueueProviderAWSSQS:
		sender, err = newSQSSender(ctx, cfg.Queue.SQS)
	case QueueProviderAWSSNS:
		sender, err = newSNSSender(ctx, cfg.Queue.SNS)
	case QueueProviderGCP:
		sender, err = newPubSubSender(ctx, cfg.Queue.GCP)
	default:
		err = fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	return &queuePublisher{id: cfg.ID, provider: cfg.Queue.Provider, sender: sender, log: ensureLogger(log)}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }

// Publish marshals the event once and hands it to the provider sender.
func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := marshalEvent(evt)
	if err != nil {
		return err
	}

	msgID, err := p.sender.Send(ctx, evt, payload)
	if err != nil {
		p.log.ErrorObj("queue publisher send failed", "publisher_queue_error", map[string]any{
			"publisher_id": p.id,
			"provider":     p.provider,
			"error":        err.Error(),
		})
		return fmt.Errorf("queue provider %s send failed: %w", p.provider, err)
	}

	p.log.DebugObj("queue publisher delivered event", "publisher_queue_delivery", map[string]any{
		"publisher_id": p.id,
		"provider":     p.provider,
		"event_id":     evt.ID,
		"message_id":   msgID,
	})
	return nil
}

// attributes are attached to every queue message for subscriber-side filtering.
func attributes(evt Event) map[string]string {
	return map[string]string{
		"event_id":      evt.ID,
		"query":         evt.Query,
		"article_count": strconv.Itoa(evt.ArticleCount),
	}
}
