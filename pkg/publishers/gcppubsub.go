package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubTopic is the subset of *pubsub.Topic the sender uses.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicAdapter struct{ t *pubsub.Topic }

func (a topicAdapter) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return a.t.Publish(ctx, msg)
}

type pubsubSender struct {
	topic pubsubTopic
}

func newPubSubSender(ctx context.Context, cfg *PubSubConfig) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubSender{topic: topicAdapter{t: client.Topic(cfg.Topic)}}, nil
}

func (s *pubsubSender) Send(ctx context.Context, evt Event, payload []byte) (string, error) {
	res := s.topic.Publish(ctx, &pubsub.Message{Data: payload, Attributes: attributes(evt)})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to pubsub: %w", err)
	}
	return id, nil
}
