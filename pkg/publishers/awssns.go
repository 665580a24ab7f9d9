package publishers

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// snsClient is the subset of the SNS client the sender uses.
type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsSender struct {
	topicARN string
	client   snsClient
}

func newSNSSender(ctx context.Context, cfg *SNSConfig) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sns configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}
	return &snsSender{topicARN: cfg.TopicARN, client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *snsSender) Send(ctx context.Context, evt Event, payload []byte) (string, error) {
	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range attributes(evt) {
		if v == "" {
			continue
		}
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}

	resp, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("publish to sns: %w", err)
	}
	return aws.ToString(resp.MessageId), nil
}
