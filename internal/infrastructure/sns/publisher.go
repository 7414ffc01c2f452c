package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-wa-onboarding/internal/config"
	"github.com/go-wa-onboarding/internal/domain"
	"github.com/go-wa-onboarding/internal/infrastructure/awsenv"
)

// Publisher fans dashboard notices out to an SNS topic so other services
// (email digests, support tooling) see onboarding progress.
type Publisher struct {
	client   *sns.Client
	topicARN string
}

func NewPublisher(ctx context.Context, cfg *config.Config) (*Publisher, error) {
	awsCfg, err := awsenv.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	var opts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		opts = append(opts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return &Publisher{client: sns.NewFromConfig(awsCfg, opts...), topicARN: cfg.SNSTopicARN}, nil
}

func (p *Publisher) Publish(ctx context.Context, n domain.Notice) error {
	in, err := publishInput(p.topicARN, n)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, in)
	return err
}

// publishInput encodes the notice as the message body and exposes tenant and
// level as attributes for subscription filter policies.
func publishInput(topicARN string, n domain.Notice) (*sns.PublishInput, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("marshal notice: %w", err)
	}
	return &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Subject:  aws.String("WhatsApp onboarding " + string(n.Level)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"tenant_id": {DataType: aws.String("String"), StringValue: aws.String(n.TenantID)},
			"level":     {DataType: aws.String("String"), StringValue: aws.String(string(n.Level))},
		},
	}, nil
}
