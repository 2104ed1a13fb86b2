// Package notify publishes quality alerts to operators. Alerting is
// best-effort: a dead topic degrades the service's visibility, never its
// responses.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ashok1995/kite-services-sub000/internal/platform/aws"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// Alert kinds carried as SNS message attributes for subscriber filtering.
const (
	KindLowQuality  = "low_quality"
	KindAuthExpired = "auth_expired"
)

// QualityAlert describes a degradation worth an operator's attention.
type QualityAlert struct {
	Kind        string    `json:"kind"`
	Score       float64   `json:"score"`
	Warnings    []string  `json:"warnings,omitempty"`
	AuthExpired bool      `json:"auth_expired,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher delivers quality alerts.
type Publisher interface {
	PublishAlert(ctx context.Context, alert QualityAlert) error
}

// SNSPublisher publishes alerts to an SNS topic.
type SNSPublisher struct {
	snsClient *aws.SNSClient
	topicARN  string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// SNSPublisherConfig holds publisher configuration.
type SNSPublisherConfig struct {
	SNSClient *aws.SNSClient
	TopicARN  string
	Logger    *observability.Logger
	Metrics   *observability.Metrics
}

// NewSNSPublisher creates an SNS-backed alert publisher.
func NewSNSPublisher(cfg SNSPublisherConfig) (*SNSPublisher, error) {
	if cfg.SNSClient == nil {
		return nil, fmt.Errorf("sns client is required")
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("sns topic arn is required")
	}
	return &SNSPublisher{
		snsClient: cfg.SNSClient,
		topicARN:  cfg.TopicARN,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// PublishAlert publishes one alert with filterable attributes.
func (p *SNSPublisher) PublishAlert(ctx context.Context, alert QualityAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	attributes := map[string]string{
		"kind":  alert.Kind,
		"score": strconv.FormatFloat(alert.Score, 'f', 2, 64),
	}

	err = p.snsClient.Publish(ctx, p.topicARN, string(payload), attributes)
	if p.metrics != nil {
		p.metrics.RecordAlertPublished(ctx, alert.Kind, err)
	}
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	if p.logger != nil {
		p.logger.LogInfo(ctx, "published quality alert",
			"kind", alert.Kind, "score", alert.Score, "topic_arn", p.topicARN)
	}
	return nil
}
