package notify

import (
	"context"

	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// NoOpPublisher logs alerts instead of publishing them. Used when no SNS
// topic is configured (local development, tests).
type NoOpPublisher struct {
	logger *observability.Logger
}

// NewNoOpPublisher creates a log-only alert publisher.
func NewNoOpPublisher(logger *observability.Logger) *NoOpPublisher {
	return &NoOpPublisher{logger: logger}
}

// PublishAlert logs the alert and succeeds.
func (p *NoOpPublisher) PublishAlert(ctx context.Context, alert QualityAlert) error {
	if p.logger != nil {
		p.logger.LogInfo(ctx, "quality alert (publishing disabled)",
			"kind", alert.Kind,
			"score", alert.Score,
			"auth_expired", alert.AuthExpired,
			"warnings", len(alert.Warnings),
		)
	}
	return nil
}
