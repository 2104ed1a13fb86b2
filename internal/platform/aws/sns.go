package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
	"github.com/ashok1995/kite-services-sub000/internal/platform/resilience"
)

// SNSClient wraps the SNS client with a circuit breaker and retry. Alert
// publishing must never be able to stall or cascade into request handling.
type SNSClient struct {
	client         *sns.Client
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    resilience.RetryConfig
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// SNSClientConfig holds SNS client configuration.
type SNSClientConfig struct {
	AWSConfig      aws.Config
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	RetryConfig    *resilience.RetryConfig
	CircuitBreaker *resilience.CircuitBreaker
}

// NewSNSClient creates an SNS client with resilience defaults.
func NewSNSClient(cfg SNSClientConfig) *SNSClient {
	retryConfig := resilience.DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	circuitBreaker := cfg.CircuitBreaker
	if circuitBreaker == nil {
		circuitBreaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "sns",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			OnStateChange: func(from, to resilience.State) {
				if cfg.Logger != nil {
					cfg.Logger.LogInfo(context.Background(), "sns circuit breaker state changed",
						"from", from.String(), "to", to.String())
				}
				if cfg.Metrics != nil {
					cfg.Metrics.SetCircuitBreakerState(context.Background(), "sns", int64(to))
				}
			},
		})
	}

	return &SNSClient{
		client:         sns.NewFromConfig(cfg.AWSConfig),
		circuitBreaker: circuitBreaker,
		retryConfig:    retryConfig,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// Publish publishes a pre-serialized message with retry and circuit
// breaking. Attributes become SNS message attributes for subscriber-side
// filtering.
func (s *SNSClient) Publish(ctx context.Context, topicARN, message string, attributes map[string]string) error {
	start := time.Now()

	err := s.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) error {
			return s.publishOnce(ctx, topicARN, message, attributes)
		})
	})

	if s.metrics != nil {
		s.metrics.RecordUpstreamCall(ctx, "sns", time.Since(start), err)
	}
	if err != nil && s.logger != nil {
		s.logger.LogError(ctx, "sns publish failed", err, "topic_arn", topicARN)
	}
	return err
}

func (s *SNSClient) publishOnce(ctx context.Context, topicARN, message string, attributes map[string]string) error {
	messageAttributes := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		messageAttributes[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:          aws.String(topicARN),
		Message:           aws.String(message),
		MessageAttributes: messageAttributes,
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

// CircuitBreakerState returns the publish breaker's current state.
func (s *SNSClient) CircuitBreakerState() resilience.State {
	return s.circuitBreaker.State()
}
