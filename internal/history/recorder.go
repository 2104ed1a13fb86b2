// Package history persists per-request quality reports to DynamoDB for
// offline analysis of degradation patterns. Writes are best-effort and
// asynchronous; request handling never waits on them.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// DynamoAPI is the slice of the DynamoDB client the recorder uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, input *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Record is one persisted quality report. Items expire through the table's
// TTL attribute.
type Record struct {
	Day              string   `dynamodbav:"day"`
	RecordedAtNanos  int64    `dynamodbav:"recorded_at_nanos"`
	RecordedAt       string   `dynamodbav:"recorded_at"`
	RequestedTiers   []string `dynamodbav:"requested_tiers"`
	OverallScore     float64  `dynamodbav:"overall_score"`
	CacheHits        []string `dynamodbav:"cache_hits,omitempty"`
	Warnings         []string `dynamodbav:"warnings,omitempty"`
	AuthExpired      bool     `dynamodbav:"auth_expired"`
	ProcessingTimeMS int64    `dynamodbav:"processing_time_ms"`
	TTL              int64    `dynamodbav:"ttl"`
}

// Recorder writes quality reports to DynamoDB.
type Recorder struct {
	client    DynamoAPI
	tableName string
	retention time.Duration
	logger    *observability.Logger
	now       func() time.Time
}

// RecorderConfig holds recorder configuration.
type RecorderConfig struct {
	Client    DynamoAPI
	TableName string
	Retention time.Duration
	Logger    *observability.Logger
	Now       func() time.Time
}

// NewRecorder creates a DynamoDB-backed quality report recorder.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("dynamodb client is required")
	}
	if cfg.TableName == "" {
		return nil, fmt.Errorf("table name is required")
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Recorder{
		client:    cfg.Client,
		tableName: cfg.TableName,
		retention: cfg.Retention,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// Record persists one quality report. Failures are logged, never returned
// to the request path.
func (r *Recorder) Record(ctx context.Context, requested []marketctx.Tier, resp *marketctx.Response) {
	if resp == nil {
		return
	}

	now := r.now().UTC()
	tiers := make([]string, len(requested))
	for i, tier := range requested {
		tiers[i] = tier.String()
	}

	record := Record{
		Day:              now.Format("20060102"),
		RecordedAtNanos:  now.UnixNano(),
		RecordedAt:       now.Format(time.RFC3339Nano),
		RequestedTiers:   tiers,
		OverallScore:     resp.Quality.OverallScore,
		CacheHits:        resp.Quality.CacheHits,
		Warnings:         resp.Quality.Warnings,
		AuthExpired:      resp.Quality.AuthExpired,
		ProcessingTimeMS: resp.ProcessingTimeMS,
		TTL:              now.Add(r.retention).Unix(),
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		r.warn(ctx, "quality record not marshalable", err)
		return
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.tableName,
		Item:      item,
	}); err != nil {
		r.warn(ctx, "quality record write failed", err)
	}
}

func (r *Recorder) warn(ctx context.Context, msg string, err error) {
	if r.logger != nil {
		r.logger.LogWarn(ctx, msg, "table", r.tableName, "error", err)
	}
}
