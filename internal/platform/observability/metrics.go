package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter metric.Meter

	// Request metrics
	RequestDuration metric.Float64Histogram
	RequestsTotal   metric.Int64Counter

	// Tier cache metrics
	CacheHits      metric.Int64Counter
	CacheMisses    metric.Int64Counter
	CacheWriteFail metric.Int64Counter

	// Tier generation metrics
	TierGenerationDuration metric.Float64Histogram
	TierGenerationFailures metric.Int64Counter
	TierBaseReuse          metric.Int64Counter

	// Upstream gateway metrics
	UpstreamCalls    metric.Int64Counter
	UpstreamDuration metric.Float64Histogram
	UpstreamErrors   metric.Int64Counter

	// Quality metrics
	QualityScore metric.Float64Gauge

	// Circuit breaker metrics
	CircuitBreakerState metric.Int64Gauge

	// Scheduled refresh metrics
	RefreshRuns metric.Int64Counter

	// Alerting metrics
	AlertsPublished metric.Int64Counter

	exporter *prometheus.Exporter
}

// NewMetrics creates a new Metrics instance
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	m := &Metrics{
		meter:    provider.Meter(serviceName),
		exporter: exporter,
	}

	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments
func (m *Metrics) initMetrics() error {
	var err error

	m.RequestDuration, err = m.meter.Float64Histogram(
		"context.request.duration",
		metric.WithDescription("Context request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.RequestsTotal, err = m.meter.Int64Counter(
		"context.requests.total",
		metric.WithDescription("Total context requests served"),
	)
	if err != nil {
		return err
	}

	m.CacheHits, err = m.meter.Int64Counter(
		"context.cache.hits",
		metric.WithDescription("Tier cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"context.cache.misses",
		metric.WithDescription("Tier cache misses"),
	)
	if err != nil {
		return err
	}

	m.CacheWriteFail, err = m.meter.Int64Counter(
		"context.cache.write_failures",
		metric.WithDescription("Tier cache write-back failures (fail-open)"),
	)
	if err != nil {
		return err
	}

	m.TierGenerationDuration, err = m.meter.Float64Histogram(
		"context.tier.generation.duration",
		metric.WithDescription("Tier generation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.TierGenerationFailures, err = m.meter.Int64Counter(
		"context.tier.generation.failures",
		metric.WithDescription("Tier generations that produced no result"),
	)
	if err != nil {
		return err
	}

	m.TierBaseReuse, err = m.meter.Int64Counter(
		"context.tier.base_reuse",
		metric.WithDescription("Tier generations that reused a base tier result"),
	)
	if err != nil {
		return err
	}

	m.UpstreamCalls, err = m.meter.Int64Counter(
		"context.upstream.calls",
		metric.WithDescription("Upstream gateway calls"),
	)
	if err != nil {
		return err
	}

	m.UpstreamDuration, err = m.meter.Float64Histogram(
		"context.upstream.duration",
		metric.WithDescription("Upstream gateway call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.UpstreamErrors, err = m.meter.Int64Counter(
		"context.upstream.errors",
		metric.WithDescription("Upstream gateway call failures"),
	)
	if err != nil {
		return err
	}

	m.QualityScore, err = m.meter.Float64Gauge(
		"context.quality.score",
		metric.WithDescription("Overall data quality score of the last response"),
	)
	if err != nil {
		return err
	}

	m.CircuitBreakerState, err = m.meter.Int64Gauge(
		"context.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
	)
	if err != nil {
		return err
	}

	m.RefreshRuns, err = m.meter.Int64Counter(
		"context.refresh.runs",
		metric.WithDescription("Scheduled tier refresh executions"),
	)
	if err != nil {
		return err
	}

	m.AlertsPublished, err = m.meter.Int64Counter(
		"context.alerts.published",
		metric.WithDescription("Quality alerts published"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordRequest records one served context request
func (m *Metrics) RecordRequest(ctx context.Context, route string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	if m.RequestsTotal != nil {
		m.RequestsTotal.Add(ctx, 1, attrs)
	}
	if m.RequestDuration != nil {
		m.RequestDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

// RecordCacheHit records a cache hit for a tier
func (m *Metrics) RecordCacheHit(ctx context.Context, tier string) {
	if m.CacheHits == nil {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

// RecordCacheMiss records a cache miss for a tier
func (m *Metrics) RecordCacheMiss(ctx context.Context, tier string) {
	if m.CacheMisses == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

// RecordCacheWriteFailure records a failed cache write-back for a tier
func (m *Metrics) RecordCacheWriteFailure(ctx context.Context, tier string) {
	if m.CacheWriteFail == nil {
		return
	}
	m.CacheWriteFail.Add(ctx, 1, metric.WithAttributes(attribute.String("tier", tier)))
}

// RecordTierGeneration records a tier generation attempt
func (m *Metrics) RecordTierGeneration(ctx context.Context, tier string, d time.Duration, reusedBase bool, err error) {
	attrs := metric.WithAttributes(attribute.String("tier", tier))
	if m.TierGenerationDuration != nil {
		m.TierGenerationDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
	if reusedBase && m.TierBaseReuse != nil {
		m.TierBaseReuse.Add(ctx, 1, attrs)
	}
	if err != nil && m.TierGenerationFailures != nil {
		m.TierGenerationFailures.Add(ctx, 1, attrs)
	}
}

// RecordUpstreamCall records an upstream gateway call outcome
func (m *Metrics) RecordUpstreamCall(ctx context.Context, gateway string, d time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("gateway", gateway))
	if m.UpstreamCalls != nil {
		m.UpstreamCalls.Add(ctx, 1, attrs)
	}
	if m.UpstreamDuration != nil {
		m.UpstreamDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
	if err != nil && m.UpstreamErrors != nil {
		m.UpstreamErrors.Add(ctx, 1, attrs)
	}
}

// RecordQualityScore records the overall score of an aggregated response
func (m *Metrics) RecordQualityScore(ctx context.Context, score float64) {
	if m.QualityScore == nil {
		return
	}
	m.QualityScore.Record(ctx, score)
}

// SetCircuitBreakerState updates the state gauge for a named breaker
func (m *Metrics) SetCircuitBreakerState(ctx context.Context, name string, state int64) {
	if m.CircuitBreakerState == nil {
		return
	}
	m.CircuitBreakerState.Record(ctx, state, metric.WithAttributes(attribute.String("breaker", name)))
}

// RecordRefreshRun records a scheduled refresh execution for a tier
func (m *Metrics) RecordRefreshRun(ctx context.Context, tier string, err error) {
	if m.RefreshRuns == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RefreshRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("status", status),
	))
}

// RecordAlertPublished records a published quality alert
func (m *Metrics) RecordAlertPublished(ctx context.Context, kind string, err error) {
	if m.AlertsPublished == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.AlertsPublished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m.exporter == nil {
		return http.NotFoundHandler()
	}
	return promhttp.Handler()
}
