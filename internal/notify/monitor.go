package notify

import (
	"context"
	"sync"
	"time"

	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// Monitor watches response quality and raises alerts when it drops below
// the configured floor or upstream credentials expire. Alerts of the same
// kind are throttled so one bad stretch does not flood the topic.
type Monitor struct {
	publisher  Publisher
	scoreFloor float64
	throttle   time.Duration
	logger     *observability.Logger
	now        func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// MonitorConfig holds monitor configuration.
type MonitorConfig struct {
	Publisher  Publisher
	ScoreFloor float64
	Throttle   time.Duration
	Logger     *observability.Logger
	Now        func() time.Time
}

// NewMonitor creates a quality monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Throttle <= 0 {
		cfg.Throttle = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{
		publisher:  cfg.Publisher,
		scoreFloor: cfg.ScoreFloor,
		throttle:   cfg.Throttle,
		logger:     cfg.Logger,
		now:        cfg.Now,
		lastSent:   make(map[string]time.Time),
	}
}

// publishTimeout bounds a detached alert publish, covering the SNS client's
// own retries.
const publishTimeout = 10 * time.Second

// Observe inspects one response's quality report and publishes alerts as
// needed. Publishing happens on a detached goroutine; failures are logged
// and swallowed.
func (m *Monitor) Observe(ctx context.Context, resp *marketctx.Response) {
	if resp == nil || m.publisher == nil {
		return
	}

	if resp.Quality.AuthExpired && m.shouldSend(KindAuthExpired) {
		m.publish(ctx, QualityAlert{
			Kind:        KindAuthExpired,
			Score:       resp.Quality.OverallScore,
			Warnings:    resp.Quality.Warnings,
			AuthExpired: true,
			OccurredAt:  m.now().UTC(),
		})
	}

	if resp.Quality.OverallScore < m.scoreFloor && m.shouldSend(KindLowQuality) {
		m.publish(ctx, QualityAlert{
			Kind:       KindLowQuality,
			Score:      resp.Quality.OverallScore,
			Warnings:   resp.Quality.Warnings,
			OccurredAt: m.now().UTC(),
		})
	}
}

func (m *Monitor) shouldSend(kind string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if last, ok := m.lastSent[kind]; ok && now.Sub(last) < m.throttle {
		return false
	}
	m.lastSent[kind] = now
	return true
}

// publish runs detached from the caller: a slow SNS round trip (breaker
// probes, retries) must not add latency to an already-degraded response.
func (m *Monitor) publish(ctx context.Context, alert QualityAlert) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := m.publisher.PublishAlert(ctx, alert); err != nil && m.logger != nil {
			m.logger.LogWarn(ctx, "alert publish failed", "kind", alert.Kind, "error", err)
		}
	}()
}
