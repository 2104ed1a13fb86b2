// Package refresh keeps hot cache tiers warm on a schedule so interactive
// requests land on fresh entries instead of paying generation latency.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
	"github.com/ashok1995/kite-services-sub000/internal/platform/worker"
)

// Refresher regenerates configured tiers on a cron schedule. It bypasses
// cache reads so each run writes a fresh entry for the current bucket.
type Refresher struct {
	orch        *marketctx.Orchestrator
	tiers       []marketctx.Tier
	schedule    string
	parallelism int
	runTimeout  time.Duration
	logger      *observability.Logger
	metrics     *observability.Metrics

	cron *cron.Cron
}

// Config holds refresher configuration. Schedule uses six-field cron
// syntax with seconds.
type Config struct {
	Orchestrator *marketctx.Orchestrator
	Tiers        []marketctx.Tier
	Schedule     string
	Parallelism  int
	RunTimeout   time.Duration
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// New creates a refresher. Start must be called to begin scheduling.
func New(cfg Config) (*Refresher, error) {
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if len(cfg.Tiers) == 0 {
		return nil, fmt.Errorf("at least one tier is required")
	}
	if cfg.Schedule == "" {
		return nil, fmt.Errorf("schedule is required")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 2
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}

	r := &Refresher{
		orch:        cfg.Orchestrator,
		tiers:       cfg.Tiers,
		schedule:    cfg.Schedule,
		parallelism: cfg.Parallelism,
		runTimeout:  cfg.RunTimeout,
		logger:      cfg.Logger.Component("refresher"),
		metrics:     cfg.Metrics,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}

	if _, err := r.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.runTimeout)
		defer cancel()
		r.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Schedule, err)
	}

	return r, nil
}

// Start begins the schedule.
func (r *Refresher) Start() {
	r.cron.Start()
	r.logger.LogInfo(context.Background(), "refresh schedule started",
		"schedule", r.schedule, "tiers", len(r.tiers))
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce refreshes all configured tiers, bounded-parallel. Per-tier
// failures are logged and counted; the next scheduled run retries.
func (r *Refresher) RunOnce(ctx context.Context) {
	jobs := make([]worker.Job, len(r.tiers))
	for i, tier := range r.tiers {
		tier := tier
		jobs[i] = worker.Job{
			ID: tier.String(),
			Execute: func(ctx context.Context) error {
				return r.orch.Refresh(ctx, tier)
			},
		}
	}

	start := time.Now()
	results := worker.RunAll(ctx, r.parallelism, jobs)

	failed := 0
	for _, res := range results {
		if r.metrics != nil {
			r.metrics.RecordRefreshRun(ctx, res.JobID, res.Err)
		}
		if res.Err != nil {
			failed++
			r.logger.LogWarn(ctx, "tier refresh failed", "tier", res.JobID, "error", res.Err)
		}
	}

	r.logger.LogDebug(ctx, "refresh run completed",
		"tiers", len(r.tiers), "failed", failed, "duration_ms", time.Since(start).Milliseconds())
}
