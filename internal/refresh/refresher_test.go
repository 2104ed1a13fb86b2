package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ashok1995/kite-services-sub000/internal/marketctx"
	"github.com/ashok1995/kite-services-sub000/internal/platform/cache"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// stubGenerator counts generation calls and optionally fails one tier.
type stubGenerator struct {
	primaryCalls  atomic.Int32
	intradayCalls atomic.Int32
	failPrimary   bool
}

func (g *stubGenerator) Primary(context.Context) (*marketctx.PrimaryContext, []string, error) {
	g.primaryCalls.Add(1)
	if g.failPrimary {
		return nil, nil, errors.New("index source down")
	}
	return &marketctx.PrimaryContext{MarketStatus: "open"}, nil, nil
}

func (g *stubGenerator) Detailed(context.Context) (*marketctx.DetailedContext, []string, error) {
	return &marketctx.DetailedContext{}, nil, nil
}

func (g *stubGenerator) Intraday(context.Context) (*marketctx.IntradayContext, []string, error) {
	g.intradayCalls.Add(1)
	return &marketctx.IntradayContext{Trend: "neutral"}, nil, nil
}

func (g *stubGenerator) Swing(context.Context, *marketctx.IntradayContext) (*marketctx.SwingContext, []string, error) {
	return &marketctx.SwingContext{}, nil, nil
}

func (g *stubGenerator) LongTerm(context.Context, *marketctx.SwingContext) (*marketctx.LongTermContext, []string, error) {
	return &marketctx.LongTermContext{}, nil, nil
}

func newTestRefresher(t *testing.T, gen marketctx.Generator, store cache.Store) (*Refresher, *marketctx.Orchestrator) {
	t.Helper()
	logger := observability.NewTestLogger()
	orch := marketctx.NewOrchestrator(marketctx.OrchestratorConfig{
		Store:     store,
		Keys:      marketctx.KeyScheme{Prefix: "mktctx:"},
		Generator: gen,
		Logger:    logger,
	})
	refresher, err := New(Config{
		Orchestrator: orch,
		Tiers:        []marketctx.Tier{marketctx.TierPrimary, marketctx.TierIntraday},
		Schedule:     "*/5 * * * * *",
		Parallelism:  2,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return refresher, orch
}

func TestRunOnceWarmsConfiguredTiers(t *testing.T) {
	store := cache.NewMemoryStore(16)
	defer store.Close()
	gen := &stubGenerator{}
	refresher, orch := newTestRefresher(t, gen, store)

	refresher.RunOnce(context.Background())

	if gen.primaryCalls.Load() != 1 || gen.intradayCalls.Load() != 1 {
		t.Fatalf("generation calls = %d/%d, want 1/1",
			gen.primaryCalls.Load(), gen.intradayCalls.Load())
	}

	set := orch.Resolve(context.Background(), []marketctx.Tier{marketctx.TierPrimary, marketctx.TierIntraday})
	if !set.CacheHit(marketctx.TierPrimary) || !set.CacheHit(marketctx.TierIntraday) {
		t.Fatal("refreshed tiers not served from cache")
	}
}

func TestRunOnceContainsTierFailure(t *testing.T) {
	store := cache.NewMemoryStore(16)
	defer store.Close()
	gen := &stubGenerator{failPrimary: true}
	refresher, orch := newTestRefresher(t, gen, store)

	refresher.RunOnce(context.Background())

	// The failing tier must not block the healthy one
	set := orch.Resolve(context.Background(), []marketctx.Tier{marketctx.TierIntraday})
	if !set.CacheHit(marketctx.TierIntraday) {
		t.Fatal("healthy tier not refreshed alongside failing one")
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	store := cache.NewMemoryStore(16)
	defer store.Close()
	logger := observability.NewTestLogger()
	orch := marketctx.NewOrchestrator(marketctx.OrchestratorConfig{
		Store:     store,
		Keys:      marketctx.KeyScheme{Prefix: "mktctx:"},
		Generator: &stubGenerator{},
		Logger:    logger,
	})

	_, err := New(Config{
		Orchestrator: orch,
		Tiers:        []marketctx.Tier{marketctx.TierPrimary},
		Schedule:     "not a schedule",
		Logger:       logger,
	})
	if err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}
