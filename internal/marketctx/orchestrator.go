package marketctx

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ashok1995/kite-services-sub000/internal/marketdata"
	"github.com/ashok1995/kite-services-sub000/internal/platform/cache"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// Orchestrator resolves requested tiers through the cache-aside protocol:
// key, cache lookup, base resolution, generation, write-back. Every
// invocation is request-scoped; the cache store is the only shared resource.
type Orchestrator struct {
	store    cache.Store
	keys     KeyScheme
	registry *Registry
	gen      Generator

	genTimeout time.Duration
	now        func() time.Time

	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  observability.Tracer
}

// OrchestratorConfig holds orchestrator dependencies.
type OrchestratorConfig struct {
	Store             cache.Store
	Keys              KeyScheme
	Registry          *Registry
	Generator         Generator
	GenerationTimeout time.Duration
	Now               func() time.Time
	Logger            *observability.Logger
	Metrics           *observability.Metrics
	Tracer            observability.Tracer
}

// NewOrchestrator creates an orchestrator. All dependencies are injected;
// there is no package-level state.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Registry == nil {
		cfg.Registry = DefaultRegistry()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 10 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoopTracer()
	}

	return &Orchestrator{
		store:      cfg.Store,
		keys:       cfg.Keys,
		registry:   cfg.Registry,
		gen:        cfg.Generator,
		genTimeout: cfg.GenerationTimeout,
		now:        cfg.Now,
		logger:     cfg.Logger.Component("orchestrator"),
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
	}
}

// ResolvedSet collects per-tier outcomes for one request.
type ResolvedSet struct {
	mu          sync.Mutex
	results     map[Tier]TierResult
	cacheHits   map[Tier]bool
	warnings    []string
	authExpired bool
}

func newResolvedSet() *ResolvedSet {
	return &ResolvedSet{
		results:   make(map[Tier]TierResult),
		cacheHits: make(map[Tier]bool),
	}
}

// Result returns the resolved result for a tier, if any.
func (s *ResolvedSet) Result(tier Tier) (TierResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[tier]
	return r, ok
}

// Len returns the number of tiers that produced a result.
func (s *ResolvedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// CacheHit reports whether a tier was served from cache.
func (s *ResolvedSet) CacheHit(tier Tier) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cacheHits[tier]
}

// Warnings returns the accumulated warnings.
func (s *ResolvedSet) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// AuthExpired reports whether any generation hit stale upstream credentials.
func (s *ResolvedSet) AuthExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authExpired
}

func (s *ResolvedSet) record(tier Tier, result TierResult, hit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[tier] = result
	if hit {
		s.cacheHits[tier] = true
	}
}

func (s *ResolvedSet) addWarnings(warnings ...string) {
	if len(warnings) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, warnings...)
}

func (s *ResolvedSet) markAuthExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authExpired = true
}

// Resolve resolves the requested tiers in dependency order: primary,
// detailed, and intraday concurrently, then swing, then long-term, so a
// dependent tier's base has always been attempted before its own
// reuse-resolution step. Tier failures degrade to warnings; the set itself
// is always returned.
func (o *Orchestrator) Resolve(ctx context.Context, requested []Tier) *ResolvedSet {
	ctx, span := o.tracer.StartSpan(ctx, "Orchestrator.Resolve",
		observability.WithAttributes(attribute.Int("tiers_requested", len(requested))),
	)
	defer span.End()

	want := make(map[Tier]bool, len(requested))
	for _, t := range requested {
		want[t] = true
	}

	set := newResolvedSet()

	// Independent tiers run concurrently; the zero-value errgroup carries no
	// cancellation, so one tier's failure never aborts its siblings.
	var group errgroup.Group
	for _, tier := range []Tier{TierPrimary, TierDetailed, TierIntraday} {
		if !want[tier] {
			continue
		}
		tier := tier
		group.Go(func() error {
			o.resolveTier(ctx, tier, set)
			return nil
		})
	}
	_ = group.Wait()

	if want[TierSwing] {
		o.resolveTier(ctx, TierSwing, set)
	}
	if want[TierLongTerm] {
		o.resolveTier(ctx, TierLongTerm, set)
	}

	return set
}

// resolveTier runs the per-tier state machine: cache lookup, then
// generation with base reuse, then write-back.
func (o *Orchestrator) resolveTier(ctx context.Context, tier Tier, set *ResolvedSet) {
	spec := o.registry.Spec(tier)
	key := o.keys.Key(spec, o.now())

	ctx, span := o.tracer.StartSpan(ctx, "Orchestrator.resolveTier",
		observability.WithAttributes(
			attribute.String("tier", tier.String()),
			attribute.String("key", key),
		),
	)
	defer span.End()

	if payload, ok := o.store.Get(ctx, key); ok {
		result, err := DecodeResult(payload)
		switch {
		case err == nil && result.ContextTier() == tier:
			if o.metrics != nil {
				o.metrics.RecordCacheHit(ctx, tier.String())
			}
			span.AddEvent("cache_hit")
			set.record(tier, result, true)
			return
		case err != nil:
			// An undecodable entry is just a miss; the write-back below replaces it
			o.logger.LogWarn(ctx, "cache entry undecodable, regenerating", "tier", tier.String(), "error", err)
		default:
			o.logger.LogWarn(ctx, "cache entry holds wrong tier, regenerating",
				"tier", tier.String(), "stored_tier", result.ContextTier().String())
		}
	}
	if o.metrics != nil {
		o.metrics.RecordCacheMiss(ctx, tier.String())
	}

	genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
	defer cancel()

	start := time.Now()
	result, warnings, reusedBase, err := o.generate(genCtx, tier, set)
	if o.metrics != nil {
		o.metrics.RecordTierGeneration(ctx, tier.String(), time.Since(start), reusedBase, err)
	}
	set.addWarnings(warnings...)

	if err != nil {
		if errors.Is(err, marketdata.ErrAuthExpired) {
			set.markAuthExpired()
		}
		span.NoticeError(err)
		o.logger.LogWarn(ctx, "tier generation failed", "tier", tier.String(), "error", err)
		set.addWarnings(tier.String() + ": generation failed: " + err.Error())
		return
	}

	// A failed write does not invalidate the result: the caller still gets
	// it this request, it is just not cached for the next one.
	if payload, encErr := EncodeResult(result, o.now()); encErr != nil {
		o.logger.LogWarn(ctx, "tier result not cacheable", "tier", tier.String(), "error", encErr)
	} else if !o.store.Set(ctx, key, payload, spec.TTL) {
		if o.metrics != nil {
			o.metrics.RecordCacheWriteFailure(ctx, tier.String())
		}
	}

	set.record(tier, result, false)
}

// generate dispatches to the tier's generation routine, resolving the base
// tier first for dependent tiers.
func (o *Orchestrator) generate(ctx context.Context, tier Tier, set *ResolvedSet) (TierResult, []string, bool, error) {
	switch tier {
	case TierPrimary:
		r, w, err := o.gen.Primary(ctx)
		if err != nil {
			return nil, w, false, err
		}
		return r, w, false, nil

	case TierDetailed:
		r, w, err := o.gen.Detailed(ctx)
		if err != nil {
			return nil, w, false, err
		}
		return r, w, false, nil

	case TierIntraday:
		r, w, err := o.gen.Intraday(ctx)
		if err != nil {
			return nil, w, false, err
		}
		return r, w, false, nil

	case TierSwing:
		base := o.intradayBase(ctx, set)
		r, w, err := o.gen.Swing(ctx, base)
		if err != nil {
			return nil, w, false, err
		}
		return r, w, base != nil, nil

	case TierLongTerm:
		base := o.swingBase(ctx, set)
		r, w, err := o.gen.LongTerm(ctx, base)
		if err != nil {
			return nil, w, false, err
		}
		return r, w, base != nil, nil

	default:
		return nil, nil, false, errors.New("unknown tier")
	}
}

// intradayBase resolves swing's base: the in-flight intraday result from
// this request when present, otherwise intraday's own cache entry. The
// returned snapshot stays valid for the rest of the request even if the
// cache entry expires mid-computation.
func (o *Orchestrator) intradayBase(ctx context.Context, set *ResolvedSet) *IntradayContext {
	if r, ok := set.Result(TierIntraday); ok {
		if intraday, ok := r.(*IntradayContext); ok {
			return intraday
		}
	}
	if r := o.cachedResult(ctx, TierIntraday); r != nil {
		if intraday, ok := r.(*IntradayContext); ok {
			return intraday
		}
	}
	return nil
}

// swingBase resolves long-term's base the same way.
func (o *Orchestrator) swingBase(ctx context.Context, set *ResolvedSet) *SwingContext {
	if r, ok := set.Result(TierSwing); ok {
		if swing, ok := r.(*SwingContext); ok {
			return swing
		}
	}
	if r := o.cachedResult(ctx, TierSwing); r != nil {
		if swing, ok := r.(*SwingContext); ok {
			return swing
		}
	}
	return nil
}

// cachedResult reads and decodes one tier's current-bucket cache entry.
func (o *Orchestrator) cachedResult(ctx context.Context, tier Tier) TierResult {
	spec := o.registry.Spec(tier)
	payload, ok := o.store.Get(ctx, o.keys.Key(spec, o.now()))
	if !ok {
		return nil
	}
	result, err := DecodeResult(payload)
	if err != nil || result.ContextTier() != tier {
		return nil
	}
	return result
}

// FlushPattern deletes cache entries matching a glob under the key prefix.
// Administrative only; never part of normal request flow.
func (o *Orchestrator) FlushPattern(ctx context.Context, glob string) int {
	return o.store.DeletePattern(ctx, o.keys.Pattern(glob))
}

// Refresh regenerates one tier and writes it back, bypassing the cache
// read. Used by the scheduled refresher to keep hot tiers warm.
func (o *Orchestrator) Refresh(ctx context.Context, tier Tier) error {
	spec := o.registry.Spec(tier)
	key := o.keys.Key(spec, o.now())

	genCtx, cancel := context.WithTimeout(ctx, o.genTimeout)
	defer cancel()

	result, _, _, err := o.generate(genCtx, tier, newResolvedSet())
	if err != nil {
		return err
	}

	payload, err := EncodeResult(result, o.now())
	if err != nil {
		return err
	}
	o.store.Set(ctx, key, payload, spec.TTL)
	return nil
}
