// Package marketctx implements the tiered market-context cache: tier specs,
// time-bucketed cache keys, the orchestration state machine that resolves
// tiers against the cache with base-tier reuse, and quality reporting.
package marketctx

import (
	"fmt"
	"time"
)

// Tier identifies one context aggregate.
type Tier int

const (
	// TierPrimary is the headline market snapshot (indices, session, VIX)
	TierPrimary Tier = iota
	// TierDetailed adds sector performance, global indices, and breadth
	TierDetailed
	// TierIntraday is the watchlist quote snapshot with momentum
	TierIntraday
	// TierSwing derives multi-day levels, reusing intraday's quote snapshot
	TierSwing
	// TierLongTerm derives regime and posture, reusing swing
	TierLongTerm
)

var tierNames = map[Tier]string{
	TierPrimary:  "primary",
	TierDetailed: "detailed",
	TierIntraday: "intraday",
	TierSwing:    "swing",
	TierLongTerm: "long_term",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseTier parses a tier name as used in cache keys and request parameters.
func ParseTier(s string) (Tier, error) {
	for tier, name := range tierNames {
		if name == s {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// AllTiers returns every tier in dependency order (bases before dependents).
func AllTiers() []Tier {
	return []Tier{TierPrimary, TierDetailed, TierIntraday, TierSwing, TierLongTerm}
}

// Granularity is the time-bucket rounding unit for a tier's cache key.
type Granularity int

const (
	// GranularityMinute buckets keys per wall-clock minute
	GranularityMinute Granularity = iota
	// GranularityHour buckets keys per hour
	GranularityHour
	// GranularityDay buckets keys per day
	GranularityDay
)

// TierSpec holds a tier's caching parameters.
type TierSpec struct {
	Tier        Tier
	TTL         time.Duration
	Granularity Granularity
	Base        Tier
	HasBase     bool
}

// Registry holds the validated tier specs for one service instance.
type Registry struct {
	specs map[Tier]TierSpec
}

// defaultSpecs returns the built-in tier table. TTLs increase with tier
// slowness; bucket granularity follows the tier's horizon.
func defaultSpecs() map[Tier]TierSpec {
	return map[Tier]TierSpec{
		TierPrimary:  {Tier: TierPrimary, TTL: 60 * time.Second, Granularity: GranularityMinute},
		TierDetailed: {Tier: TierDetailed, TTL: 300 * time.Second, Granularity: GranularityMinute},
		TierIntraday: {Tier: TierIntraday, TTL: 30 * time.Second, Granularity: GranularityMinute},
		TierSwing:    {Tier: TierSwing, TTL: 300 * time.Second, Granularity: GranularityHour, Base: TierIntraday, HasBase: true},
		TierLongTerm: {Tier: TierLongTerm, TTL: 900 * time.Second, Granularity: GranularityDay, Base: TierSwing, HasBase: true},
	}
}

// NewRegistry builds a registry from the defaults with optional per-tier TTL
// overrides, then validates the reuse chain.
func NewRegistry(ttlOverrides map[Tier]time.Duration) (*Registry, error) {
	specs := defaultSpecs()
	for tier, ttl := range ttlOverrides {
		if ttl <= 0 {
			continue
		}
		spec, ok := specs[tier]
		if !ok {
			return nil, fmt.Errorf("ttl override for unknown tier %d", tier)
		}
		spec.TTL = ttl
		specs[tier] = spec
	}

	r := &Registry{specs: specs}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// DefaultRegistry returns a registry with built-in TTLs. The defaults always
// validate.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// Spec returns the spec for a tier.
func (r *Registry) Spec(tier Tier) TierSpec {
	return r.specs[tier]
}

// validate checks the base relation is a strict chain and that no tier has a
// shorter TTL than a tier it reuses.
func (r *Registry) validate() error {
	for _, spec := range r.specs {
		seen := map[Tier]bool{spec.Tier: true}
		cur := spec
		for cur.HasBase {
			base, ok := r.specs[cur.Base]
			if !ok {
				return fmt.Errorf("tier %s declares unknown base %s", cur.Tier, cur.Base)
			}
			if seen[base.Tier] {
				return fmt.Errorf("tier %s base chain contains a cycle", spec.Tier)
			}
			seen[base.Tier] = true

			if cur.TTL < base.TTL {
				return fmt.Errorf("tier %s ttl %v is shorter than base %s ttl %v",
					cur.Tier, cur.TTL, base.Tier, base.TTL)
			}
			cur = base
		}
	}
	return nil
}
