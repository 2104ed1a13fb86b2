package marketctx

import (
	"testing"
	"time"
)

func TestParseTierRoundTrip(t *testing.T) {
	for _, tier := range AllTiers() {
		parsed, err := ParseTier(tier.String())
		if err != nil {
			t.Fatalf("ParseTier(%s): %v", tier, err)
		}
		if parsed != tier {
			t.Fatalf("ParseTier(%s) = %s", tier, parsed)
		}
	}

	if _, err := ParseTier("weekly"); err == nil {
		t.Fatal("expected error for unknown tier name")
	}
}

func TestDefaultRegistryValidates(t *testing.T) {
	registry := DefaultRegistry()

	swing := registry.Spec(TierSwing)
	if !swing.HasBase || swing.Base != TierIntraday {
		t.Fatalf("swing base = %+v", swing)
	}
	longTerm := registry.Spec(TierLongTerm)
	if !longTerm.HasBase || longTerm.Base != TierSwing {
		t.Fatalf("long_term base = %+v", longTerm)
	}
}

func TestRegistryRejectsTTLBelowBase(t *testing.T) {
	// swing reuses intraday, so it may not expire sooner than intraday
	_, err := NewRegistry(map[Tier]time.Duration{
		TierIntraday: 300 * time.Second,
		TierSwing:    60 * time.Second,
	})
	if err == nil {
		t.Fatal("expected validation error for swing ttl < intraday ttl")
	}
}

func TestRegistryAcceptsEqualTTLs(t *testing.T) {
	_, err := NewRegistry(map[Tier]time.Duration{
		TierIntraday: 120 * time.Second,
		TierSwing:    120 * time.Second,
	})
	if err != nil {
		t.Fatalf("equal ttls should validate: %v", err)
	}
}

func TestRegistryIgnoresNonPositiveOverrides(t *testing.T) {
	registry, err := NewRegistry(map[Tier]time.Duration{TierPrimary: -1})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := registry.Spec(TierPrimary).TTL; got != 60*time.Second {
		t.Fatalf("primary ttl = %v, want default", got)
	}
}
