package marketctx

import (
	"testing"
	"time"
)

func TestKeyIsDeterministicWithinBucket(t *testing.T) {
	scheme := KeyScheme{Prefix: "mktctx:"}
	spec := DefaultRegistry().Spec(TierPrimary)

	a := time.Date(2026, 3, 9, 10, 4, 1, 0, time.UTC)
	b := time.Date(2026, 3, 9, 10, 4, 59, 0, time.UTC)

	keyA := scheme.Key(spec, a)
	keyB := scheme.Key(spec, b)
	if keyA != keyB {
		t.Fatalf("keys within one minute bucket differ: %q vs %q", keyA, keyB)
	}
	if keyA != "mktctx:primary:20260309_10_04" {
		t.Fatalf("unexpected key %q", keyA)
	}

	c := time.Date(2026, 3, 9, 10, 5, 0, 0, time.UTC)
	if scheme.Key(spec, c) == keyA {
		t.Fatal("key did not change across the bucket boundary")
	}
}

func TestKeyGranularityPerTier(t *testing.T) {
	scheme := KeyScheme{Prefix: "mktctx:"}
	registry := DefaultRegistry()
	now := time.Date(2026, 3, 9, 10, 4, 30, 0, time.UTC)

	cases := []struct {
		tier Tier
		want string
	}{
		{TierIntraday, "mktctx:intraday:20260309_10_04"},
		{TierSwing, "mktctx:swing:20260309_10"},
		{TierLongTerm, "mktctx:long_term:20260309"},
	}
	for _, tc := range cases {
		if got := scheme.Key(registry.Spec(tc.tier), now); got != tc.want {
			t.Errorf("%s key = %q, want %q", tc.tier, got, tc.want)
		}
	}
}

func TestKeyNormalizesToUTC(t *testing.T) {
	scheme := KeyScheme{Prefix: "mktctx:"}
	spec := DefaultRegistry().Spec(TierIntraday)

	utc := time.Date(2026, 3, 9, 10, 4, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("IST", 5*3600+1800))

	if scheme.Key(spec, utc) != scheme.Key(spec, local) {
		t.Fatal("same instant in different zones produced different keys")
	}
}

func TestTierPattern(t *testing.T) {
	scheme := KeyScheme{Prefix: "mktctx:"}
	if got := scheme.TierPattern(TierSwing); got != "mktctx:swing:*" {
		t.Fatalf("tier pattern = %q", got)
	}
	if got := scheme.Pattern("*"); got != "mktctx:*" {
		t.Fatalf("pattern = %q", got)
	}
}
