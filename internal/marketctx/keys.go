package marketctx

import "time"

// KeyScheme builds deterministic cache keys from a tier and a time bucket.
// Two processes serving the same logical request in the same bucket window
// compute identical keys and therefore share cache entries.
type KeyScheme struct {
	Prefix string
}

// Key returns the cache key for a tier at the given wall-clock time:
// prefix + tier name + ":" + time bucket.
func (k KeyScheme) Key(spec TierSpec, now time.Time) string {
	return k.Prefix + spec.Tier.String() + ":" + bucket(spec.Granularity, now)
}

// TierPattern returns the glob matching every bucket of one tier, for
// administrative invalidation.
func (k KeyScheme) TierPattern(tier Tier) string {
	return k.Prefix + tier.String() + ":*"
}

// Pattern returns the glob matching every key under the scheme's prefix.
func (k KeyScheme) Pattern(glob string) string {
	return k.Prefix + glob
}

// bucket rounds now down to the granularity unit. Purely a function of its
// inputs: no randomness, no per-process state. Times are normalized to UTC
// so independent processes agree on bucket boundaries.
func bucket(g Granularity, now time.Time) string {
	u := now.UTC()
	switch g {
	case GranularityHour:
		return u.Format("20060102_15")
	case GranularityDay:
		return u.Format("20060102")
	default:
		return u.Format("20060102_15_04")
	}
}
