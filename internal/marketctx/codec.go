package marketctx

import (
	"encoding/json"
	"fmt"
	"time"
)

// envelope is the cached wire form of a tier result. The payload is the
// tier-specific variant; decimals inside serialize as JSON strings and
// timestamps as ISO-8601. Unknown extra fields on read are ignored, so
// older processes tolerate entries written by newer ones.
type envelope struct {
	Tier     string          `json:"tier"`
	CachedAt time.Time       `json:"cached_at"`
	Payload  json.RawMessage `json:"payload"`
}

// EncodeResult serializes a tier result for cache storage.
func EncodeResult(result TierResult, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", result.ContextTier(), err)
	}

	return json.Marshal(envelope{
		Tier:     result.ContextTier().String(),
		CachedAt: now.UTC(),
		Payload:  payload,
	})
}

// DecodeResult deserializes a cached tier result into its typed variant.
// Any failure here is the caller's cue to treat the cache entry as a miss.
func DecodeResult(data []byte) (TierResult, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	tier, err := ParseTier(env.Tier)
	if err != nil {
		return nil, fmt.Errorf("envelope tier: %w", err)
	}

	var result TierResult
	switch tier {
	case TierPrimary:
		result = &PrimaryContext{}
	case TierDetailed:
		result = &DetailedContext{}
	case TierIntraday:
		result = &IntradayContext{}
	case TierSwing:
		result = &SwingContext{}
	case TierLongTerm:
		result = &LongTermContext{}
	default:
		return nil, fmt.Errorf("no payload variant for tier %s", tier)
	}

	if err := json.Unmarshal(env.Payload, result); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", tier, err)
	}

	return result, nil
}
