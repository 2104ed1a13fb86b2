package marketctx

import (
	"math"
	"time"
)

// Source-label weights for the overall score. A field served from a real
// upstream counts full; degraded fields count progressively less.
var sourceWeights = map[SourceLabel]float64{
	SourceReal:         1.0,
	SourceCalculated:   0.85,
	SourceApproximated: 0.6,
	SourceFallback:     0.3,
}

// QualityReport summarizes how complete and how degraded a response is.
type QualityReport struct {
	OverallScore      float64        `json:"overall_score"`
	Warnings          []string       `json:"warnings,omitempty"`
	CacheHits         []string       `json:"cache_hits,omitempty"`
	DataSourceSummary map[string]int `json:"data_source_summary,omitempty"`
	AuthExpired       bool           `json:"auth_expired,omitempty"`
}

// Response is the aggregate returned for one context request. Absent tiers
// are omitted rather than nulled.
type Response struct {
	Primary  *PrimaryContext  `json:"primary_context,omitempty"`
	Detailed *DetailedContext `json:"detailed_context,omitempty"`
	Intraday *IntradayContext `json:"intraday_context,omitempty"`
	Swing    *SwingContext    `json:"swing_context,omitempty"`
	LongTerm *LongTermContext `json:"long_term_context,omitempty"`

	Quality          QualityReport `json:"quality_report"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
}

// Aggregate assembles the response for one request from the resolved set.
// It is always producible, even when every tier failed; the score is then
// zero and the warnings say why.
func Aggregate(requested []Tier, set *ResolvedSet, elapsed time.Duration) *Response {
	resp := &Response{
		ProcessingTimeMS: elapsed.Milliseconds(),
	}

	summary := make(map[string]int)
	var weightSum float64
	var fieldCount int
	var present int

	for _, tier := range requested {
		result, ok := set.Result(tier)
		if !ok {
			continue
		}
		present++

		for _, label := range result.SourceLabels() {
			summary[string(label)]++
			weightSum += sourceWeights[label]
			fieldCount++
		}

		switch r := result.(type) {
		case *PrimaryContext:
			resp.Primary = r
		case *DetailedContext:
			resp.Detailed = r
		case *IntradayContext:
			resp.Intraday = r
		case *SwingContext:
			resp.Swing = r
		case *LongTermContext:
			resp.LongTerm = r
		}

		if set.CacheHit(tier) {
			resp.Quality.CacheHits = append(resp.Quality.CacheHits, tier.String())
		}
	}

	resp.Quality.Warnings = set.Warnings()
	resp.Quality.AuthExpired = set.AuthExpired()
	if len(summary) > 0 {
		resp.Quality.DataSourceSummary = summary
	}
	resp.Quality.OverallScore = score(len(requested), present, weightSum, fieldCount)

	return resp
}

// score combines tier completeness with per-field source quality: the
// fraction of requested tiers that resolved, scaled by the mean source
// weight across their fields.
func score(requested, present int, weightSum float64, fieldCount int) float64 {
	if requested == 0 || present == 0 {
		return 0
	}
	fraction := float64(present) / float64(requested)
	quality := 1.0
	if fieldCount > 0 {
		quality = weightSum / float64(fieldCount)
	}
	return round2(fraction * quality)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
