package marketctx

import (
	"testing"
	"time"
)

func TestAggregateAllRealScoresFull(t *testing.T) {
	set := newResolvedSet()
	set.record(TierPrimary, &PrimaryContext{
		MarketStatus: "open",
		Sources: map[string]SourceLabel{
			"indices":    SourceReal,
			"volatility": SourceReal,
		},
	}, true)

	resp := Aggregate([]Tier{TierPrimary}, set, 12*time.Millisecond)

	if resp.Quality.OverallScore != 1.0 {
		t.Fatalf("score = %v, want 1.0", resp.Quality.OverallScore)
	}
	if resp.Primary == nil {
		t.Fatal("primary payload missing from response")
	}
	if resp.ProcessingTimeMS != 12 {
		t.Fatalf("processing time = %d", resp.ProcessingTimeMS)
	}
	if resp.Quality.DataSourceSummary["real"] != 2 {
		t.Fatalf("summary = %v", resp.Quality.DataSourceSummary)
	}
}

func TestAggregateDegradedSourcesLowerScore(t *testing.T) {
	set := newResolvedSet()
	set.record(TierPrimary, &PrimaryContext{
		Sources: map[string]SourceLabel{
			"indices":           SourceReal,
			"volatility_regime": SourceFallback,
		},
	}, false)

	resp := Aggregate([]Tier{TierPrimary}, set, time.Millisecond)

	// mean of 1.0 and 0.3
	if resp.Quality.OverallScore != 0.65 {
		t.Fatalf("score = %v, want 0.65", resp.Quality.OverallScore)
	}
	if resp.Quality.DataSourceSummary["fallback"] != 1 {
		t.Fatalf("summary = %v", resp.Quality.DataSourceSummary)
	}
}

func TestAggregateMissingTierScalesScore(t *testing.T) {
	set := newResolvedSet()
	set.record(TierPrimary, &PrimaryContext{
		Sources: map[string]SourceLabel{"indices": SourceReal},
	}, false)
	set.addWarnings("detailed: generation failed")

	resp := Aggregate([]Tier{TierPrimary, TierDetailed}, set, time.Millisecond)

	if resp.Quality.OverallScore != 0.5 {
		t.Fatalf("score = %v, want 0.5", resp.Quality.OverallScore)
	}
	if resp.Detailed != nil {
		t.Fatal("detailed payload present for unresolved tier")
	}
	if len(resp.Quality.Warnings) != 1 {
		t.Fatalf("warnings = %v", resp.Quality.Warnings)
	}
}

func TestAggregateEmptySetStillProducesReport(t *testing.T) {
	set := newResolvedSet()
	set.addWarnings("primary: generation failed", "intraday: generation failed")
	set.markAuthExpired()

	resp := Aggregate([]Tier{TierPrimary, TierIntraday}, set, time.Millisecond)

	if resp.Quality.OverallScore != 0 {
		t.Fatalf("score = %v, want 0", resp.Quality.OverallScore)
	}
	if !resp.Quality.AuthExpired {
		t.Fatal("auth expiry not reported")
	}
	if resp.Primary != nil || resp.Intraday != nil {
		t.Fatal("payloads present in empty set")
	}
}
