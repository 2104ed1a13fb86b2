package marketctx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashok1995/kite-services-sub000/internal/indicator"
	"github.com/ashok1995/kite-services-sub000/internal/marketdata"
)

// SourceLabel records where a context field's data came from, in decreasing
// order of quality: real upstream read, derived computation, estimate, or a
// static fallback used because the upstream was down.
type SourceLabel string

const (
	SourceReal         SourceLabel = "real"
	SourceCalculated   SourceLabel = "calculated"
	SourceApproximated SourceLabel = "approximated"
	SourceFallback     SourceLabel = "fallback"
)

// TierResult is the tagged union of per-tier payloads. Each variant knows
// its tier and exposes per-field source labels for quality scoring.
type TierResult interface {
	ContextTier() Tier
	SourceLabels() map[string]SourceLabel
}

// PrimaryContext is the headline market snapshot.
type PrimaryContext struct {
	MarketStatus     string                         `json:"market_status"`
	Indices          []marketdata.IndexSnapshot     `json:"indices"`
	Volatility       *marketdata.VolatilitySnapshot `json:"volatility,omitempty"`
	VolatilityRegime string                         `json:"volatility_regime"`
	GeneratedAt      time.Time                      `json:"generated_at"`
	Sources          map[string]SourceLabel         `json:"sources"`
}

func (c *PrimaryContext) ContextTier() Tier                    { return TierPrimary }
func (c *PrimaryContext) SourceLabels() map[string]SourceLabel { return c.Sources }

// BreadthSummary counts advancing vs declining watchlist symbols.
type BreadthSummary struct {
	Advances int `json:"advances"`
	Declines int `json:"declines"`
}

// DetailedContext adds sector, global, and breadth detail to the primary
// picture.
type DetailedContext struct {
	SectorPerformance map[string]marketdata.SectorPerformance `json:"sector_performance,omitempty"`
	GlobalIndices     []marketdata.IndexSnapshot              `json:"global_indices,omitempty"`
	Breadth           *BreadthSummary                         `json:"breadth,omitempty"`
	GeneratedAt       time.Time                               `json:"generated_at"`
	Sources           map[string]SourceLabel                  `json:"sources"`
}

func (c *DetailedContext) ContextTier() Tier                    { return TierDetailed }
func (c *DetailedContext) SourceLabels() map[string]SourceLabel { return c.Sources }

// IntradayContext is the watchlist quote snapshot with per-symbol momentum.
// It is the base tier swing generation reuses.
type IntradayContext struct {
	Quotes      map[string]marketdata.Quote `json:"quotes"`
	Momentum    map[string]decimal.Decimal  `json:"momentum"`
	Trend       string                      `json:"trend"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Sources     map[string]SourceLabel      `json:"sources"`
}

func (c *IntradayContext) ContextTier() Tier                    { return TierIntraday }
func (c *IntradayContext) SourceLabels() map[string]SourceLabel { return c.Sources }

// SwingContext derives multi-day levels from the intraday quote snapshot.
// It carries the snapshot forward so long-term generation can reuse it.
type SwingContext struct {
	Quotes      map[string]marketdata.Quote `json:"quotes"`
	Levels      map[string]indicator.Levels `json:"levels"`
	Bias        string                      `json:"bias"`
	GeneratedAt time.Time                   `json:"generated_at"`
	Sources     map[string]SourceLabel      `json:"sources"`
}

func (c *SwingContext) ContextTier() Tier                    { return TierSwing }
func (c *SwingContext) SourceLabels() map[string]SourceLabel { return c.Sources }

// LongTermContext classifies the market regime and the resulting posture.
type LongTermContext struct {
	Regime      string                 `json:"regime"`
	Posture     string                 `json:"posture"`
	Dispersion  decimal.Decimal        `json:"dispersion"`
	GeneratedAt time.Time              `json:"generated_at"`
	Sources     map[string]SourceLabel `json:"sources"`
}

func (c *LongTermContext) ContextTier() Tier                    { return TierLongTerm }
func (c *LongTermContext) SourceLabels() map[string]SourceLabel { return c.Sources }
