package marketctx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashok1995/kite-services-sub000/internal/indicator"
	"github.com/ashok1995/kite-services-sub000/internal/marketdata"
	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
)

// Generator produces tier results from the upstream gateways. Swing and
// long-term generation take their base tier's result as an explicit
// parameter; passing nil forces full independent generation.
type Generator interface {
	Primary(ctx context.Context) (*PrimaryContext, []string, error)
	Detailed(ctx context.Context) (*DetailedContext, []string, error)
	Intraday(ctx context.Context) (*IntradayContext, []string, error)
	Swing(ctx context.Context, base *IntradayContext) (*SwingContext, []string, error)
	LongTerm(ctx context.Context, base *SwingContext) (*LongTermContext, []string, error)
}

// ContextGenerator is the production Generator backed by the marketdata
// gateways. It never retries upstream calls; retry policy belongs to the
// gateways themselves.
type ContextGenerator struct {
	quotes     marketdata.QuoteGateway
	indices    marketdata.IndexGateway
	sectors    marketdata.SectorGateway
	volatility marketdata.VolatilityGateway
	watchlist  []string
	logger     *observability.Logger
	now        func() time.Time
}

// GeneratorConfig holds generator dependencies.
type GeneratorConfig struct {
	Quotes     marketdata.QuoteGateway
	Indices    marketdata.IndexGateway
	Sectors    marketdata.SectorGateway
	Volatility marketdata.VolatilityGateway
	Watchlist  []string
	Logger     *observability.Logger
	Now        func() time.Time
}

// NewContextGenerator creates a gateway-backed generator.
func NewContextGenerator(cfg GeneratorConfig) *ContextGenerator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ContextGenerator{
		quotes:     cfg.Quotes,
		indices:    cfg.Indices,
		sectors:    cfg.Sectors,
		volatility: cfg.Volatility,
		watchlist:  cfg.Watchlist,
		logger:     cfg.Logger.Component("generator"),
		now:        now,
	}
}

// ist is the exchange timezone; session boundaries are defined in it.
var ist = time.FixedZone("IST", 5*3600+1800)

// marketStatus labels the current exchange session from wall-clock time.
func marketStatus(now time.Time) string {
	local := now.In(ist)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return "closed"
	}

	minutes := local.Hour()*60 + local.Minute()
	switch {
	case minutes >= 9*60 && minutes < 9*60+15:
		return "pre-open"
	case minutes >= 9*60+15 && minutes < 15*60+30:
		return "open"
	default:
		return "closed"
	}
}

// Primary builds the headline snapshot. Index data is the tier's backbone:
// losing it fails the tier. Volatility degrades to a fallback label.
func (g *ContextGenerator) Primary(ctx context.Context) (*PrimaryContext, []string, error) {
	indices, err := g.indices.Fetch(ctx, marketdata.RegionIndia)
	if err != nil {
		if errors.Is(err, marketdata.ErrAuthExpired) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("index fetch: %w", err)
	}

	result := &PrimaryContext{
		MarketStatus: marketStatus(g.now()),
		Indices:      indices,
		GeneratedAt:  g.now().UTC(),
		Sources: map[string]SourceLabel{
			"market_status": SourceCalculated,
			"indices":       SourceReal,
		},
	}

	var warnings []string
	vol, err := g.volatility.Fetch(ctx)
	if err != nil {
		if errors.Is(err, marketdata.ErrAuthExpired) {
			return nil, nil, err
		}
		warnings = append(warnings, fmt.Sprintf("primary: volatility unavailable: %v", err))
		result.VolatilityRegime = indicator.RegimeNormal
		result.Sources["volatility_regime"] = SourceFallback
	} else {
		result.Volatility = vol
		result.VolatilityRegime = indicator.RegimeLabel(vol.Level.InexactFloat64())
		result.Sources["volatility"] = SourceReal
		result.Sources["volatility_regime"] = SourceCalculated
	}

	return result, warnings, nil
}

// Detailed builds sector, global, and breadth detail. Each component may
// fail independently; the tier fails only when every component does.
func (g *ContextGenerator) Detailed(ctx context.Context) (*DetailedContext, []string, error) {
	result := &DetailedContext{
		GeneratedAt: g.now().UTC(),
		Sources:     map[string]SourceLabel{},
	}
	var warnings []string
	components := 0

	sectors, err := g.sectors.Fetch(ctx)
	switch {
	case errors.Is(err, marketdata.ErrAuthExpired):
		return nil, nil, err
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("detailed: sector performance unavailable: %v", err))
	default:
		result.SectorPerformance = sectors
		result.Sources["sector_performance"] = SourceReal
		components++
	}

	global, err := g.indices.Fetch(ctx, marketdata.RegionGlobal)
	switch {
	case errors.Is(err, marketdata.ErrAuthExpired):
		return nil, nil, err
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("detailed: global indices unavailable: %v", err))
	default:
		result.GlobalIndices = global
		result.Sources["global_indices"] = SourceReal
		components++
	}

	quotes, err := g.quotes.Fetch(ctx, g.watchlist)
	switch {
	case errors.Is(err, marketdata.ErrAuthExpired):
		return nil, nil, err
	case err != nil:
		warnings = append(warnings, fmt.Sprintf("detailed: breadth unavailable: %v", err))
	default:
		momentums := collectMomentums(quotes)
		advances, declines := indicator.Breadth(momentums)
		result.Breadth = &BreadthSummary{Advances: advances, Declines: declines}
		result.Sources["breadth"] = SourceCalculated
		components++
	}

	if components == 0 {
		return nil, nil, fmt.Errorf("all detailed components unavailable")
	}
	return result, warnings, nil
}

// Intraday builds the watchlist quote snapshot. Individual symbol failures
// degrade to warnings; the tier fails only when no symbol succeeds.
func (g *ContextGenerator) Intraday(ctx context.Context) (*IntradayContext, []string, error) {
	fetched, err := g.quotes.Fetch(ctx, g.watchlist)
	if err != nil {
		if errors.Is(err, marketdata.ErrAuthExpired) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("quote fetch: %w", err)
	}

	result := &IntradayContext{
		Quotes:      make(map[string]marketdata.Quote),
		Momentum:    make(map[string]decimal.Decimal),
		GeneratedAt: g.now().UTC(),
		Sources: map[string]SourceLabel{
			"quotes":   SourceReal,
			"momentum": SourceCalculated,
			"trend":    SourceCalculated,
		},
	}

	var warnings []string
	for _, sym := range g.watchlist {
		res, ok := fetched[sym]
		if !ok || res.Err != nil {
			if res.Err != nil && errors.Is(res.Err, marketdata.ErrAuthExpired) {
				return nil, nil, res.Err
			}
			warnings = append(warnings, fmt.Sprintf("intraday: %s unavailable", sym))
			continue
		}
		result.Quotes[sym] = *res.Quote
		result.Momentum[sym] = indicator.Momentum(res.Quote.LastPrice, res.Quote.PrevClose)
	}

	if len(result.Quotes) == 0 {
		return nil, nil, fmt.Errorf("no watchlist quotes available")
	}

	result.Trend = indicator.TrendLabel(momentumValues(result.Momentum))
	return result, warnings, nil
}

// Swing derives levels and bias from a quote snapshot. When base is non-nil
// its already-fetched snapshot is reused and no upstream call is made.
func (g *ContextGenerator) Swing(ctx context.Context, base *IntradayContext) (*SwingContext, []string, error) {
	var (
		quotes    map[string]marketdata.Quote
		warnings  []string
		quotesSrc = SourceReal
	)

	if base != nil {
		// A reused snapshot keeps the label it was fetched under
		quotes = base.Quotes
		if src, ok := base.Sources["quotes"]; ok {
			quotesSrc = src
		}
	} else {
		intraday, intradayWarnings, err := g.Intraday(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("swing base: %w", err)
		}
		quotes = intraday.Quotes
		warnings = append(warnings, intradayWarnings...)
	}

	result := &SwingContext{
		Quotes:      quotes,
		Levels:      make(map[string]indicator.Levels, len(quotes)),
		GeneratedAt: g.now().UTC(),
		Sources: map[string]SourceLabel{
			"quotes": quotesSrc,
			"levels": SourceCalculated,
			"bias":   SourceCalculated,
		},
	}

	momentums := make([]float64, 0, len(quotes))
	for sym, q := range quotes {
		result.Levels[sym] = indicator.PivotLevels(q.DayHigh, q.DayLow, q.LastPrice)
		momentums = append(momentums, indicator.Momentum(q.LastPrice, q.PrevClose).InexactFloat64())
	}
	result.Bias = indicator.TrendLabel(momentums)

	return result, warnings, nil
}

// LongTerm classifies regime and posture. When base is non-nil its swing
// picture is reused; the volatility reading degrades to an approximation
// from cross-sectional dispersion when the VIX feed is down.
func (g *ContextGenerator) LongTerm(ctx context.Context, base *SwingContext) (*LongTermContext, []string, error) {
	var warnings []string

	if base == nil {
		swing, swingWarnings, err := g.Swing(ctx, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("long-term base: %w", err)
		}
		base = swing
		warnings = append(warnings, swingWarnings...)
	}

	momentums := make([]float64, 0, len(base.Quotes))
	for _, q := range base.Quotes {
		momentums = append(momentums, indicator.Momentum(q.LastPrice, q.PrevClose).InexactFloat64())
	}
	dispersion := indicator.Dispersion(momentums)

	result := &LongTermContext{
		Dispersion:  decimal.NewFromFloat(dispersion).Round(4),
		GeneratedAt: g.now().UTC(),
		Sources: map[string]SourceLabel{
			"dispersion": SourceCalculated,
			"posture":    SourceCalculated,
		},
	}

	vol, err := g.volatility.Fetch(ctx)
	if err != nil {
		if errors.Is(err, marketdata.ErrAuthExpired) {
			return nil, nil, err
		}
		warnings = append(warnings, fmt.Sprintf("long_term: volatility unavailable, regime approximated: %v", err))
		// Wide cross-sectional dispersion is a rough proxy for index vol
		result.Regime = indicator.RegimeLabel(dispersion * 10)
		result.Sources["regime"] = SourceApproximated
	} else {
		result.Regime = indicator.RegimeLabel(vol.Level.InexactFloat64())
		result.Sources["regime"] = SourceCalculated
	}

	result.Posture = posture(base.Bias, result.Regime)
	return result, warnings, nil
}

// posture maps (bias, regime) to a portfolio stance.
func posture(bias, regime string) string {
	if regime == indicator.RegimePanic {
		return "defensive"
	}
	switch bias {
	case indicator.TrendBullish:
		if regime == indicator.RegimeElevated {
			return "cautious"
		}
		return "risk-on"
	case indicator.TrendBearish:
		return "defensive"
	default:
		return "neutral"
	}
}

// collectMomentums extracts momentum readings from a batch quote result,
// skipping failed symbols.
func collectMomentums(fetched map[string]marketdata.QuoteResult) []float64 {
	symbols := make([]string, 0, len(fetched))
	for sym := range fetched {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	momentums := make([]float64, 0, len(symbols))
	for _, sym := range symbols {
		res := fetched[sym]
		if res.Err != nil || res.Quote == nil {
			continue
		}
		momentums = append(momentums, indicator.Momentum(res.Quote.LastPrice, res.Quote.PrevClose).InexactFloat64())
	}
	return momentums
}

// momentumValues flattens a momentum map to float64s for stats.
func momentumValues(m map[string]decimal.Decimal) []float64 {
	values := make([]float64, 0, len(m))
	for _, d := range m {
		values = append(values, d.InexactFloat64())
	}
	return values
}
