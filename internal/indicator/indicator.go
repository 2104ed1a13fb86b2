// Package indicator derives trading-context signals from raw quotes:
// momentum, pivot levels, trend and regime labels. Pure computation, no I/O.
package indicator

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Trend labels produced by TrendLabel.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Regime labels produced by RegimeLabel.
const (
	RegimeCalm     = "calm"
	RegimeNormal   = "normal"
	RegimeElevated = "elevated"
	RegimePanic    = "panic"
)

// Levels holds pivot-derived support and resistance for one instrument.
type Levels struct {
	Pivot      decimal.Decimal `json:"pivot"`
	Support    decimal.Decimal `json:"support"`
	Resistance decimal.Decimal `json:"resistance"`
}

// Momentum returns the percent change from previous close to last price.
func Momentum(last, prevClose decimal.Decimal) decimal.Decimal {
	if prevClose.IsZero() {
		return decimal.Zero
	}
	return last.Sub(prevClose).Div(prevClose).Mul(decimal.NewFromInt(100)).Round(4)
}

// PivotLevels computes classic floor-trader pivot levels from the day range.
func PivotLevels(high, low, close decimal.Decimal) Levels {
	three := decimal.NewFromInt(3)
	two := decimal.NewFromInt(2)

	pivot := high.Add(low).Add(close).Div(three)
	return Levels{
		Pivot:      pivot.Round(2),
		Support:    pivot.Mul(two).Sub(high).Round(2),
		Resistance: pivot.Mul(two).Sub(low).Round(2),
	}
}

// TrendLabel classifies a set of per-symbol momentum readings. The mean
// decides direction; dispersion wide enough to swamp the mean reads neutral.
func TrendLabel(momentums []float64) string {
	if len(momentums) == 0 {
		return TrendNeutral
	}

	mean := stat.Mean(momentums, nil)
	sd := 0.0
	if len(momentums) > 1 {
		sd = stat.StdDev(momentums, nil)
	}

	switch {
	case mean > 0.25 && mean > sd/2:
		return TrendBullish
	case mean < -0.25 && -mean > sd/2:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// Breadth counts advancing and declining symbols from momentum readings.
func Breadth(momentums []float64) (advances, declines int) {
	for _, m := range momentums {
		switch {
		case m > 0:
			advances++
		case m < 0:
			declines++
		}
	}
	return advances, declines
}

// RegimeLabel classifies the volatility regime from a VIX-style level.
func RegimeLabel(vixLevel float64) string {
	switch {
	case vixLevel <= 0:
		return RegimeNormal
	case vixLevel < 13:
		return RegimeCalm
	case vixLevel < 20:
		return RegimeNormal
	case vixLevel < 30:
		return RegimeElevated
	default:
		return RegimePanic
	}
}

// Dispersion returns the standard deviation of a reading set, 0 when fewer
// than two samples exist.
func Dispersion(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
