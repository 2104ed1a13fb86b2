// Package marketdata defines the upstream data gateways and the wire types
// they return. All prices and percentages use decimal.Decimal, which
// marshals to JSON strings and keeps cached payloads free of float drift.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a snapshot of a single instrument from the broker quote API.
type Quote struct {
	Symbol    string          `json:"symbol"`
	LastPrice decimal.Decimal `json:"last_price"`
	PrevClose decimal.Decimal `json:"prev_close"`
	Open      decimal.Decimal `json:"open"`
	DayHigh   decimal.Decimal `json:"day_high"`
	DayLow    decimal.Decimal `json:"day_low"`
	Volume    int64           `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// ChangePercent returns the percent change from previous close.
func (q Quote) ChangePercent() decimal.Decimal {
	if q.PrevClose.IsZero() {
		return decimal.Zero
	}
	return q.LastPrice.Sub(q.PrevClose).Div(q.PrevClose).Mul(decimal.NewFromInt(100))
}

// QuoteResult is the per-symbol outcome of a batch quote fetch. A batch may
// partially fail; callers get whatever symbols succeeded plus typed errors
// for the rest.
type QuoteResult struct {
	Quote *Quote
	Err   error
}

// IndexSnapshot is a single index level (NIFTY 50, SENSEX, S&P 500, ...).
type IndexSnapshot struct {
	Name          string          `json:"name"`
	Region        string          `json:"region"`
	Level         decimal.Decimal `json:"level"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	AsOf          time.Time       `json:"as_of"`
}

// SectorPerformance is the day's percent change for one sector index.
type SectorPerformance struct {
	Sector        string          `json:"sector"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// VolatilitySnapshot is the current volatility index reading (India VIX).
type VolatilitySnapshot struct {
	Level         decimal.Decimal `json:"level"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	AsOf          time.Time       `json:"as_of"`
}

// Regions understood by the index gateway.
const (
	RegionIndia  = "IN"
	RegionGlobal = "GLOBAL"
)
