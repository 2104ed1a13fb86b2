package marketctx

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ashok1995/kite-services-sub000/internal/marketdata"
)

func TestCodecRoundTripIntraday(t *testing.T) {
	generatedAt := time.Date(2026, 3, 9, 10, 4, 0, 0, time.UTC)
	original := &IntradayContext{
		Quotes: map[string]marketdata.Quote{
			"NSE:RELIANCE": {
				Symbol:    "NSE:RELIANCE",
				LastPrice: decimal.RequireFromString("2954.35"),
				PrevClose: decimal.RequireFromString("2940.10"),
				Volume:    1200450,
			},
		},
		Momentum:    map[string]decimal.Decimal{"NSE:RELIANCE": decimal.RequireFromString("0.48")},
		Trend:       "bullish",
		GeneratedAt: generatedAt,
		Sources: map[string]SourceLabel{
			"quotes":   SourceReal,
			"momentum": SourceCalculated,
		},
	}

	data, err := EncodeResult(original, generatedAt)
	if err != nil {
		t.Fatalf("EncodeResult: %v", err)
	}
	// Decimals travel as JSON strings, never floats
	if !strings.Contains(string(data), `"2954.35"`) {
		t.Fatalf("last price not serialized as string: %s", data)
	}

	decoded, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	intraday, ok := decoded.(*IntradayContext)
	if !ok {
		t.Fatalf("decoded type = %T", decoded)
	}
	if intraday.ContextTier() != TierIntraday {
		t.Fatalf("tier = %s", intraday.ContextTier())
	}
	if got := intraday.Quotes["NSE:RELIANCE"].LastPrice; !got.Equal(decimal.RequireFromString("2954.35")) {
		t.Fatalf("last price = %s", got)
	}
	if intraday.Trend != "bullish" {
		t.Fatalf("trend = %q", intraday.Trend)
	}
	if intraday.Sources["quotes"] != SourceReal {
		t.Fatalf("sources = %v", intraday.Sources)
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	// An entry written by a newer process with extra fields still decodes
	data := []byte(`{
		"tier": "primary",
		"cached_at": "2026-03-09T10:04:00Z",
		"schema_rev": 3,
		"payload": {
			"market_status": "open",
			"indices": [],
			"volatility_regime": "normal",
			"generated_at": "2026-03-09T10:04:00Z",
			"sources": {"indices": "real"},
			"extra_block": {"nested": true}
		}
	}`)

	decoded, err := DecodeResult(data)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	primary, ok := decoded.(*PrimaryContext)
	if !ok {
		t.Fatalf("decoded type = %T", decoded)
	}
	if primary.MarketStatus != "open" {
		t.Fatalf("market status = %q", primary.MarketStatus)
	}
}

func TestDecodeRejectsMalformedEntries(t *testing.T) {
	cases := map[string]string{
		"garbage":      `not json`,
		"unknown tier": `{"tier":"weekly","cached_at":"2026-03-09T10:04:00Z","payload":{}}`,
		"bad payload":  `{"tier":"swing","cached_at":"2026-03-09T10:04:00Z","payload":[1,2]}`,
	}
	for name, data := range cases {
		if _, err := DecodeResult([]byte(data)); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}
