package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
	"github.com/ashok1995/kite-services-sub000/internal/platform/resilience"
)

func testClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Tokens:         StaticTokenSource("test-token"),
		RequestTimeout: 2 * time.Second,
		RetryConfig:    &resilience.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Logger:         observability.NewTestLogger(),
	}
}

func quoteHandler(t *testing.T, requests *atomic.Int32, fail func(symbols []string) bool) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		symbols := r.URL.Query()["i"]
		if fail != nil && fail(symbols) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		data := make(map[string]map[string]any, len(symbols))
		for _, sym := range symbols {
			data[sym] = map[string]any{
				"last_price": "102.5",
				"ohlc":       map[string]any{"open": "100", "high": "104", "low": "99", "close": "100"},
				"volume":     12345,
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "data": data})
	}
}

func TestBrokerFetchChunksBatches(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(quoteHandler(t, &requests, nil))
	defer srv.Close()

	client := NewBrokerQuoteClient(testClientConfig(srv.URL), 2)

	results, err := client.Fetch(context.Background(), []string{"RELIANCE", "TCS", "INFY"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := requests.Load(); got != 2 {
		t.Errorf("expected 2 batch requests, got %d", got)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	res, ok := results["RELIANCE"]
	if !ok || res.Err != nil || res.Quote == nil {
		t.Fatalf("expected quote keyed by raw symbol, got %+v", res)
	}
	if res.Quote.Symbol != "RELIANCE" {
		t.Errorf("symbol = %q, want RELIANCE", res.Quote.Symbol)
	}
	if res.Quote.LastPrice.String() != "102.5" {
		t.Errorf("last price = %s, want 102.5", res.Quote.LastPrice)
	}
}

func TestBrokerFetchMissingSymbol(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"data": map[string]any{
				"NSE:TCS": map[string]any{
					"last_price": "3500",
					"ohlc":       map[string]any{"open": "3480", "high": "3510", "low": "3470", "close": "3490"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewBrokerQuoteClient(testClientConfig(srv.URL), 10)

	results, err := client.Fetch(context.Background(), []string{"TCS", "DELISTED"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if results["TCS"].Err != nil {
		t.Errorf("TCS should succeed, got %v", results["TCS"].Err)
	}
	if !errors.Is(results["DELISTED"].Err, ErrSymbolNotFound) {
		t.Errorf("DELISTED err = %v, want ErrSymbolNotFound", results["DELISTED"].Err)
	}
}

func TestBrokerFetchPartialBatchFailure(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(quoteHandler(t, &requests, func(symbols []string) bool {
		for _, sym := range symbols {
			if strings.Contains(sym, "INFY") {
				return true
			}
		}
		return false
	}))
	defer srv.Close()

	client := NewBrokerQuoteClient(testClientConfig(srv.URL), 2)

	results, err := client.Fetch(context.Background(), []string{"RELIANCE", "TCS", "INFY", "WIPRO"})
	if err != nil {
		t.Fatalf("one batch succeeded, top-level error should be nil: %v", err)
	}

	if results["RELIANCE"].Err != nil || results["TCS"].Err != nil {
		t.Error("healthy batch should carry quotes")
	}
	if results["INFY"].Err == nil || results["WIPRO"].Err == nil {
		t.Error("failed batch symbols should carry errors")
	}
}

func TestBrokerFetchAllBatchesFailed(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(quoteHandler(t, &requests, func([]string) bool { return true }))
	defer srv.Close()

	client := NewBrokerQuoteClient(testClientConfig(srv.URL), 10)

	_, err := client.Fetch(context.Background(), []string{"RELIANCE"})
	if err == nil {
		t.Fatal("expected error when every batch failed")
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestBrokerFetchAuthExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewBrokerQuoteClient(testClientConfig(srv.URL), 10)

	_, err := client.Fetch(context.Background(), []string{"RELIANCE"})
	if !errors.Is(err, ErrAuthExpired) {
		t.Errorf("err = %v, want ErrAuthExpired", err)
	}
}
