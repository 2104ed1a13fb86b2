package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"
)

// maxConcurrentBatches bounds in-flight batch requests per client so a large
// watchlist cannot monopolize the broker connection.
const maxConcurrentBatches = 4

// BrokerQuoteClient implements QuoteGateway against the broker's batch quote
// endpoint. Batches are chunked to the broker's per-request symbol limit.
type BrokerQuoteClient struct {
	rest     *restClient
	batchMax int
	sem      *semaphore.Weighted
}

// NewBrokerQuoteClient creates a broker-backed quote gateway.
func NewBrokerQuoteClient(cfg ClientConfig, batchMax int) *BrokerQuoteClient {
	if batchMax <= 0 {
		batchMax = 500
	}
	return &BrokerQuoteClient{
		rest:     newRESTClient("quote", cfg),
		batchMax: batchMax,
		sem:      semaphore.NewWeighted(maxConcurrentBatches),
	}
}

// quoteWire is the broker's per-symbol quote payload.
type quoteWire struct {
	LastPrice decimal.Decimal `json:"last_price"`
	OHLC      struct {
		Open  decimal.Decimal `json:"open"`
		High  decimal.Decimal `json:"high"`
		Low   decimal.Decimal `json:"low"`
		Close decimal.Decimal `json:"close"` // previous close
	} `json:"ohlc"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"last_trade_time"`
}

type quoteEnvelope struct {
	Status string               `json:"status"`
	Data   map[string]quoteWire `json:"data"`
}

// Fetch returns one QuoteResult per requested symbol. Batches run
// concurrently, bounded by a weighted semaphore. A whole-batch failure marks
// every symbol in the batch failed but does not abort other batches; the
// top-level error is non-nil only when no batch succeeded.
func (b *BrokerQuoteClient) Fetch(ctx context.Context, symbols []string) (map[string]QuoteResult, error) {
	results := make(map[string]QuoteResult, len(symbols))

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		lastErr   error
		succeeded bool
	)

	failBatch := func(batch []string, err error) {
		mu.Lock()
		defer mu.Unlock()
		for _, sym := range batch {
			results[sym] = QuoteResult{Err: err}
		}
		lastErr = err
	}

	for start := 0; start < len(symbols); start += b.batchMax {
		end := start + b.batchMax
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		if err := b.sem.Acquire(ctx, 1); err != nil {
			failBatch(batch, err)
			continue
		}

		wg.Add(1)
		go func(batch []string) {
			defer wg.Done()
			defer b.sem.Release(1)

			fetched, err := b.fetchBatch(ctx, batch)
			if err != nil {
				failBatch(batch, err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for sym, res := range fetched {
				results[sym] = res
			}
			succeeded = true
		}(batch)
	}
	wg.Wait()

	if !succeeded && lastErr != nil {
		return results, lastErr
	}
	return results, nil
}

func (b *BrokerQuoteClient) fetchBatch(ctx context.Context, symbols []string) (map[string]QuoteResult, error) {
	query := url.Values{}
	for _, sym := range symbols {
		query.Add("i", "NSE:"+sym)
	}

	var envelope quoteEnvelope
	if err := b.rest.getJSON(ctx, "/quote", query, &envelope); err != nil {
		return nil, err
	}

	results := make(map[string]QuoteResult, len(symbols))
	for _, sym := range symbols {
		wire, ok := envelope.Data["NSE:"+sym]
		if !ok {
			results[sym] = QuoteResult{Err: fmt.Errorf("%w: %s", ErrSymbolNotFound, sym)}
			continue
		}
		results[sym] = QuoteResult{Quote: &Quote{
			Symbol:    sym,
			LastPrice: wire.LastPrice,
			PrevClose: wire.OHLC.Close,
			Open:      wire.OHLC.Open,
			DayHigh:   wire.OHLC.High,
			DayLow:    wire.OHLC.Low,
			Volume:    wire.Volume,
			Timestamp: wire.Timestamp,
		}}
	}

	return results, nil
}
