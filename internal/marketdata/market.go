package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// IndexClient implements IndexGateway against the market-data index endpoint.
type IndexClient struct {
	rest *restClient
}

// NewIndexClient creates an index gateway.
func NewIndexClient(cfg ClientConfig) *IndexClient {
	return &IndexClient{rest: newRESTClient("index", cfg)}
}

type indexWire struct {
	Name          string          `json:"name"`
	Level         decimal.Decimal `json:"level"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	AsOf          time.Time       `json:"as_of"`
}

// Fetch returns index snapshots for a region.
func (c *IndexClient) Fetch(ctx context.Context, region string) ([]IndexSnapshot, error) {
	var envelope struct {
		Status string      `json:"status"`
		Data   []indexWire `json:"data"`
	}

	query := url.Values{"region": {region}}
	if err := c.rest.getJSON(ctx, "/indices", query, &envelope); err != nil {
		return nil, &SourceError{Gateway: "index", Err: err}
	}
	if len(envelope.Data) == 0 {
		return nil, &SourceError{Gateway: "index", Err: fmt.Errorf("%w: empty index response", ErrSourceUnavailable)}
	}

	snapshots := make([]IndexSnapshot, 0, len(envelope.Data))
	for _, w := range envelope.Data {
		snapshots = append(snapshots, IndexSnapshot{
			Name:          w.Name,
			Region:        region,
			Level:         w.Level,
			ChangePercent: w.ChangePercent,
			AsOf:          w.AsOf,
		})
	}
	return snapshots, nil
}

// SectorClient implements SectorGateway.
type SectorClient struct {
	rest *restClient
}

// NewSectorClient creates a sector performance gateway.
func NewSectorClient(cfg ClientConfig) *SectorClient {
	return &SectorClient{rest: newRESTClient("sector", cfg)}
}

// Fetch returns the day's percent change per sector index.
func (c *SectorClient) Fetch(ctx context.Context) (map[string]SectorPerformance, error) {
	var envelope struct {
		Status string                     `json:"status"`
		Data   map[string]decimal.Decimal `json:"data"`
	}

	if err := c.rest.getJSON(ctx, "/sectors", nil, &envelope); err != nil {
		return nil, &SourceError{Gateway: "sector", Err: err}
	}

	performances := make(map[string]SectorPerformance, len(envelope.Data))
	for sector, change := range envelope.Data {
		performances[sector] = SectorPerformance{Sector: sector, ChangePercent: change}
	}
	return performances, nil
}

// VolatilityClient implements VolatilityGateway against the India VIX feed.
type VolatilityClient struct {
	rest *restClient
}

// NewVolatilityClient creates a volatility gateway.
func NewVolatilityClient(cfg ClientConfig) *VolatilityClient {
	return &VolatilityClient{rest: newRESTClient("volatility", cfg)}
}

// Fetch returns the current volatility index snapshot.
func (c *VolatilityClient) Fetch(ctx context.Context) (*VolatilitySnapshot, error) {
	var envelope struct {
		Status string `json:"status"`
		Data   struct {
			Level         decimal.Decimal `json:"level"`
			ChangePercent decimal.Decimal `json:"change_percent"`
			AsOf          time.Time       `json:"as_of"`
		} `json:"data"`
	}

	if err := c.rest.getJSON(ctx, "/volatility", nil, &envelope); err != nil {
		return nil, &SourceError{Gateway: "volatility", Err: err}
	}

	return &VolatilitySnapshot{
		Level:         envelope.Data.Level,
		ChangePercent: envelope.Data.ChangePercent,
		AsOf:          envelope.Data.AsOf,
	}, nil
}
