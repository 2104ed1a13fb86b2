package marketdata

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAuthExpired means the upstream credentials are stale and an operator
	// must re-authenticate. Surfaced distinctly; never silently degraded.
	ErrAuthExpired = errors.New("marketdata: upstream credentials expired")

	// ErrSourceUnavailable means the upstream source could not be reached or
	// returned an unusable response.
	ErrSourceUnavailable = errors.New("marketdata: source unavailable")

	// ErrSymbolNotFound means the upstream does not know the symbol.
	ErrSymbolNotFound = errors.New("marketdata: symbol not found")
)

// SourceError wraps an upstream failure with the gateway that produced it.
type SourceError struct {
	Gateway string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s gateway: %v", e.Gateway, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// QuoteGateway fetches broker quotes for a batch of symbols. The returned
// map has an entry per requested symbol; individual symbols may carry an
// error while others succeed.
type QuoteGateway interface {
	Fetch(ctx context.Context, symbols []string) (map[string]QuoteResult, error)
}

// IndexGateway fetches index snapshots for a region.
type IndexGateway interface {
	Fetch(ctx context.Context, region string) ([]IndexSnapshot, error)
}

// SectorGateway fetches per-sector performance percentages.
type SectorGateway interface {
	Fetch(ctx context.Context) (map[string]SectorPerformance, error)
}

// VolatilityGateway fetches the volatility index snapshot.
type VolatilityGateway interface {
	Fetch(ctx context.Context) (*VolatilitySnapshot, error)
}

// TokenSource supplies the current upstream access token. Token lifecycle
// management lives outside this service; gateways only read the token and
// translate upstream 401s to ErrAuthExpired.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenSource returns a fixed token, for configs that inject a
// pre-issued session token.
type StaticTokenSource string

func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", ErrAuthExpired
	}
	return string(s), nil
}
