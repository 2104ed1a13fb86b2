package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ashok1995/kite-services-sub000/internal/platform/observability"
	"github.com/ashok1995/kite-services-sub000/internal/platform/resilience"
)

// restClient is the shared HTTP plumbing for all gateway implementations:
// auth header injection, rate limiting, circuit breaking, retry, metrics.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	tokens     TokenSource
	gateway    string

	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	limiter *resilience.RateLimiter

	logger  *observability.Logger
	metrics *observability.Metrics
}

// ClientConfig holds settings shared by the concrete gateway clients.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Tokens         TokenSource
	RequestTimeout time.Duration
	Limiter        *resilience.RateLimiter
	RetryConfig    *resilience.RetryConfig
	Logger         *observability.Logger
	Metrics        *observability.Metrics
}

func newRESTClient(gateway string, cfg ClientConfig) *restClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	retryCfg := resilience.DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryCfg = *cfg.RetryConfig
	}

	c := &restClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		tokens:     cfg.Tokens,
		gateway:    gateway,
		retry:      retryCfg,
		limiter:    cfg.Limiter,
		logger:     cfg.Logger.Component(gateway + "_gateway"),
		metrics:    cfg.Metrics,
	}

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             gateway,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		OnStateChange: func(from, to resilience.State) {
			c.logger.Info("circuit breaker state changed",
				"gateway", gateway, "from", from.String(), "to", to.String())
			if c.metrics != nil {
				c.metrics.SetCircuitBreakerState(context.Background(), gateway, int64(to))
			}
		},
	})

	return c
}

// getJSON performs a GET against path, decoding the response into out.
// Auth failures map to ErrAuthExpired and are never retried.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	start := time.Now()

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
			return c.doOnce(ctx, path, query, out)
		})
	})

	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(ctx, c.gateway, time.Since(start), err)
	}
	if err != nil {
		c.logger.LogWarn(ctx, "upstream call failed", "path", path, "error", err)
	}

	return err
}

func (c *restClient) doOnce(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.apiKey, token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: upstream status %d", ErrAuthExpired, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("upstream status 429: too many requests")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: upstream status %d: %s", ErrSourceUnavailable, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrSourceUnavailable, err)
	}

	return nil
}
