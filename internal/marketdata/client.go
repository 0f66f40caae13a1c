// Package marketdata fetches quote and fundamentals data for a ticker
// from an EODHD-compatible API.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/aestimo/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the market data API.
	DefaultBaseURL = "https://eodhd.com/api"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10

	providerName = "marketdata"
)

// Client is a market data API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL. An empty value keeps the default.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets a custom HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new market data API client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a GET request to the API.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait only fails on context cancellation or deadline
		return &models.UpstreamError{Provider: providerName, Message: fmt.Sprintf("request aborted: %v", err)}
	}

	params := url.Values{}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Market data API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.UpstreamError{Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &models.RateLimitError{Provider: providerName, Message: "provider returned 429"}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &models.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &models.UpstreamError{Provider: providerName, Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	return nil
}

// Fetch retrieves a market snapshot for a ticker by combining the
// real-time quote and fundamentals endpoints.
func (c *Client) Fetch(ctx context.Context, ticker string) (*Snapshot, error) {
	var quote quoteResponse
	if err := c.get(ctx, "/real-time/"+url.PathEscape(ticker), &quote); err != nil {
		return nil, err
	}

	var fundamentals fundamentalsResponse
	if err := c.get(ctx, "/fundamentals/"+url.PathEscape(ticker), &fundamentals); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Ticker:        ticker,
		Name:          fundamentals.General.Name,
		Sector:        fundamentals.General.Sector,
		Currency:      fundamentals.General.CurrencyCode,
		Price:         quote.Close,
		MarketCap:     fundamentals.Highlights.MarketCapitalization,
		PERatio:       fundamentals.Highlights.PERatio,
		EPS:           fundamentals.Highlights.EarningsShare,
		DividendYield: fundamentals.Highlights.DividendYield,
		High52:        fundamentals.Highlights.WeekHigh52,
		Low52:         fundamentals.Highlights.WeekLow52,
	}

	// Quote rolling high/low fills gaps in fundamentals
	if snapshot.High52 == 0 {
		snapshot.High52 = quote.High52
	}
	if snapshot.Low52 == 0 {
		snapshot.Low52 = quote.Low52
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Float64("price", snapshot.Price).
			Msg("Fetched market snapshot")
	}

	return snapshot, nil
}
