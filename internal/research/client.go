// Package research gathers recent web findings for a ticker by querying
// the DuckDuckGo HTML endpoint and parsing the result page.
package research

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/aestimo/internal/models"
)

const (
	// DefaultBaseURL is the DuckDuckGo HTML search endpoint.
	DefaultBaseURL = "https://html.duckduckgo.com/html"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults caps the number of findings per search.
	DefaultMaxResults = 5

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 1

	providerName = "research"
)

// Finding is one web search result used to ground a memo.
type Finding struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Client queries the web search endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	maxResults int
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

// WithUserAgent sets the User-Agent header for search requests.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMaxResults caps the number of findings returned per search.
func WithMaxResults(maxResults int) ClientOption {
	return func(c *Client) {
		if maxResults > 0 {
			c.maxResults = maxResults
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

// NewClient creates a new web research client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		maxResults: DefaultMaxResults,
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

// Search returns recent findings about a ticker, ordered as the search
// engine returned them.
func (c *Client) Search(ctx context.Context, ticker string) ([]Finding, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		// Wait only fails on context cancellation or deadline
		return nil, &models.UpstreamError{Provider: providerName, Message: fmt.Sprintf("request aborted: %v", err)}
	}

	query := fmt.Sprintf("%s stock news analysis", ticker)
	reqURL := fmt.Sprintf("%s/?q=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Str("query", query).
			Msg("Web research request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.UpstreamError{Provider: providerName, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &models.RateLimitError{Provider: providerName, Message: "provider returned 429"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.UpstreamError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "unexpected search response status",
		}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, &models.UpstreamError{Provider: providerName, Message: fmt.Sprintf("failed to parse search results: %v", err)}
	}

	findings := c.parseResults(doc)

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Int("findings", len(findings)).
			Msg("Web research complete")
	}

	return findings, nil
}

// parseResults extracts findings from the DuckDuckGo result page.
func (c *Client) parseResults(doc *goquery.Document) []Finding {
	findings := make([]Finding, 0, c.maxResults)

	doc.Find("div.result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if len(findings) >= c.maxResults {
			return false
		}

		link := s.Find("a.result__a").First()
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return true
		}

		snippet := strings.TrimSpace(s.Find(".result__snippet").First().Text())
		source, _ := link.Attr("href")

		findings = append(findings, Finding{
			Title:   title,
			Snippet: snippet,
			Source:  source,
		})
		return true
	})

	return findings
}
