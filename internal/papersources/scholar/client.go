// Package scholar implements a publication source that scrapes the Google
// Scholar result listing.
package scholar

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/papersources"
)

const (
	// DefaultBaseURL is the default Google Scholar base URL.
	DefaultBaseURL = "https://scholar.google.com"

	// DefaultRateLimit is the default rate limit (one request every two seconds).
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is used when a search does not set a limit.
	DefaultMaxResults = 10

	// sourceName is the human-readable name for this source.
	sourceName = "Google Scholar"
)

// Selectors locate publications on a Google Scholar result page.
var Selectors = papersources.ListingSelectors{
	Container:  "#gs_res_ccl_mid",
	Result:     "div.gs_r.gs_or.gs_scl",
	Title:      "h3.gs_rt",
	TitleNoise: "span.gs_ct1, span.gs_ct2, span.gs_ctc, span.gs_ctu",
	Link:       "h3.gs_rt a",
	Authors:    "div.gs_a",
	Date:       "span.gs_age",
}

// Config holds configuration for the Google Scholar client.
type Config struct {
	// BaseURL is the Google Scholar base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of candidates kept per search.
	MaxResults int

	// UserAgent overrides the browser User-Agent header.
	UserAgent string

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.UserAgent == "" {
		c.UserAgent = papersources.BrowserUserAgent
	}
}

// Client implements the papersources.PaperSource interface for Google Scholar.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new Google Scholar client with the given configuration.
// Throttled responses are not retried: Scholar answers bursts with a
// captcha page and retrying only extends the block.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:    cfg.Timeout,
		RateLimit:  cfg.RateLimit,
		BurstSize:  cfg.BurstSize,
		MaxRetries: -1,
		UserAgent:  cfg.UserAgent,
		Headers: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new Google Scholar client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search fetches the first Google Scholar result page for params.Query.
// Scholar has no domain filter, so params.Domain is ignored.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params.Query)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	pubs, recognized, err := papersources.FetchListing(ctx, c.httpClient, searchURL, Selectors, domain.SourceTypeGoogleScholar)
	if err != nil {
		return nil, err
	}

	limit := params.MaxResults
	if limit <= 0 {
		limit = c.config.MaxResults
	}

	return &papersources.SearchResult{
		Publications:   papersources.TruncatePublications(pubs, limit),
		Source:         domain.SourceTypeGoogleScholar,
		Degraded:       !recognized,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeGoogleScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) buildSearchURL(q string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/scholar"

	query := url.Values{}
	query.Set("q", q)
	query.Set("hl", "en")
	query.Set("as_sdt", "0,5")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}
