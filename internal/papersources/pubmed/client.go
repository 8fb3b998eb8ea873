// Package pubmed implements a publication source that scrapes the PubMed
// search result listing.
package pubmed

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
	// DefaultBaseURL is the default PubMed site URL.
	DefaultBaseURL = "https://pubmed.ncbi.nlm.nih.gov"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxResults is used when a search does not set a limit.
	DefaultMaxResults = 10

	// pageSize is the number of results requested from the listing.
	pageSize = "200"

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Selectors locate publications on a PubMed search result page.
var Selectors = papersources.ListingSelectors{
	Container: "div.search-results",
	Result:    "article.full-docsum",
	Title:     "a.docsum-title",
	Link:      "a.docsum-title",
	Authors:   "span.docsum-authors.full-authors",
	Date:      "span.docsum-journal-citation.full-journal-citation",
}

// Config holds configuration for the PubMed client.
type Config struct {
	// BaseURL is the PubMed site URL.
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

// Client implements the papersources.PaperSource interface for PubMed.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new PubMed client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: cfg.UserAgent,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new PubMed client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search fetches the PubMed result listing for params.Query.
// params.Domain is ignored.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params.Query)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	pubs, recognized, err := papersources.FetchListing(ctx, c.httpClient, searchURL, Selectors, domain.SourceTypePubMed)
	if err != nil {
		return nil, err
	}

	limit := params.MaxResults
	if limit <= 0 {
		limit = c.config.MaxResults
	}

	return &papersources.SearchResult{
		Publications:   papersources.TruncatePublications(pubs, limit),
		Source:         domain.SourceTypePubMed,
		Degraded:       !recognized,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
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

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/"

	query := url.Values{}
	query.Set("term", q)
	query.Set("size", pageSize)

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}
