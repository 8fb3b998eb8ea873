// Package arxiv implements a publication source backed by the arXiv Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is the default rate limit (3 requests per second).
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is used when a search does not set a limit.
	DefaultMaxResults = 10

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default number of entries requested per search.
	MaxResults int

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
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
		c.UserAgent = papersources.DefaultUserAgent
	}
}

// Client implements the papersources.PaperSource interface for arXiv.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
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

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries arXiv for papers matching the given parameters, restricted
// to the arXiv categories of params.Domain when that domain has any.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) (*papersources.SearchResult, error) {
	startTime := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, papersources.UnexpectedStatus(c.SourceType(), resp)
	}

	// Parse the Atom XML response (limit body to 10MB).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	pubs := make([]domain.Publication, 0, len(feed.Entries))
	for i := range feed.Entries {
		pubs = append(pubs, entryToPublication(&feed.Entries[i]))
	}

	return &papersources.SearchResult{
		Publications:   papersources.TruncatePublications(pubs, c.maxResults(params)),
		Source:         domain.SourceTypeArXiv,
		SearchDuration: time.Since(startTime),
	}, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeArXiv
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

func (c *Client) maxResults(params papersources.SearchParams) int {
	if params.MaxResults > 0 {
		return params.MaxResults
	}
	return c.config.MaxResults
}

// buildSearchURL constructs the arXiv search API URL.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}
	query.Set("search_query", BuildSearchQuery(params.Query, domain.ArXivCategories(params.Domain)))
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(c.maxResults(params)))
	query.Set("sortBy", "relevance")
	query.Set("sortOrder", "descending")

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// BuildSearchQuery returns the arXiv search_query expression for q,
// optionally restricted to any of the given categories.
//
//	BuildSearchQuery("graphs", nil)                // all:(graphs)
//	BuildSearchQuery("graphs", []string{"cs.DS"})  // all:(graphs) AND (cat:cs.DS)
func BuildSearchQuery(q string, categories []string) string {
	searchQuery := "all:(" + q + ")"
	if len(categories) == 0 {
		return searchQuery
	}

	cats := make([]string, len(categories))
	for i, cat := range categories {
		cats[i] = "cat:" + cat
	}
	return searchQuery + " AND (" + strings.Join(cats, " OR ") + ")"
}

// entryToPublication converts an arXiv Atom entry to a candidate publication.
// The entry id is the abstract page URL and is used as the link.
func entryToPublication(entry *Entry) domain.Publication {
	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := normalizeWhitespace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		authors = []string{domain.NoAuthors}
	}

	title := normalizeWhitespace(entry.Title)
	if title == "" {
		title = domain.NoTitle
	}

	published := strings.TrimSpace(entry.Published)
	if published == "" {
		published = domain.NoDate
	}

	return domain.Publication{
		Title:     title,
		Authors:   authors,
		Summary:   normalizeWhitespace(entry.Summary),
		Link:      strings.TrimSpace(entry.ID),
		Published: published,
		Source:    domain.SourceTypeArXiv,
	}
}

// normalizeWhitespace trims and collapses multiple whitespace characters.
// arXiv titles and abstracts are hard-wrapped with newlines.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
