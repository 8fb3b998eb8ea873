// Package papersources provides interfaces and types for publication source clients.
//
// Each upstream (the arXiv API, the Google Scholar and PubMed listing pages)
// implements the PaperSource interface and maps its own response shape onto
// domain.Publication candidates. The Registry fans a search out to every
// enabled source and isolates their failures from one another.
//
// Example usage:
//
//	registry := papersources.NewRegistry(papersources.RegistryConfig{}, logger)
//	registry.Register(arxiv.New(arxiv.Config{Enabled: true}))
//	results := registry.SearchAll(ctx, papersources.SearchParams{
//		Query:      "graph neural networks",
//		Domain:     "Machine Learning",
//		MaxResults: 10,
//	})
package papersources

import (
	"context"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

// SearchParams defines the parameters for searching a publication source.
type SearchParams struct {
	// Query is the normalized search query string (required).
	Query string

	// Domain is the caller-selected domain label. Sources may use it to
	// narrow the upstream search (e.g. arXiv categories).
	Domain string

	// MaxResults limits the number of candidates returned.
	// A value of 0 uses the source's default limit.
	MaxResults int
}

// SearchResult contains the candidates returned by a single source.
type SearchResult struct {
	// Publications holds unranked candidates in upstream order.
	// Domain and Score are left unset.
	Publications []domain.Publication

	// Source identifies which source produced these candidates.
	Source domain.SourceType

	// Degraded is set when the response was fetched but its structure did
	// not match what the source expects, which usually means the upstream
	// markup changed. Degraded results are still returned.
	Degraded bool

	// SearchDuration is the time taken to execute the search,
	// including network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all publication sources implement.
type PaperSource interface {
	// Search queries the source for publications matching the parameters.
	// Implementations must respect context cancellation and return an
	// error for transport, status or parse failures; the caller decides
	// how failures are surfaced.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this source.
	SourceType() domain.SourceType

	// Name returns a human-readable name used for logging and metrics.
	Name() string

	// IsEnabled returns whether this source takes part in searches.
	IsEnabled() bool
}

// TruncatePublications returns at most limit publications. A non-positive
// limit leaves the slice unchanged.
func TruncatePublications(pubs []domain.Publication, limit int) []domain.Publication {
	if limit > 0 && len(pubs) > limit {
		return pubs[:limit]
	}
	return pubs
}
