// Package search runs the publication search pipeline: normalize the query,
// fan it out to every enabled source, rank the merged candidates and keep
// the best ones.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/papersources"
	"github.com/helixir/research-assistant/internal/query"
	"github.com/helixir/research-assistant/internal/ranking"
)

// DefaultLimit is used when a request does not set a positive limit.
const DefaultLimit = 10

// ErrPipelinePanic is reported in Outcome.Err when the pipeline panicked.
var ErrPipelinePanic = errors.New("search pipeline panicked")

// SourceRegistry fans a search out to the registered publication sources.
// It is implemented by *papersources.Registry.
type SourceRegistry interface {
	SearchAll(ctx context.Context, params papersources.SearchParams) []papersources.SourceResult
	Health() []papersources.SourceHealth
}

// Request describes one publication search.
type Request struct {
	Query  string
	Domain string
	Limit  int
}

// SourceReport summarizes what one source contributed to a search.
type SourceReport struct {
	Source       domain.SourceType `json:"source"`
	Name         string            `json:"name"`
	Count        int               `json:"count"`
	Error        string            `json:"error,omitempty"`
	Duration     time.Duration     `json:"duration_ns"`
	Degraded     bool              `json:"degraded"`
	CircuitState string            `json:"circuit_state"`
}

// Outcome is the full result of a search.
type Outcome struct {
	// Query is the caller's query as given.
	Query string

	// NormalizedQuery is the query actually sent to the sources.
	NormalizedQuery string

	Domain string
	Limit  int

	// Publications are the ranked results, at most Limit of them. Never nil.
	Publications []domain.Publication

	// Sources has one report per searched source, in source order.
	Sources []SourceReport

	// Err is set only when the pipeline itself failed; the search then has
	// no publications. Source failures are reported in Sources instead.
	Err error

	Duration time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records search and per-source metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRanker replaces the default wall-clock ranker.
func WithRanker(r *ranking.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithDefaultLimit sets the limit used for requests without a positive limit.
func WithDefaultLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultLimit = limit
		}
	}
}

// Service is the search orchestrator. It keeps no per-search state and is
// safe for concurrent use.
type Service struct {
	registry     SourceRegistry
	ranker       *ranking.Ranker
	metrics      *observability.Metrics
	logger       zerolog.Logger
	defaultLimit int
}

// NewService creates a search service over the given source registry.
func NewService(registry SourceRegistry, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		registry:     registry,
		ranker:       ranking.New(),
		logger:       logger.With().Str("component", "search").Logger(),
		defaultLimit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns at most limit publications for q in the given domain,
// ranked by descending score. It never fails: source failures contribute
// no candidates and a pipeline failure is logged and yields an empty
// slice, so an empty result does not distinguish "nothing found" from
// "something broke".
func (s *Service) Search(ctx context.Context, q, domainLabel string, limit int) []domain.Publication {
	return s.Run(ctx, Request{Query: q, Domain: domainLabel, Limit: limit}).Publications
}

// Run executes the search pipeline and reports per-source detail along with
// the ranked publications. It never returns nil.
func (s *Service) Run(ctx context.Context, req Request) (out *Outcome) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	out = &Outcome{
		Query:        req.Query,
		Domain:       req.Domain,
		Limit:        limit,
		Publications: []domain.Publication{},
	}

	logger := observability.WithSearchContext(s.logger, observability.RequestIDFromContext(ctx), req.Domain)
	if s.metrics != nil {
		s.metrics.RecordSearchStarted()
	}

	defer func() {
		out.Duration = time.Since(start)

		if p := recover(); p != nil {
			out.Publications = []domain.Publication{}
			out.Err = fmt.Errorf("%w: %v", ErrPipelinePanic, p)
			logger.Error().
				Err(out.Err).
				Str("query", req.Query).
				Bytes("stack", debug.Stack()).
				Msg("search failed")
			if s.metrics != nil {
				s.metrics.RecordSearchFailed(out.Duration.Seconds())
			}
			return
		}

		if s.metrics != nil {
			s.metrics.RecordSearchCompleted(len(out.Publications), out.Duration.Seconds())
		}
		logger.Info().
			Str("query", req.Query).
			Str("normalized_query", out.NormalizedQuery).
			Int("results", len(out.Publications)).
			Dur("duration", out.Duration).
			Msg("search completed")
	}()

	out.NormalizedQuery = query.Normalize(req.Query, req.Domain)

	results := s.registry.SearchAll(ctx, papersources.SearchParams{
		Query:      out.NormalizedQuery,
		Domain:     req.Domain,
		MaxResults: limit,
	})

	var candidates []domain.Publication
	out.Sources = make([]SourceReport, 0, len(results))
	for _, r := range results {
		out.Sources = append(out.Sources, s.report(r))
		candidates = append(candidates, r.Publications()...)
	}

	ranked := s.ranker.Rank(candidates, req.Query, req.Domain)
	out.Publications = papersources.TruncatePublications(ranked, limit)
	return out
}

// DomainSuggestions returns the selectable domain labels.
func (s *Service) DomainSuggestions() []string {
	return domain.Suggestions()
}

// SourceHealth reports each registered source and its circuit state.
func (s *Service) SourceHealth() []papersources.SourceHealth {
	return s.registry.Health()
}

// report converts a source result and records its metrics.
func (s *Service) report(r papersources.SourceResult) SourceReport {
	rep := SourceReport{
		Source:       r.Source,
		Name:         r.Name,
		Duration:     r.Duration,
		CircuitState: r.CircuitState,
	}

	slug := r.Source.Slug()
	if s.metrics != nil {
		s.metrics.RecordSourceSearchStarted(slug)
	}

	if r.Error != nil {
		rep.Error = r.Error.Error()
		if s.metrics != nil {
			s.metrics.RecordSourceSearchFailed(slug, errorType(r.Error), r.Duration.Seconds())
		}
		return rep
	}

	rep.Count = len(r.Publications())
	if r.Result != nil {
		rep.Degraded = r.Result.Degraded
	}
	if rep.Degraded {
		srcLogger := observability.WithSourceContext(s.logger, slug)
		srcLogger.Warn().
			Msg("source page structure not recognized; selectors may be out of date")
	}
	if s.metrics != nil {
		s.metrics.RecordSourceSearchCompleted(slug, rep.Count, r.Duration.Seconds(), rep.Degraded)
	}
	return rep
}

// errorType maps a source error onto a low-cardinality metric label.
func errorType(err error) string {
	var apiErr *domain.ExternalAPIError
	switch {
	case errors.Is(err, papersources.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, papersources.ErrSourcePanic):
		return "panic"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.As(err, &apiErr):
		return "upstream_status"
	default:
		return "transport"
	}
}
