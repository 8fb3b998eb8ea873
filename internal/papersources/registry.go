package papersources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/research-assistant/internal/domain"
)

// Default registry settings.
const (
	DefaultSourceTimeout           = 15 * time.Second
	DefaultBreakerFailureThreshold = 5
	DefaultBreakerCooldown         = 60 * time.Second
)

// Circuit states reported by the registry.
const (
	CircuitClosed   = "closed"
	CircuitHalfOpen = "half-open"
	CircuitOpen     = "open"
)

var (
	// ErrCircuitOpen is returned for a source whose circuit breaker is open.
	ErrCircuitOpen = errors.New("source circuit open")

	// ErrSourcePanic is returned when a source panics during a search.
	ErrSourcePanic = errors.New("source panicked")
)

// RegistryConfig configures failure isolation for registered sources.
type RegistryConfig struct {
	// SourceTimeout bounds each source's search. A timed out source is
	// treated like any other failed source.
	SourceTimeout time.Duration

	// BreakerFailureThreshold is the number of consecutive failures after
	// which a source's circuit opens.
	BreakerFailureThreshold uint32

	// BreakerCooldown is how long an open circuit waits before letting a
	// probe request through.
	BreakerCooldown time.Duration

	// OnStateChange, if set, is called whenever a source's circuit changes state.
	OnStateChange func(source domain.SourceType, state string)
}

func (c *RegistryConfig) applyDefaults() {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = DefaultSourceTimeout
	}
	if c.BreakerFailureThreshold == 0 {
		c.BreakerFailureThreshold = DefaultBreakerFailureThreshold
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = DefaultBreakerCooldown
	}
}

// SourceResult holds the outcome of a search against one source.
type SourceResult struct {
	// Source identifies which source produced the result.
	Source domain.SourceType

	// Name is the source's human-readable name.
	Name string

	// Result contains the candidates if the search succeeded.
	// Nil if Error is non-nil.
	Result *SearchResult

	// Error contains the failure, if any.
	Error error

	// Duration is the wall time spent on this source.
	Duration time.Duration

	// CircuitState is the source's breaker state after the search.
	CircuitState string
}

// Publications returns the candidates from the result, or nil on failure.
func (r SourceResult) Publications() []domain.Publication {
	if r.Error != nil || r.Result == nil {
		return nil
	}
	return r.Result.Publications
}

// SourceHealth describes a registered source for readiness reporting.
type SourceHealth struct {
	Source       domain.SourceType
	Name         string
	Enabled      bool
	CircuitState string
}

type registryEntry struct {
	source  PaperSource
	breaker *gobreaker.CircuitBreaker
}

// Registry manages paper sources and coordinates concurrent searches.
// Sources keep their registration order, and search results are always
// returned in that order regardless of which source finishes first.
type Registry struct {
	mu      sync.RWMutex
	entries []*registryEntry
	index   map[domain.SourceType]int
	config  RegistryConfig
	logger  zerolog.Logger
}

// NewRegistry creates a new source registry with no sources.
func NewRegistry(cfg RegistryConfig, logger zerolog.Logger) *Registry {
	cfg.applyDefaults()
	return &Registry{
		index:  make(map[domain.SourceType]int),
		config: cfg,
		logger: logger.With().Str("component", "source-registry").Logger(),
	}
}

// Register adds a source to the registry. A source with the same type
// replaces the existing one in place and gets a fresh circuit breaker.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &registryEntry{
		source:  source,
		breaker: r.newBreaker(source.SourceType()),
	}

	if i, ok := r.index[source.SourceType()]; ok {
		r.entries[i] = entry
		return
	}
	r.index[source.SourceType()] = len(r.entries)
	r.entries = append(r.entries, entry)
}

func (r *Registry) newBreaker(st domain.SourceType) *gobreaker.CircuitBreaker {
	threshold := r.config.BreakerFailureThreshold
	onChange := r.config.OnStateChange
	logger := r.logger

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        st.Slug(),
		MaxRequests: 1,
		Timeout:     r.config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not the source's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("source", name).
				Str("from", circuitState(from)).
				Str("to", circuitState(to)).
				Msg("source circuit state changed")
			if onChange != nil {
				onChange(st, circuitState(to))
			}
		},
	})
}

// Get returns a source by type, or nil if not found.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i, ok := r.index[sourceType]; ok {
		return r.entries[i].source
	}
	return nil
}

// AllSources returns all registered sources in registration order.
func (r *Registry) AllSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.entries))
	for _, e := range r.entries {
		sources = append(sources, e.source)
	}
	return sources
}

// EnabledSources returns the enabled sources in registration order.
func (r *Registry) EnabledSources() []PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]PaperSource, 0, len(r.entries))
	for _, e := range r.entries {
		if e.source.IsEnabled() {
			sources = append(sources, e.source)
		}
	}
	return sources
}

// Health returns the state of every registered source in registration order.
func (r *Registry) Health() []SourceHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]SourceHealth, 0, len(r.entries))
	for _, e := range r.entries {
		health = append(health, SourceHealth{
			Source:       e.source.SourceType(),
			Name:         e.source.Name(),
			Enabled:      e.source.IsEnabled(),
			CircuitState: circuitState(e.breaker.State()),
		})
	}
	return health
}

// SearchAll searches all enabled sources concurrently.
// See SearchSources for the result contract.
func (r *Registry) SearchAll(ctx context.Context, params SearchParams) []SourceResult {
	return r.SearchSources(ctx, params, nil)
}

// SearchSources searches the given sources concurrently, or every enabled
// source when sourceTypes is empty. Unknown source types are skipped.
//
// One SourceResult is returned per searched source, in registration order.
// Each source runs under its own timeout and circuit breaker; a failure,
// timeout or panic in one source is reported in its SourceResult and never
// affects the others.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType) []SourceResult {
	entries := r.selectEntries(sourceTypes)
	if len(entries) == 0 {
		return nil
	}

	results := make([]SourceResult, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			results[i] = r.searchOne(ctx, e, params)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (r *Registry) selectEntries(sourceTypes []domain.SourceType) []*registryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]*registryEntry, 0, len(r.entries))
	if len(sourceTypes) == 0 {
		for _, e := range r.entries {
			if e.source.IsEnabled() {
				entries = append(entries, e)
			}
		}
		return entries
	}

	wanted := make(map[domain.SourceType]bool, len(sourceTypes))
	for _, st := range sourceTypes {
		wanted[st] = true
	}
	for _, e := range r.entries {
		if wanted[e.source.SourceType()] {
			entries = append(entries, e)
		}
	}
	return entries
}

// searchOne runs a single source under its timeout and breaker.
func (r *Registry) searchOne(ctx context.Context, e *registryEntry, params SearchParams) (res SourceResult) {
	start := time.Now()
	res.Source = e.source.SourceType()
	res.Name = e.source.Name()

	defer func() {
		if p := recover(); p != nil {
			res.Result = nil
			res.Error = fmt.Errorf("%w: %v", ErrSourcePanic, p)
		}
		res.Duration = time.Since(start)
		res.CircuitState = circuitState(e.breaker.State())

		if res.Error != nil {
			r.logger.Warn().
				Err(res.Error).
				Str("source", res.Name).
				Dur("duration", res.Duration).
				Str("circuit_state", res.CircuitState).
				Msg("source search failed; continuing without its results")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, r.config.SourceTimeout)
	defer cancel()

	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.source.Search(ctx, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s", ErrCircuitOpen, res.Name)
		}
		res.Error = err
		return res
	}

	result, _ := out.(*SearchResult)
	if result == nil {
		result = &SearchResult{Source: res.Source}
	}
	res.Result = result
	return res
}

func circuitState(s gobreaker.State) string {
	switch s {
	case gobreaker.StateOpen:
		return CircuitOpen
	case gobreaker.StateHalfOpen:
		return CircuitHalfOpen
	default:
		return CircuitClosed
	}
}
