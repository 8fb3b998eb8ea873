// Package bootstrap assembles the search pipeline from configuration for the
// server and CLI entry points.
package bootstrap

import (
	"github.com/rs/zerolog"

	"github.com/helixir/research-assistant/internal/config"
	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/papersources"
	"github.com/helixir/research-assistant/internal/papersources/arxiv"
	"github.com/helixir/research-assistant/internal/papersources/pubmed"
	"github.com/helixir/research-assistant/internal/papersources/scholar"
	"github.com/helixir/research-assistant/internal/search"
)

// NewRegistry creates the source registry and registers every paper source.
// Registration order is arXiv, Google Scholar, PubMed; the ranking tie-break
// depends on it. Disabled sources are registered so readiness can report
// them, but they are never searched. metrics may be nil.
func NewRegistry(cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) *papersources.Registry {
	registryCfg := papersources.RegistryConfig{
		SourceTimeout:           cfg.Search.SourceTimeout,
		BreakerFailureThreshold: cfg.Search.BreakerFailureThreshold,
		BreakerCooldown:         cfg.Search.BreakerCooldown,
	}
	if metrics != nil {
		registryCfg.OnStateChange = func(source domain.SourceType, state string) {
			metrics.SetCircuitState(source.Slug(), state)
		}
	}

	registry := papersources.NewRegistry(registryCfg, logger)
	registerPaperSources(registry, cfg, logger)

	if metrics != nil {
		for _, h := range registry.Health() {
			metrics.SetCircuitState(h.Source.Slug(), h.CircuitState)
		}
	}
	return registry
}

// NewSearchService creates the search orchestrator over registry.
func NewSearchService(cfg *config.Config, registry *papersources.Registry, metrics *observability.Metrics, logger zerolog.Logger) *search.Service {
	opts := []search.Option{search.WithDefaultLimit(cfg.Search.DefaultLimit)}
	if metrics != nil {
		opts = append(opts, search.WithMetrics(metrics))
	}
	return search.NewService(registry, logger, opts...)
}

// registerPaperSources registers all paper sources with the registry.
func registerPaperSources(registry *papersources.Registry, cfg *config.Config, logger zerolog.Logger) {
	// arXiv.
	axCfg := cfg.PaperSources.ArXiv
	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:    axCfg.BaseURL,
		Timeout:    axCfg.Timeout,
		RateLimit:  axCfg.RateLimit,
		MaxResults: axCfg.MaxResults,
		UserAgent:  axCfg.UserAgent,
		Enabled:    axCfg.Enabled,
	}))
	logger.Info().Bool("enabled", axCfg.Enabled).Msg("registered paper source: arXiv")

	// Google Scholar.
	gsCfg := cfg.PaperSources.GoogleScholar
	registry.Register(scholar.New(scholar.Config{
		BaseURL:    gsCfg.BaseURL,
		Timeout:    gsCfg.Timeout,
		RateLimit:  gsCfg.RateLimit,
		MaxResults: gsCfg.MaxResults,
		UserAgent:  gsCfg.UserAgent,
		Enabled:    gsCfg.Enabled,
	}))
	logger.Info().Bool("enabled", gsCfg.Enabled).Msg("registered paper source: Google Scholar")

	// PubMed.
	pmCfg := cfg.PaperSources.PubMed
	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:    pmCfg.BaseURL,
		Timeout:    pmCfg.Timeout,
		RateLimit:  pmCfg.RateLimit,
		MaxResults: pmCfg.MaxResults,
		UserAgent:  pmCfg.UserAgent,
		Enabled:    pmCfg.Enabled,
	}))
	logger.Info().Bool("enabled", pmCfg.Enabled).Msg("registered paper source: PubMed")
}
