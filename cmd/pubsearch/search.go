package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/helixir/research-assistant/internal/bootstrap"
	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/search"
)

const emptyResultsHint = "No publications found. Try broader or different search terms, or select a different domain."

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search all enabled sources and print ranked publications",
		Long: `Search sends the query to every enabled source at once, merges the
candidates, scores them against the query and domain, and prints at most
--limit results. Sources that fail are reported on stderr and skipped.`,
		Args: cobra.NoArgs,
		RunE: runSearch,
	}

	cmd.Flags().StringP("query", "q", "", "free-text search query (required)")
	cmd.Flags().StringP("domain", "d", "", "research domain (see the domains command)")
	cmd.Flags().IntP("limit", "n", 0, "maximum number of results (default from config)")
	cmd.Flags().Bool("json", false, "output results as JSON")
	_ = cmd.MarkFlagRequired("query")

	return cmd
}

func runSearch(cmd *cobra.Command, _ []string) error {
	q, _ := cmd.Flags().GetString("query")
	domainLabel, _ := cmd.Flags().GetString("domain")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	q = strings.TrimSpace(q)
	if q == "" {
		return fmt.Errorf("--query must not be empty")
	}

	cfg, logger, err := loadRuntime(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if limit < 0 || limit > cfg.Search.MaxLimit {
		return fmt.Errorf("--limit must be between 1 and %d", cfg.Search.MaxLimit)
	}

	domainLabel = strings.TrimSpace(domainLabel)
	if domainLabel != "" && !domain.IsKnownDomain(domainLabel) {
		logger.Warn().Str("domain", domainLabel).Msg("unknown domain; no keyword or category hints will apply")
	}

	registry := bootstrap.NewRegistry(cfg, nil, logger)
	svc := bootstrap.NewSearchService(cfg, registry, nil, logger)

	ctx := observability.WithRequestID(cmd.Context(), uuid.NewString())
	outcome := svc.Run(ctx, search.Request{
		Query:  q,
		Domain: domainLabel,
		Limit:  limit,
	})

	reportSourceErrors(cmd.ErrOrStderr(), outcome)

	if asJSON {
		return writeJSONResults(cmd.OutOrStdout(), outcome)
	}
	writeTextResults(cmd.OutOrStdout(), outcome)
	return nil
}

// reportSourceErrors prints one line per failed or degraded source.
func reportSourceErrors(w io.Writer, o *search.Outcome) {
	if o.Err != nil {
		fmt.Fprintf(w, "search failed: %v\n", o.Err)
	}
	for _, src := range o.Sources {
		switch {
		case src.Error != "":
			fmt.Fprintf(w, "%s: %s\n", src.Name, src.Error)
		case src.Degraded:
			fmt.Fprintf(w, "%s: page structure not recognized\n", src.Name)
		}
	}
}

// jsonOutcome is the --json output shape.
type jsonOutcome struct {
	Query           string                `json:"query"`
	NormalizedQuery string                `json:"normalized_query"`
	Domain          string                `json:"domain,omitempty"`
	Limit           int                   `json:"limit"`
	Publications    []domain.Publication  `json:"publications"`
	Sources         []search.SourceReport `json:"sources"`
}

func writeJSONResults(w io.Writer, o *search.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutcome{
		Query:           o.Query,
		NormalizedQuery: o.NormalizedQuery,
		Domain:          o.Domain,
		Limit:           o.Limit,
		Publications:    o.Publications,
		Sources:         o.Sources,
	})
}

func writeTextResults(w io.Writer, o *search.Outcome) {
	if len(o.Publications) == 0 {
		fmt.Fprintln(w, emptyResultsHint)
		return
	}

	for i, p := range o.Publications {
		fmt.Fprintf(w, "%d. %s\n", i+1, p.Title)
		fmt.Fprintf(w, "   Authors:   %s\n", strings.Join(p.Authors, ", "))
		fmt.Fprintf(w, "   Published: %s\n", p.Published)
		fmt.Fprintf(w, "   Source:    %s (score %.1f)\n", p.Source, p.Score)
		if p.HasLink() {
			fmt.Fprintf(w, "   Link:      %s\n", p.Link)
		}
		if p.Summary != "" {
			fmt.Fprintf(w, "   %s\n", p.Summary)
		}
		fmt.Fprintln(w)
	}
}
