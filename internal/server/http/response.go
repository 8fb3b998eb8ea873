package httpserver

import (
	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/search"
)

// Response types for JSON serialization.

type readinessResponse struct {
	Status  string                 `json:"status"`
	Sources []sourceHealthResponse `json:"sources"`
}

type sourceHealthResponse struct {
	Source       string `json:"source"`
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	CircuitState string `json:"circuit_state"`
}

type domainsResponse struct {
	Domains []string `json:"domains"`
}

type publicationsResponse struct {
	Query           string                 `json:"query"`
	NormalizedQuery string                 `json:"normalized_query"`
	Domain          string                 `json:"domain,omitempty"`
	Limit           int                    `json:"limit"`
	Count           int                    `json:"count"`
	Publications    []domain.Publication   `json:"publications"`
	Sources         []sourceReportResponse `json:"sources"`
	Hint            string                 `json:"hint,omitempty"`
	DurationMS      int64                  `json:"duration_ms"`
}

type sourceReportResponse struct {
	Source       string `json:"source"`
	Name         string `json:"name"`
	Count        int    `json:"count"`
	Error        string `json:"error,omitempty"`
	Degraded     bool   `json:"degraded"`
	CircuitState string `json:"circuit_state"`
	DurationMS   int64  `json:"duration_ms"`
}

type draftResponse struct {
	Topic      string `json:"topic"`
	Draft      string `json:"draft"`
	DurationMS int64  `json:"duration_ms"`
}

// emptyResultsHint is returned alongside a search that found nothing.
const emptyResultsHint = "No publications found. Try broader or different search terms, or select a different domain."

// Converter functions

func outcomeToResponse(o *search.Outcome) publicationsResponse {
	resp := publicationsResponse{
		Query:           o.Query,
		NormalizedQuery: o.NormalizedQuery,
		Domain:          o.Domain,
		Limit:           o.Limit,
		Count:           len(o.Publications),
		Publications:    o.Publications,
		Sources:         make([]sourceReportResponse, 0, len(o.Sources)),
		DurationMS:      o.Duration.Milliseconds(),
	}
	if resp.Publications == nil {
		resp.Publications = []domain.Publication{}
	}
	for _, src := range o.Sources {
		resp.Sources = append(resp.Sources, sourceReportToResponse(src))
	}
	if resp.Count == 0 {
		resp.Hint = emptyResultsHint
	}
	return resp
}

func sourceReportToResponse(r search.SourceReport) sourceReportResponse {
	return sourceReportResponse{
		Source:       string(r.Source),
		Name:         r.Name,
		Count:        r.Count,
		Error:        r.Error,
		Degraded:     r.Degraded,
		CircuitState: r.CircuitState,
		DurationMS:   r.Duration.Milliseconds(),
	}
}
