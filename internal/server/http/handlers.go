package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/draft"
	"github.com/helixir/research-assistant/internal/observability"
	"github.com/helixir/research-assistant/internal/search"
)

const maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

// searchPublicationsRequest holds the query parameters of a publication search.
type searchPublicationsRequest struct {
	Query  string `json:"query" validate:"required,max=500"`
	Domain string `json:"domain" validate:"max=100"`
}

// createDraftRequest is the JSON request body for generating a draft.
type createDraftRequest struct {
	Topic     string `json:"topic" validate:"required,max=1000"`
	MaxTokens int    `json:"max_tokens" validate:"gte=0,lte=8000"`
}

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns validator errors into a client-facing message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// listDomains handles GET /api/v1/domains.
func (s *Server) listDomains(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domainsResponse{Domains: s.searcher.DomainSuggestions()})
}

// searchPublications handles GET /api/v1/publications.
// Source failures never fail the request: they show up in the per-source
// reports and an empty result carries a hint.
func (s *Server) searchPublications(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	req := searchPublicationsRequest{
		Query:  strings.TrimSpace(params.Get("query")),
		Domain: strings.TrimSpace(params.Get("domain")),
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	limit := s.cfg.DefaultLimit
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		if err := s.validate.Var(n, fmt.Sprintf("min=1,max=%d", s.cfg.MaxLimit)); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", s.cfg.MaxLimit))
			return
		}
		limit = n
	}

	outcome := s.searcher.Run(r.Context(), search.Request{
		Query:  req.Query,
		Domain: req.Domain,
		Limit:  limit,
	})
	if outcome.Err != nil {
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().
			Err(outcome.Err).
			Str("query", req.Query).
			Msg("publication search failed")
	}

	writeJSON(w, http.StatusOK, outcomeToResponse(outcome))
}

// createDraft handles POST /api/v1/drafts.
func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	if s.drafts == nil {
		writeError(w, http.StatusServiceUnavailable, "draft generation is disabled")
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req createDraftRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	start := time.Now()
	text, err := s.drafts.Generate(r.Context(), req.Topic, req.MaxTokens)
	if err != nil {
		s.writeDraftError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, draftResponse{
		Topic:      req.Topic,
		Draft:      text,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

// writeDraftError maps a generator error onto an HTTP status.
func (s *Server) writeDraftError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "draft generation timed out")
	case errors.Is(err, draft.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "draft model temporarily unavailable")
	case errors.Is(err, draft.ErrEmptyCompletion):
		writeError(w, http.StatusBadGateway, "model returned an empty draft")
	default:
		logger := observability.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("draft generation failed")
		writeError(w, http.StatusBadGateway, "draft generation failed")
	}
}
