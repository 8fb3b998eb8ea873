package httpserver

import (
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/papersources"
)

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&mockSearcher{}, nil)

	rr := doRequest(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestReadinessHandler(t *testing.T) {
	health := func(states ...string) []papersources.SourceHealth {
		sources := []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeGoogleScholar, domain.SourceTypePubMed}
		out := make([]papersources.SourceHealth, len(states))
		for i, st := range states {
			out[i] = papersources.SourceHealth{
				Source:       sources[i],
				Name:         sources[i].String(),
				Enabled:      true,
				CircuitState: st,
			}
		}
		return out
	}

	tests := []struct {
		name           string
		health         []papersources.SourceHealth
		expectedStatus int
		expectedState  string
	}{
		{
			name:           "all closed",
			health:         health(papersources.CircuitClosed, papersources.CircuitClosed, papersources.CircuitClosed),
			expectedStatus: http.StatusOK,
			expectedState:  "ready",
		},
		{
			name:           "one source still usable",
			health:         health(papersources.CircuitOpen, papersources.CircuitHalfOpen, papersources.CircuitOpen),
			expectedStatus: http.StatusOK,
			expectedState:  "ready",
		},
		{
			name:           "every circuit open",
			health:         health(papersources.CircuitOpen, papersources.CircuitOpen, papersources.CircuitOpen),
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not_ready",
		},
		{
			name: "only disabled sources closed",
			health: []papersources.SourceHealth{
				{Source: domain.SourceTypeArXiv, Name: "arXiv", Enabled: false, CircuitState: papersources.CircuitClosed},
				{Source: domain.SourceTypePubMed, Name: "PubMed", Enabled: true, CircuitState: papersources.CircuitOpen},
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not_ready",
		},
		{
			name:           "no sources",
			health:         nil,
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not_ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&mockSearcher{health: tt.health}, nil)

			rr := doRequest(t, s, http.MethodGet, "/readyz", nil)
			require.Equal(t, tt.expectedStatus, rr.Code)

			var resp readinessResponse
			decodeBody(t, rr, &resp)
			assert.Equal(t, tt.expectedState, resp.Status)
			assert.Len(t, resp.Sources, len(tt.health))
		})
	}
}

func TestRecovererReturns500(t *testing.T) {
	s := newTestServer(&mockSearcher{}, nil)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rr := doRequest(t, s, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestNewServer_LimitDefaults(t *testing.T) {
	s := NewServer(Config{}, &mockSearcher{}, nil, nil, zerolog.Nop())
	assert.Equal(t, 10, s.cfg.DefaultLimit)
	assert.Equal(t, 10, s.cfg.MaxLimit)

	s = NewServer(Config{DefaultLimit: 20, MaxLimit: 5}, &mockSearcher{}, nil, nil, zerolog.Nop())
	assert.Equal(t, 20, s.cfg.DefaultLimit)
	assert.Equal(t, 20, s.cfg.MaxLimit)
}
