package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/papersources"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:opensearch="http://a9.com/-/spec/opensearch/1.1/">
  <opensearch:totalResults>2</opensearch:totalResults>
  <entry>
    <id>http://arxiv.org/abs/2301.12345v1</id>
    <published>2023-01-15T18:30:00Z</published>
    <title>Graph Neural Networks
      for Molecules</title>
    <summary>  We study message passing
      on molecular graphs.  </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <title>Untitled Work</title>
    <summary>Short.</summary>
  </entry>
</feed>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		RateLimit:  1000,
		BurstSize:  100,
		MaxRetries: -1,
	})
	return NewWithHTTPClient(Config{BaseURL: server.URL, Enabled: true}, httpClient)
}

func TestNew(t *testing.T) {
	client := New(Config{})

	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
	assert.Equal(t, domain.SourceTypeArXiv, client.SourceType())
	assert.Equal(t, "arXiv", client.Name())
	assert.False(t, client.IsEnabled())
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		categories []string
		want       string
	}{
		{"no categories", "graph neural networks", nil, "all:(graph neural networks)"},
		{"single category", "sorting", []string{"cs.DS"}, "all:(sorting) AND (cat:cs.DS)"},
		{
			"multiple categories",
			"transformers",
			[]string{"cs.LG", "stat.ML"},
			"all:(transformers) AND (cat:cs.LG OR cat:stat.ML)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSearchQuery(tt.query, tt.categories))
		})
	}
}

func TestClient_Search(t *testing.T) {
	t.Run("sends query parameters and maps entries", func(t *testing.T) {
		var got url.Values
		var path string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query()
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/atom+xml")
			w.Write([]byte(feedXML))
		})

		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "graph neural networks",
			Domain:     domain.DomainMachineLearning,
			MaxResults: 5,
		})
		require.NoError(t, err)

		assert.Equal(t, "/query", path)
		wantQuery := BuildSearchQuery("graph neural networks", domain.ArXivCategories(domain.DomainMachineLearning))
		assert.Equal(t, wantQuery, got.Get("search_query"))
		assert.Equal(t, "0", got.Get("start"))
		assert.Equal(t, "5", got.Get("max_results"))
		assert.Equal(t, "relevance", got.Get("sortBy"))
		assert.Equal(t, "descending", got.Get("sortOrder"))

		assert.Equal(t, domain.SourceTypeArXiv, result.Source)
		assert.False(t, result.Degraded)
		require.Len(t, result.Publications, 2)

		first := result.Publications[0]
		assert.Equal(t, "Graph Neural Networks for Molecules", first.Title)
		assert.Equal(t, []string{"Ada Lovelace", "Alan Turing"}, first.Authors)
		assert.Equal(t, "We study message passing on molecular graphs.", first.Summary)
		assert.Equal(t, "http://arxiv.org/abs/2301.12345v1", first.Link)
		assert.Equal(t, "2023-01-15T18:30:00Z", first.Published)
		assert.Equal(t, domain.SourceTypeArXiv, first.Source)
		assert.Empty(t, first.Domain)
		assert.Zero(t, first.Score)

		second := result.Publications[1]
		assert.Equal(t, []string{domain.NoAuthors}, second.Authors)
		assert.Equal(t, domain.NoDate, second.Published)
	})

	t.Run("unmapped domain searches all categories", func(t *testing.T) {
		var got string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query().Get("search_query")
			w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
		})

		result, err := client.Search(context.Background(), papersources.SearchParams{
			Query:  "quantum gravity",
			Domain: "Astrology",
		})
		require.NoError(t, err)

		assert.Equal(t, "all:(quantum gravity)", got)
		assert.Empty(t, result.Publications)
	})

	t.Run("uses default max results", func(t *testing.T) {
		var got string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			got = r.URL.Query().Get("max_results")
			w.Write([]byte(feedXML))
		})

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "graphs"})
		require.NoError(t, err)
		assert.Equal(t, "10", got)
	})

	t.Run("truncates to max results", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(feedXML))
		})

		result, err := client.Search(context.Background(), papersources.SearchParams{Query: "graphs", MaxResults: 1})
		require.NoError(t, err)
		assert.Len(t, result.Publications, 1)
	})

	t.Run("non-200 status returns external API error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("try later"))
		})

		result, err := client.Search(context.Background(), papersources.SearchParams{Query: "graphs"})
		require.Error(t, err)
		assert.Nil(t, result)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "arXiv", apiErr.Source)
	})

	t.Run("malformed XML returns error", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<feed><entry>"))
		})

		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "graphs"})
		assert.ErrorContains(t, err, "decoding response")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := client.Search(ctx, papersources.SearchParams{Query: "graphs"})
		assert.Error(t, err)
	})
}
