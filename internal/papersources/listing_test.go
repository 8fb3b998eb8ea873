package papersources

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-assistant/internal/domain"
)

var testSelectors = ListingSelectors{
	Container:  "#results",
	Result:     "div.hit",
	Title:      "h3",
	TitleNoise: "span.tag",
	Link:       "h3 a",
	Authors:    "div.by",
	Date:       "span.when",
}

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestParseListing(t *testing.T) {
	base, err := url.Parse("https://example.org/search")
	require.NoError(t, err)

	t.Run("extracts fields and resolves links", func(t *testing.T) {
		doc := mustDoc(t, `<div id="results">
			<div class="hit">
				<h3><span class="tag">[PDF]</span> <a href="/paper/1">Graph   Neural
				Networks</a></h3>
				<div class="by">A Smith, B Jones - Journal, 2021</div>
				<span class="when">2021</span>
			</div>
			<div class="hit">
				<h3><a href="https://other.org/p/2">Second</a></h3>
			</div>
		</div>`)

		pubs, recognized := ParseListing(doc, testSelectors, base, domain.SourceTypeGoogleScholar)

		assert.True(t, recognized)
		require.Len(t, pubs, 2)

		assert.Equal(t, "Graph Neural Networks", pubs[0].Title)
		assert.Equal(t, []string{"A Smith, B Jones - Journal, 2021"}, pubs[0].Authors)
		assert.Equal(t, "https://example.org/paper/1", pubs[0].Link)
		assert.Equal(t, "2021", pubs[0].Published)
		assert.Empty(t, pubs[0].Summary)
		assert.Equal(t, domain.SourceTypeGoogleScholar, pubs[0].Source)

		assert.Equal(t, "Second", pubs[1].Title)
		assert.Equal(t, "https://other.org/p/2", pubs[1].Link)
		assert.Equal(t, []string{domain.NoAuthors}, pubs[1].Authors)
		assert.Equal(t, domain.NoDate, pubs[1].Published)
	})

	t.Run("missing title and link use placeholders", func(t *testing.T) {
		doc := mustDoc(t, `<div id="results"><div class="hit"><div class="by">X</div></div></div>`)

		pubs, recognized := ParseListing(doc, testSelectors, base, domain.SourceTypePubMed)

		assert.True(t, recognized)
		require.Len(t, pubs, 1)
		assert.Equal(t, domain.NoTitle, pubs[0].Title)
		assert.Empty(t, pubs[0].Link)
		assert.False(t, pubs[0].HasLink())
	})

	t.Run("empty listing with container is recognized", func(t *testing.T) {
		doc := mustDoc(t, `<div id="results"></div>`)

		pubs, recognized := ParseListing(doc, testSelectors, base, domain.SourceTypePubMed)

		assert.True(t, recognized)
		assert.Empty(t, pubs)
	})

	t.Run("unknown markup is not recognized", func(t *testing.T) {
		doc := mustDoc(t, `<html><body><p>Please verify you are human</p></body></html>`)

		pubs, recognized := ParseListing(doc, testSelectors, base, domain.SourceTypeGoogleScholar)

		assert.False(t, recognized)
		assert.Empty(t, pubs)
	})

	t.Run("title noise is not removed from the document", func(t *testing.T) {
		doc := mustDoc(t, `<div class="hit"><h3><span class="tag">[HTML]</span> Kept</h3></div>`)

		_, _ = ParseListing(doc, testSelectors, nil, domain.SourceTypeGoogleScholar)

		assert.Equal(t, 1, doc.Find("span.tag").Length())
	})
}

func TestReadHTML(t *testing.T) {
	t.Run("decodes declared charset", func(t *testing.T) {
		// "Müller" in ISO-8859-1.
		body := "<html><body><div class=\"by\">M\xfcller</div></body></html>"
		resp := &http.Response{
			Header: http.Header{"Content-Type": []string{"text/html; charset=iso-8859-1"}},
			Body:   io.NopCloser(strings.NewReader(body)),
		}

		doc, err := ReadHTML(resp)
		require.NoError(t, err)
		assert.Equal(t, "Müller", doc.Find("div.by").Text())
	})

	t.Run("reads utf-8 without a declared charset", func(t *testing.T) {
		resp := &http.Response{
			Header: http.Header{},
			Body:   io.NopCloser(strings.NewReader("<p>naïve</p>")),
		}

		doc, err := ReadHTML(resp)
		require.NoError(t, err)
		assert.Equal(t, "naïve", doc.Find("p").Text())
	})
}

func TestFetchListing(t *testing.T) {
	client := NewHTTPClient(HTTPClientConfig{RateLimit: 1000, BurstSize: 100, MaxRetries: -1})

	t.Run("fetches and parses listing", func(t *testing.T) {
		var accept string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accept = r.Header.Get("Accept")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<div id="results"><div class="hit"><h3><a href="p/1">One</a></h3></div></div>`))
		}))
		defer server.Close()

		pubs, recognized, err := FetchListing(context.Background(), client, server.URL+"/search?q=x", testSelectors, domain.SourceTypePubMed)
		require.NoError(t, err)

		assert.True(t, recognized)
		assert.Contains(t, accept, "text/html")
		require.Len(t, pubs, 1)
		assert.Equal(t, "One", pubs[0].Title)
		assert.Equal(t, server.URL+"/p/1", pubs[0].Link)
	})

	t.Run("non-200 returns external API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte("  blocked \n"))
		}))
		defer server.Close()

		_, _, err := FetchListing(context.Background(), client, server.URL, testSelectors, domain.SourceTypeGoogleScholar)

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
		assert.Equal(t, "Google Scholar", apiErr.Source)
		assert.Equal(t, "blocked", apiErr.Message)
	})
}
