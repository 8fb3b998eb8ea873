package papersources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/helixir/research-assistant/internal/domain"
)

// maxHTMLBytes bounds how much of a listing page is read.
const maxHTMLBytes = 10 << 20

// ListingSelectors are the CSS selectors used to pull publications out of a
// search result listing page. Field selectors are evaluated relative to
// each Result element.
type ListingSelectors struct {
	// Container matches the element that wraps the result list. It is only
	// used to tell an empty listing from a page whose markup changed.
	Container string

	// Result matches one element per search hit.
	Result string

	// Title matches the element holding the publication title.
	Title string

	// TitleNoise matches decorations inside the title (e.g. "[PDF]") that
	// are removed before the title text is read. Optional.
	TitleNoise string

	// Link matches the anchor whose href points at the publication.
	Link string

	// Authors matches the author or citation credit line.
	Authors string

	// Date matches the element holding the publication date text.
	Date string
}

// ReadHTML parses an HTML response body into a goquery document. The body is
// converted to UTF-8 from the charset declared by the Content-Type header or
// the document's meta tags.
func ReadHTML(resp *http.Response) (*goquery.Document, error) {
	body, err := charset.NewReader(io.LimitReader(resp.Body, maxHTMLBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// FetchListing downloads a listing page and extracts its publications.
// A non-200 response yields the error built by UnexpectedStatus. The second result
// reports whether the page structure was recognized (see ParseListing).
func FetchListing(ctx context.Context, client *HTTPClient, pageURL string, sel ListingSelectors, source domain.SourceType) ([]domain.Publication, bool, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, false, fmt.Errorf("parsing page URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false, UnexpectedStatus(source, resp)
	}

	doc, err := ReadHTML(resp)
	if err != nil {
		return nil, false, err
	}

	pubs, recognized := ParseListing(doc, sel, base, source)
	return pubs, recognized, nil
}

// ParseListing extracts publication candidates from a listing page.
//
// Missing titles, authors and dates are replaced with the domain
// placeholders; summaries are always empty because listing pages carry no
// abstract. Relative links are resolved against base. The second result
// reports whether the page structure was recognized, i.e. whether any
// result or the listing container matched.
func ParseListing(doc *goquery.Document, sel ListingSelectors, base *url.URL, source domain.SourceType) ([]domain.Publication, bool) {
	results := doc.Find(sel.Result)
	pubs := make([]domain.Publication, 0, results.Length())

	results.Each(func(_ int, s *goquery.Selection) {
		pubs = append(pubs, domain.Publication{
			Title:     titleText(s, sel),
			Authors:   []string{textOr(s, sel.Authors, domain.NoAuthors)},
			Summary:   "",
			Link:      linkHref(s, sel.Link, base),
			Published: textOr(s, sel.Date, domain.NoDate),
			Source:    source,
		})
	})

	recognized := results.Length() > 0
	if !recognized && sel.Container != "" {
		recognized = doc.Find(sel.Container).Length() > 0
	}
	return pubs, recognized
}

func titleText(s *goquery.Selection, sel ListingSelectors) string {
	title := s.Find(sel.Title).First()
	if title.Length() == 0 {
		return domain.NoTitle
	}
	if sel.TitleNoise != "" {
		title = title.Clone()
		title.Find(sel.TitleNoise).Remove()
	}
	if text := collapseSpace(title.Text()); text != "" {
		return text
	}
	return domain.NoTitle
}

func textOr(s *goquery.Selection, selector, fallback string) string {
	if selector == "" {
		return fallback
	}
	el := s.Find(selector).First()
	if el.Length() == 0 {
		return fallback
	}
	if text := collapseSpace(el.Text()); text != "" {
		return text
	}
	return fallback
}

func linkHref(s *goquery.Selection, selector string, base *url.URL) string {
	if selector == "" {
		return ""
	}
	href, ok := s.Find(selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return ""
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// collapseSpace trims s and collapses runs of whitespace into one space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
