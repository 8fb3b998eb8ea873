// Package domain provides domain models and static lookup tables for the research assistant.
package domain

import "strings"

// SourceType identifies the upstream service that produced a publication.
type SourceType string

const (
	SourceTypeArXiv         SourceType = "arXiv"
	SourceTypeGoogleScholar SourceType = "Google Scholar"
	SourceTypePubMed        SourceType = "PubMed"
)

// String returns the display name of the source.
func (s SourceType) String() string {
	return string(s)
}

// Slug returns a lower-case, underscore separated form of the source name
// suitable for metric labels and config keys.
func (s SourceType) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(s)), " ", "_")
}

// Placeholders used when a scraped listing lacks a field.
const (
	NoTitle   = "No title"
	NoAuthors = "No authors"
	NoDate    = "No date"
)

// Publication is a single search result normalized from any source.
//
// Sources produce candidates with Domain and Score unset; the ranking engine
// builds the final value with both filled in. A Publication is never mutated
// after ranking.
type Publication struct {
	Title     string     `json:"title"`
	Authors   []string   `json:"authors"`
	Summary   string     `json:"summary"`
	Link      string     `json:"link,omitempty"`
	Published string     `json:"published"`
	Source    SourceType `json:"source"`
	Domain    string     `json:"domain"`
	Score     float64    `json:"score"`
}

// HasLink reports whether the source supplied a link for the publication.
func (p Publication) HasLink() bool {
	return p.Link != ""
}

// WithRanking returns a copy of the candidate carrying the requested domain
// and computed score. The authors slice is copied so the result shares no
// state with the candidate.
func (p Publication) WithRanking(domainLabel string, score float64) Publication {
	authors := make([]string, len(p.Authors))
	copy(authors, p.Authors)

	p.Authors = authors
	p.Domain = domainLabel
	p.Score = score
	return p
}
