// Package query prepares free-text publication queries before they are sent
// to paper sources.
package query

import (
	"strings"

	"github.com/helixir/research-assistant/internal/domain"
	"github.com/helixir/research-assistant/internal/textsim"
)

// similarityThreshold is the score above which a query term counts as a
// spelling variant of a domain keyword.
const similarityThreshold = 0.8

// abbreviations are expanded when they appear as whole query terms.
var abbreviations = map[string]string{
	"ai": "artificial intelligence",
	"ml": "machine learning",
}

// Normalize lower-cases and trims the query, appends the lower-cased domain
// label when the query carries none of that domain's keywords, and expands
// the standalone abbreviations "ai" and "ml".
//
// A query is considered on-topic when any domain keyword is a substring of a
// query term or a query term is similar to a keyword. The domain label is
// appended at most once, so Normalize is idempotent for a fixed domain.
func Normalize(q, domainLabel string) string {
	q = strings.Join(strings.Fields(strings.ToLower(q)), " ")

	if keywords, ok := domain.DomainKeywords(domainLabel); ok {
		label := strings.ToLower(domainLabel)
		if !coversDomain(strings.Fields(q), keywords) && !strings.Contains(q, label) {
			q = strings.TrimSpace(q + " " + label)
		}
	}

	return expandAbbreviations(q)
}

// coversDomain reports whether any keyword already appears in, or closely
// resembles, one of the query terms.
func coversDomain(terms, keywords []string) bool {
	for _, keyword := range keywords {
		for _, term := range terms {
			if strings.Contains(term, keyword) {
				return true
			}
			if textsim.Similarity(keyword, term) > similarityThreshold {
				return true
			}
		}
	}
	return false
}

func expandAbbreviations(q string) string {
	terms := strings.Fields(q)
	changed := false
	for i, term := range terms {
		if expanded, ok := abbreviations[term]; ok {
			terms[i] = expanded
			changed = true
		}
	}
	if !changed {
		return q
	}
	return strings.Join(terms, " ")
}
