// Package ranking scores publication candidates against a query and domain
// and orders them by relevance.
//
// Scoring is additive and explainable:
//
//	+5 per query term found in the title
//	+2 per query term found in the summary
//	+3 per domain term found in the title
//	+1 per domain term found in the summary
//	+max(0, 1 - daysOld/365) recency bonus
//
// Terms are the distinct lower-cased whitespace-separated words of the
// query or domain label and match as substrings of the lower-cased text.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/helixir/research-assistant/internal/domain"
)

// Score weights.
const (
	TitleQueryWeight    = 5.0
	SummaryQueryWeight  = 2.0
	TitleDomainWeight   = 3.0
	SummaryDomainWeight = 1.0
)

// publishedLayout is matched against the first ten characters of
// Publication.Published.
const publishedLayout = "2006-01-02"

// Ranker scores and orders publication candidates. It holds no state
// besides its clock and is safe for concurrent use.
type Ranker struct {
	now func() time.Time
}

// Option configures a Ranker.
type Option func(*Ranker)

// WithClock sets the clock used for the recency bonus.
func WithClock(now func() time.Time) Option {
	return func(r *Ranker) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates a Ranker that uses the wall clock unless WithClock is given.
func New(opts ...Option) *Ranker {
	r := &Ranker{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every candidate and returns those with a positive score,
// ordered by score descending. Equal scores keep their input order. Each
// returned publication carries its score and domainLabel. The input slice
// is not modified and nothing is truncated.
func (r *Ranker) Rank(candidates []domain.Publication, query, domainLabel string) []domain.Publication {
	queryTerms := Terms(query)
	domainTerms := Terms(domainLabel)
	now := r.now()

	ranked := make([]domain.Publication, 0, len(candidates))
	for _, c := range candidates {
		score := Score(c, queryTerms, domainTerms, now)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, c.WithRanking(domainLabel, score))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Score computes the relevance score of p for pre-split query and domain
// terms at time now.
func Score(p domain.Publication, queryTerms, domainTerms []string, now time.Time) float64 {
	title := strings.ToLower(p.Title)
	summary := strings.ToLower(p.Summary)

	var score float64
	for _, term := range queryTerms {
		if strings.Contains(title, term) {
			score += TitleQueryWeight
		}
		if strings.Contains(summary, term) {
			score += SummaryQueryWeight
		}
	}
	for _, term := range domainTerms {
		if strings.Contains(title, term) {
			score += TitleDomainWeight
		}
		if strings.Contains(summary, term) {
			score += SummaryDomainWeight
		}
	}

	return score + RecencyBonus(p.Published, now)
}

// RecencyBonus returns max(0, 1 - daysOld/365) for a published value whose
// first ten characters form a YYYY-MM-DD date, counting whole days elapsed
// up to now. Dates in the future count as published today. Anything
// unparsable, including placeholders and relative dates like "3 days ago",
// yields 0.
func RecencyBonus(published string, now time.Time) float64 {
	if len(published) < len(publishedLayout) {
		return 0
	}
	date, err := time.Parse(publishedLayout, published[:len(publishedLayout)])
	if err != nil {
		return 0
	}

	days := math.Floor(now.UTC().Sub(date).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return math.Max(0, 1-days/365)
}

// Terms splits s on whitespace and returns its distinct lower-cased words
// in first-seen order.
func Terms(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
