// Package rank filters papers against user criteria and scores them for
// relevance against the submitted query. Filtering only removes entries
// and scoring only annotates them; neither reorders the other's work.
package rank

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Relevance weights. Term overlap dominates, citations and recency are
// secondary signals.
const (
	termOverlapWeight = 0.5
	citationWeight    = 0.3
	recencyWeight     = 0.2

	// recencyWindowYears is the ramp over which recency decays to zero.
	recencyWindowYears = 10
)

// Filter returns the subset of papers satisfying every criterion in f.
// Papers with an unknown year are excluded whenever a year bound is set.
// Venue matching is a case-insensitive substring test against any of the
// requested venues. The input slice is never modified.
func Filter(papers []domain.Paper, f domain.FilterSpec) []domain.Paper {
	if f.IsZero() {
		out := make([]domain.Paper, len(papers))
		copy(out, papers)
		return out
	}

	out := make([]domain.Paper, 0, len(papers))
	for _, paper := range papers {
		if matches(paper, f) {
			out = append(out, paper)
		}
	}
	return out
}

// matches reports whether a single paper satisfies the filter.
func matches(paper domain.Paper, f domain.FilterSpec) bool {
	if f.YearFrom > 0 || f.YearTo > 0 {
		if paper.Year == 0 {
			return false
		}
		if f.YearFrom > 0 && paper.Year < f.YearFrom {
			return false
		}
		if f.YearTo > 0 && paper.Year > f.YearTo {
			return false
		}
	}

	if paper.CitationCount < f.MinCitations {
		return false
	}

	if f.RequirePDF && !paper.HasPDF() {
		return false
	}

	if len(f.Venues) > 0 && !venueMatches(paper.Venue, f.Venues) {
		return false
	}

	return true
}

// venueMatches reports whether venue contains any requested venue,
// case-insensitively.
func venueMatches(venue string, wanted []string) bool {
	venue = strings.ToLower(venue)
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" && strings.Contains(venue, w) {
			return true
		}
	}
	return false
}

// Score assigns a relevance score in [0,1] to every paper and returns the
// papers sorted by descending score, with citation count and then title
// breaking ties. No papers are added or removed.
func Score(papers []domain.Paper, query string) []domain.Paper {
	scored := make([]domain.Paper, len(papers))
	copy(scored, papers)

	queryTerms := tokenize(query)
	maxCitations := 0
	for _, p := range scored {
		if p.CitationCount > maxCitations {
			maxCitations = p.CitationCount
		}
	}

	currentYear := time.Now().Year()
	for i := range scored {
		scored[i].RelevanceScore = relevance(&scored[i], queryTerms, maxCitations, currentYear)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].RelevanceScore != scored[j].RelevanceScore {
			return scored[i].RelevanceScore > scored[j].RelevanceScore
		}
		if scored[i].CitationCount != scored[j].CitationCount {
			return scored[i].CitationCount > scored[j].CitationCount
		}
		return scored[i].Title < scored[j].Title
	})
	return scored
}

// relevance computes the weighted relevance of one paper.
func relevance(paper *domain.Paper, queryTerms []string, maxCitations, currentYear int) float64 {
	score := termOverlapWeight * termOverlap(queryTerms, paper.Title+" "+paper.Abstract)

	// Log scaling keeps a 100x citation gap from drowning the other signals.
	if maxCitations > 0 && paper.CitationCount > 0 {
		score += citationWeight *
			math.Log1p(float64(paper.CitationCount)) / math.Log1p(float64(maxCitations))
	}

	if paper.Year > 0 {
		age := currentYear - paper.Year
		if age < 0 {
			age = 0
		}
		if age < recencyWindowYears {
			score += recencyWeight * (1 - float64(age)/recencyWindowYears)
		}
	}

	return clamp01(score)
}

// termOverlap returns the fraction of query terms present in the text.
func termOverlap(queryTerms []string, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	textTerms := make(map[string]struct{})
	for _, term := range tokenize(text) {
		textTerms[term] = struct{}{}
	}

	hits := 0
	for _, term := range queryTerms {
		if _, ok := textTerms[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

// tokenize lowercases text and splits it into alphanumeric terms.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
