package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// Merge collapses duplicate papers into single entries. Two papers are
// duplicates when they share a normalized non-empty DOI, or when both lack
// a DOI and their normalized titles and publication years agree.
//
// Merged fields are resolved symmetrically, so the result does not depend
// on the order providers returned their records: citation counts take the
// maximum, provider lists take the sorted union, and descriptive fields
// keep the most complete value. The output is sorted by normalized title,
// year, and DOI.
func Merge(papers []domain.Paper) []domain.Paper {
	clusters := make([]*domain.Paper, 0, len(papers))
	byKey := make(map[string]*domain.Paper)

	for i := range papers {
		paper := papers[i]

		// A DOI identifies the work outright; title+year matching is a
		// fallback reserved for records without one.
		var key string
		if doi := domain.NormalizeDOI(paper.DOI); doi != "" {
			key = "doi:" + doi
		} else if title := NormalizeTitle(paper.Title); title != "" {
			key = fmt.Sprintf("title:%s|%d", title, paper.Year)
		}

		cluster := byKey[key]
		if cluster == nil {
			clusters = append(clusters, &paper)
			if key != "" {
				byKey[key] = &paper
			}
			continue
		}
		mergeInto(cluster, &paper)
	}

	merged := make([]domain.Paper, len(clusters))
	for i, c := range clusters {
		merged[i] = *c
	}

	sort.Slice(merged, func(i, j int) bool {
		ti, tj := NormalizeTitle(merged[i].Title), NormalizeTitle(merged[j].Title)
		if ti != tj {
			return ti < tj
		}
		if merged[i].Year != merged[j].Year {
			return merged[i].Year < merged[j].Year
		}
		return merged[i].DOI < merged[j].DOI
	})
	return merged
}

// mergeInto folds src into dst. Every field resolution is symmetric in its
// two inputs, which keeps the overall merge independent of input order.
func mergeInto(dst, src *domain.Paper) {
	dst.Title = preferComplete(dst.Title, src.Title)
	dst.Venue = preferComplete(dst.Venue, src.Venue)
	dst.URL = preferComplete(dst.URL, src.URL)
	dst.PDFURL = preferComplete(dst.PDFURL, src.PDFURL)
	dst.Abstract = preferComplete(dst.Abstract, src.Abstract)
	dst.DOI = preferComplete(dst.DOI, src.DOI)

	if len(src.Authors) > len(dst.Authors) ||
		(len(src.Authors) == len(dst.Authors) && joinLess(src.Authors, dst.Authors)) {
		dst.Authors = src.Authors
	}

	if src.CitationCount > dst.CitationCount {
		dst.CitationCount = src.CitationCount
	}

	// Providers sometimes disagree on the year (preprint vs. journal
	// publication). Keep the earliest known year.
	if dst.Year == 0 || (src.Year != 0 && src.Year < dst.Year) {
		dst.Year = src.Year
	}

	for _, provider := range src.SourceProviders {
		dst.AddProvider(provider)
	}
}

// preferComplete returns the longer of two strings, breaking length ties
// lexicographically so the choice is symmetric.
func preferComplete(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	if len(b) == len(a) && b < a {
		return b
	}
	return a
}

// joinLess reports whether a sorts before b when joined, used as a
// symmetric tie-break for equal-length author lists.
func joinLess(a, b []string) bool {
	return strings.Join(a, ";") < strings.Join(b, ";")
}
