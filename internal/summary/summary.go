// Package summary computes aggregate statistics over a final paper set.
package summary

import (
	"fmt"
	"sort"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

const (
	// topVenueLimit caps the venue frequency list.
	topVenueLimit = 5

	// topCitedLimit caps the most-cited paper list.
	topCitedLimit = 5
)

// Build computes a summary report for the given papers. It is a pure
// function: identical input always yields an identical report, with
// alphabetical tie-breaks wherever counts collide.
func Build(papers []domain.Paper) domain.SummaryReport {
	report := domain.SummaryReport{
		TotalPapers: len(papers),
		DateRange:   "N/A",
		Sources:     make(map[domain.SourceType]int),
		TopVenues:   []domain.VenueCount{},
		TopCited:    []domain.Paper{},
	}
	if len(papers) == 0 {
		return report
	}

	totalCitations := 0
	minYear, maxYear := 0, 0
	venueCounts := make(map[string]int)

	for _, paper := range papers {
		if paper.HasPDF() {
			report.PapersWithPDF++
		}
		totalCitations += paper.CitationCount

		if paper.Year > 0 {
			if minYear == 0 || paper.Year < minYear {
				minYear = paper.Year
			}
			if paper.Year > maxYear {
				maxYear = paper.Year
			}
		}

		if paper.Venue != "" {
			venueCounts[paper.Venue]++
		}

		for _, provider := range paper.SourceProviders {
			report.Sources[provider]++
		}
	}

	report.AvgCitations = float64(totalCitations) / float64(len(papers))

	if minYear > 0 {
		report.DateRange = fmt.Sprintf("%d-%d", minYear, maxYear)
	}

	report.TopVenues = topVenues(venueCounts)
	report.TopCited = topCited(papers)
	return report
}

// topVenues returns the most frequent venues, at most topVenueLimit,
// ordered by descending count and then alphabetically.
func topVenues(counts map[string]int) []domain.VenueCount {
	venues := make([]domain.VenueCount, 0, len(counts))
	for venue, count := range counts {
		venues = append(venues, domain.VenueCount{Venue: venue, Count: count})
	}

	sort.Slice(venues, func(i, j int) bool {
		if venues[i].Count != venues[j].Count {
			return venues[i].Count > venues[j].Count
		}
		return venues[i].Venue < venues[j].Venue
	})

	if len(venues) > topVenueLimit {
		venues = venues[:topVenueLimit]
	}
	return venues
}

// topCited returns the most cited papers, at most topCitedLimit, ordered
// by descending citation count and then by title.
func topCited(papers []domain.Paper) []domain.Paper {
	cited := make([]domain.Paper, len(papers))
	copy(cited, papers)

	sort.Slice(cited, func(i, j int) bool {
		if cited[i].CitationCount != cited[j].CitationCount {
			return cited[i].CitationCount > cited[j].CitationCount
		}
		return cited[i].Title < cited[j].Title
	})

	if len(cited) > topCitedLimit {
		cited = cited[:topCitedLimit]
	}
	return cited
}
