package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

func TestBuildEmptySet(t *testing.T) {
	report := Build(nil)

	assert.Equal(t, 0, report.TotalPapers)
	assert.Equal(t, 0, report.PapersWithPDF)
	assert.Equal(t, 0.0, report.AvgCitations)
	assert.Equal(t, "N/A", report.DateRange)
	assert.Empty(t, report.Sources)
	assert.Empty(t, report.TopVenues)
	assert.Empty(t, report.TopCited)
}

func TestBuildAggregates(t *testing.T) {
	papers := []domain.Paper{
		{
			Title:           "A",
			Year:            2019,
			Venue:           "Nature",
			CitationCount:   100,
			PDFURL:          "https://example.org/a.pdf",
			SourceProviders: []domain.SourceType{domain.SourceTypeSemanticScholar, domain.SourceTypeCrossref},
		},
		{
			Title:           "B",
			Year:            2023,
			Venue:           "Nature",
			CitationCount:   50,
			SourceProviders: []domain.SourceType{domain.SourceTypeCrossref},
		},
		{
			Title:           "C",
			Year:            0,
			Venue:           "arXiv",
			CitationCount:   30,
			SourceProviders: []domain.SourceType{domain.SourceTypeArXiv},
		},
	}

	report := Build(papers)

	assert.Equal(t, 3, report.TotalPapers)
	assert.Equal(t, 1, report.PapersWithPDF)
	assert.Equal(t, 60.0, report.AvgCitations)

	// Unknown years are ignored for the range.
	assert.Equal(t, "2019-2023", report.DateRange)

	assert.Equal(t, map[domain.SourceType]int{
		domain.SourceTypeSemanticScholar: 1,
		domain.SourceTypeCrossref:        2,
		domain.SourceTypeArXiv:           1,
	}, report.Sources)

	require.Len(t, report.TopVenues, 2)
	assert.Equal(t, domain.VenueCount{Venue: "Nature", Count: 2}, report.TopVenues[0])
	assert.Equal(t, domain.VenueCount{Venue: "arXiv", Count: 1}, report.TopVenues[1])

	require.NotEmpty(t, report.TopCited)
	assert.Equal(t, "A", report.TopCited[0].Title)
}

func TestBuildSingleYearRange(t *testing.T) {
	report := Build([]domain.Paper{{Title: "A", Year: 2022}})
	assert.Equal(t, "2022-2022", report.DateRange)
}

func TestBuildAllYearsUnknown(t *testing.T) {
	report := Build([]domain.Paper{{Title: "A"}, {Title: "B"}})
	assert.Equal(t, "N/A", report.DateRange)
}

func TestTopVenuesAlphabeticalTieBreak(t *testing.T) {
	papers := []domain.Paper{
		{Title: "a", Venue: "Zeta"},
		{Title: "b", Venue: "Alpha"},
		{Title: "c", Venue: "Beta"},
	}

	report := Build(papers)

	require.Len(t, report.TopVenues, 3)
	assert.Equal(t, "Alpha", report.TopVenues[0].Venue)
	assert.Equal(t, "Beta", report.TopVenues[1].Venue)
	assert.Equal(t, "Zeta", report.TopVenues[2].Venue)
}

func TestTopVenuesTruncatedToFive(t *testing.T) {
	papers := make([]domain.Paper, 8)
	venues := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	for i := range papers {
		papers[i] = domain.Paper{Title: venues[i], Venue: venues[i]}
	}

	report := Build(papers)
	assert.Len(t, report.TopVenues, 5)
}

func TestTopCitedTruncatedToFive(t *testing.T) {
	papers := make([]domain.Paper, 9)
	for i := range papers {
		papers[i] = domain.Paper{Title: string(rune('a' + i)), CitationCount: i}
	}

	report := Build(papers)
	require.Len(t, report.TopCited, 5)
	assert.Equal(t, 8, report.TopCited[0].CitationCount)
}
