// Package pipeline orchestrates a research job: fanning a query out to the
// enabled providers, normalizing and deduplicating what comes back, and
// ranking and summarizing the final set.
package pipeline

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/research-aggregation-service/internal/domain"
	"github.com/helixir/research-aggregation-service/internal/papersources"
)

// minPlausibleYear is the oldest publication year accepted during
// normalization. Anything earlier is treated as unknown.
const minPlausibleYear = 1400

// Normalize converts a raw provider record into a domain paper. It is pure
// and never fails: malformed fields degrade to their zero values.
func Normalize(record papersources.RawRecord) domain.Paper {
	paper := domain.Paper{
		ID:            uuid.New(),
		Title:         strings.TrimSpace(record.Title),
		Venue:         strings.TrimSpace(record.Venue),
		DOI:           domain.NormalizeDOI(record.DOI),
		URL:           strings.TrimSpace(record.URL),
		PDFURL:        strings.TrimSpace(record.PDFURL),
		Abstract:      strings.TrimSpace(record.Abstract),
		CitationCount: record.CitationCount,
		Year:          normalizeYear(record.Year),
	}

	if paper.CitationCount < 0 {
		paper.CitationCount = 0
	}

	paper.Authors = normalizeAuthors(record.Authors, record.RawAuthors)

	if record.Provider != "" {
		paper.AddProvider(record.Provider)
	}

	return paper
}

// NormalizeAll converts a batch of raw records.
func NormalizeAll(records []papersources.RawRecord) []domain.Paper {
	papers := make([]domain.Paper, len(records))
	for i, record := range records {
		papers[i] = Normalize(record)
	}
	return papers
}

// normalizeYear coerces a raw year string to an int. Values outside
// [1400, next year] are treated as unknown and become 0.
func normalizeYear(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	if year < minPlausibleYear || year > time.Now().Year()+1 {
		return 0
	}
	return year
}

// normalizeAuthors cleans a structured author list, falling back to
// splitting a free-text author string on ";", ",", and " and ".
func normalizeAuthors(authors []string, raw string) []string {
	if len(authors) == 0 && raw != "" {
		authors = splitAuthors(raw)
	}

	out := make([]string, 0, len(authors))
	for _, author := range authors {
		if author = strings.TrimSpace(author); author != "" {
			out = append(out, author)
		}
	}
	return out
}

// splitAuthors breaks a free-text author string into individual names.
func splitAuthors(raw string) []string {
	raw = strings.ReplaceAll(raw, " and ", ";")
	raw = strings.ReplaceAll(raw, ",", ";")
	return strings.Split(raw, ";")
}
