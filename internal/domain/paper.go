package domain

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Paper is the canonical, deduplicated representation of one academic work.
//
// Convention for unknown values: Year 0 means the publication year is
// unknown; empty strings mean the field is absent. CitationCount is always
// non-negative. DOI, when present, is stored lower-cased and is unique
// within a result set.
type Paper struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Authors       []string     `json:"authors,omitempty"`
	Year          int          `json:"year,omitempty"`
	Venue         string       `json:"venue,omitempty"`
	CitationCount int          `json:"citation_count"`
	DOI           string       `json:"doi,omitempty"`
	URL           string       `json:"url,omitempty"`
	PDFURL        string       `json:"pdf_url,omitempty"`
	Abstract      string       `json:"abstract,omitempty"`
	SourceProviders []SourceType `json:"source_providers"`
	RelevanceScore  float64      `json:"relevance_score"`
}

// HasPDF reports whether a PDF URL is known for this paper.
func (p *Paper) HasPDF() bool {
	return p.PDFURL != ""
}

// HasDOI reports whether the paper carries a DOI.
func (p *Paper) HasDOI() bool {
	return p.DOI != ""
}

// AddProvider records that the given provider reported this paper, keeping
// the provider set sorted and free of duplicates.
func (p *Paper) AddProvider(s SourceType) {
	for _, existing := range p.SourceProviders {
		if existing == s {
			return
		}
	}
	p.SourceProviders = append(p.SourceProviders, s)
	sort.Slice(p.SourceProviders, func(i, j int) bool {
		return p.SourceProviders[i] < p.SourceProviders[j]
	})
}

// NormalizeDOI trims and lower-cases a DOI, stripping common URL prefixes so
// that "https://doi.org/10.1/X" and "10.1/x" compare equal.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(strings.ToLower(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "doi.org/", "doi:"} {
		if strings.HasPrefix(doi, prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return doi
}
