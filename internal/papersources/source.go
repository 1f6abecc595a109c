// Package papersources provides interfaces and types for academic paper
// provider clients.
//
// Each external search provider (Semantic Scholar, PubMed, arXiv, Crossref)
// implements the PaperSource interface, allowing the aggregation pipeline to
// fan a query out to multiple providers concurrently with a unified API.
// Provider responses are returned as loosely-typed RawRecords; schema
// normalization into the canonical Paper shape happens downstream in the
// pipeline, never inside a client.
//
// Example usage:
//
//	source := semanticscholar.New(cfg)
//	params := papersources.SearchParams{
//		Query:      "CRISPR gene editing",
//		MaxResults: 50,
//	}
//	result, err := source.Search(ctx, params)
package papersources

import (
	"context"
	"time"

	"github.com/helixir/research-aggregation-service/internal/domain"
)

// SearchParams defines the parameters for searching academic papers.
// All fields except Query are optional.
type SearchParams struct {
	// Query is the search query string (required). The format may vary by
	// provider; clients translate it into their native query syntax.
	Query string

	// MaxResults limits the number of records returned in a single request.
	// Providers may have their own maximum limits that override this value.
	// A value of 0 uses the provider's default limit.
	MaxResults int

	// YearFrom filters papers published on or after this year.
	// 0 applies no lower bound. Providers that cannot filter server-side
	// return unfiltered records; the pipeline filters again downstream.
	YearFrom int

	// YearTo filters papers published on or before this year.
	// 0 applies no upper bound.
	YearTo int

	// MinCitations filters papers to only include those with at least this
	// many citations, for providers that support it. 0 applies no filter.
	MinCitations int
}

// RawRecord is a provider-native search hit before normalization. Fields are
// carried as the provider reported them: the year may be a partial date
// string, authors may arrive as a list or as undelimited free text, and the
// citation count may be absent or nonsensical. Only Title is required; a
// record without a title is dropped by the client that parsed it.
//
// RawRecords are ephemeral: produced by a client, consumed by the pipeline
// normalizer, never persisted.
type RawRecord struct {
	// Provider tags which source produced this record.
	Provider domain.SourceType

	// Title is the paper title (required).
	Title string

	// Authors is the author list when the provider returns one.
	Authors []string

	// RawAuthors is the free-text author string for providers that return
	// authors undelimited. Used only when Authors is empty.
	RawAuthors string

	// Year is the raw publication year or date string (e.g. "2021",
	// "2021 Mar 15", "2021-03-15T00:00:00Z").
	Year string

	// Venue is the publication venue as reported.
	Venue string

	// CitationCount is the provider's citation count. May be zero for
	// providers that do not track citations.
	CitationCount int

	// DOI is the Digital Object Identifier as reported, any casing.
	DOI string

	// URL is the landing page URL.
	URL string

	// PDFURL is the direct PDF URL if the provider reports one.
	PDFURL string

	// Abstract is the abstract text if available.
	Abstract string
}

// SearchResult contains the records from one provider search call.
type SearchResult struct {
	// Records contains the raw records returned by the search. May be empty.
	Records []RawRecord

	// TotalResults is the total number of hits matching the query as
	// reported by the provider, which may be an estimate.
	TotalResults int

	// Source identifies which provider produced this result.
	Source domain.SourceType

	// SearchDuration is the time taken to execute the search, including
	// network latency and response parsing.
	SearchDuration time.Duration
}

// PaperSource defines the interface that all provider clients must implement.
//
// Implementations must:
//   - Respect context cancellation and deadlines
//   - Apply their own rate limiting
//   - Parse defensively: drop records without a title, default every other
//     missing field instead of failing the whole call
//   - Surface rate-limit responses as domain.RateLimitError and malformed
//     payloads as domain.ParseError so the dispatcher can classify outcomes
type PaperSource interface {
	// Search queries the provider for papers matching the given parameters.
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)

	// SourceType returns the type identifier for this provider.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this provider, used for
	// logging, metrics, and error attribution.
	Name() string

	// IsEnabled returns whether this provider is currently enabled and
	// available for searches.
	IsEnabled() bool
}
