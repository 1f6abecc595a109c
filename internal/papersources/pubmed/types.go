// Package pubmed provides a client for the NCBI E-utilities API.
//
// PubMed comprises citations for biomedical literature from MEDLINE, life
// science journals, and online books. Searching is a two-step exchange:
// ESearch resolves a query to a list of PubMed IDs, and ESummary resolves
// those IDs to document summaries. This package implements the
// papersources.PaperSource interface.
//
// API Documentation: https://www.ncbi.nlm.nih.gov/books/NBK25500/
package pubmed

import "encoding/json"

// ESearchResponse represents the response from the esearch.fcgi endpoint.
type ESearchResponse struct {
	// Result contains the search result envelope.
	Result ESearchResult `json:"esearchresult"`
}

// ESearchResult holds the resolved ID list for a query.
type ESearchResult struct {
	// Count is the total number of matching records, returned as a string.
	Count string `json:"count"`

	// IDList contains the PubMed IDs for this page of results.
	IDList []string `json:"idlist"`
}

// ESummaryResponse represents the response from the esummary.fcgi endpoint.
// The "result" object maps each PubMed ID to its summary, alongside a
// "uids" key listing the IDs in order, so it is decoded in two passes.
type ESummaryResponse struct {
	Result json.RawMessage `json:"result"`
}

// summaryIndex is the first decoding pass over the result object.
type summaryIndex struct {
	UIDs []string `json:"uids"`
}

// DocSummary represents a single PubMed document summary.
type DocSummary struct {
	// UID is the PubMed ID.
	UID string `json:"uid"`

	// Title is the article title.
	Title string `json:"title"`

	// Authors is the list of article authors.
	Authors []DocAuthor `json:"authors"`

	// PubDate is the publication date, e.g. "2023 Mar 14".
	PubDate string `json:"pubdate"`

	// Source is the journal title abbreviation.
	Source string `json:"source"`

	// FullJournalName is the full journal title.
	FullJournalName string `json:"fulljournalname"`

	// ELocationID carries the DOI when present, e.g. "doi: 10.1000/xyz".
	ELocationID string `json:"elocationid"`

	// ArticleIDs lists external identifiers (doi, pmc, pubmed).
	ArticleIDs []ArticleID `json:"articleids"`
}

// DocAuthor represents an author entry in a document summary.
type DocAuthor struct {
	// Name is the author name, e.g. "Smith JA".
	Name string `json:"name"`

	// AuthType distinguishes authors from collective names.
	AuthType string `json:"authtype"`
}

// ArticleID represents an external identifier attached to a summary.
type ArticleID struct {
	// IDType is the identifier type (e.g. "doi", "pmc").
	IDType string `json:"idtype"`

	// Value is the identifier value.
	Value string `json:"value"`
}
