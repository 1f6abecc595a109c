// Package crossref provides a client for the Crossref REST API.
//
// Crossref is the DOI registration agency for scholarly publishing; its
// /works endpoint searches the metadata of every registered DOI. This
// package implements the papersources.PaperSource interface.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// WorksResponse represents the response envelope from the /works endpoint.
type WorksResponse struct {
	// Status is "ok" on success.
	Status string `json:"status"`

	// Message contains the search results.
	Message WorksMessage `json:"message"`
}

// WorksMessage contains the paginated list of works.
type WorksMessage struct {
	// TotalResults is the total number of works matching the query.
	TotalResults int `json:"total-results"`

	// Items contains the works on this page.
	Items []Work `json:"items"`
}

// Work represents a single registered work. Crossref wraps most scalar
// fields in single-element arrays.
type Work struct {
	// DOI is the registered Digital Object Identifier.
	DOI string `json:"DOI"`

	// Title holds the work title; usually a single-element array.
	Title []string `json:"title"`

	// ContainerTitle holds the venue (journal or proceedings) name.
	ContainerTitle []string `json:"container-title"`

	// Author is the list of contributors.
	Author []Contributor `json:"author"`

	// Published holds the earliest known publication date.
	Published *DateParts `json:"published,omitempty"`

	// IsReferencedByCount is the citation count within Crossref.
	IsReferencedByCount int `json:"is-referenced-by-count"`

	// URL is the primary resource URL for the work.
	URL string `json:"URL"`

	// Abstract is the JATS-flavored abstract when deposited.
	Abstract string `json:"abstract,omitempty"`

	// Link holds full-text links when deposited by the publisher.
	Link []Link `json:"link,omitempty"`
}

// Contributor represents an author entry.
type Contributor struct {
	// Given is the given name.
	Given string `json:"given,omitempty"`

	// Family is the family name.
	Family string `json:"family,omitempty"`

	// Name is used for organizational contributors.
	Name string `json:"name,omitempty"`
}

// DateParts holds Crossref's nested date representation:
// [[year, month, day]], with month and day optional.
type DateParts struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component, or 0 when absent.
func (d *DateParts) Year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

// Link represents a full-text link deposited with the work.
type Link struct {
	// URL is the link target.
	URL string `json:"URL"`

	// ContentType is the MIME type (e.g. "application/pdf").
	ContentType string `json:"content-type,omitempty"`
}
