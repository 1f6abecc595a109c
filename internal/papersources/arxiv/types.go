// Package arxiv provides a client for the arXiv Atom API.
//
// arXiv is a free distribution service and open-access archive for
// scholarly preprints. Its query API returns results as an Atom feed with
// OpenSearch pagination extensions. This package implements the
// papersources.PaperSource interface.
//
// API Documentation: https://info.arxiv.org/help/api/user-manual.html
package arxiv

// Feed represents the Atom feed returned by the query API.
type Feed struct {
	// TotalResults is the OpenSearch total result count for the query.
	TotalResults int `xml:"http://a9.com/-/spec/opensearch/1.1/ totalResults"`

	// Entries contains the feed entries for this page.
	Entries []Entry `xml:"entry"`
}

// Entry represents a single preprint in the feed.
type Entry struct {
	// ID is the abstract page URL, e.g. "http://arxiv.org/abs/2301.07041v1".
	ID string `xml:"id"`

	// Title is the preprint title. May contain embedded newlines.
	Title string `xml:"title"`

	// Summary is the abstract text.
	Summary string `xml:"summary"`

	// Published is the first-submission timestamp in RFC 3339 form.
	Published string `xml:"published"`

	// Authors is the list of authors.
	Authors []Author `xml:"author"`

	// Links carries the abstract and PDF links.
	Links []Link `xml:"link"`

	// DOI is set when the preprint has an associated published DOI.
	DOI string `xml:"http://arxiv.org/schemas/atom doi"`
}

// Author represents an author of a preprint.
type Author struct {
	// Name is the author's full name.
	Name string `xml:"name"`
}

// Link represents a link attached to an entry.
type Link struct {
	// Href is the link target.
	Href string `xml:"href,attr"`

	// Rel is the link relation ("alternate" or "related").
	Rel string `xml:"rel,attr"`

	// Title is set to "pdf" on the PDF link.
	Title string `xml:"title,attr"`
}
