// Package semanticscholar provides a client for the Semantic Scholar Graph API.
//
// This package implements the papersources.PaperSource interface over the
// paper search endpoint. A 429 from the API is reported as an empty,
// rate-limited result rather than an error.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the Semantic Scholar paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Data contains the list of papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the Semantic Scholar API response.
// Any field may be null in the upstream payload.
type PaperResult struct {
	PaperID       string         `json:"paperId"`
	Title         *string        `json:"title"`
	Abstract      *string        `json:"abstract"`
	Year          *int           `json:"year"`
	URL           *string        `json:"url"`
	Authors       []Author       `json:"authors"`
	OpenAccessPDF *OpenAccessPDF `json:"openAccessPdf,omitempty"`
	ExternalIDs   map[string]any `json:"externalIds,omitempty"`
}

// Author represents a paper author in the Semantic Scholar API.
type Author struct {
	AuthorID *string `json:"authorId,omitempty"`
	Name     string  `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	// URL is the direct URL to the PDF. May be empty for closed papers.
	URL string `json:"url,omitempty"`

	// Status indicates the open access status (e.g., "HYBRID", "GOLD", "GREEN").
	Status string `json:"status,omitempty"`
}
