// Package openalex provides a client for the OpenAlex works search API.
//
// OpenAlex is a free, open catalog of scholarly works. Abstracts are served
// as an inverted index (word to positions) and rebuilt client-side.
//
// API Documentation: https://docs.openalex.org/
package openalex

// SearchResponse represents the top-level response from the OpenAlex works search endpoint.
type SearchResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Meta contains pagination metadata.
type Meta struct {
	Count   int `json:"count"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Work represents a single scholarly work, restricted to the selected fields.
type Work struct {
	ID              string       `json:"id"`
	Title           *string      `json:"title"`
	PublicationDate *string      `json:"publication_date"`
	OpenAccess      *OpenAccess  `json:"open_access"`
	Authorships     []Authorship `json:"authorships"`

	// AbstractInvertedIndex maps each word to the positions where it occurs.
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

// OpenAccess contains open access information.
type OpenAccess struct {
	IsOA  bool    `json:"is_oa"`
	OAURL *string `json:"oa_url"`
}

// Authorship links a work to an author.
type Authorship struct {
	Author AuthorInfo `json:"author"`
}

// AuthorInfo contains author details.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
