package domain

import (
	"strings"
)

// Paper is the provider-independent record returned by every paper source.
// All string fields default to "" and Authors to an empty slice; only
// PublishedDate is nullable.
type Paper struct {
	PaperID       string   `json:"paper_id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Abstract      string   `json:"abstract"`
	PublishedDate *string  `json:"published_date"`
	Source        string   `json:"source"`
	URL           string   `json:"url"`
	PDFURL        string   `json:"pdf_url"`
}

// NewPaper creates a paper from a provider tag and the provider's native id.
func NewPaper(source SourceType, nativeID string) *Paper {
	return &Paper{
		PaperID: source.IDPrefix() + nativeID,
		Source:  string(source),
		Authors: []string{},
	}
}

// DedupKey returns the key under which two papers are considered the same:
// the trimmed, lower-cased title.
func (p *Paper) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(p.Title))
}

// SetPublishedDate stores date when non-empty and leaves it null otherwise.
func (p *Paper) SetPublishedDate(date string) {
	if date == "" {
		p.PublishedDate = nil
		return
	}
	p.PublishedDate = &date
}
