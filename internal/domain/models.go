// Package domain provides domain models and error types for the ResearchHub API.
package domain

// SourceType represents the source API that provided paper data.
type SourceType string

const (
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// AllSourceTypes lists the supported providers in declaration order.
// Aggregated results are concatenated in this order.
var AllSourceTypes = []SourceType{
	SourceTypeArXiv,
	SourceTypeOpenAlex,
	SourceTypeSemanticScholar,
}

// IsValidSourceType reports whether s names a supported provider.
func IsValidSourceType(s string) bool {
	for _, st := range AllSourceTypes {
		if string(st) == s {
			return true
		}
	}
	return false
}

// IDPrefix returns the prefix used for paper ids from this provider.
func (s SourceType) IDPrefix() string {
	switch s {
	case SourceTypeArXiv:
		return "arxiv:"
	case SourceTypeOpenAlex:
		return "openalex:"
	case SourceTypeSemanticScholar:
		return "s2:"
	default:
		return string(s) + ":"
	}
}

// SourceStatus reports whether a single provider succeeded during one search.
type SourceStatus struct {
	Name  string  `json:"name"`
	OK    bool    `json:"ok"`
	Error *string `json:"error"`
}

// NewSourceOK builds a successful status for source.
func NewSourceOK(source SourceType) SourceStatus {
	return SourceStatus{Name: string(source), OK: true}
}

// NewSourceFailed builds a failed status carrying a short error kind label.
func NewSourceFailed(source SourceType, kind string) SourceStatus {
	return SourceStatus{Name: string(source), OK: false, Error: &kind}
}

// SearchResult is one aggregated, deduplicated page of papers.
type SearchResult struct {
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
	HasMore bool           `json:"has_more"`
	Papers  []*Paper       `json:"papers"`
	Sources []SourceStatus `json:"sources"`
}

// Language is an output language accepted by the AI endpoints.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
	LanguageKazakh  Language = "kk"
)

var languageNames = map[Language]string{
	LanguageEnglish: "English",
	LanguageRussian: "Russian",
	LanguageKazakh:  "Kazakh",
}

// DisplayName returns the human-readable language name and whether the
// language is supported.
func (l Language) DisplayName() (string, bool) {
	name, ok := languageNames[l]
	return name, ok
}

// IsSupported reports whether l is one of en, ru or kk.
func (l Language) IsSupported() bool {
	_, ok := languageNames[l]
	return ok
}
