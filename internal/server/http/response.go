package httpserver

// Request and response types for JSON serialization.

type summarizeRequest struct {
	Title    string `json:"title" validate:"required,max=2000"`
	Abstract string `json:"abstract" validate:"max=20000"`
	Language string `json:"language"`
}

type summarizeResponse struct {
	Summary  string `json:"summary"`
	Language string `json:"language"`
}

type analyzePDFRequest struct {
	PDFURL   string `json:"pdf_url" validate:"required,max=2048"`
	Language string `json:"language"`
}

type analyzePDFResponse struct {
	Analysis string `json:"analysis"`
	Language string `json:"language"`
}

// searchQuery holds the parsed query string of a paper search.
type searchQuery struct {
	Query    string `query:"query" validate:"required,max=300"`
	Page     int    `query:"page" validate:"min=1"`
	PerPage  int    `query:"per_page" validate:"min=1,max=50"`
	Source   string `query:"source" validate:"omitempty,oneof=arxiv openalex semantic_scholar"`
	YearFrom *int   `query:"year_from" validate:"omitempty,min=1900,max=2100"`
	YearTo   *int   `query:"year_to" validate:"omitempty,min=1900,max=2100"`
}

type errorResponse struct {
	Detail string       `json:"detail"`
	Fields []fieldError `json:"fields,omitempty"`
}

// fieldError describes one rejected request field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
