package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/auth"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/observability"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

// Pagination and validation constants.
const (
	defaultPage        = 1
	defaultPerPage     = 10
	defaultLanguage    = string(domain.LanguageEnglish)
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies

	aiUnavailableMessage = "AI service is temporarily unavailable"
)

// searchPapers handles GET /api/papers/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	q, fields := parseSearchQuery(r.URL.Query())
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}
	if err := s.validate.Struct(q); err != nil {
		writeValidationError(w, fieldErrors(err))
		return
	}

	result, err := s.searcher.Aggregate(r.Context(), papersources.AggregateRequest{
		Query:    q.Query,
		Page:     q.Page,
		PerPage:  q.PerPage,
		Source:   domain.SourceType(q.Source),
		YearFrom: q.YearFrom,
		YearTo:   q.YearTo,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// parseSearchQuery reads the search parameters, applying defaults. Values
// that are not integers are reported as field errors.
func parseSearchQuery(values url.Values) (searchQuery, []fieldError) {
	q := searchQuery{
		Query:   values.Get("query"),
		Page:    defaultPage,
		PerPage: defaultPerPage,
		Source:  values.Get("source"),
	}

	var fields []fieldError
	parseInt := func(name string, dst *int) {
		raw := values.Get(name)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			fields = append(fields, fieldError{Field: name, Message: "must be a valid integer"})
			return
		}
		*dst = n
	}
	parseOptionalInt := func(name string) *int {
		if values.Get(name) == "" {
			return nil
		}
		var n int
		before := len(fields)
		parseInt(name, &n)
		if len(fields) > before {
			return nil
		}
		return &n
	}

	parseInt("page", &q.Page)
	parseInt("per_page", &q.PerPage)
	q.YearFrom = parseOptionalInt("year_from")
	q.YearTo = parseOptionalInt("year_to")

	return q, fields
}

// summarize handles POST /api/ai/summarize.
func (s *Server) summarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}

	summary, err := s.ai.Summarize(r.Context(), req.Title, req.Abstract, domain.Language(req.Language))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{Summary: summary, Language: req.Language})
}

// analyzePDF handles POST /api/ai/analyze-pdf.
func (s *Server) analyzePDF(w http.ResponseWriter, r *http.Request) {
	var req analyzePDFRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = defaultLanguage
	}

	analysis, err := s.ai.AnalyzeDocument(r.Context(), req.PDFURL, domain.Language(req.Language))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzePDFResponse{Analysis: analysis, Language: req.Language})
}

// decodeBody reads and validates a JSON body into dst. It writes a 422
// response and returns false when the body is malformed or invalid.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if err := json.Unmarshal(body, dst); err != nil {
		writeValidationError(w, []fieldError{{Field: "body", Message: "invalid JSON request body"}})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeValidationError(w, fieldErrors(err))
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, fields []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
		Detail: "request validation failed",
		Fields: fields,
	})
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	var authErr *auth.Error
	var ve *domain.ValidationError

	switch {
	case errors.As(err, &authErr):
		writeAuthError(w, r, err)
	case errors.Is(err, domain.ErrUnsupportedSource):
		writeValidationError(w, []fieldError{{Field: "source", Message: "unsupported source"}})
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrUpstreamAI):
		writeError(w, http.StatusBadGateway, aiUnavailableMessage)
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	default:
		observability.FromContext(r.Context(), s.logger).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeAuthError renders a token verification failure. Configuration
// problems are server errors; everything else is 401.
func writeAuthError(w http.ResponseWriter, _ *http.Request, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
		return
	}
	if errors.Is(authErr, domain.ErrNotConfigured) {
		writeError(w, http.StatusInternalServerError, authErr.Error())
		return
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, authErr.Error())
}
