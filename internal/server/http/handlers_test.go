package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MakazhanAlpamys/ResearchHubV2/internal/auth"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/domain"
	"github.com/MakazhanAlpamys/ResearchHubV2/internal/papersources"
)

const testSecret = "test-jwt-secret"

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

type mockSearcher struct {
	mu       sync.Mutex
	requests []papersources.AggregateRequest
	result   *domain.SearchResult
	err      error
}

func (m *mockSearcher) Aggregate(_ context.Context, req papersources.AggregateRequest) (*domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &domain.SearchResult{
		Page:    req.Page,
		PerPage: req.PerPage,
		Papers:  []*domain.Paper{},
		Sources: []domain.SourceStatus{},
	}, nil
}

type mockAI struct {
	summarizeFn func(ctx context.Context, title, abstract string, language domain.Language) (string, error)
	analyzeFn   func(ctx context.Context, documentURL string, language domain.Language) (string, error)
	calls       int
}

func (m *mockAI) Summarize(ctx context.Context, title, abstract string, language domain.Language) (string, error) {
	m.calls++
	if m.summarizeFn != nil {
		return m.summarizeFn(ctx, title, abstract, language)
	}
	return "summary", nil
}

func (m *mockAI) AnalyzeDocument(ctx context.Context, documentURL string, language domain.Language) (string, error) {
	m.calls++
	if m.analyzeFn != nil {
		return m.analyzeFn(ctx, documentURL, language)
	}
	return "analysis", nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestServer(searcher PaperSearcher, ai AIService) *Server {
	verifier := auth.NewVerifier(auth.Config{Secret: testSecret}, zerolog.Nop())
	return NewServer(Config{Address: ":0", AllowedOrigins: []string{"http://localhost:3000"}}, searcher, ai, verifier, zerolog.Nop())
}

func signToken(t testing.TB, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"aud": "authenticated",
		"exp": exp.Unix(),
	}
	if sub != "" {
		claims["sub"] = sub
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(t *testing.T, s *Server, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func TestHealthHandler(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	rr := do(t, s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	rr := do(t, newTestServer(&mockSearcher{}, &mockAI{}), http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, newTestServer(nil, &mockAI{}), http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// ---------------------------------------------------------------------------
// Paper search
// ---------------------------------------------------------------------------

func TestSearchPapers_Defaults(t *testing.T) {
	searcher := &mockSearcher{}
	s := newTestServer(searcher, &mockAI{})

	rr := do(t, s, http.MethodGet, "/api/papers/search?query=quantum", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	require.Len(t, searcher.requests, 1)
	got := searcher.requests[0]
	assert.Equal(t, "quantum", got.Query)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 10, got.PerPage)
	assert.Equal(t, domain.SourceType(""), got.Source)
	assert.Nil(t, got.YearFrom)
	assert.Nil(t, got.YearTo)
}

func TestSearchPapers_AllParameters(t *testing.T) {
	searcher := &mockSearcher{}
	s := newTestServer(searcher, &mockAI{})

	rr := do(t, s, http.MethodGet, "/api/papers/search?query=graph+neural&page=3&per_page=25&source=openalex&year_from=2019&year_to=2023", nil, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	got := searcher.requests[0]
	assert.Equal(t, "graph neural", got.Query)
	assert.Equal(t, 3, got.Page)
	assert.Equal(t, 25, got.PerPage)
	assert.Equal(t, domain.SourceTypeOpenAlex, got.Source)
	require.NotNil(t, got.YearFrom)
	require.NotNil(t, got.YearTo)
	assert.Equal(t, 2019, *got.YearFrom)
	assert.Equal(t, 2023, *got.YearTo)
}

func TestSearchPapers_ResponseBody(t *testing.T) {
	date := "2024-01-15"
	failed := "Timeout"
	searcher := &mockSearcher{result: &domain.SearchResult{
		Total:   1,
		Page:    1,
		PerPage: 10,
		HasMore: false,
		Papers: []*domain.Paper{{
			PaperID:       "arxiv:2401.00001v1",
			Title:         "Quantum Things",
			Authors:       []string{"Ada Lovelace"},
			PublishedDate: &date,
			Source:        "arxiv",
			URL:           "https://arxiv.org/abs/2401.00001v1",
		}},
		Sources: []domain.SourceStatus{
			{Name: "arxiv", OK: true},
			{Name: "openalex", OK: false, Error: &failed},
		},
	}}
	s := newTestServer(searcher, &mockAI{})

	rr := do(t, s, http.MethodGet, "/api/papers/search?query=quantum", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.JSONEq(t, `{
		"total": 1, "page": 1, "per_page": 10, "has_more": false,
		"papers": [{
			"paper_id": "arxiv:2401.00001v1", "title": "Quantum Things", "authors": ["Ada Lovelace"],
			"abstract": "", "published_date": "2024-01-15", "source": "arxiv",
			"url": "https://arxiv.org/abs/2401.00001v1", "pdf_url": ""
		}],
		"sources": [
			{"name": "arxiv", "ok": true, "error": null},
			{"name": "openalex", "ok": false, "error": "Timeout"}
		]
	}`, rr.Body.String())
}

func TestSearchPapers_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name  string
		query string
		field string
	}{
		{"missing query", "", "query"},
		{"empty query", "query=", "query"},
		{"query too long", "query=" + strings.Repeat("a", 301), "query"},
		{"page zero", "query=x&page=0", "page"},
		{"page not integer", "query=x&page=abc", "page"},
		{"per_page zero", "query=x&per_page=0", "per_page"},
		{"per_page too large", "query=x&per_page=51", "per_page"},
		{"unknown source", "query=x&source=pubmed", "source"},
		{"year_from too small", "query=x&year_from=1899", "year_from"},
		{"year_to too large", "query=x&year_to=2101", "year_to"},
		{"year not integer", "query=x&year_to=recent", "year_to"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &mockSearcher{}
			s := newTestServer(searcher, &mockAI{})

			rr := do(t, s, http.MethodGet, "/api/papers/search?"+tc.query, nil, "")
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			assert.Empty(t, searcher.requests, "searcher must not be called")

			resp := decodeError(t, rr)
			require.NotEmpty(t, resp.Fields)
			assert.Equal(t, tc.field, resp.Fields[0].Field)
		})
	}
}

func TestSearchPapers_BoundaryValuesAccepted(t *testing.T) {
	searcher := &mockSearcher{}
	s := newTestServer(searcher, &mockAI{})

	q := "query=" + url.QueryEscape(strings.Repeat("ж", 300)) + "&per_page=50&year_from=1900&year_to=2100"
	rr := do(t, s, http.MethodGet, "/api/papers/search?"+q, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestSearchPapers_UnsupportedSourceFromAggregator(t *testing.T) {
	searcher := &mockSearcher{err: fmt.Errorf("%w: arxiv", domain.ErrUnsupportedSource)}
	s := newTestServer(searcher, &mockAI{})

	rr := do(t, s, http.MethodGet, "/api/papers/search?query=x&source=arxiv", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestSearchPapers_DoesNotRequireAuth(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	rr := do(t, s, http.MethodGet, "/api/papers/search?query=x", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

// ---------------------------------------------------------------------------
// AI endpoints
// ---------------------------------------------------------------------------

func TestSummarize_Success(t *testing.T) {
	var gotTitle, gotAbstract string
	var gotLang domain.Language
	ai := &mockAI{summarizeFn: func(_ context.Context, title, abstract string, language domain.Language) (string, error) {
		gotTitle, gotAbstract, gotLang = title, abstract, language
		return "Резюме", nil
	}}
	s := newTestServer(&mockSearcher{}, ai)

	token := signToken(t, "user-123", time.Now().Add(time.Hour))
	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{
		"title":    "Quantum Things",
		"abstract": "We study things.",
		"language": "ru",
	}, token)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"summary":"Резюме","language":"ru"}`, rr.Body.String())
	assert.Equal(t, "Quantum Things", gotTitle)
	assert.Equal(t, "We study things.", gotAbstract)
	assert.Equal(t, domain.LanguageRussian, gotLang)
}

func TestSummarize_DefaultLanguage(t *testing.T) {
	var gotLang domain.Language
	ai := &mockAI{summarizeFn: func(_ context.Context, _, _ string, language domain.Language) (string, error) {
		gotLang = language
		return "ok", nil
	}}
	s := newTestServer(&mockSearcher{}, ai)

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T"}, signToken(t, "u", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, domain.LanguageEnglish, gotLang)
	assert.JSONEq(t, `{"summary":"ok","language":"en"}`, rr.Body.String())
}

func TestSummarize_AuthFailures(t *testing.T) {
	testCases := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Missing authorization token"},
		{"wrong scheme", "Basic abc", "Missing authorization token"},
		{"garbage token", "Bearer not-a-jwt", "Invalid token"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ai := &mockAI{}
			s := newTestServer(&mockSearcher{}, ai)

			req := httptest.NewRequest(http.MethodPost, "/api/ai/summarize", strings.NewReader(`{"title":"T"}`))
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			s.Handler().ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tc.message, decodeError(t, rr).Detail)
			assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
			assert.Zero(t, ai.calls)
		})
	}
}

func TestSummarize_ExpiredToken(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T"}, signToken(t, "u", time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token has expired", decodeError(t, rr).Detail)
}

func TestSummarize_AuthNotConfigured(t *testing.T) {
	verifier := auth.NewVerifier(auth.Config{}, zerolog.Nop())
	s := NewServer(Config{}, &mockSearcher{}, &mockAI{}, verifier, zerolog.Nop())

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T"}, signToken(t, "u", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Authentication is not configured on the server", decodeError(t, rr).Detail)
}

func TestSummarize_UnsupportedLanguage(t *testing.T) {
	ai := &mockAI{summarizeFn: func(_ context.Context, _, _ string, language domain.Language) (string, error) {
		return "", domain.NewValidationError("language", "Unsupported language")
	}}
	s := newTestServer(&mockSearcher{}, ai)

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T", "language": "fr"}, signToken(t, "u", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Unsupported language", decodeError(t, rr).Detail)
}

func TestSummarize_UpstreamFailure(t *testing.T) {
	ai := &mockAI{summarizeFn: func(context.Context, string, string, domain.Language) (string, error) {
		return "", fmt.Errorf("%w: gemini: API error (status 500)", domain.ErrUpstreamAI)
	}}
	s := newTestServer(&mockSearcher{}, ai)

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T"}, signToken(t, "u", time.Now().Add(time.Hour)))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "AI service is temporarily unavailable", decodeError(t, rr).Detail)
}

func TestSummarize_InvalidBody(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		field string
	}{
		{"malformed json", `{"title":`, "body"},
		{"missing title", `{"abstract":"a"}`, "title"},
		{"wrong type", `{"title": 42}`, "body"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ai := &mockAI{}
			s := newTestServer(&mockSearcher{}, ai)

			rr := do(t, s, http.MethodPost, "/api/ai/summarize", tc.body, signToken(t, "u", time.Now().Add(time.Hour)))
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			resp := decodeError(t, rr)
			require.NotEmpty(t, resp.Fields)
			assert.Equal(t, tc.field, resp.Fields[0].Field)
			assert.Zero(t, ai.calls)
		})
	}
}

func TestAnalyzePDF_Success(t *testing.T) {
	var gotURL string
	ai := &mockAI{analyzeFn: func(_ context.Context, documentURL string, _ domain.Language) (string, error) {
		gotURL = documentURL
		return "Талдау", nil
	}}
	s := newTestServer(&mockSearcher{}, ai)

	rr := do(t, s, http.MethodPost, "/api/ai/analyze-pdf", map[string]string{
		"pdf_url":  "https://arxiv.org/pdf/2401.00001",
		"language": "kk",
	}, signToken(t, "u", time.Now().Add(time.Hour)))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"analysis":"Талдау","language":"kk"}`, rr.Body.String())
	assert.Equal(t, "https://arxiv.org/pdf/2401.00001", gotURL)
}

func TestAnalyzePDF_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not a pdf", domain.NewValidationError("pdf_url", "URL does not point to a PDF file"), http.StatusBadRequest, "URL does not point to a PDF file"},
		{"too large", domain.NewValidationError("pdf_url", "PDF exceeds maximum size of 20 MB"), http.StatusBadRequest, "PDF exceeds maximum size of 20 MB"},
		{"upstream", fmt.Errorf("%w: HTTP 404", domain.ErrUpstreamAI), http.StatusBadGateway, "AI service is temporarily unavailable"},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ai := &mockAI{analyzeFn: func(context.Context, string, domain.Language) (string, error) {
				return "", tc.err
			}}
			s := newTestServer(&mockSearcher{}, ai)

			rr := do(t, s, http.MethodPost, "/api/ai/analyze-pdf", map[string]string{"pdf_url": "https://example.com/a.pdf"}, signToken(t, "u", time.Now().Add(time.Hour)))
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.message, decodeError(t, rr).Detail)
		})
	}
}

func TestAnalyzePDF_MissingURL(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	rr := do(t, s, http.MethodPost, "/api/ai/analyze-pdf", map[string]string{"language": "en"}, signToken(t, "u", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "pdf_url", decodeError(t, rr).Fields[0].Field)
}

func TestAIEndpoints_IdentityInContext(t *testing.T) {
	var gotUser string
	ai := &mockAI{summarizeFn: func(ctx context.Context, _, _ string, _ domain.Language) (string, error) {
		id, ok := auth.IdentityFromContext(ctx)
		require.True(t, ok)
		gotUser = id.UserID
		return "ok", nil
	}}
	s := newTestServer(&mockSearcher{}, ai)

	rr := do(t, s, http.MethodPost, "/api/ai/summarize", map[string]string{"title": "T"}, signToken(t, "user-42", time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "user-42", gotUser)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	req := httptest.NewRequest(http.MethodOptions, "/api/ai/summarize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSDisallowedOrigin(t *testing.T) {
	s := newTestServer(&mockSearcher{}, &mockAI{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
