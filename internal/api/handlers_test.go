package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/metrics"
	"github.com/coupn-app/coupn/internal/model"
	dbtest "github.com/coupn-app/coupn/internal/testutil"
	"github.com/coupn-app/coupn/internal/testutil/promotions"
)

type stubMatcher struct {
	err    error
	query  string
	result model.RelevanceResult
	seen   int
}

func (m *stubMatcher) Match(_ context.Context, query string, promos []model.Promotion) (model.RelevanceResult, error) {
	m.query = query
	m.seen = len(promos)
	return m.result, m.err
}

type stubResponder struct {
	err    error
	answer string
}

func (r *stubResponder) Answer(context.Context, string, []model.Promotion) (string, error) {
	return r.answer, r.err
}

type stubAudio struct {
	err      error
	filename string
	audio    []byte
	text     string
	speech   llm.Speech
}

func (a *stubAudio) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	a.audio = audio
	a.filename = filename
	return a.text, a.err
}

func (a *stubAudio) Synthesize(context.Context, string) (llm.Speech, error) {
	return a.speech, a.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func setupServer(t *testing.T, opts Options) http.Handler {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return NewServer(opts).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestSearch(t *testing.T) {
	matcher := &stubMatcher{result: model.RelevanceResult{Indices: []int{1}, Explanation: "Sephora sells makeup."}}
	m := metrics.New()
	h := setupServer(t, Options{Matcher: matcher, Metrics: m})

	promos := promotions.NewBuilder(t).WithFixture(promotions.FixtureSearch).Build()
	rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "makeup", Promotions: promos}, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"relevant_indices":[1],"explanation":"Sephora sells makeup."}`, rr.Body.String())
	assert.Equal(t, "makeup", matcher.query)
	assert.Equal(t, len(promos), matcher.seen)
	assert.Contains(t, scrape(t, m), `coupn_searches_total{outcome="matched"} 1`)
}

func TestSearchEmptyResultEncodesEmptyArray(t *testing.T) {
	h := setupServer(t, Options{Matcher: &stubMatcher{result: model.RelevanceResult{Explanation: "Nothing fits."}}})

	rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "pizza"}, nil)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"relevant_indices":[],"explanation":"Nothing fits."}`, rr.Body.String())
}

func TestSearchValidation(t *testing.T) {
	matcher := &stubMatcher{}
	h := setupServer(t, Options{Matcher: matcher})

	rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "query is required", decodeError(t, rr))
	assert.Empty(t, matcher.query, "blank query must not reach the matcher")

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{not json"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "invalid JSON")

	req = httptest.NewRequest(http.MethodPost, "/api/search", http.NoBody)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "request body is empty", decodeError(t, rr))
}

func TestSearchBodyTooLarge(t *testing.T) {
	h := setupServer(t, Options{Matcher: &stubMatcher{}, MaxBodySize: 16})

	rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: strings.Repeat("x", 64)}, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestSearchProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"timeout", llm.NewError(llm.KindTimeout, "chat completion", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"upstream", &llm.OracleError{Kind: llm.KindUpstreamStatus, StatusCode: 500}, http.StatusBadGateway},
		{"malformed", llm.NewError(llm.KindMalformedResponse, "relevance", errors.New("bad json")), http.StatusBadGateway},
		{"configuration", llm.NewError(llm.KindConfiguration, "chat completion", errors.New("no key")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New()
			h := setupServer(t, Options{Matcher: &stubMatcher{err: tt.err}, Metrics: m})

			rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "shoes"}, nil)

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, "Failed to process search request", decodeError(t, rr))
			assert.Contains(t, scrape(t, m), `coupn_searches_total{outcome="failed"} 1`)
		})
	}
}

func TestChat(t *testing.T) {
	h := setupServer(t, Options{Responder: &stubResponder{answer: "Nike has 30% off running shoes until June 29."}})

	rr := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Message: "any shoe deals?"}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"response":"Nike has 30% off running shoes until June 29."}`, rr.Body.String())

	rr = doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Message: ""}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChatFailure(t *testing.T) {
	h := setupServer(t, Options{Responder: &stubResponder{err: errors.New("failed to get AI response")}})

	rr := doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Message: "deals?"}, nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to get AI response", decodeError(t, rr))
}

func multipartAudio(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "recording.webm")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestTranscribe(t *testing.T) {
	audio := &stubAudio{text: "any deals on shoes"}
	h := setupServer(t, Options{Audio: audio})

	body, contentType := multipartAudio(t, "audio", []byte("RIFF-audio"))
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"text":"any deals on shoes"}`, rr.Body.String())
	assert.Equal(t, []byte("RIFF-audio"), audio.audio)
	assert.Equal(t, "audio.webm", audio.filename)
}

func TestTranscribeMissingAudio(t *testing.T) {
	h := setupServer(t, Options{Audio: &stubAudio{}})

	body, contentType := multipartAudio(t, "file", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"No audio file provided"}`, rr.Body.String())
}

func TestSpeak(t *testing.T) {
	h := setupServer(t, Options{Audio: &stubAudio{speech: llm.Speech{ContentType: "audio/mpeg", Audio: []byte("ID3")}}})

	rr := doJSON(t, h, http.MethodPost, "/api/speak", SpeakRequest{Text: "Nike has a deal."}, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "ID3", rr.Body.String())

	rr = doJSON(t, h, http.MethodPost, "/api/speak", SpeakRequest{Text: " "}, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnconfiguredCollaborators(t *testing.T) {
	h := setupServer(t, Options{})

	rr := doJSON(t, h, http.MethodPost, "/api/search", SearchRequest{Query: "shoes"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/chat", ChatRequest{Message: "hi"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/promotions", nil, map[string]string{UserHeader: "u1"})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPromotionsCRUD(t *testing.T) {
	db := dbtest.SetupTestDB(t, promotions.NewBuilder(t).WithFixture(promotions.FixtureDemo).Build())
	h := setupServer(t, Options{Store: db.Storage})
	user := map[string]string{UserHeader: db.UserID}

	rr := doJSON(t, h, http.MethodGet, "/api/promotions", nil, user)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed []model.Promotion
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "Best Buy", listed[0].Company)
	assert.Equal(t, "2025-03-15", listed[0].ExpirationDate.String())

	added := UpsertRequest{Promotions: []model.Promotion{{Company: "Nike", Message: "30% off", Category: "sports"}}}
	rr = doJSON(t, h, http.MethodPost, "/api/promotions", added, user)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"upserted":1}`, rr.Body.String())
	assert.Len(t, db.MustList(), 3)

	rr = doJSON(t, h, http.MethodDelete, "/api/promotions", DeleteRequest{Company: "Best Buy", Message: "Get $50 off on purchases over $200"}, user)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, db.MustList(), 2)

	rr = doJSON(t, h, http.MethodDelete, "/api/promotions", DeleteRequest{Company: "Best Buy", Message: "Get $50 off on purchases over $200"}, user)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPromotionsValidation(t *testing.T) {
	db := dbtest.SetupTestDB(t, nil)
	h := setupServer(t, Options{Store: db.Storage})
	user := map[string]string{UserHeader: db.UserID}

	rr := doJSON(t, h, http.MethodGet, "/api/promotions", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "X-User-ID header is required", decodeError(t, rr))

	rr = doJSON(t, h, http.MethodPost, "/api/promotions", UpsertRequest{Promotions: []model.Promotion{{Company: "Nike"}}}, user)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, h, http.MethodDelete, "/api/promotions", DeleteRequest{Company: "Nike"}, user)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	m := metrics.New()
	h := setupServer(t, Options{Metrics: m})

	rr := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = doJSON(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `coupn_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	h := setupServer(t, Options{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))
}
