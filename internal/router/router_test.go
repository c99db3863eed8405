package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"support-triage/internal/auth"
	"support-triage/internal/handlers"
	"support-triage/internal/llm"
	"support-triage/internal/middleware"
	"support-triage/internal/pipeline"
	"support-triage/internal/realtime"
	"support-triage/internal/triage"
)

func newTestRouter(t *testing.T, limiter middleware.Limiter) *Router {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	authService, err := auth.NewService("test-secret", time.Hour, "helpdesk", string(hash))
	require.NoError(t, err)

	clock := triage.FixedClock(time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC))
	hub := realtime.NewHub("http://localhost:5173")
	triager := pipeline.New(nil, clock, hub, nil)
	api := handlers.NewAPI(triager, triage.NewUrgencyScorer(clock), authService, nil, llm.NewFactory(), nil, nil)
	return New(api, authService, limiter, "http://localhost:5173", hub)
}

func serve(rt *Router, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func issueToken(t *testing.T, rt *Router) string {
	t.Helper()
	rec := serve(rt, http.MethodPost, "/api/v1/auth/token", `{"client_id":"helpdesk","client_secret":"s3cret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func TestPublicRoutes(t *testing.T) {
	rt := newTestRouter(t, nil)

	rec := serve(rt, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = serve(rt, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(rt, http.MethodGet, "/nowhere", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	rt := newTestRouter(t, nil)

	rec := serve(rt, http.MethodPost, "/api/v1/triage", `{"message":"hi"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	rec = serve(rt, http.MethodPost, "/api/v1/triage", `{"message":"hi"}`, "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTriageFlow(t *testing.T) {
	rt := newTestRouter(t, nil)
	token := issueToken(t, rt)

	rec := serve(rt, http.MethodPost, "/api/v1/triage/", `{"message":"The server is down!"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, triage.CategoryTechnicalProblem, result.Category)

	rec = serve(rt, http.MethodPost, "/api/v1/triage/batch", `{"messages":["refund","bug"]}`, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(rt, http.MethodPost, "/api/v1/classify", `{"message":"refund"}`, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Billing Issue")

	rec = serve(rt, http.MethodPost, "/api/v1/urgency", `{"message":""}`, token)
	assert.JSONEq(t, `{"urgencyScore":0,"urgency":"Low"}`, rec.Body.String())

	rec = serve(rt, http.MethodGet, "/api/v1/categories", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(rt, http.MethodGet, "/api/v1/triage", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProviderRoutes(t *testing.T) {
	rt := newTestRouter(t, nil)
	token := issueToken(t, rt)

	assert.Equal(t, http.StatusServiceUnavailable, serve(rt, http.MethodGet, "/api/v1/llm/providers", "", token).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(rt, http.MethodDelete, "/api/v1/llm/providers/3", "", token).Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(rt, http.MethodPost, "/api/v1/llm/providers/3/test", "", token).Code)
	assert.Equal(t, http.StatusNotFound, serve(rt, http.MethodDelete, "/api/v1/llm/providers/abc", "", token).Code)
}

func TestCORSPreflight(t *testing.T) {
	rt := newTestRouter(t, nil)
	rec := serve(rt, http.MethodOptions, "/api/v1/triage", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	rt := newTestRouter(t, middleware.NewRateLimiter(1, time.Minute))
	token := issueToken(t, rt)

	assert.Equal(t, http.StatusOK, serve(rt, http.MethodGet, "/api/v1/categories", "", token).Code)
	rec := serve(rt, http.MethodGet, "/api/v1/categories", "", token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
