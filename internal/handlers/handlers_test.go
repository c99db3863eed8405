package handlers

import (
	"bytes"
	"context"
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
	"support-triage/internal/config"
	"support-triage/internal/llm"
	"support-triage/internal/models"
	"support-triage/internal/pipeline"
	"support-triage/internal/triage"
)

var weekdayNoon = triage.FixedClock(time.Date(2024, time.January, 10, 12, 0, 0, 0, time.UTC))

type fakeRegistry struct {
	created []models.LLMProviderInput
	deleted []int64
}

func (f *fakeRegistry) ListProviderRecords(context.Context) ([]models.LLMProvider, error) {
	return []models.LLMProvider{{ID: 1, ProviderName: "claude", ModelName: "claude-3-5-haiku-latest", IsActive: true}}, nil
}

func (f *fakeRegistry) CreateProvider(_ context.Context, input models.LLMProviderInput) (int64, error) {
	f.created = append(f.created, input)
	return int64(len(f.created)), nil
}

func (f *fakeRegistry) DeleteProvider(_ context.Context, providerID int64) error {
	if providerID != 1 {
		return llm.ErrProviderNotFound
	}
	f.deleted = append(f.deleted, providerID)
	return nil
}

type okProvider struct{ config *llm.ProviderConfig }

func (p *okProvider) Name() string { return "fake" }
func (p *okProvider) Classify(context.Context, string) (*llm.ClassificationResult, llm.UsageRecord, error) {
	return &llm.ClassificationResult{Category: "General Inquiry", Reasoning: "asks"}, llm.UsageRecord{}, nil
}
func (p *okProvider) HealthCheck(context.Context) (*llm.HealthCheckResult, error) {
	return &llm.HealthCheckResult{Status: "ok", Latency: time.Millisecond}, nil
}
func (p *okProvider) GetConfig() *llm.ProviderConfig { return p.config }
func (p *okProvider) GetUsage(context.Context) (*llm.UsageStats, error) {
	return &llm.UsageStats{}, nil
}

func newTestAPI(t *testing.T, registry ProviderRegistry) *API {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	authService, err := auth.NewService("test-secret", time.Hour, "helpdesk", string(hash))
	require.NoError(t, err)

	triager := pipeline.New(nil, weekdayNoon, nil, nil)
	return NewAPI(triager, triage.NewUrgencyScorer(weekdayNoon), authService, nil, llm.NewFactory(), registry, nil)
}

func do(handler http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	handler(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestTriageHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.Triage, http.MethodPost, `{"message":"I was charged twice, please refund"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result pipeline.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, triage.CategoryBillingIssue, result.Category)
	assert.Equal(t, llm.SourceRules, result.Source)
	assert.Equal(t, "Ask user to check billing portal.", result.RecommendedAction)
	assert.NotEmpty(t, result.ID)
}

func TestTriageHandlerValidation(t *testing.T) {
	api := newTestAPI(t, nil)

	assert.Equal(t, http.StatusBadRequest, do(api.Triage, http.MethodPost, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(api.Triage, http.MethodPost, `{"msg":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(api.Triage, http.MethodPost, `not json`).Code)
	assert.Equal(t, http.StatusOK, do(api.Triage, http.MethodPost, `{"message":""}`).Code)
}

func TestBatchTriageHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.BatchTriage, http.MethodPost, `{"messages":["server down","how do I export?"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Results []pipeline.Result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Results, 2)
	assert.Equal(t, triage.CategoryTechnicalProblem, payload.Results[0].Category)
	assert.Equal(t, triage.CategoryGeneralInquiry, payload.Results[1].Category)

	assert.Equal(t, http.StatusBadRequest, do(api.BatchTriage, http.MethodPost, `{"messages":[]}`).Code)

	messages, err := json.Marshal(map[string][]string{"messages": make([]string, pipeline.MaxBatch+1)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, do(api.BatchTriage, http.MethodPost, string(messages)).Code)
}

func TestClassifyHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.Classify, http.MethodPost, `{"message":"I will contact my lawyer"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Equal(t, "Critical Escalation", payload["category"])
	assert.NotEmpty(t, payload["reasoning"])
}

func TestUrgencyHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.Urgency, http.MethodPost, `{"message":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"urgencyScore":0,"urgency":"Low"}`, rec.Body.String())
}

func TestCategoriesHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.Categories, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	assert.Len(t, payload["categories"], 6)
	assert.Len(t, payload["actions"], 5)
	assert.Equal(t, triage.DefaultAction, payload["defaultAction"])
}

func TestIssueTokenHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := do(api.IssueToken, http.MethodPost, `{"client_id":"helpdesk","client_secret":"s3cret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	payload := decode(t, rec)
	token, _ := payload["token"].(string)
	client, err := api.Auth.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "helpdesk", client.ID)

	rec = do(api.IssueToken, http.MethodPost, `{"client_id":"helpdesk","client_secret":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(api.IssueToken, http.MethodPost, `{"client_id":"helpdesk"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProvidersWithoutRegistry(t *testing.T) {
	api := newTestAPI(t, nil)

	assert.Equal(t, http.StatusServiceUnavailable, do(api.ListProviders, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(api.CreateProvider, http.MethodPost, `{}`).Code)

	rec := httptest.NewRecorder()
	api.DeleteProvider(rec, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateProviderAppliesDefaults(t *testing.T) {
	registry := &fakeRegistry{}
	api := newTestAPI(t, registry)

	rec := do(api.CreateProvider, http.MethodPost, `{"provider_name":"Groq","api_key":"gsk","is_default":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, registry.created, 1)

	created := registry.created[0]
	assert.Equal(t, "groq", created.ProviderName)
	assert.Equal(t, "llama-3.3-70b-versatile", created.ModelName)
	assert.Equal(t, "https://api.groq.com/openai/v1/", created.BaseURL)
	assert.Equal(t, 500, created.MaxTokens)
	assert.True(t, created.IsDefault)
	assert.NotContains(t, rec.Body.String(), "gsk")
}

func TestCreateProviderValidation(t *testing.T) {
	api := newTestAPI(t, &fakeRegistry{})

	assert.Equal(t, http.StatusBadRequest, do(api.CreateProvider, http.MethodPost, `{"provider_name":"claude"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(api.CreateProvider, http.MethodPost, `{"provider_name":"mystery","api_key":"k"}`).Code)
}

func TestListAndDeleteProviders(t *testing.T) {
	registry := &fakeRegistry{}
	api := newTestAPI(t, registry)

	rec := do(api.ListProviders, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "claude-3-5-haiku-latest")

	rec = httptest.NewRecorder()
	api.DeleteProvider(rec, httptest.NewRequest(http.MethodDelete, "/", nil), 1)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{1}, registry.deleted)

	rec = httptest.NewRecorder()
	api.DeleteProvider(rec, httptest.NewRequest(http.MethodDelete, "/", nil), 9)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTestProvider(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := httptest.NewRecorder()
	api.TestProvider(rec, httptest.NewRequest(http.MethodPost, "/", nil), 1)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	factory := llm.NewFactory()
	factory.Register(func(c *llm.ProviderConfig) llm.Provider { return &okProvider{config: c} }, "claude")
	store := llm.NewStaticStore(config.LLMConfig{Provider: "claude", APIKey: "k"})
	api.LLM = llm.NewService(llm.NewRouter(factory, store, nil), nil, time.Second)

	rec = httptest.NewRecorder()
	api.TestProvider(rec, httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(nil)), 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	api.TestProvider(rec, httptest.NewRequest(http.MethodPost, "/", nil), 2)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseID(t *testing.T) {
	id, ok := ParseID(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = ParseID("0")
	assert.False(t, ok)
	_, ok = ParseID("abc")
	assert.False(t, ok)
}

// stalledClassifier spends delay on every message whatever the context says.
type stalledClassifier struct{ delay time.Duration }

func (s stalledClassifier) Classify(_ context.Context, message string) llm.Classification {
	time.Sleep(s.delay)
	return llm.RuleClassification(message)
}

func TestBatchTriageAnswersWithinWriteTimeout(t *testing.T) {
	api := newTestAPI(t, nil)
	api.Triager = pipeline.New(stalledClassifier{delay: 150 * time.Millisecond}, weekdayNoon, nil, nil).
		WithDeadline(300 * time.Millisecond)

	server := httptest.NewUnstartedServer(http.HandlerFunc(api.BatchTriage))
	server.Config.WriteTimeout = time.Second
	server.Start()
	defer server.Close()

	messages := make([]string, 20)
	for i := range messages {
		messages[i] = "server down again"
	}
	body, err := json.Marshal(map[string]any{"messages": messages})
	require.NoError(t, err)

	resp, err := server.Client().Post(server.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Results []pipeline.Result `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Results, len(messages))
	for _, result := range payload.Results {
		assert.Equal(t, triage.CategoryTechnicalProblem, result.Category)
		assert.NotEmpty(t, result.RecommendedAction)
	}
}
