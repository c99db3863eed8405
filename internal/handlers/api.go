package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"support-triage/internal/auth"
	"support-triage/internal/llm"
	"support-triage/internal/logger"
	"support-triage/internal/models"
	"support-triage/internal/pipeline"
	"support-triage/internal/triage"
)

const maxBodyBytes = 1 << 20

var errRegistryDisabled = errors.New("provider registry requires a database")

// ProviderRegistry manages stored providers. It is nil when no database is
// configured.
type ProviderRegistry interface {
	ListProviderRecords(ctx context.Context) ([]models.LLMProvider, error)
	CreateProvider(ctx context.Context, input models.LLMProviderInput) (int64, error)
	DeleteProvider(ctx context.Context, providerID int64) error
}

type API struct {
	Triager  *pipeline.Triager
	Scorer   *triage.UrgencyScorer
	Auth     *auth.Service
	LLM      *llm.Service
	Factory  *llm.Factory
	Registry ProviderRegistry
	Logger   logger.Logger
}

func NewAPI(triager *pipeline.Triager, scorer *triage.UrgencyScorer, authService *auth.Service, service *llm.Service, factory *llm.Factory, registry ProviderRegistry, log logger.Logger) *API {
	if log == nil {
		log = logger.NewNop()
	}
	return &API{
		Triager:  triager,
		Scorer:   scorer,
		Auth:     authService,
		LLM:      service,
		Factory:  factory,
		Registry: registry,
		Logger:   log,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func ParseID(pathPart string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(pathPart), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
