package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"support-triage/internal/llm"
	"support-triage/internal/logger"
	"support-triage/internal/models"
)

func (a *API) ListProviders(w http.ResponseWriter, r *http.Request) {
	if a.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, errRegistryDisabled.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	providers, err := a.Registry.ListProviderRecords(ctx)
	if err != nil {
		a.Logger.Error("list providers", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list providers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

func (a *API) CreateProvider(w http.ResponseWriter, r *http.Request) {
	if a.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, errRegistryDisabled.Error())
		return
	}
	var req models.LLMProviderInput
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.ProviderName = strings.ToLower(strings.TrimSpace(req.ProviderName))
	if req.ProviderName == "" || req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "provider_name and api_key are required")
		return
	}
	defaults := llm.DefaultProviderConfig(req.ProviderName)
	if defaults == nil || (a.Factory != nil && !a.Factory.Supports(req.ProviderName)) {
		writeError(w, http.StatusBadRequest, "unsupported provider")
		return
	}
	applyProviderDefaults(&req, defaults)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id, err := a.Registry.CreateProvider(ctx, req)
	if err != nil {
		a.Logger.Error("create provider", logger.String("provider", req.ProviderName), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create provider")
		return
	}
	a.Logger.Info("provider registered", logger.Int64("provider_id", id), logger.String("provider", req.ProviderName))
	writeJSON(w, http.StatusCreated, map[string]any{
		"provider": models.LLMProvider{
			ID:                   id,
			ProviderName:         req.ProviderName,
			ModelName:            req.ModelName,
			BaseURL:              req.BaseURL,
			Temperature:          req.Temperature,
			MaxTokens:            req.MaxTokens,
			CostPer1KInput:       req.CostPer1KInput,
			CostPer1KOutput:      req.CostPer1KOutput,
			MaxRequestsPerMinute: req.MaxRequestsPerMinute,
			IsActive:             true,
			IsDefault:            req.IsDefault,
			HealthStatus:         "unknown",
			CreatedAt:            time.Now().UTC(),
		},
	})
}

func applyProviderDefaults(req *models.LLMProviderInput, defaults *llm.ProviderConfig) {
	if req.ModelName == "" {
		req.ModelName = defaults.ModelName
	}
	if req.BaseURL == "" {
		req.BaseURL = defaults.BaseURL
	}
	if req.Temperature == 0 {
		req.Temperature = defaults.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = defaults.MaxTokens
	}
	if req.CostPer1KInput == 0 {
		req.CostPer1KInput = defaults.CostPer1KInput
	}
	if req.CostPer1KOutput == 0 {
		req.CostPer1KOutput = defaults.CostPer1KOutput
	}
}

func (a *API) DeleteProvider(w http.ResponseWriter, r *http.Request, providerID int64) {
	if a.Registry == nil {
		writeError(w, http.StatusServiceUnavailable, errRegistryDisabled.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := a.Registry.DeleteProvider(ctx, providerID); err != nil {
		if errors.Is(err, llm.ErrProviderNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		a.Logger.Error("delete provider", logger.Int64("provider_id", providerID), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete provider")
		return
	}
	if a.LLM != nil && a.LLM.Router != nil {
		a.LLM.Router.Invalidate(providerID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// TestProvider runs a health check against one provider.
func (a *API) TestProvider(w http.ResponseWriter, r *http.Request, providerID int64) {
	if a.LLM == nil || a.LLM.Router == nil {
		writeError(w, http.StatusServiceUnavailable, "llm providers are not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.LLM.Timeout)
	defer cancel()

	result, err := a.LLM.HealthCheck(ctx, providerID)
	switch {
	case errors.Is(err, llm.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, llm.ErrProviderUnsupported):
		writeError(w, http.StatusBadRequest, "unsupported provider")
	case err != nil:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "result": result})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"result": result})
	}
}
