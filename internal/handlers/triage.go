package handlers

import (
	"net/http"

	"support-triage/internal/pipeline"
	"support-triage/internal/triage"
)

type messageRequest struct {
	Message *string `json:"message"`
}

type batchRequest struct {
	Messages []string `json:"messages"`
}

type actionEntry struct {
	Category triage.Category `json:"category"`
	Action   string          `json:"action"`
}

func readMessage(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req messageRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return "", false
	}
	if req.Message == nil {
		writeError(w, http.StatusBadRequest, "message is required")
		return "", false
	}
	return *req.Message, true
}

// Triage runs the full pipeline. Provider failures never reach the caller.
func (a *API) Triage(w http.ResponseWriter, r *http.Request) {
	message, ok := readMessage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Triager.Triage(r.Context(), message))
}

func (a *API) BatchTriage(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}
	results, err := a.Triager.TriageBatch(r.Context(), req.Messages)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Classify answers with the rule engine only.
func (a *API) Classify(w http.ResponseWriter, r *http.Request) {
	message, ok := readMessage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, triage.Classify(message))
}

func (a *API) Urgency(w http.ResponseWriter, r *http.Request) {
	message, ok := readMessage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Scorer.CalculateUrgency(message))
}

func (a *API) Categories(w http.ResponseWriter, r *http.Request) {
	actions := make([]actionEntry, 0, len(triage.ActionCategories()))
	for _, category := range triage.ActionCategories() {
		actions = append(actions, actionEntry{Category: category, Action: triage.RecommendedAction(category)})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":    triage.Categories(),
		"actions":       actions,
		"defaultAction": triage.DefaultAction,
		"maxBatch":      pipeline.MaxBatch,
	})
}
