package router

import (
	"net/http"
	"strings"

	"support-triage/internal/auth"
	"support-triage/internal/handlers"
	"support-triage/internal/metrics"
	"support-triage/internal/middleware"
	"support-triage/internal/realtime"
)

type Router struct {
	api     *handlers.API
	auth    *auth.Service
	limiter middleware.Limiter
	origin  string
	hub     *realtime.Hub
	metrics http.Handler
}

func New(api *handlers.API, authService *auth.Service, limiter middleware.Limiter, origin string, hub *realtime.Hub) *Router {
	return &Router{api: api, auth: authService, limiter: limiter, origin: origin, hub: hub, metrics: metrics.Handler()}
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if middleware.HandleCORS(w, r, rt.origin) {
		return
	}
	middleware.SecurityHeaders(w)

	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == "" {
		path = "/"
	}

	switch path {
	case "/healthz":
		if r.Method == http.MethodGet {
			rt.api.Health(w, r)
			return
		}
	case "/metrics":
		if r.Method == http.MethodGet {
			rt.metrics.ServeHTTP(w, r)
			return
		}
	}

	var client auth.Client
	if requiresAuth(path) {
		var err error
		client, err = middleware.Authenticate(r, rt.auth)
		if err != nil {
			writeStatus(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if rt.limiter != nil && !rt.limiter.Allow(r.Context(), "client:"+client.ID) {
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		r = r.WithContext(auth.WithClient(r.Context(), client))
	} else if rt.limiter != nil {
		if !rt.limiter.Allow(r.Context(), "ip:"+middleware.ClientKey(r)) {
			writeStatus(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
	}

	switch {
	case path == "/api/v1/auth/token":
		if r.Method == http.MethodPost {
			rt.api.IssueToken(w, r)
			return
		}
	case path == "/api/v1/triage":
		if r.Method == http.MethodPost {
			rt.api.Triage(w, r)
			return
		}
	case path == "/api/v1/triage/batch":
		if r.Method == http.MethodPost {
			rt.api.BatchTriage(w, r)
			return
		}
	case path == "/api/v1/classify":
		if r.Method == http.MethodPost {
			rt.api.Classify(w, r)
			return
		}
	case path == "/api/v1/urgency":
		if r.Method == http.MethodPost {
			rt.api.Urgency(w, r)
			return
		}
	case path == "/api/v1/categories":
		if r.Method == http.MethodGet {
			rt.api.Categories(w, r)
			return
		}
	case path == "/api/v1/ws":
		if r.Method == http.MethodGet && rt.hub != nil {
			rt.hub.ServeWS(w, r, client.ID)
			return
		}
	case path == "/api/v1/llm/providers":
		switch r.Method {
		case http.MethodGet:
			rt.api.ListProviders(w, r)
			return
		case http.MethodPost:
			rt.api.CreateProvider(w, r)
			return
		}
	case strings.HasPrefix(path, "/api/v1/llm/providers/"):
		segments := strings.Split(strings.TrimPrefix(path, "/api/v1/llm/providers/"), "/")
		id, ok := handlers.ParseID(segments[0])
		if !ok {
			break
		}
		switch {
		case len(segments) == 1 && r.Method == http.MethodDelete:
			rt.api.DeleteProvider(w, r, id)
			return
		case len(segments) == 2 && segments[1] == "test" && r.Method == http.MethodPost:
			rt.api.TestProvider(w, r, id)
			return
		}
	}

	writeStatus(w, http.StatusNotFound, "not found")
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

func requiresAuth(path string) bool {
	switch path {
	case "/api/v1/auth/token":
		return false
	default:
		return strings.HasPrefix(path, "/api/v1/")
	}
}
