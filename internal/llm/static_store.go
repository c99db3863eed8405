package llm

import (
	"context"
	"strings"
	"sync"
	"time"

	"support-triage/internal/config"
)

const staticProviderID = 1

// StaticStore serves the single provider described in configuration. It is
// used when no provider registry database is configured, and keeps health
// health check results in memory.
type StaticStore struct {
	configs []ProviderConfig

	mu     sync.Mutex
	status map[int64]string
	recent map[int64][]string
}

func NewStaticStore(cfg config.LLMConfig) *StaticStore {
	s := &StaticStore{status: map[int64]string{}, recent: map[int64][]string{}}
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		return s
	}
	provider := ProviderConfig{ProviderName: name}
	if defaults := DefaultProviderConfig(name); defaults != nil {
		provider = *defaults
	}
	provider.ID = staticProviderID
	provider.APIKey = cfg.APIKey
	if cfg.Model != "" {
		provider.ModelName = cfg.Model
	}
	if cfg.BaseURL != "" {
		provider.BaseURL = cfg.BaseURL
	}
	if cfg.Temperature > 0 {
		provider.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		provider.MaxTokens = cfg.MaxTokens
	}
	if cfg.MaxRequestsPerMinute > 0 {
		provider.MaxRequestsPerMinute = cfg.MaxRequestsPerMinute
	}
	s.configs = []ProviderConfig{provider}
	return s
}

// ListProviders skips providers marked unhealthy.
func (s *StaticStore) ListProviders(context.Context) ([]ProviderConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProviderConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		if s.status[cfg.ID] != healthUnhealthy {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (s *StaticStore) GetProviderByID(_ context.Context, providerID int64) (*ProviderConfig, error) {
	for _, cfg := range s.configs {
		if cfg.ID == providerID {
			c := cfg
			return &c, nil
		}
	}
	return nil, ErrProviderNotFound
}

func (s *StaticStore) ListProviderIDs(context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(s.configs))
	for _, cfg := range s.configs {
		ids = append(ids, cfg.ID)
	}
	return ids, nil
}

func (s *StaticStore) InsertHealth(_ context.Context, providerID int64, status string, _ time.Duration, _ *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recent := append(s.recent[providerID], status)
	if len(recent) > unhealthyAfter {
		recent = recent[len(recent)-unhealthyAfter:]
	}
	s.recent[providerID] = recent
	s.status[providerID] = status
	return nil
}

func (s *StaticStore) RecentHealthFailures(_ context.Context, providerID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures := 0
	for _, status := range s.recent[providerID] {
		if status != healthOK {
			failures++
		}
	}
	return failures, nil
}

func (s *StaticStore) SetProviderHealth(_ context.Context, providerID int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[providerID] = status
	return nil
}
