package models

import "time"

// LLMProvider is the API view of a registered provider. The API key never
// leaves the store.
type LLMProvider struct {
	ID                   int64      `json:"id"`
	ProviderName         string     `json:"provider_name"`
	ModelName            string     `json:"model_name"`
	BaseURL              string     `json:"base_url,omitempty"`
	Temperature          float64    `json:"temperature"`
	MaxTokens            int        `json:"max_tokens"`
	CostPer1KInput       float64    `json:"cost_per_1k_input"`
	CostPer1KOutput      float64    `json:"cost_per_1k_output"`
	MaxRequestsPerMinute int        `json:"max_requests_per_minute"`
	IsActive             bool       `json:"is_active"`
	IsDefault            bool       `json:"is_default"`
	HealthStatus         string     `json:"health_status"`
	LastHealthCheck      *time.Time `json:"last_health_check,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// LLMProviderInput is the body of a provider registration.
type LLMProviderInput struct {
	ProviderName         string  `json:"provider_name"`
	APIKey               string  `json:"api_key"`
	ModelName            string  `json:"model_name"`
	BaseURL              string  `json:"base_url"`
	Temperature          float64 `json:"temperature"`
	MaxTokens            int     `json:"max_tokens"`
	CostPer1KInput       float64 `json:"cost_per_1k_input"`
	CostPer1KOutput      float64 `json:"cost_per_1k_output"`
	MaxRequestsPerMinute int     `json:"max_requests_per_minute"`
	IsDefault            bool    `json:"is_default"`
}
