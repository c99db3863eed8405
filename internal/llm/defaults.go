package llm

import "strings"

// DefaultProviderConfig returns model and endpoint defaults for a provider
// name, or nil when the name is unknown.
func DefaultProviderConfig(name string) *ProviderConfig {
	config := &ProviderConfig{
		ProviderName: strings.ToLower(strings.TrimSpace(name)),
		Temperature:  0.3,
		MaxTokens:    500,
	}
	switch config.ProviderName {
	case "claude", "anthropic":
		config.ModelName = "claude-3-5-haiku-latest"
		config.CostPer1KInput = 0.0008
		config.CostPer1KOutput = 0.004
	case "openai", "azure_openai", "azureopenai":
		config.ModelName = "gpt-4o-mini"
		config.CostPer1KInput = 0.00015
		config.CostPer1KOutput = 0.0006
	case "groq":
		config.ModelName = "llama-3.3-70b-versatile"
		config.BaseURL = "https://api.groq.com/openai/v1/"
		config.CostPer1KInput = 0.00059
		config.CostPer1KOutput = 0.00079
	case "google", "gemini":
		config.ModelName = "gemini-2.0-flash"
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	case "cohere":
		config.ModelName = "command"
	default:
		return nil
	}
	return config
}
