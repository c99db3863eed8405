package llm

import (
	"fmt"
	"strings"
	"sync"

	"support-triage/internal/llm/providers"
)

type Constructor func(config *ProviderConfig) Provider

type Factory struct {
	mu           sync.Mutex
	constructors map[string]Constructor
	instances    map[string]Provider
}

func NewFactory() *Factory {
	f := &Factory{
		constructors: map[string]Constructor{},
		instances:    map[string]Provider{},
	}
	claude := func(c *ProviderConfig) Provider { return providers.NewClaudeProvider(c) }
	openAI := func(c *ProviderConfig) Provider { return providers.NewOpenAIProvider(c) }
	f.Register(claude, "claude", "anthropic")
	f.Register(openAI, "openai", "azure_openai", "azureopenai", "groq", "google", "gemini")
	f.Register(func(c *ProviderConfig) Provider { return providers.NewCohereProvider(c) }, "cohere")
	return f
}

// Register binds one constructor to provider names. Names are case-insensitive.
func (f *Factory) Register(constructor Constructor, names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, name := range names {
		f.constructors[strings.ToLower(name)] = constructor
	}
}

func (f *Factory) Supports(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.constructors[strings.ToLower(name)]
	return ok
}

// CreateProvider returns a cached instance per distinct config, or nil when
// the provider name is not registered.
func (f *Factory) CreateProvider(config *ProviderConfig) Provider {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := instanceKey(config)
	if provider, ok := f.instances[key]; ok {
		return provider
	}
	constructor, ok := f.constructors[strings.ToLower(config.ProviderName)]
	if !ok {
		return nil
	}
	provider := constructor(config)
	f.instances[key] = provider
	return provider
}

// Forget drops cached instances of a provider id after it changed.
func (f *Factory) Forget(providerID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := fmt.Sprintf("%d:", providerID)
	for key := range f.instances {
		if strings.HasPrefix(key, prefix) {
			delete(f.instances, key)
		}
	}
}

func instanceKey(config *ProviderConfig) string {
	return fmt.Sprintf("%d:%s:%s:%s:%s:%d",
		config.ID, strings.ToLower(config.ProviderName), config.ModelName, config.BaseURL, config.APIKey, config.MaxRequestsPerMinute)
}
