package providers

import (
	"context"
	"errors"
	"time"

	cohere "github.com/cohere-ai/cohere-go"
	"golang.org/x/time/rate"

	"support-triage/internal/llm/contract"
)

var errCohereClient = errors.New("cohere client not initialized")

type CohereProvider struct {
	usageTracker
	client  *cohere.Client
	config  *contract.ProviderConfig
	retrier Retrier
	limiter *rate.Limiter
}

func NewCohereProvider(config *contract.ProviderConfig) *CohereProvider {
	client, _ := cohere.CreateClient(config.APIKey)
	return &CohereProvider{
		client:  client,
		config:  config,
		retrier: Retrier{Attempts: 3, Delay: 400 * time.Millisecond},
		limiter: newLimiter(config.MaxRequestsPerMinute),
	}
}

func (c *CohereProvider) Name() string { return "cohere" }

func (c *CohereProvider) GetConfig() *contract.ProviderConfig { return c.config }

func (c *CohereProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return c.snapshot(), nil
}

// Classify sends system and user prompt as one completion prompt; the
// generate endpoint has no chat roles.
func (c *CohereProvider) Classify(ctx context.Context, message string) (*contract.ClassificationResult, contract.UsageRecord, error) {
	if c.client == nil {
		return nil, c.failure(featureClassify, time.Now(), errCohereClient), errCohereClient
	}
	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.failure(featureClassify, time.Now(), err), err
	}

	prompt := systemPrompt + "\n\n" + userPrompt(message)
	start := time.Now()
	var response *cohere.GenerateResponse
	err := c.retrier.Do(ctx, func() error {
		maxTokens := uint(c.config.MaxTokens)
		temperature := c.config.Temperature
		result, err := c.client.Generate(cohere.GenerateOptions{
			Model:       c.config.ModelName,
			Prompt:      prompt,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return err
		}
		response = result
		return nil
	})
	if err != nil {
		return nil, c.failure(featureClassify, start, err), err
	}
	usage := c.success(c.config, contract.UsageRecord{Latency: time.Since(start), Feature: featureClassify})
	if response == nil || len(response.Generations) == 0 {
		return nil, usage, contract.ErrEmptyResponse
	}
	result, err := parseClassification(response.Generations[0].Text)
	return result, usage, err
}

func (c *CohereProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	if c.client == nil {
		return healthResult(time.Now(), errCohereClient)
	}
	start := time.Now()
	maxTokens := uint(10)
	temperature := 0.0
	_, err := c.client.Generate(cohere.GenerateOptions{
		Model:       c.config.ModelName,
		Prompt:      "Respond with: OK",
		MaxTokens:   &maxTokens,
		Temperature: &temperature,
	})
	return healthResult(start, err)
}
