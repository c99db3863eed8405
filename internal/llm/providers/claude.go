package providers

import (
	"context"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"support-triage/internal/llm/contract"
)

type ClaudeProvider struct {
	usageTracker
	client  anthropic.Client
	config  *contract.ProviderConfig
	retrier Retrier
	limiter *rate.Limiter
}

func NewClaudeProvider(config *contract.ProviderConfig) *ClaudeProvider {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &ClaudeProvider{
		client:  anthropic.NewClient(opts...),
		config:  config,
		retrier: Retrier{Attempts: 3, Delay: 500 * time.Millisecond},
		limiter: newLimiter(config.MaxRequestsPerMinute),
	}
}

func (c *ClaudeProvider) Name() string { return "claude" }

func (c *ClaudeProvider) GetConfig() *contract.ProviderConfig { return c.config }

func (c *ClaudeProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return c.snapshot(), nil
}

func (c *ClaudeProvider) Classify(ctx context.Context, message string) (*contract.ClassificationResult, contract.UsageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.failure(featureClassify, time.Now(), err), err
	}

	start := time.Now()
	var response *anthropic.Message
	err := c.retrier.Do(ctx, func() error {
		result, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:       anthropic.Model(c.config.ModelName),
			MaxTokens:   int64(c.config.MaxTokens),
			Temperature: anthropic.Float(c.config.Temperature),
			System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt(message))),
			},
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
	usage := c.success(c.config, contract.UsageRecord{
		InputTokens:  int(response.Usage.InputTokens),
		OutputTokens: int(response.Usage.OutputTokens),
		TotalTokens:  int(response.Usage.InputTokens + response.Usage.OutputTokens),
		Latency:      time.Since(start),
		Feature:      featureClassify,
	})
	if len(response.Content) == 0 {
		return nil, usage, contract.ErrEmptyResponse
	}
	result, err := parseClassification(response.Content[0].Text)
	return result, usage, err
}

func (c *ClaudeProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	start := time.Now()
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.config.ModelName),
		MaxTokens:   int64(32),
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Respond with: OK")),
		},
	})
	return healthResult(start, err)
}
