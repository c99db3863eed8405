package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"support-triage/internal/llm/contract"
)

// OpenAIProvider also serves OpenAI-compatible endpoints (Groq, Gemini,
// Azure gateways) through config.BaseURL.
type OpenAIProvider struct {
	usageTracker
	name    string
	client  openai.Client
	config  *contract.ProviderConfig
	retrier Retrier
	limiter *rate.Limiter
}

func NewOpenAIProvider(config *contract.ProviderConfig) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	name := strings.ToLower(config.ProviderName)
	if name == "" {
		name = "openai"
	}
	return &OpenAIProvider{
		name:    name,
		client:  openai.NewClient(opts...),
		config:  config,
		retrier: Retrier{Attempts: 3, Delay: 400 * time.Millisecond},
		limiter: newLimiter(config.MaxRequestsPerMinute),
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) GetConfig() *contract.ProviderConfig { return o.config }

func (o *OpenAIProvider) GetUsage(ctx context.Context) (*contract.UsageStats, error) {
	return o.snapshot(), nil
}

func (o *OpenAIProvider) Classify(ctx context.Context, message string) (*contract.ClassificationResult, contract.UsageRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, o.failure(featureClassify, time.Now(), err), err
	}

	start := time.Now()
	var resp *openai.ChatCompletion
	err := o.retrier.Do(ctx, func() error {
		format := shared.NewResponseFormatJSONObjectParam()
		result, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model:       shared.ChatModel(o.config.ModelName),
			Temperature: openai.Float(o.config.Temperature),
			MaxTokens:   openai.Int(int64(o.config.MaxTokens)),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &format,
			},
			Messages: []openai.ChatCompletionMessageParamUnion{
				systemMessage(systemPrompt),
				userMessage(userPrompt(message)),
			},
		})
		if err != nil {
			return err
		}
		resp = result
		return nil
	})
	if err != nil {
		return nil, o.failure(featureClassify, start, err), err
	}
	usage := o.success(o.config, contract.UsageRecord{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
		Latency:      time.Since(start),
		Feature:      featureClassify,
	})
	if len(resp.Choices) == 0 {
		return nil, usage, contract.ErrEmptyResponse
	}
	result, err := parseClassification(resp.Choices[0].Message.Content)
	return result, usage, err
}

func (o *OpenAIProvider) HealthCheck(ctx context.Context) (*contract.HealthCheckResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	_, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(o.config.ModelName),
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			userMessage("Respond with: OK"),
		},
	})
	return healthResult(start, err)
}

// IsRateLimitError reports whether err is an HTTP 429 from the API.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return strings.Contains(err.Error(), "429") || strings.Contains(strings.ToLower(err.Error()), "rate limit")
}

func systemMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfSystem: &openai.ChatCompletionSystemMessageParam{
			Content: openai.ChatCompletionSystemMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}

func userMessage(content string) openai.ChatCompletionMessageParamUnion {
	return openai.ChatCompletionMessageParamUnion{
		OfUser: &openai.ChatCompletionUserMessageParam{
			Content: openai.ChatCompletionUserMessageParamContentUnion{
				OfString: openai.String(content),
			},
		},
	}
}
