package llm

import (
	"context"
	"errors"
	"time"

	"support-triage/internal/llm/contract"
	"support-triage/internal/logger"
	"support-triage/internal/metrics"
	"support-triage/internal/triage"
)

// Classification sources.
const (
	SourceLLM   = "llm"
	SourceRules = "rules"
)

const defaultTimeout = 15 * time.Second

// Classification is a category decision together with where it came from.
type Classification struct {
	triage.ClassificationResult
	Source   string `json:"source"`
	Provider string `json:"provider,omitempty"`
}

// Service classifies through the configured providers and answers with the
// rule engine whenever none of them produce a usable category.
type Service struct {
	Router  *Router
	Logger  logger.Logger
	Timeout time.Duration
}

func NewService(router *Router, log logger.Logger, timeout time.Duration) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{Router: router, Logger: log, Timeout: timeout}
}

// Classify never fails. The returned Source tells callers whether an LLM
// provider or the rule engine decided.
func (s *Service) Classify(ctx context.Context, message string) Classification {
	if s == nil || s.Router == nil {
		return RuleClassification(message)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	attempt, err := s.Router.ClassifyWithFallback(ctx, message)
	if err != nil {
		reason := fallbackReason(ctx, err)
		metrics.ObserveFallback(reason)
		if reason == metrics.ReasonNoProviders {
			s.Logger.Debug("no llm providers, using rule engine")
		} else {
			s.Logger.Warn("llm classification failed, using rule engine",
				logger.String("reason", reason),
				logger.Error(err))
		}
		return RuleClassification(message)
	}
	return Classification{
		ClassificationResult: attempt.Result,
		Source:               SourceLLM,
		Provider:             attempt.Provider.Name(),
	}
}

// RuleClassification wraps the rule engine answer.
func RuleClassification(message string) Classification {
	return Classification{ClassificationResult: triage.Classify(message), Source: SourceRules}
}

// HealthCheck checks one registered provider.
func (s *Service) HealthCheck(ctx context.Context, providerID int64) (*HealthCheckResult, error) {
	provider, err := s.Router.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	result, err := provider.HealthCheck(ctx)
	if err != nil {
		return result, err
	}
	if result == nil {
		return nil, errors.New("no health result")
	}
	return result, nil
}

func fallbackReason(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, ErrNoProviders):
		return metrics.ReasonNoProviders
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return metrics.ReasonTimeout
	case errors.Is(err, ErrOutOfVocabulary),
		errors.Is(err, contract.ErrInvalidResponse),
		errors.Is(err, contract.ErrEmptyResponse):
		return metrics.ReasonInvalidReply
	default:
		return metrics.ReasonProviderErr
	}
}

// callUsage completes the record a provider returned for one call.
func callUsage(record UsageRecord, latency time.Duration, err error) UsageRecord {
	record.Feature = "classify"
	if record.Latency == 0 {
		record.Latency = latency
	}
	record.Success = err == nil
	if err != nil {
		record.ErrorMessage = err.Error()
	}
	return record
}
