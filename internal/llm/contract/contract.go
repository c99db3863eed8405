package contract

import (
	"context"
	"errors"
	"time"
)

type Provider interface {
	Name() string
	// Classify returns the usage of this call alongside the answer. The
	// record is filled on failure too, so callers can log it either way.
	Classify(ctx context.Context, message string) (*ClassificationResult, UsageRecord, error)
	HealthCheck(ctx context.Context) (*HealthCheckResult, error)
	GetConfig() *ProviderConfig
	GetUsage(ctx context.Context) (*UsageStats, error)
}

type ProviderConfig struct {
	ID                   int64
	ProviderName         string
	APIKey               string
	ModelName            string
	BaseURL              string
	Temperature          float64
	MaxTokens            int
	CostPer1KInput       float64
	CostPer1KOutput      float64
	MaxRequestsPerMinute int
}

// ClassificationResult is the raw provider answer. Category has not been
// checked against the triage vocabulary yet.
type ClassificationResult struct {
	Category  string `json:"category"`
	Reasoning string `json:"reasoning"`
}

type HealthCheckResult struct {
	Status        string        `json:"status"`
	Latency       time.Duration `json:"latency"`
	EstimatedCost float64       `json:"estimated_cost"`
	ErrorMessage  string        `json:"error_message"`
	Timestamp     time.Time     `json:"timestamp"`
}

type UsageStats struct {
	TotalRequests      int64         `json:"total_requests"`
	SuccessfulRequests int64         `json:"successful_requests"`
	FailedRequests     int64         `json:"failed_requests"`
	TotalCost          float64       `json:"total_cost"`
	AverageLatency     time.Duration `json:"average_latency"`
}

type UsageRecord struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Latency      time.Duration
	Success      bool
	ErrorMessage string
	Feature      string
}

func (u UsageRecord) InputCost(costPer1K float64) float64 {
	return (float64(u.InputTokens) / 1000.0) * costPer1K
}

func (u UsageRecord) OutputCost(costPer1K float64) float64 {
	return (float64(u.OutputTokens) / 1000.0) * costPer1K
}

func (u UsageRecord) TotalCost(costIn, costOut float64) float64 {
	return u.InputCost(costIn) + u.OutputCost(costOut)
}

var (
	ErrInvalidResponse = errors.New("invalid provider response")
	ErrEmptyResponse   = errors.New("empty provider response")
)
