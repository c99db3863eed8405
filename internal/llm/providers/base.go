package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"support-triage/internal/llm/contract"
)

const featureClassify = "classify"

type Retrier struct {
	Attempts int
	Delay    time.Duration
}

func (r Retrier) Do(ctx context.Context, fn func() error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := r.Delay
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := fn(); err != nil {
			lastErr = err
			if i == attempts-1 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("retry failed")
	}
	return lastErr
}

// newLimiter spaces requests to honour max_requests_per_minute. Zero means
// unlimited.
func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// usageTracker is shared by concurrent requests on a cached provider.
// Per-call records are returned to the caller, never stored here.
type usageTracker struct {
	mu    sync.Mutex
	stats contract.UsageStats
}

func (u *usageTracker) success(config *contract.ProviderConfig, record contract.UsageRecord) contract.UsageRecord {
	record.Success = true
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.TotalRequests++
	u.stats.SuccessfulRequests++
	u.stats.TotalCost += record.TotalCost(config.CostPer1KInput, config.CostPer1KOutput)
	u.stats.AverageLatency = averageLatency(u.stats.AverageLatency, record.Latency, u.stats.SuccessfulRequests)
	return record
}

func (u *usageTracker) failure(feature string, start time.Time, err error) contract.UsageRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.TotalRequests++
	u.stats.FailedRequests++
	return contract.UsageRecord{
		Latency:      time.Since(start),
		Success:      false,
		ErrorMessage: err.Error(),
		Feature:      feature,
	}
}

func (u *usageTracker) snapshot() *contract.UsageStats {
	u.mu.Lock()
	defer u.mu.Unlock()
	stats := u.stats
	return &stats
}

func healthResult(start time.Time, err error) (*contract.HealthCheckResult, error) {
	status := "ok"
	msg := ""
	if err != nil {
		status = "error"
		msg = err.Error()
	}
	return &contract.HealthCheckResult{
		Status:       status,
		Latency:      time.Since(start),
		ErrorMessage: msg,
		Timestamp:    time.Now().UTC(),
	}, err
}
