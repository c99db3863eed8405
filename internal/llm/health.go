package llm

import (
	"context"
	"time"

	"support-triage/internal/logger"
)

const (
	healthOK        = "ok"
	healthError     = "error"
	healthSlow      = "slow"
	healthUnhealthy = "unhealthy"

	slowThreshold  = 3 * time.Second
	unhealthyAfter = 3
)

// HealthStore records provider health checks.
type HealthStore interface {
	ListProviderIDs(ctx context.Context) ([]int64, error)
	InsertHealth(ctx context.Context, providerID int64, status string, latency time.Duration, errorMessage *string) error
	RecentHealthFailures(ctx context.Context, providerID int64) (int, error)
	SetProviderHealth(ctx context.Context, providerID int64, status string) error
}

// HealthMonitor checks every active provider on an interval. A provider that
// failed its last three checks is marked unhealthy and skipped by the router
// until a check succeeds again.
type HealthMonitor struct {
	Router   *Router
	Store    HealthStore
	Interval time.Duration
	Logger   logger.Logger
}

func (h *HealthMonitor) Run(ctx context.Context) {
	interval := h.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.RunOnce(ctx)
		}
	}
}

func (h *HealthMonitor) RunOnce(ctx context.Context) {
	log := h.Logger
	if log == nil {
		log = logger.NewNop()
	}
	providerIDs, err := h.Store.ListProviderIDs(ctx)
	if err != nil {
		log.Error("list providers for health check", logger.Error(err))
		return
	}
	for _, providerID := range providerIDs {
		provider, err := h.Router.GetProvider(ctx, providerID)
		if err != nil {
			log.Warn("load provider for health check", logger.Int64("provider_id", providerID), logger.Error(err))
			continue
		}
		result, err := provider.HealthCheck(ctx)
		status := healthOK
		if err != nil || result == nil {
			status = healthError
		} else if result.Latency > slowThreshold {
			status = healthSlow
		}
		var errMsg *string
		if err != nil {
			msg := err.Error()
			errMsg = &msg
		}
		var latency time.Duration
		if result != nil {
			latency = result.Latency
		}
		if err := h.Store.InsertHealth(ctx, providerID, status, latency, errMsg); err != nil {
			log.Error("record provider health", logger.Int64("provider_id", providerID), logger.Error(err))
			continue
		}
		if status != healthError {
			continue
		}
		failures, err := h.Store.RecentHealthFailures(ctx, providerID)
		if err == nil && failures >= unhealthyAfter {
			log.Warn("provider marked unhealthy", logger.String("provider", provider.Name()), logger.Int64("provider_id", providerID))
			_ = h.Store.SetProviderHealth(ctx, providerID, healthUnhealthy)
		}
	}
}
