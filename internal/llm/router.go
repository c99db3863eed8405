package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"support-triage/internal/logger"
	"support-triage/internal/metrics"
	"support-triage/internal/triage"
)

var (
	ErrNoProviders         = errors.New("no llm providers configured")
	ErrAllProvidersFailed  = errors.New("all llm providers failed")
	ErrOutOfVocabulary     = errors.New("category outside triage vocabulary")
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderUnsupported = errors.New("provider not supported")
)

type ProviderStore interface {
	ListProviders(ctx context.Context) ([]ProviderConfig, error)
	GetProviderByID(ctx context.Context, providerID int64) (*ProviderConfig, error)
}

type UsageRecorder interface {
	InsertUsage(ctx context.Context, providerID int64, record UsageRecord, costIn, costOut float64) error
}

// Attempt is a validated provider answer.
type Attempt struct {
	Result     triage.ClassificationResult
	Provider   Provider
	ProviderID int64
}

type Router struct {
	factory *Factory
	cache   *cache
	db      ProviderStore
	log     logger.Logger

	// Usage receives one record per provider call when set.
	Usage UsageRecorder
}

type cachedProvider struct {
	provider Provider
	expires  time.Time
}

type cache struct {
	mu    sync.Mutex
	items map[int64]cachedProvider
	ttl   time.Duration
}

func newCache(ttl time.Duration) *cache {
	return &cache{items: map[int64]cachedProvider{}, ttl: ttl}
}

func (c *cache) get(key int64) (Provider, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok || time.Now().After(item.expires) {
		delete(c.items, key)
		return nil, false
	}
	return item.provider, true
}

func (c *cache) set(key int64, provider Provider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cachedProvider{provider: provider, expires: time.Now().Add(c.ttl)}
}

func (c *cache) delete(key int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func NewRouter(factory *Factory, store ProviderStore, log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{factory: factory, cache: newCache(5 * time.Minute), db: store, log: log}
}

func (r *Router) GetProvider(ctx context.Context, providerID int64) (Provider, error) {
	if provider, ok := r.cache.get(providerID); ok {
		return provider, nil
	}
	config, err := r.db.GetProviderByID(ctx, providerID)
	if err != nil || config == nil {
		return nil, ErrProviderNotFound
	}
	provider := r.factory.CreateProvider(config)
	if provider == nil {
		return nil, ErrProviderUnsupported
	}
	r.cache.set(providerID, provider)
	return provider, nil
}

// Invalidate forgets a provider after it was changed or deleted.
func (r *Router) Invalidate(providerID int64) {
	r.cache.delete(providerID)
	r.factory.Forget(providerID)
}

// ClassifyWithFallback asks each active provider in order and returns the
// first answer that parses and names a known category.
func (r *Router) ClassifyWithFallback(ctx context.Context, message string) (*Attempt, error) {
	configs, err := r.db.ListProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	if len(configs) == 0 {
		return nil, ErrNoProviders
	}

	var errs []error
	for _, cfg := range configs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		provider := r.factory.CreateProvider(&cfg)
		if provider == nil {
			errs = append(errs, fmt.Errorf("%s: %w", cfg.ProviderName, ErrProviderUnsupported))
			continue
		}

		start := time.Now()
		result, usage, err := provider.Classify(ctx, message)
		if err == nil {
			category, ok := triage.ParseCategory(result.Category)
			if ok {
				r.observe(ctx, provider, cfg, usage, start, nil)
				return &Attempt{
					Result:     triage.ClassificationResult{Category: category, Reasoning: result.Reasoning},
					Provider:   provider,
					ProviderID: cfg.ID,
				}, nil
			}
			err = fmt.Errorf("%w: %q", ErrOutOfVocabulary, result.Category)
		}
		r.observe(ctx, provider, cfg, usage, start, err)
		r.log.Warn("llm provider classification failed",
			logger.String("provider", provider.Name()),
			logger.Int64("provider_id", cfg.ID),
			logger.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", provider.Name(), err))
	}
	return nil, fmt.Errorf("%w: %w", ErrAllProvidersFailed, errors.Join(errs...))
}

func (r *Router) observe(ctx context.Context, provider Provider, cfg ProviderConfig, usage UsageRecord, start time.Time, err error) {
	latency := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ObserveProvider(provider.Name(), status, latency)
	if r.Usage == nil {
		return
	}
	record := callUsage(usage, latency, err)
	// The request context may already be expired; usage is still worth keeping.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if werr := r.Usage.InsertUsage(writeCtx, cfg.ID, record, cfg.CostPer1KInput, cfg.CostPer1KOutput); werr != nil {
		r.log.Error("record llm usage", logger.Int64("provider_id", cfg.ID), logger.Error(werr))
	}
}
