// Package app assembles the classification stack from configuration.
package app

import (
	"context"
	"fmt"

	"support-triage/internal/config"
	"support-triage/internal/db"
	"support-triage/internal/llm"
	"support-triage/internal/logger"
	"support-triage/internal/triage"
)

type Components struct {
	Config  *config.Config
	Logger  logger.Logger
	Clock   triage.Clock
	Factory *llm.Factory
	Router  *llm.Router
	Service *llm.Service

	// DB and Registry are nil unless database.url is set.
	DB       *db.Store
	Registry *llm.Store
	Health   llm.HealthStore
}

// Build wires providers from the database registry when one is configured,
// otherwise from the llm config section.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	c := &Components{
		Config:  cfg,
		Logger:  log,
		Clock:   triage.InLocation(triage.SystemClock, loc),
		Factory: llm.NewFactory(),
	}

	var store llm.ProviderStore
	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		registry, err := llm.NewStore(database, cfg.Database.MasterKey)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("provider registry: %w", err)
		}
		c.DB, c.Registry, c.Health = database, registry, registry
		store = registry
		log.Info("using provider registry database")
	} else {
		static := llm.NewStaticStore(cfg.LLM)
		c.Health = static
		store = static
		if cfg.LLM.Provider != "" {
			log.Info("using configured llm provider", logger.String("provider", cfg.LLM.Provider))
		} else {
			log.Info("no llm provider configured, classifying with rules only")
		}
	}

	c.Router = llm.NewRouter(c.Factory, store, log)
	if c.Registry != nil {
		c.Router.Usage = c.Registry
	}
	c.Service = llm.NewService(c.Router, log, cfg.LLM.Timeout)
	return c, nil
}

// HealthMonitor health-checks the providers of this stack.
func (c *Components) HealthMonitor() *llm.HealthMonitor {
	return &llm.HealthMonitor{
		Router:   c.Router,
		Store:    c.Health,
		Interval: c.Config.LLM.HealthInterval,
		Logger:   c.Logger,
	}
}

func (c *Components) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}
