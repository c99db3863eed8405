package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"support-triage/internal/app"
	"support-triage/internal/auth"
	"support-triage/internal/config"
	"support-triage/internal/handlers"
	"support-triage/internal/logger"
	"support-triage/internal/middleware"
	"support-triage/internal/pipeline"
	"support-triage/internal/realtime"
	"support-triage/internal/router"
	"support-triage/internal/triage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	components, err := app.Build(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to build classifier", logger.Error(err))
	}
	defer components.Close()

	authService, err := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.ClientID, cfg.Auth.ClientSecretHash)
	if err != nil {
		log.Fatal("failed to init auth", logger.Error(err))
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, log)
	defer closeLimiter()

	hub := realtime.NewHub(cfg.Server.FrontendOrigin)
	triager := pipeline.New(components.Service, components.Clock, hub, log).WithDeadline(cfg.Triage.Deadline)
	var registry handlers.ProviderRegistry
	if components.Registry != nil {
		registry = components.Registry
	}
	api := handlers.NewAPI(triager, triage.NewUrgencyScorer(components.Clock), authService, components.Service, components.Factory, registry, log)
	rt := router.New(api, authService, limiter, cfg.Server.FrontendOrigin, hub)

	go components.HealthMonitor().Run(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      rt,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", logger.Error(err))
	}
}

// newLimiter shares rate limits through Redis when redis.url is set and
// reachable, otherwise limits per process.
func newLimiter(ctx context.Context, cfg *config.Config, log logger.Logger) (middleware.Limiter, func()) {
	memory := middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
	if cfg.Redis.URL == "" {
		return memory, func() {}
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Warn("invalid redis url, using in-memory rate limiter", logger.Error(err))
		return memory, func() {}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, using in-memory rate limiter", logger.Error(err))
		_ = client.Close()
		return memory, func() {}
	}
	log.Info("using redis rate limiter")
	return middleware.NewRedisRateLimiter(client, cfg.Server.RateLimit, cfg.Server.RateWindow), func() { _ = client.Close() }
}
