package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"spendwise/internal/backend"
	"spendwise/internal/cache"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	apphttp "spendwise/internal/http"
	"spendwise/internal/services"
	"spendwise/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	summaries := cache.NewSummaryCache(cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger.Logger)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(time.Minute)

	var publisher services.ChangePublisher
	if res.Changes != nil {
		publisher = res.Changes
	}

	store := res.Store
	resolver := services.NewCategoryResolver(store)
	expenses := services.NewExpenseService(store, store, publisher)
	categories := services.NewCategoryService(store, publisher)
	expenses.OnChange(summaries)
	categories.OnChange(summaries)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		JWTSecret:          []byte(cfg.JWTSecret),
		CORSOrigin:         cfg.CORSOrigin,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxyList(),
		Logger:             logger,
	}, apphttp.Dependencies{
		Lister:     services.NewExpenseLister(store, resolver),
		Summarizer: services.NewMonthSummarizer(store, resolver),
		Expenses:   expenses,
		Categories: categories,
		Store:      store,
		Summaries:  summaries,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Writes on other instances invalidate our cached summaries.
	if res.Changes != nil {
		changes := worker.NewChangeWorker(summaries)
		go func() {
			if err := changes.Run(ctx, res.Changes); err != nil {
				logger.Error("Change consumption stopped", "error", err, "stats", changes.Stats())
			}
		}()
	}

	logger.Info("Starting spendwise server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp", res.Changes != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
