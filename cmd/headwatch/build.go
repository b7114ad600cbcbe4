package main

import (
	"context"
	"fmt"
	"time"

	"github.com/deusflow/headwatch/internal/app"
	"github.com/deusflow/headwatch/internal/config"
	"github.com/deusflow/headwatch/internal/fetcher"
	"github.com/deusflow/headwatch/internal/gemini"
	"github.com/deusflow/headwatch/internal/logger"
	"github.com/deusflow/headwatch/internal/metrics"
	"github.com/deusflow/headwatch/internal/notify"
	"github.com/deusflow/headwatch/internal/ratelimit"
	"github.com/deusflow/headwatch/internal/retry"
	"github.com/deusflow/headwatch/internal/sink"
	"github.com/deusflow/headwatch/internal/storage"
	"github.com/deusflow/headwatch/internal/translate"
)

type cleanupFunc func()

// newQuota limits the paid providers.
func newQuota(cfg *config.Config) *ratelimit.QuotaLimiter {
	return ratelimit.NewQuotaLimiter(map[string]int{
		config.ProviderGemini: cfg.Translate.GeminiDailyQuota,
	})
}

// buildTranslator assembles the provider chain in configured order.
// Gemini is skipped without an API key.
func buildTranslator(ctx context.Context, cfg *config.Config, quota *ratelimit.QuotaLimiter) (*translate.Service, cleanupFunc) {
	tc := cfg.Translate
	var providers []translate.Provider
	var closers []func()

	for _, name := range tc.Providers {
		switch name {
		case config.ProviderGoogle:
			providers = append(providers, translate.NewGoogleProvider(tc.GoogleEndpoint, tc.Timeout))
		case config.ProviderMyMemory:
			providers = append(providers, translate.NewMyMemoryProvider(tc.MyMemoryEndpoint, tc.Timeout))
		case config.ProviderGemini:
			if tc.GeminiAPIKey == "" {
				logger.Debug("gemini disabled, GEMINI_API_KEY not set")
				continue
			}
			client, err := gemini.NewClient(ctx, tc.GeminiAPIKey, tc.GeminiModel)
			if err != nil {
				logger.Warn("gemini disabled", "error", err)
				continue
			}
			providers = append(providers, client)
			closers = append(closers, client.Close)
		}
	}

	svc := translate.NewService(providers, quota, metrics.Global, translate.Options{
		Sentinel: tc.Sentinel,
		CacheTTL: tc.CacheTTL,
		Retry: retry.RetryConfig{
			MaxAttempts: tc.RetryAttempts,
			Delay:       500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Backoff:     true,
		},
	})

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return svc, cleanup
}

// buildMonitor wires every collaborator of the poll loop.
func buildMonitor(ctx context.Context, cfg *config.Config, quota *ratelimit.QuotaLimiter) (*app.Monitor, cleanupFunc, error) {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open seen store: %w", err)
	}

	translator, closeTranslator := buildTranslator(ctx, cfg, quota)
	cleanup := func() {
		closeTranslator()
		if err := store.Close(); err != nil {
			logger.Warn("failed to close seen store", "error", err)
		}
	}

	persistRetry := retry.DefaultConfig()
	persistRetry.MaxAttempts = cfg.PersistRetryAttempts

	out, err := sink.Open(cfg.OutputFile, translator, sink.Options{
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		Retry:      persistRetry,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	deps := app.Deps{
		Fetcher: fetcher.New(fetcher.OptionsFromConfig(cfg.HTTP, cfg.Poll.SweepDelay), metrics.Global),
		Store:   store,
		Sink:    out,
		Metrics: metrics.Global,
	}
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		deps.Notifier = notify.NewTelegram(cfg.Notify.TelegramAPIURL, cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, metrics.Global)
		logger.Info("telegram notifications enabled")
	}

	m, err := app.New(cfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}
