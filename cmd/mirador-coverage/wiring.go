package main

import (
	"fmt"
	"log/slog"

	"github.com/miradorstack/mirador-coverage/internal/cache"
	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/config"
	"github.com/miradorstack/mirador-coverage/internal/docs"
	"github.com/miradorstack/mirador-coverage/internal/engine"
	"github.com/miradorstack/mirador-coverage/internal/metrics"
	"github.com/miradorstack/mirador-coverage/internal/repo"
	"github.com/miradorstack/mirador-coverage/internal/services"
)

type components struct {
	catalog   *catalog.Holder
	cache     cache.Provider
	datadog   *repo.DatadogClient
	customers *repo.CustomerMetricsProvider
	analyzer  *engine.Analyzer
	service   *services.CoverageService
}

func buildComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	holder, outcome := catalog.NewHolder(cfg.Catalog.Dir, logger)
	metrics.SetCatalogIntegrations(len(holder.Current().Integrations()), outcome.Fallback)

	library, err := docs.NewLibrary(cfg.Docs.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load documentation pack: %w", err)
	}

	dd := cfg.Clients.Datadog
	datadog := repo.NewDatadogClient(repo.DatadogOptions{
		BaseURL:           dd.BaseURL,
		APIKey:            dd.APIKey,
		AppKey:            dd.AppKey,
		ActiveMetricsPath: dd.ActiveMetricsPath,
		ActiveWindow:      dd.ActiveWindow,
		Timeout:           dd.Timeout,
		MaxRetries:        dd.MaxRetries,
		RateLimit:         dd.RateLimit,
		RateBurst:         dd.RateBurst,
	}, library, holder)

	store := cache.NewMemoryProvider(cfg.CustomerMetrics.CleanupInterval)
	customers := repo.NewCustomerMetricsProvider(logger, datadog, store, repo.CustomerMetricsOptions{
		EndpointTemplate: cfg.CustomerMetrics.EndpointTemplate,
		EndpointTimeout:  cfg.CustomerMetrics.EndpointTimeout,
		TTL:              cfg.CustomerMetrics.CacheTTL,
	})

	analyzer := engine.NewAnalyzer(
		logger,
		customers,
		engine.NewPrefixResolver(holder),
		datadog,
		datadog,
		engine.AnalyzerOptions{
			DocTimeout:     cfg.Analysis.DocTimeout,
			DocConcurrency: cfg.Analysis.DocConcurrency,
		},
	)

	return &components{
		catalog:   holder,
		cache:     store,
		datadog:   datadog,
		customers: customers,
		analyzer:  analyzer,
		service:   services.NewCoverageService(logger, analyzer, holder),
	}, nil
}

func (c *components) Close() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
}
