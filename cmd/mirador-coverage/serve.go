package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-coverage/internal/api"
	"github.com/miradorstack/mirador-coverage/internal/catalog"
	"github.com/miradorstack/mirador-coverage/internal/metrics"
)

var validateBackend bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC and REST coverage service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}
		logger.Info("starting mirador-coverage", slog.String("address", cfg.Server.Address), slog.String("http_address", cfg.HTTP.Address))

		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return err
		}

		comps, err := buildComponents(cfg, logger)
		if err != nil {
			return err
		}
		defer comps.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if validateBackend {
			checkCtx, cancel := context.WithTimeout(ctx, cfg.Clients.Datadog.Timeout)
			if err := comps.datadog.Validate(checkCtx); err != nil {
				logger.Warn("monitoring backend validation failed", slog.Any("error", err))
			} else {
				logger.Info("monitoring backend credentials accepted")
			}
			cancel()
		}

		go comps.catalog.Watch(ctx, cfg.Catalog.ReloadInterval, func(idx *catalog.Index, _ catalog.LoadOutcome) {
			metrics.SetCatalogIntegrations(len(idx.Integrations()), idx.Fallback())
		})

		server, err := api.NewServer(cfg.Server, comps.service)
		if err != nil {
			return err
		}
		go func() {
			if serveErr := server.Start(); serveErr != nil {
				logger.Error("gRPC server exited", slog.Any("error", serveErr))
				stop()
			}
		}()

		var restServer *api.HTTPServer
		if cfg.HTTP.Address != "" {
			restServer, err = api.NewHTTPServer(cfg.HTTP, api.NewRouter(comps.service, logger))
			if err != nil {
				return err
			}
			go func() {
				logger.Info("REST server listening", slog.String("address", restServer.Address()))
				if serveErr := restServer.Start(); serveErr != nil {
					logger.Error("REST server exited", slog.Any("error", serveErr))
					stop()
				}
			}()
		}

		var metricsServer *http.Server
		if cfg.Server.MetricsAddress != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsServer = &http.Server{
				Addr:         cfg.Server.MetricsAddress,
				Handler:      mux,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 15 * time.Second,
			}
			go func() {
				logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server exited", slog.Any("error", err))
					stop()
				}
			}()
		}

		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.GracefulTimeout())
		defer cancel()
		server.Shutdown(shutdownCtx)
		if restServer != nil {
			if err := restServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("REST server shutdown", slog.Any("error", err))
			}
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}

		logger.Info("mirador-coverage stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&validateBackend, "validate-backend", false, "check monitoring backend credentials at startup")
	rootCmd.AddCommand(serveCmd)
}
