package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attest-ml/go-attest/infrastructure/explain"
	"github.com/attest-ml/go-attest/infrastructure/middleware"
	"github.com/attest-ml/go-attest/infrastructure/model"
	"github.com/attest-ml/go-attest/infrastructure/uncertainty"
	"github.com/attest-ml/go-attest/internal/api"
	"github.com/attest-ml/go-attest/internal/application"
	"github.com/attest-ml/go-attest/internal/ports"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the trust engine HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	metrics := middleware.NewPrometheusMetrics()

	_, calService, snapService, err := historyServices(cfg, logger, metrics)
	if err != nil {
		return err
	}

	explainService, err := buildExplainService(cfg, logger, metrics)
	if err != nil {
		return err
	}
	if explainService == nil {
		logger.Info("no model endpoint configured, explanation routes disabled")
	}

	server := api.NewServer(explainService, calService, snapService, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.Router(),
		ReadTimeout:  parseTTL(cfg.Server.ReadTimeout),
		WriteTimeout: parseTTL(cfg.Server.WriteTimeout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("trust engine listening", zap.String("addr", cfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

// buildExplainService wires the model client, attribution methods,
// runner, aggregator, and estimator. It returns nil when no model
// endpoint is configured.
func buildExplainService(
	cfg application.EngineConfig,
	logger *zap.Logger,
	metrics ports.MetricsCollector,
) (*application.ExplainService, error) {
	if cfg.Model.Endpoint == "" {
		return nil, nil
	}

	client, err := model.NewHTTPClient(cfg.Model.Endpoint, cfg.Model.NumClasses, parseTTL(cfg.Model.RequestTimeout))
	if err != nil {
		return nil, err
	}

	registry := application.NewMethodRegistry()
	methods := make([]ports.AttributionMethod, 0, len(cfg.Model.Methods))
	for _, mc := range cfg.Model.Methods {
		name := mc.Name
		if name == "" {
			name = mc.Type
		}
		m, err := registry.CreateMethod(mc.Type, name, mc.Parameters)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}

	runner, err := explain.NewRunner(methods, cfg.Explain.RunnerConfig(), logger, metrics)
	if err != nil {
		return nil, err
	}
	aggregator, err := explain.NewAggregator(cfg.Explain.Aggregator, logger)
	if err != nil {
		return nil, err
	}
	estimator, err := uncertainty.NewEstimator(cfg.Uncertainty, logger)
	if err != nil {
		return nil, err
	}

	observer := middleware.NewOTelPipelineObserver(metrics)
	return application.NewExplainService(client, runner, aggregator, estimator, observer, logger)
}
