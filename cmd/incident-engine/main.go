package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilstack/vigil-incident/internal/api"
	"github.com/vigilstack/vigil-incident/internal/cache"
	"github.com/vigilstack/vigil-incident/internal/config"
	"github.com/vigilstack/vigil-incident/internal/engine"
	"github.com/vigilstack/vigil-incident/internal/extractors"
	"github.com/vigilstack/vigil-incident/internal/metrics"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/orchestrator"
	"github.com/vigilstack/vigil-incident/internal/repo"
	"github.com/vigilstack/vigil-incident/internal/services"
	"github.com/vigilstack/vigil-incident/internal/summarizer"
	"github.com/vigilstack/vigil-incident/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting incident-engine",
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("service", cfg.Orchestrator.Service))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var valkeyCloser cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			valkeyCloser = provider
		}
	}
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	telemetryClient := repo.NewTelemetryClient(
		cfg.Telemetry.BaseURL,
		cfg.Telemetry.LogsPath,
		cfg.Telemetry.MetricsPath,
		cfg.Telemetry.LogGroup,
		cfg.Telemetry.Timeout,
		cacheProvider,
		cfg.Cache.TelemetryTTL,
	)

	archiveClient := repo.NewArchiveClient(
		cfg.Archive.Endpoint,
		cfg.Archive.APIKey,
		cfg.Archive.Timeout,
		cacheProvider,
		cfg.Cache.IncidentsTTL,
	)

	ruleEngine, err := engine.NewRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		os.Exit(1)
	}

	detector := extractors.NewAnomalyDetector(extractors.Thresholds{
		LatencyMS:        cfg.Thresholds.LatencyMS,
		ErrorRate:        cfg.Thresholds.ErrorRate,
		CPUPct:           cfg.Thresholds.CPUPct,
		MemoryMB:         cfg.Thresholds.MemoryMB,
		EscalationFactor: cfg.Thresholds.EscalationFactor,
	})
	inference := engine.NewInferenceEngine(logger, engine.InferenceConfig{
		HighLatencyMS: cfg.Inference.HighLatencyMS,
	})

	var summ summarizer.Summarizer
	if cfg.Summarizer.Enabled && cfg.Summarizer.APIKey != "" {
		summ = summarizer.NewAnthropicSummarizer(summarizer.AnthropicConfig{
			APIKey:    cfg.Summarizer.APIKey,
			Model:     cfg.Summarizer.Model,
			MaxTokens: cfg.Summarizer.MaxTokens,
			Timeout:   cfg.Summarizer.Timeout,
		})
		logger.Info("model-backed summaries enabled")
	} else {
		logger.Info("model-backed summaries disabled, using fallback summaries")
	}
	budget := summarizer.Budget{
		MaxTrailEntries: cfg.Summarizer.MaxTrailEntries,
		MaxSummaryChars: cfg.Summarizer.MaxSummaryChars,
	}

	pipeline := engine.NewPipeline(logger, telemetryClient, detector, inference, ruleEngine, summ, budget)

	var archive orchestrator.Archive
	if archiveClient.Enabled() {
		archive = archiveClient
	}
	loop := orchestrator.New(logger, orchestrator.Config{
		PollInterval:    cfg.Orchestrator.PollInterval,
		BaselineWindow:  cfg.Orchestrator.BaselineWindow,
		EscalatedWindow: cfg.Orchestrator.EscalatedWindow,
		AlertThreshold:  models.Severity(cfg.Orchestrator.AlertThreshold),
		Service:         cfg.Orchestrator.Service,
	}, telemetryClient, detector, pipeline, archive)

	investigations := services.NewInvestigationService(logger, pipeline, loop, archiveClient)
	httpServer := api.NewHTTPServer(cfg.Server, logger, investigations)

	opsServer, err := api.NewOpsServer(cfg.Server)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	go func() {
		logger.Info("incident API listening", slog.String("address", cfg.Server.HTTPAddress))
		if serveErr := httpServer.Start(); serveErr != nil {
			logger.Error("HTTP server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go func() {
		logger.Info("ops gRPC server listening", slog.String("address", cfg.Server.GRPCAddress))
		if serveErr := opsServer.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go loop.Run(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	opsServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", slog.Any("error", err))
	}
	opsServer.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("incident-engine stopped")
}
