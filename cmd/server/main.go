// Package main provides the entry point for the paper import service.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/researchhub/paper-import-service/internal/config"
	"github.com/researchhub/paper-import-service/internal/database"
	"github.com/researchhub/paper-import-service/internal/enrich"
	"github.com/researchhub/paper-import-service/internal/events"
	"github.com/researchhub/paper-import-service/internal/importer"
	"github.com/researchhub/paper-import-service/internal/observability"
	"github.com/researchhub/paper-import-service/internal/repository"
	"github.com/researchhub/paper-import-service/internal/resolver"
	httpserver "github.com/researchhub/paper-import-service/internal/server/http"
	"github.com/researchhub/paper-import-service/internal/sources"
	"github.com/researchhub/paper-import-service/internal/sources/crossref"
	"github.com/researchhub/paper-import-service/internal/sources/openalex"
	"github.com/researchhub/paper-import-service/internal/sources/semanticscholar"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-import-service starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics("paper_import")

	// Build the provider cascade in fixed precedence order.
	cascade := []sources.Source{
		semanticscholar.New(semanticscholar.Config{
			BaseURL:    cfg.Sources.SemanticScholar.BaseURL,
			APIKey:     cfg.Sources.SemanticScholar.APIKey,
			Timeout:    cfg.Sources.SemanticScholar.Timeout,
			RateLimit:  cfg.Sources.SemanticScholar.RateLimit,
			BurstSize:  cfg.Sources.SemanticScholar.BurstSize,
			MaxRetries: cfg.Sources.SemanticScholar.MaxRetries,
			RetryDelay: cfg.Sources.SemanticScholar.RetryDelay,
			MaxResults: cfg.Sources.SemanticScholar.MaxResults,
			Enabled:    cfg.Sources.SemanticScholar.Enabled,
		}),
		openalex.New(openalex.Config{
			BaseURL:    cfg.Sources.OpenAlex.BaseURL,
			Email:      cfg.Sources.OpenAlex.Email,
			Timeout:    cfg.Sources.OpenAlex.Timeout,
			RateLimit:  cfg.Sources.OpenAlex.RateLimit,
			BurstSize:  cfg.Sources.OpenAlex.BurstSize,
			MaxRetries: cfg.Sources.OpenAlex.MaxRetries,
			RetryDelay: cfg.Sources.OpenAlex.RetryDelay,
			MaxResults: cfg.Sources.OpenAlex.MaxResults,
			Enabled:    cfg.Sources.OpenAlex.Enabled,
		}),
		crossref.New(crossref.Config{
			BaseURL:    cfg.Sources.Crossref.BaseURL,
			Email:      cfg.Sources.Crossref.Email,
			Timeout:    cfg.Sources.Crossref.Timeout,
			RateLimit:  cfg.Sources.Crossref.RateLimit,
			BurstSize:  cfg.Sources.Crossref.BurstSize,
			MaxRetries: cfg.Sources.Crossref.MaxRetries,
			RetryDelay: cfg.Sources.Crossref.RetryDelay,
			MaxResults: cfg.Sources.Crossref.MaxResults,
			Enabled:    cfg.Sources.Crossref.Enabled,
		}),
	}

	orchestrator := enrich.NewOrchestrator(cascade, enrich.Config{
		MinTitleSimilarity: cfg.Importer.TitleSimilarityThreshold,
	}, logger, metrics)

	pipeline := importer.NewPipeline(db, orchestrator, cascade, resolver.Config{
		MaxAuthors:           cfg.Importer.MaxAuthors,
		FirstAuthorOnlyAbove: cfg.Importer.FirstAuthorOnlyAbove,
	}, logger, metrics)

	// Event publisher: Kafka when enabled, otherwise a no-op.
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = events.NewKafkaPublisher(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka publisher enabled")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close event publisher")
		}
	}()

	jobRepo := repository.NewPgImportJobRepository(db)
	manager := importer.NewManager(jobRepo, pipeline, publisher, logger, metrics)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}

	httpSrv := httpserver.NewServer(
		httpCfg,
		manager,
		repository.NewPgPaperRepository(db),
		repository.NewPgResearcherRepository(db),
		repository.NewPgAuthorshipRepository(db),
		db,
		logger,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start HTTP REST API server in background.
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-import-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-import-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop accepting requests before draining in-flight jobs.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	// Let running import jobs finish persisting their terminal state.
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("import jobs still in flight at shutdown")
	}

	logger.Info().Msg("paper-import-service stopped")
	return nil
}
