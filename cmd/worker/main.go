// Package main provides the entry point for the research aggregation Temporal worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/helixir/research-aggregation-service/internal/config"
	"github.com/helixir/research-aggregation-service/internal/database"
	"github.com/helixir/research-aggregation-service/internal/events"
	"github.com/helixir/research-aggregation-service/internal/observability"
	"github.com/helixir/research-aggregation-service/internal/papersources"
	"github.com/helixir/research-aggregation-service/internal/papersources/arxiv"
	"github.com/helixir/research-aggregation-service/internal/papersources/crossref"
	"github.com/helixir/research-aggregation-service/internal/papersources/pubmed"
	"github.com/helixir/research-aggregation-service/internal/papersources/semanticscholar"
	"github.com/helixir/research-aggregation-service/internal/pipeline"
	"github.com/helixir/research-aggregation-service/internal/repository"
	"github.com/helixir/research-aggregation-service/internal/temporal"
	"github.com/helixir/research-aggregation-service/internal/temporal/activities"
	"github.com/helixir/research-aggregation-service/internal/temporal/workflows"
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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("research-aggregation-service worker starting")

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

	jobRepo := repository.NewPgJobRepository(db)

	// Create the provider registry and register enabled sources.
	registry := papersources.NewRegistry()
	registerPaperSources(registry, cfg, logger)
	if len(registry.EnabledSources(nil)) == 0 {
		return fmt.Errorf("no paper sources enabled")
	}

	metrics := observability.NewMetrics("research_aggregation")

	dispatcher := pipeline.NewDispatcher(registry, pipeline.DispatcherConfig{
		MaxConcurrentProviders: cfg.Pipeline.MaxConcurrentProviders,
		ProviderTimeout:        cfg.Pipeline.ProviderTimeout,
		SafetyMargin:           cfg.Pipeline.SafetyMargin,
	}, logger, metrics)

	// Kafka publisher for job lifecycle events; a nil publisher disables them.
	var publisher pipeline.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka, logger)
		defer func() {
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close kafka publisher")
			}
		}()
		publisher = kafkaPublisher
		logger.Info().
			Strs("brokers", cfg.Kafka.Brokers).
			Str("topic", cfg.Kafka.Topic).
			Msg("kafka event publishing enabled")
	}

	processor := pipeline.NewProcessor(dispatcher, jobRepo, publisher, pipeline.ProcessorConfig{
		GlobalTimeout:     cfg.Pipeline.GlobalTimeout,
		DefaultMaxResults: cfg.Pipeline.DefaultMaxResults,
	}, logger, metrics)

	// Create Temporal client.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create WorkerManager.
	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorkerManager(temporalClient, workerConfig)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	manager.RegisterWorkflow(workflows.ResearchAggregationWorkflow)
	manager.RegisterActivity(activities.NewAggregationActivities(processor, jobRepo, logger))

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}

// registerPaperSources registers all enabled paper sources with the registry.
func registerPaperSources(registry *papersources.Registry, cfg *config.Config, logger zerolog.Logger) {
	// Semantic Scholar.
	if cfg.PaperSources.SemanticScholar.Enabled {
		ssCfg := cfg.PaperSources.SemanticScholar
		registry.Register(semanticscholar.New(semanticscholar.Config{
			BaseURL:    ssCfg.BaseURL,
			APIKey:     ssCfg.APIKey,
			Timeout:    ssCfg.Timeout,
			RateLimit:  ssCfg.RateLimit,
			MaxResults: ssCfg.MaxResults,
			Enabled:    true,
		}))
		logger.Info().Msg("registered paper source: Semantic Scholar")
	}

	// PubMed.
	if cfg.PaperSources.PubMed.Enabled {
		pmCfg := cfg.PaperSources.PubMed
		registry.Register(pubmed.New(pubmed.Config{
			BaseURL:    pmCfg.BaseURL,
			APIKey:     pmCfg.APIKey,
			Timeout:    pmCfg.Timeout,
			RateLimit:  pmCfg.RateLimit,
			MaxResults: pmCfg.MaxResults,
			Enabled:    true,
		}))
		logger.Info().Msg("registered paper source: PubMed")
	}

	// arXiv.
	if cfg.PaperSources.ArXiv.Enabled {
		axCfg := cfg.PaperSources.ArXiv
		registry.Register(arxiv.New(arxiv.Config{
			BaseURL:    axCfg.BaseURL,
			Timeout:    axCfg.Timeout,
			RateLimit:  axCfg.RateLimit,
			MaxResults: axCfg.MaxResults,
			Enabled:    true,
		}))
		logger.Info().Msg("registered paper source: arXiv")
	}

	// Crossref.
	if cfg.PaperSources.Crossref.Enabled {
		crCfg := cfg.PaperSources.Crossref
		registry.Register(crossref.New(crossref.Config{
			BaseURL:    crCfg.BaseURL,
			Mailto:     crCfg.Mailto,
			Timeout:    crCfg.Timeout,
			RateLimit:  crCfg.RateLimit,
			MaxResults: crCfg.MaxResults,
			Enabled:    true,
		}))
		logger.Info().Msg("registered paper source: Crossref")
	}
}
