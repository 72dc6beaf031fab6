package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/vaccine-data-etl/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/vaccine-data-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/vaccine-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/vaccine-data-etl/internal/config"
	"github.com/couchcryptid/vaccine-data-etl/internal/domain"
	"github.com/couchcryptid/vaccine-data-etl/internal/observability"
	"github.com/couchcryptid/vaccine-data-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Error("failed to load rules", "error", err)
		os.Exit(1)
	}

	// Coverage is feature-flagged via POPULATION_PATH.
	var population *domain.PopulationTable
	if cfg.PopulationPath != "" {
		data, err := os.ReadFile(cfg.PopulationPath)
		if err == nil {
			population, err = domain.ParsePopulation(data)
		}
		if err != nil {
			logger.Error("failed to load population table", "path", cfg.PopulationPath, "error", err)
			os.Exit(1)
		}
		logger.Info("coverage enabled", "entries", population.Len())
	} else {
		logger.Info("coverage disabled")
	}

	client := feed.NewClient(cfg.FetchTimeout, logger, metrics)
	fetcher := feed.NewCachedClient(client)

	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	store := pipeline.NewStore()
	p := pipeline.New(fetcher, pipeline.NewProcessor(rules, logger), publisher, store, pipeline.Options{
		DistrictURL: cfg.DistrictFeedURL,
		StateURL:    cfg.StateFeedURL,
		Interval:    cfg.RefreshInterval,
		Population:  population,
	}, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
