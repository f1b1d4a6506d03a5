package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flood-impact-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flood-impact-service/internal/adapter/kafka"
	"github.com/couchcryptid/flood-impact-service/internal/adapter/mapbox"
	"github.com/couchcryptid/flood-impact-service/internal/adapter/sqlite"
	"github.com/couchcryptid/flood-impact-service/internal/analysis"
	"github.com/couchcryptid/flood-impact-service/internal/catalog"
	"github.com/couchcryptid/flood-impact-service/internal/config"
	"github.com/couchcryptid/flood-impact-service/internal/domain"
	"github.com/couchcryptid/flood-impact-service/internal/observability"
	"github.com/couchcryptid/flood-impact-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog loaded", "path", cfg.CatalogPath, "scenes", len(cat.Entries), "layers", len(cat.Layers))

	var opts []analysis.Option
	if cfg.OutputDir != "" {
		opts = append(opts, analysis.WithOutputDir(cfg.OutputDir))
	}
	analyzer, err := analysis.NewAnalyzer(cfg.Analysis, cat, cat, geocoder, logger, metrics, opts...)
	if err != nil {
		logger.Error("invalid analysis parameters", "error", err)
		os.Exit(1)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(analyzer, logger)

	// Results are recorded before they are published so /analyses/{id}
	// can answer as soon as a consumer sees the message.
	var loader pipeline.BatchLoader = writer
	var store *sqlite.Store
	if cfg.ResultsDBPath != "" {
		store, err = sqlite.Open(cfg.ResultsDBPath, logger)
		if err != nil {
			logger.Error("failed to open results db", "error", err)
			os.Exit(1)
		}
		loader = pipeline.MultiLoader{store, writer}
	}

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	var results httpadapter.ResultStore
	if store != nil {
		results = store
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, results, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	pipelineDone := startPipeline(ctx, p, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// The pipeline may still be loading or committing; the adapters stay open until it returns.
	<-pipelineDone
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Error("results db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

type runner interface {
	Run(ctx context.Context) error
}

// startPipeline runs p in the background. The returned channel is closed once
// Run has returned.
func startPipeline(ctx context.Context, p runner, logger *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()
	return done
}
