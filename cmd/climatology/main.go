package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/snowpack-climatology/internal/adapter/cuahsi"
	httpadapter "github.com/couchcryptid/snowpack-climatology/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/snowpack-climatology/internal/adapter/kafka"
	"github.com/couchcryptid/snowpack-climatology/internal/config"
	"github.com/couchcryptid/snowpack-climatology/internal/observability"
	"github.com/couchcryptid/snowpack-climatology/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := cuahsi.NewClient(cfg.CUAHSIBaseURL, cfg.CUAHSITimeout, metrics, logger)
	var fetcher pipeline.Fetcher = client
	if cfg.CUAHSICacheSize > 0 {
		fetcher = cuahsi.NewCachedFetcher(client, cfg.CUAHSICacheSize, metrics)
	}

	// Publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(fetcher, publisher, logger, metrics, pipeline.Options{
		Site:     cfg.SiteCode,
		Variable: cfg.VariableCode,
		Start:    cfg.SeriesStart,
		Location: cfg.SiteTimezone,
		Interval: cfg.RunInterval,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

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
	if err := client.Close(); err != nil {
		logger.Error("cuahsi client close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
