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

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/machintel/machintel-service/internal/adapter/backend"
	"github.com/machintel/machintel-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/machintel/machintel-service/internal/adapter/kafka"
	"github.com/machintel/machintel-service/internal/config"
	"github.com/machintel/machintel-service/internal/observability"
	"github.com/machintel/machintel-service/internal/pipeline"
	"github.com/machintel/machintel-service/internal/session"
)

const sessionSweepInterval = time.Minute

// alwaysReady reports the server ready when no pipeline is running.
type alwaysReady struct{}

func (alwaysReady) CheckReadiness(context.Context) error { return nil }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger, metrics)
	sessions := session.NewStore(cfg.SessionCapacity, clock, metrics)
	go sessions.Run(ctx, sessionSweepInterval)

	var (
		ready  sharedobs.ReadinessChecker = alwaysReady{}
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(logger, metrics), writer, logger, metrics, cfg.BatchSize)
		ready = p

		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
		logger.Info("normalization pipeline enabled", "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)
	} else {
		logger.Info("normalization pipeline disabled")
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:            cfg.HTTPAddr,
		Backend:         client,
		Sessions:        sessions,
		Ready:           ready,
		Logger:          logger,
		Clock:           clock,
		SessionTTL:      cfg.SessionTTL,
		GuestSessionTTL: cfg.GuestSessionTTL,
		CookieSecure:    cfg.CookieSecure,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
		AuthRateLimit:   cfg.AuthRateLimit,
	})

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
