package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/adapters/entur"
	mongoadapter "github.com/togrefusjon/togrefusjon/internal/adapters/mongo"
	natsadapter "github.com/togrefusjon/togrefusjon/internal/adapters/nats"
	"github.com/togrefusjon/togrefusjon/internal/adapters/postgres"
	"github.com/togrefusjon/togrefusjon/internal/adapters/valkey"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
	"github.com/togrefusjon/togrefusjon/internal/pkg/config"
	"github.com/togrefusjon/togrefusjon/internal/pkg/logging"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
)

// The checker sweeps journey instances near their planned departure and
// refreshes their delay evidence from the feed on a fixed interval.
func main() {
	cfg, err := config.Load("togrefusjon-checker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.ForService("checker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, err := mongoadapter.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	journeyRepo, err := mongoadapter.NewJourneyRepository(ctx, mongoClient.Database(cfg.Mongo.Database))
	if err != nil {
		log.Fatalf("journey repo: %v", err)
	}

	db, err := postgres.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()
	stopRepo := postgres.NewStopPlaceRepo(db)

	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		logger.Warn("valkey unavailable, departure boards uncached", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var pubSvc ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable, delay events not published", "error", err)
	} else {
		defer publisher.Close()
		pubSvc = publisher
	}

	feed := entur.New(cfg.Entur.BaseURL, cfg.Entur.ClientName)
	journeySvc := usecases.NewJourneyService(journeyRepo, stopRepo, feed, pubSvc)
	delaySvc := usecases.NewDelayService(feed, cacheSvc)

	batch := usecases.NewBatchService(journeySvc, journeyRepo, delaySvc, usecases.BatchConfig{
		WindowBefore:    time.Duration(cfg.Check.WindowBeforeHours) * time.Hour,
		WindowAfter:     time.Duration(cfg.Check.WindowAfterHours) * time.Hour,
		RecheckInterval: time.Duration(cfg.Check.RecheckMinutes) * time.Minute,
		MaxJourneys:     cfg.Check.MaxJourneys,
		Pause:           time.Duration(cfg.Check.PauseMilliseconds) * time.Millisecond,
	})

	interval := time.Duration(cfg.Check.IntervalMinutes) * time.Minute
	logger.Info("checker starting", "interval", interval.String())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runCycle(ctx, batch, logger)
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, batch, logger)
		case sig := <-quit:
			logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
			return
		}
	}
}

// runCycle executes one sweep. A failed cycle is logged and the loop keeps
// going; the next tick gets a fresh chance.
func runCycle(ctx context.Context, batch *usecases.BatchService, logger *slog.Logger) {
	start := time.Now()
	summary, err := batch.RunCycle(ctx)
	if err != nil {
		logger.Error("check cycle failed", "error", err, "checked", summary.Checked)
		return
	}

	metrics.BatchCyclesTotal.Inc()
	metrics.BatchJourneysChecked.Add(float64(summary.Checked))
	metrics.DelayChecksTotal.WithLabelValues("ON_TIME", "AUTO").Add(float64(summary.OnTime))
	metrics.DelayChecksTotal.WithLabelValues("DELAYED", "AUTO").Add(float64(summary.Delayed))
	metrics.DelayChecksTotal.WithLabelValues("CANCELLED", "AUTO").Add(float64(summary.Cancelled))
	metrics.DelayChecksTotal.WithLabelValues("UNKNOWN", "AUTO").Add(float64(summary.Unknown))

	logger.Info("check cycle done",
		"total", summary.Total,
		"checked", summary.Checked,
		"on_time", summary.OnTime,
		"delayed", summary.Delayed,
		"cancelled", summary.Cancelled,
		"unknown", summary.Unknown,
		"errors", summary.Errors,
		"took", time.Since(start).String())
}
