package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/togrefusjon/togrefusjon/internal/adapters/entur"
	"github.com/togrefusjon/togrefusjon/internal/adapters/http"
	mongoadapter "github.com/togrefusjon/togrefusjon/internal/adapters/mongo"
	natsadapter "github.com/togrefusjon/togrefusjon/internal/adapters/nats"
	"github.com/togrefusjon/togrefusjon/internal/adapters/postgres"
	"github.com/togrefusjon/togrefusjon/internal/adapters/valkey"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
	"github.com/togrefusjon/togrefusjon/internal/pkg/config"
	"github.com/togrefusjon/togrefusjon/internal/pkg/logging"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
	"github.com/togrefusjon/togrefusjon/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("togrefusjon-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	// Document store (tickets, journey instances)
	mongoClient, err := mongoadapter.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.Mongo.Database)

	// Stop-place registry
	db, err := postgres.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer db.Close()

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr, cfg.Valkey.Prefix)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		publisher = nil
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Repos
	ticketRepo, err := mongoadapter.NewTicketRepository(ctx, mongoDB)
	if err != nil {
		log.Fatalf("ticket repo: %v", err)
	}
	journeyRepo, err := mongoadapter.NewJourneyRepository(ctx, mongoDB)
	if err != nil {
		log.Fatalf("journey repo: %v", err)
	}
	stopRepo := postgres.NewStopPlaceRepo(db)

	// Feed + use cases
	feed := entur.New(cfg.Entur.BaseURL, cfg.Entur.ClientName)
	ruleConfig := rules.DefaultConfig()

	journeySvc := usecases.NewJourneyService(journeyRepo, stopRepo, feed, eventPublisher(publisher))
	delaySvc := usecases.NewDelayService(feed, cacheService(cache))
	evalSvc := usecases.NewEvaluationService(ticketRepo, journeySvc, delaySvc, eventPublisher(publisher), ruleConfig)

	deps := &http.Dependencies{
		Journeys:    journeySvc,
		Evaluations: evalSvc,
		Tickets:     ticketRepo,
		Stops:       stopRepo,
		Rules:       ruleConfig,
		NATS:        natsConn,
		Mongo:       mongoClient,
		DB:          db,
		Cache:       cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Togrefusjon API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, https://*.togrefusjon.no",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Refresh DB pool gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// eventPublisher converts a possibly-nil concrete publisher into the port
// without producing a typed-nil interface.
func eventPublisher(p *natsadapter.Publisher) ports.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}

func cacheService(c *valkey.Cache) ports.CacheService {
	if c == nil {
		return nil
	}
	return c
}
