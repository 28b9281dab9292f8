package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/togrefusjon/togrefusjon/internal/adapters/entur"
	mongoadapter "github.com/togrefusjon/togrefusjon/internal/adapters/mongo"
	natsadapter "github.com/togrefusjon/togrefusjon/internal/adapters/nats"
	"github.com/togrefusjon/togrefusjon/internal/adapters/postgres"
	"github.com/togrefusjon/togrefusjon/internal/adapters/valkey"
	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
	"github.com/togrefusjon/togrefusjon/internal/pkg/config"
	"github.com/togrefusjon/togrefusjon/internal/pkg/logging"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
	"github.com/togrefusjon/togrefusjon/internal/workflows"
)

// The worker hosts the claim-evaluation workflow: register journey, wait
// out feed lag, evaluate the compensation rules, publish the outcome.
func main() {
	cfg, err := config.Load("togrefusjon-worker")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger := logging.ForService("worker")

	ctx := context.Background()

	mongoClient, err := mongoadapter.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		log.Fatalf("mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database(cfg.Mongo.Database)

	ticketRepo, err := mongoadapter.NewTicketRepository(ctx, mongoDB)
	if err != nil {
		log.Fatalf("ticket repo: %v", err)
	}
	journeyRepo, err := mongoadapter.NewJourneyRepository(ctx, mongoDB)
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
		logger.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var pubSvc ports.EventPublisher
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
		pubSvc = publisher
	}

	feed := entur.New(cfg.Entur.BaseURL, cfg.Entur.ClientName)
	journeySvc := usecases.NewJourneyService(journeyRepo, stopRepo, feed, pubSvc)
	delaySvc := usecases.NewDelayService(feed, cacheSvc)
	evalSvc := usecases.NewEvaluationService(ticketRepo, journeySvc, delaySvc, pubSvc, rules.DefaultConfig())

	// Event consumers: completed evaluations advance the ticket lifecycle,
	// disruptions get logged for ops visibility.
	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		logger.Warn("nats subscriber unavailable", "error", err)
	} else {
		defer subscriber.Close()

		err = subscriber.SubscribeClaimEvaluated(ctx, "worker-claim-status", func(ctx context.Context, event *natsadapter.ClaimEvent) error {
			var outcome struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(event.Outcome, &outcome); err != nil {
				return err
			}
			metrics.EvaluationsTotal.WithLabelValues(outcome.Status).Inc()
			return ticketRepo.UpdateStatus(ctx, event.TicketID, domain.TicketValidated)
		})
		if err != nil {
			logger.Warn("claim-evaluated subscription failed", "error", err)
		}

		err = subscriber.SubscribeDelayEvents(ctx, "worker-disruption-log", func(ctx context.Context, event *natsadapter.DelayEvent) error {
			switch event.Result.Status {
			case domain.StatusDelayed, domain.StatusCancelled:
				logger.Info("journey disrupted",
					"natural_key", event.NaturalKey,
					"status", event.Result.Status,
					"delay_minutes", event.Result.GoverningDelay().Or(0))
			}
			return nil
		})
		if err != nil {
			logger.Warn("delay-event subscription failed", "error", err)
		}
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	taskQueue := cfg.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = workflows.TaskQueue
	}

	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.ClaimWorkflow)
	w.RegisterActivity(&workflows.ClaimActivities{
		Tickets:     ticketRepo,
		Journeys:    journeySvc,
		Evaluations: evalSvc,
	})

	slog.Info("claim worker started", "task_queue", taskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
