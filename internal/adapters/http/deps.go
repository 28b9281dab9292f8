package http

import (
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/togrefusjon/togrefusjon/internal/adapters/postgres"
	"github.com/togrefusjon/togrefusjon/internal/adapters/valkey"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Journeys    *usecases.JourneyService
	Evaluations *usecases.EvaluationService
	Tickets     ports.TicketRepository
	Stops       ports.StopPlaceRepository
	Rules       rules.Config

	NATS  *nats.Conn
	Mongo *mongo.Client
	DB    *postgres.DB
	Cache *valkey.Cache
}
