package ports

import (
	"context"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// RealtimeFeed queries the national journey-planner feed. Implementations
// return feed errors as-is; callers decide how failures degrade.
type RealtimeFeed interface {
	// Departures lists upcoming estimated calls from a stop place.
	Departures(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error)
	// ServiceJourney fetches the calls of one dated service journey.
	ServiceJourney(ctx context.Context, serviceJourneyID, serviceDate string) ([]domain.EstimatedCall, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishDelayResult(ctx context.Context, journey *domain.JourneyInstance, result *domain.DelayResult) error
	PublishJourneyCreated(ctx context.Context, journey *domain.JourneyInstance) error
	PublishClaimEvaluated(ctx context.Context, ticketID string, outcome []byte) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
