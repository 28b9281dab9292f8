package ports

import (
	"context"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// TicketRepository persists imported tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
}

// JourneyRepository persists journey instances keyed by their natural key.
type JourneyRepository interface {
	// FindOrCreate returns the instance for the natural key, creating it
	// atomically if absent. Concurrent calls with the same key converge on
	// one instance.
	FindOrCreate(ctx context.Context, instance *domain.JourneyInstance) (*domain.JourneyInstance, error)
	GetByID(ctx context.Context, id string) (*domain.JourneyInstance, error)
	GetByNaturalKey(ctx context.Context, key string) (*domain.JourneyInstance, error)
	// ListDue returns instances whose planned departure falls inside the
	// window and whose last delay check is absent or older than checkedBefore.
	ListDue(ctx context.Context, windowStart, windowEnd time.Time, checkedBefore time.Time, limit int) ([]domain.JourneyInstance, error)
	// SaveDelayResult writes the delay result onto the instance. Fields
	// without a value are omitted from the stored document entirely.
	SaveDelayResult(ctx context.Context, id string, result *domain.DelayResult) error
}

// StopPlaceRepository resolves station names to national stop-place IDs.
type StopPlaceRepository interface {
	Upsert(ctx context.Context, sp *domain.StopPlace) error
	GetByID(ctx context.Context, id string) (*domain.StopPlace, error)
	// SearchByName matches case-insensitively on name or known aliases.
	SearchByName(ctx context.Context, name string, limit int) ([]domain.StopPlace, error)
}
