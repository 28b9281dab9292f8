package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
)

// JourneyService is the journey-instance registry: it deduplicates physical
// train runs behind a natural key so that delay evidence is gathered once
// per run, no matter how many passengers claim against it.
type JourneyService struct {
	journeys  ports.JourneyRepository
	stops     ports.StopPlaceRepository
	feed      ports.RealtimeFeed
	publisher ports.EventPublisher
}

// NewJourneyService creates a new JourneyService.
func NewJourneyService(
	journeys ports.JourneyRepository,
	stops ports.StopPlaceRepository,
	feed ports.RealtimeFeed,
	publisher ports.EventPublisher,
) *JourneyService {
	return &JourneyService{journeys: journeys, stops: stops, feed: feed, publisher: publisher}
}

// FindOrCreate returns the journey instance for a ticket, creating it on
// first sight. Idempotent: two tickets for the same physical run converge
// on the same instance.
func (s *JourneyService) FindOrCreate(ctx context.Context, ticket *domain.Ticket) (*domain.JourneyInstance, error) {
	if strings.TrimSpace(ticket.TrainNumber) == "" {
		return nil, fmt.Errorf("ticket %s has no train number", ticket.ID)
	}

	fromID, fromQuality, err := s.resolveStop(ctx, ticket.FromStopPlaceID, ticket.FromStation)
	if err != nil {
		return nil, fmt.Errorf("resolve origin %q: %w", ticket.FromStation, err)
	}
	toID, toQuality := s.resolveStopOptional(ctx, ticket.ToStopPlaceID, ticket.ToStation)

	planned, err := plannedDeparture(ticket.ServiceDate, ticket.DepartureTime)
	if err != nil {
		return nil, fmt.Errorf("ticket %s: %w", ticket.ID, err)
	}

	instance := &domain.JourneyInstance{
		Operator:         strings.ToUpper(strings.TrimSpace(ticket.Operator)),
		TrainNumber:      strings.ToUpper(strings.TrimSpace(ticket.TrainNumber)),
		ServiceDate:      ticket.ServiceDate,
		FromStopPlaceID:  fromID,
		ToStopPlaceID:    toID,
		PlannedDeparture: planned,
		ClassifiedCause:  domain.CauseUnknown,
		RuleVersion:      rules.Version,
		MatchingQuality:  combineQuality(fromQuality, toQuality),
	}
	instance.NaturalKey = domain.BuildNaturalKey(
		instance.Operator, instance.TrainNumber, instance.ServiceDate, fromID, toID,
	)

	// Enrich from the feed before persisting. Best-effort: a feed outage
	// must not block claim creation; the batch runner fills the gaps later.
	s.enrichFromFeed(ctx, instance)

	created, err := s.journeys.FindOrCreate(ctx, instance)
	if err != nil {
		return nil, fmt.Errorf("find or create journey %s: %w", instance.NaturalKey, err)
	}

	if created.CreatedAt.Equal(created.UpdatedAt) && s.publisher != nil {
		_ = s.publisher.PublishJourneyCreated(ctx, created)
	}

	return created, nil
}

// GetByID returns one journey instance.
func (s *JourneyService) GetByID(ctx context.Context, id string) (*domain.JourneyInstance, error) {
	return s.journeys.GetByID(ctx, id)
}

// GetByNaturalKey returns the journey instance for a natural key, or nil.
func (s *JourneyService) GetByNaturalKey(ctx context.Context, key string) (*domain.JourneyInstance, error) {
	return s.journeys.GetByNaturalKey(ctx, key)
}

// AttachDelayResult persists a delay check onto the instance and advances
// its last-checked timestamp.
func (s *JourneyService) AttachDelayResult(ctx context.Context, journey *domain.JourneyInstance, result *domain.DelayResult) error {
	result.JourneyInstanceID = journey.ID
	if err := s.journeys.SaveDelayResult(ctx, journey.ID, result); err != nil {
		return fmt.Errorf("save delay result for %s: %w", journey.ID, err)
	}
	if s.publisher != nil {
		_ = s.publisher.PublishDelayResult(ctx, journey, result)
	}
	return nil
}

// resolveStop maps a station to its NSR stop-place ID. An already-resolved
// ID (QR tickets) is trusted as-is; otherwise the registry is searched by
// name. The origin must resolve or there is nothing to query the feed with.
func (s *JourneyService) resolveStop(ctx context.Context, stopPlaceID, name string) (string, domain.MatchingQuality, error) {
	if stopPlaceID != "" {
		return stopPlaceID, domain.MatchExact, nil
	}
	if strings.TrimSpace(name) == "" {
		return "", "", fmt.Errorf("no stop-place ID and no station name")
	}
	matches, err := s.stops.SearchByName(ctx, name, 1)
	if err != nil {
		return "", "", err
	}
	if len(matches) == 0 {
		return "", "", fmt.Errorf("unknown station %q", name)
	}
	return matches[0].ID, domain.MatchPartial, nil
}

// resolveStopOptional is resolveStop for the destination, where failure
// degrades to a fallback placeholder instead of an error.
func (s *JourneyService) resolveStopOptional(ctx context.Context, stopPlaceID, name string) (string, domain.MatchingQuality) {
	id, quality, err := s.resolveStop(ctx, stopPlaceID, name)
	if err != nil {
		// Keep the raw name in the key so different destinations still get
		// distinct instances.
		return "NSR:Unresolved:" + strings.ToUpper(strings.TrimSpace(name)), domain.MatchFallback
	}
	return id, quality
}

func combineQuality(a, b domain.MatchingQuality) domain.MatchingQuality {
	switch {
	case a == domain.MatchFallback || b == domain.MatchFallback:
		return domain.MatchFallback
	case a == domain.MatchPartial || b == domain.MatchPartial:
		return domain.MatchPartial
	default:
		return domain.MatchExact
	}
}

// enrichFromFeed copies service-journey references and planned times from
// the live departure board onto a fresh instance, when the board lists the
// train.
func (s *JourneyService) enrichFromFeed(ctx context.Context, instance *domain.JourneyInstance) {
	if s.feed == nil {
		return
	}
	calls, err := s.feed.Departures(ctx, instance.FromStopPlaceID, 100)
	if err != nil {
		return
	}
	match := selectCall(calls, instance.TrainNumber, instance.PlannedDeparture)
	if match == nil {
		return
	}
	instance.ServiceJourneyID = match.ServiceJourneyID
	instance.LineID = match.LineID
	if match.AimedDeparture != nil {
		instance.PlannedDeparture = *match.AimedDeparture
	}
	if match.AimedArrival != nil {
		instance.PlannedArrival = *match.AimedArrival
	}
	instance.Cancelled = match.Cancelled

	s.enrichArrival(ctx, instance)
}

// enrichArrival replaces the origin call's arrival times with the
// destination call's, looked up on the dated service journey. The origin
// board only knows when the train arrived at the origin, which is useless
// as compensation evidence.
func (s *JourneyService) enrichArrival(ctx context.Context, instance *domain.JourneyInstance) {
	if instance.ServiceJourneyID == "" || !strings.HasPrefix(instance.ToStopPlaceID, "NSR:StopPlace:") {
		return
	}
	calls, err := s.feed.ServiceJourney(ctx, instance.ServiceJourneyID, instance.ServiceDate)
	if err != nil {
		return
	}
	for _, call := range calls {
		if call.StopPlaceID != instance.ToStopPlaceID {
			continue
		}
		if call.AimedArrival != nil {
			instance.PlannedArrival = *call.AimedArrival
		}
		if call.Cancelled {
			instance.Cancelled = true
		}
		return
	}
}

// plannedDeparture combines the ticket's service date and local departure
// time into a UTC instant. Norwegian tickets carry Oslo local time.
func plannedDeparture(serviceDate, departureTime string) (time.Time, error) {
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", serviceDate+" "+departureTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse departure %q %q: %w", serviceDate, departureTime, err)
	}
	return t.UTC(), nil
}
