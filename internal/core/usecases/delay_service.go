package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
)

// delayOnTimeToleranceMinutes bounds the closed interval around zero that
// still counts as ON_TIME.
const delayOnTimeToleranceMinutes = 1

// DelayService measures a journey's delay against the real-time feed.
//
// Detection is a pure computation over fetched feed data; it never persists
// anything and never returns an error. Every failure mode degrades to an
// UNKNOWN result with a diagnostic message so batch runs stay resilient.
type DelayService struct {
	feed  ports.RealtimeFeed
	cache ports.CacheService
}

// NewDelayService creates a new DelayService.
func NewDelayService(feed ports.RealtimeFeed, cache ports.CacheService) *DelayService {
	return &DelayService{feed: feed, cache: cache}
}

// Detect checks the current delay of a train departing from originStopID
// around plannedDeparture.
func (s *DelayService) Detect(ctx context.Context, trainNumber string, plannedDeparture time.Time, originStopID string, source domain.CheckSource) domain.DelayResult {
	result := domain.DelayResult{
		TrainNumber: trainNumber,
		Status:      domain.StatusUnknown,
		CheckedAt:   time.Now().UTC(),
		Source:      source,
	}

	if strings.TrimSpace(trainNumber) == "" {
		result.Message = "Tognummer mangler - kan ikke sjekke forsinkelse."
		return result
	}
	if strings.TrimSpace(originStopID) == "" {
		result.Message = "Avgangsstasjon mangler - kan ikke sjekke forsinkelse."
		return result
	}

	calls, err := s.departures(ctx, originStopID)
	if err != nil {
		result.Message = fmt.Sprintf("Sanntidsdata utilgjengelig: %v", err)
		return result
	}

	match := selectCall(calls, trainNumber, plannedDeparture)
	if match == nil {
		result.Message = fmt.Sprintf("Fant ikke tog %s i avgangene fra %s.", trainNumber, originStopID)
		return result
	}

	result.Match = match
	result.PlannedDeparture = match.AimedDeparture
	result.ActualDeparture = match.BestDeparture()
	result.PlannedArrival = match.AimedArrival
	result.ActualArrival = match.BestArrival()
	result.DepartureDelay = delayBetween(match.AimedDeparture, match.BestDeparture())
	result.ArrivalDelay = delayBetween(match.AimedArrival, match.BestArrival())
	result.Status = classify(match, result.GoverningDelay())

	switch result.Status {
	case domain.StatusCancelled:
		result.Message = fmt.Sprintf("Tog %s er innstilt.", trainNumber)
	case domain.StatusDelayed:
		result.Message = fmt.Sprintf("Tog %s er %d minutter forsinket.", trainNumber, result.GoverningDelay().Or(0))
	case domain.StatusOnTime:
		result.Message = fmt.Sprintf("Tog %s er i rute.", trainNumber)
	default:
		result.Message = fmt.Sprintf("Ingen sanntidsdata for tog %s ennå.", trainNumber)
	}

	return result
}

// departures fetches the origin stop's departure board, with a short cache
// so that a batch cycle touching many journeys from the same station only
// hits the feed once.
func (s *DelayService) departures(ctx context.Context, stopPlaceID string) ([]domain.EstimatedCall, error) {
	cacheKey := "feed:departures:" + stopPlaceID
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var calls []domain.EstimatedCall
			if err := json.Unmarshal(data, &calls); err == nil {
				return calls, nil
			}
		}
	}

	calls, err := s.feed.Departures(ctx, stopPlaceID, 100)
	if err != nil {
		return nil, err
	}

	// 30 seconds: long enough to dedupe within a cycle, short enough that
	// on-demand checks stay fresh.
	if s.cache != nil {
		if data, err := json.Marshal(calls); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 30)
		}
	}

	return calls, nil
}

// selectCall picks the departure-board entry for the requested train. The
// train number is matched case-insensitively; when the same number appears
// more than once (e.g. an hourly service), the call whose aimed departure
// is closest to the ticket's planned departure wins, first encountered on a
// tie.
func selectCall(calls []domain.EstimatedCall, trainNumber string, plannedDeparture time.Time) *domain.EstimatedCall {
	wanted := strings.ToUpper(strings.TrimSpace(trainNumber))

	var best *domain.EstimatedCall
	var bestDiff time.Duration
	for i := range calls {
		call := &calls[i]
		if strings.ToUpper(strings.TrimSpace(call.LineCode)) != wanted {
			continue
		}
		if call.AimedDeparture == nil {
			if best == nil {
				best = call
				bestDiff = time.Duration(math.MaxInt64)
			}
			continue
		}
		diff := call.AimedDeparture.Sub(plannedDeparture)
		if diff < 0 {
			diff = -diff
		}
		if best == nil || diff < bestDiff {
			best = call
			bestDiff = diff
		}
	}
	return best
}

// delayBetween computes whole minutes between an aimed time and the best
// known actual/expected time, rounding half a minute up.
func delayBetween(aimed, actual *time.Time) domain.Minutes {
	if aimed == nil || actual == nil {
		return domain.Minutes{}
	}
	return domain.KnownMinutes(int(math.Round(actual.Sub(*aimed).Minutes())))
}

// classify maps a matched call and its governing delay onto a status.
// Early trains (more than a minute ahead of schedule) are reported as
// ON_TIME, not as a separate status.
func classify(call *domain.EstimatedCall, governing domain.Minutes) domain.DelayStatus {
	if call.Cancelled {
		return domain.StatusCancelled
	}
	if !governing.Known {
		return domain.StatusUnknown
	}
	minutes := governing.Value
	if minutes >= -delayOnTimeToleranceMinutes && minutes <= delayOnTimeToleranceMinutes {
		return domain.StatusOnTime
	}
	if minutes > delayOnTimeToleranceMinutes {
		return domain.StatusDelayed
	}
	return domain.StatusOnTime
}
