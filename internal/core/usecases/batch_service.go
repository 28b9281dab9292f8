package usecases

import (
	"context"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
)

// BatchConfig controls the periodic delay-check cycle.
type BatchConfig struct {
	// WindowBefore/WindowAfter bound planned departures relative to now:
	// [now-WindowBefore, now+WindowAfter].
	WindowBefore time.Duration
	WindowAfter  time.Duration
	// RecheckInterval is how stale a journey's last check must be before it
	// is picked up again.
	RecheckInterval time.Duration
	// MaxJourneys caps one cycle.
	MaxJourneys int
	// Pause throttles consecutive feed calls.
	Pause time.Duration
}

// DefaultBatchConfig matches the feed's published rate expectations.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		WindowBefore:    6 * time.Hour,
		WindowAfter:     2 * time.Hour,
		RecheckInterval: 30 * time.Minute,
		MaxJourneys:     100,
		Pause:           100 * time.Millisecond,
	}
}

// BatchSummary tallies one cycle for logging and metrics.
type BatchSummary struct {
	Total     int `json:"total"`
	Checked   int `json:"checked"`
	OnTime    int `json:"on_time"`
	Delayed   int `json:"delayed"`
	Cancelled int `json:"cancelled"`
	Unknown   int `json:"unknown"`
	Errors    int `json:"errors"`
}

// BatchService runs the periodic delay-check sweep over journeys that are
// departing soon or recently departed. Journeys are processed strictly
// sequentially with a short pause so the upstream feed never sees a burst.
type BatchService struct {
	journeys *JourneyService
	repo     ports.JourneyRepository
	delays   *DelayService
	config   BatchConfig
}

// NewBatchService creates a new BatchService.
func NewBatchService(journeys *JourneyService, repo ports.JourneyRepository, delays *DelayService, config BatchConfig) *BatchService {
	if config.MaxJourneys <= 0 {
		config.MaxJourneys = 100
	}
	return &BatchService{journeys: journeys, repo: repo, delays: delays, config: config}
}

// RunCycle selects due journeys and checks each one. Per-item failures are
// recorded as UNKNOWN results and counted; they never abort the rest of the
// cycle. Only the initial selection can fail the cycle as a whole.
func (s *BatchService) RunCycle(ctx context.Context) (BatchSummary, error) {
	now := time.Now().UTC()
	windowStart := now.Add(-s.config.WindowBefore)
	windowEnd := now.Add(s.config.WindowAfter)
	checkedBefore := now.Add(-s.config.RecheckInterval)

	due, err := s.repo.ListDue(ctx, windowStart, windowEnd, checkedBefore, s.config.MaxJourneys)
	if err != nil {
		return BatchSummary{}, err
	}

	summary := BatchSummary{Total: len(due)}
	for i := range due {
		journey := &due[i]

		result := s.delays.Detect(ctx, journey.TrainNumber, journey.PlannedDeparture, journey.FromStopPlaceID, domain.SourceAuto)
		result.Operator = journey.Operator

		if err := s.journeys.AttachDelayResult(ctx, journey, &result); err != nil {
			summary.Errors++
		} else {
			summary.Checked++
		}

		switch result.Status {
		case domain.StatusOnTime:
			summary.OnTime++
		case domain.StatusDelayed:
			summary.Delayed++
		case domain.StatusCancelled:
			summary.Cancelled++
		default:
			summary.Unknown++
		}

		if i < len(due)-1 && s.config.Pause > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(s.config.Pause):
			}
		}
	}

	return summary, nil
}
