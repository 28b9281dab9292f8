package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
)

func TestDelayService_Detect_MissingInputs(t *testing.T) {
	svc := usecases.NewDelayService(&mockFeed{}, nil)
	planned := time.Date(2026, 3, 15, 14, 2, 0, 0, time.UTC)

	tests := []struct {
		name    string
		train   string
		stop    string
	}{
		{"missing train number", "", "NSR:StopPlace:59872"},
		{"missing origin stop", "R20", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.Detect(context.Background(), tt.train, planned, tt.stop, domain.SourceManual)
			if result.Status != domain.StatusUnknown {
				t.Errorf("status = %s, want UNKNOWN", result.Status)
			}
			if result.Message == "" {
				t.Error("want an explanatory message")
			}
		})
	}
}

func TestDelayService_Detect_FeedError(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return nil, errors.New("connection refused")
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	result := svc.Detect(context.Background(), "R20", time.Now(), "NSR:StopPlace:59872", domain.SourceAuto)
	if result.Status != domain.StatusUnknown {
		t.Errorf("status = %s, want UNKNOWN on feed failure", result.Status)
	}
}

func TestDelayService_Detect_TrainNotFound(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{LineCode: "L1", AimedDeparture: ts("2026-03-15T14:00:00Z")},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	result := svc.Detect(context.Background(), "R20", time.Now(), "NSR:StopPlace:59872", domain.SourceAuto)
	if result.Status != domain.StatusUnknown {
		t.Errorf("status = %s, want UNKNOWN when the train is not on the board", result.Status)
	}
}

func TestDelayService_Detect_Delayed(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{
					LineCode:          "r20", // case-insensitive match
					AimedDeparture:    ts("2026-03-15T14:02:00Z"),
					ExpectedDeparture: ts("2026-03-15T15:17:00Z"),
				},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	planned := time.Date(2026, 3, 15, 14, 2, 0, 0, time.UTC)
	result := svc.Detect(context.Background(), "R20", planned, "NSR:StopPlace:59872", domain.SourceManual)

	if result.Status != domain.StatusDelayed {
		t.Fatalf("status = %s, want DELAYED", result.Status)
	}
	if got := result.DepartureDelay.Or(-1); got != 75 {
		t.Errorf("departure delay = %d, want 75", got)
	}
	if result.ArrivalDelay.Known {
		t.Error("arrival delay should be unknown without arrival timestamps")
	}
	if result.Match == nil {
		t.Error("matched call should be attached for audit")
	}
}

func TestDelayService_Detect_OnTimeWindow(t *testing.T) {
	planned := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		expected string
		want     domain.DelayStatus
	}{
		{"exactly on time", "2026-03-15T14:00:00Z", domain.StatusOnTime},
		{"one minute late", "2026-03-15T14:01:00Z", domain.StatusOnTime},
		{"two minutes late", "2026-03-15T14:02:00Z", domain.StatusDelayed},
		{"one minute early", "2026-03-15T13:59:00Z", domain.StatusOnTime},
		{"five minutes early is still on time", "2026-03-15T13:55:00Z", domain.StatusOnTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &mockFeed{
				departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
					return []domain.EstimatedCall{
						{
							LineCode:          "R20",
							AimedDeparture:    ts("2026-03-15T14:00:00Z"),
							ExpectedDeparture: ts(tt.expected),
						},
					}, nil
				},
			}
			svc := usecases.NewDelayService(feed, nil)
			result := svc.Detect(context.Background(), "R20", planned, "NSR:StopPlace:59872", domain.SourceAuto)
			if result.Status != tt.want {
				t.Errorf("status = %s, want %s", result.Status, tt.want)
			}
		})
	}
}

func TestDelayService_Detect_Cancelled(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{
					LineCode:       "R20",
					AimedDeparture: ts("2026-03-15T14:00:00Z"),
					Cancelled:      true,
				},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	result := svc.Detect(context.Background(), "R20", time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC), "NSR:StopPlace:59872", domain.SourceAuto)
	if result.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", result.Status)
	}
}

func TestDelayService_Detect_NoRealtimeData(t *testing.T) {
	// Matched, not cancelled, but no expected/actual times at all.
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{LineCode: "R20", AimedDeparture: ts("2026-03-15T14:00:00Z")},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	result := svc.Detect(context.Background(), "R20", time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC), "NSR:StopPlace:59872", domain.SourceAuto)
	if result.Status != domain.StatusUnknown {
		t.Errorf("status = %s, want UNKNOWN without realtime data", result.Status)
	}
}

func TestDelayService_Detect_ClosestDeparturePicked(t *testing.T) {
	// An hourly service: same train number, three departures.
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{LineCode: "R20", AimedDeparture: ts("2026-03-15T13:00:00Z"), ExpectedDeparture: ts("2026-03-15T13:00:00Z")},
				{LineCode: "R20", AimedDeparture: ts("2026-03-15T14:00:00Z"), ExpectedDeparture: ts("2026-03-15T14:45:00Z")},
				{LineCode: "R20", AimedDeparture: ts("2026-03-15T15:00:00Z"), ExpectedDeparture: ts("2026-03-15T15:00:00Z")},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	planned := time.Date(2026, 3, 15, 14, 10, 0, 0, time.UTC)
	result := svc.Detect(context.Background(), "R20", planned, "NSR:StopPlace:59872", domain.SourceAuto)

	if result.Status != domain.StatusDelayed {
		t.Fatalf("status = %s, want DELAYED (the 14:00 departure)", result.Status)
	}
	if got := result.GoverningDelay().Or(-1); got != 45 {
		t.Errorf("governing delay = %d, want 45", got)
	}
}

func TestDelayService_Detect_ArrivalGoverns(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{
					LineCode:          "F6",
					AimedDeparture:    ts("2026-03-15T14:00:00Z"),
					ExpectedDeparture: ts("2026-03-15T14:20:00Z"),
					AimedArrival:      ts("2026-03-15T20:00:00Z"),
					ActualArrival:     ts("2026-03-15T21:10:00Z"),
				},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, nil)

	result := svc.Detect(context.Background(), "F6", time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC), "NSR:StopPlace:59872", domain.SourceAuto)
	if got := result.GoverningDelay().Or(-1); got != 70 {
		t.Errorf("governing delay = %d, want 70 (arrival preferred)", got)
	}
}

func TestDelayService_Detect_DepartureBoardCached(t *testing.T) {
	feed := &mockFeed{
		departuresFn: func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
			return []domain.EstimatedCall{
				{LineCode: "R20", AimedDeparture: ts("2026-03-15T14:00:00Z"), ExpectedDeparture: ts("2026-03-15T14:00:00Z")},
			}, nil
		},
	}
	svc := usecases.NewDelayService(feed, newMockCache())

	planned := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)
	svc.Detect(context.Background(), "R20", planned, "NSR:StopPlace:59872", domain.SourceAuto)
	svc.Detect(context.Background(), "R20", planned, "NSR:StopPlace:59872", domain.SourceAuto)

	if feed.departureCalls != 1 {
		t.Errorf("feed hit %d times, want 1 (second check served from cache)", feed.departureCalls)
	}
}
