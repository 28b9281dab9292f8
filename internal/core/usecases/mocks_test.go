package usecases_test

import (
	"context"
	"errors"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// --- Mock RealtimeFeed ---

type mockFeed struct {
	departuresFn     func(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error)
	serviceJourneyFn func(ctx context.Context, serviceJourneyID, serviceDate string) ([]domain.EstimatedCall, error)
	departureCalls   int
}

func (m *mockFeed) Departures(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
	m.departureCalls++
	if m.departuresFn != nil {
		return m.departuresFn(ctx, stopPlaceID, limit)
	}
	return nil, nil
}

func (m *mockFeed) ServiceJourney(ctx context.Context, serviceJourneyID, serviceDate string) ([]domain.EstimatedCall, error) {
	if m.serviceJourneyFn != nil {
		return m.serviceJourneyFn(ctx, serviceJourneyID, serviceDate)
	}
	return nil, nil
}

// --- Mock JourneyRepository ---

type mockJourneyRepo struct {
	findOrCreateFn    func(ctx context.Context, instance *domain.JourneyInstance) (*domain.JourneyInstance, error)
	getByIDFn         func(ctx context.Context, id string) (*domain.JourneyInstance, error)
	getByNaturalKeyFn func(ctx context.Context, key string) (*domain.JourneyInstance, error)
	listDueFn         func(ctx context.Context, windowStart, windowEnd, checkedBefore time.Time, limit int) ([]domain.JourneyInstance, error)
	saveDelayResultFn func(ctx context.Context, id string, result *domain.DelayResult) error
}

func (m *mockJourneyRepo) FindOrCreate(ctx context.Context, instance *domain.JourneyInstance) (*domain.JourneyInstance, error) {
	if m.findOrCreateFn != nil {
		return m.findOrCreateFn(ctx, instance)
	}
	return instance, nil
}

func (m *mockJourneyRepo) GetByID(ctx context.Context, id string) (*domain.JourneyInstance, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockJourneyRepo) GetByNaturalKey(ctx context.Context, key string) (*domain.JourneyInstance, error) {
	if m.getByNaturalKeyFn != nil {
		return m.getByNaturalKeyFn(ctx, key)
	}
	return nil, nil
}

func (m *mockJourneyRepo) ListDue(ctx context.Context, windowStart, windowEnd, checkedBefore time.Time, limit int) ([]domain.JourneyInstance, error) {
	if m.listDueFn != nil {
		return m.listDueFn(ctx, windowStart, windowEnd, checkedBefore, limit)
	}
	return nil, nil
}

func (m *mockJourneyRepo) SaveDelayResult(ctx context.Context, id string, result *domain.DelayResult) error {
	if m.saveDelayResultFn != nil {
		return m.saveDelayResultFn(ctx, id, result)
	}
	return nil
}

// --- Mock StopPlaceRepository ---

type mockStopRepo struct {
	searchFn func(ctx context.Context, name string, limit int) ([]domain.StopPlace, error)
}

func (m *mockStopRepo) Upsert(ctx context.Context, sp *domain.StopPlace) error { return nil }

func (m *mockStopRepo) GetByID(ctx context.Context, id string) (*domain.StopPlace, error) {
	return nil, nil
}

func (m *mockStopRepo) SearchByName(ctx context.Context, name string, limit int) ([]domain.StopPlace, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, name, limit)
	}
	return nil, nil
}

// --- Mock TicketRepository ---

type mockTicketRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Ticket, error)
}

func (m *mockTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error { return nil }

func (m *mockTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTicketRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Ticket, error) {
	return nil, nil
}

func (m *mockTicketRepo) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	delayResults    int
	journeysCreated int
	claimsEvaluated int
}

func (m *mockPublisher) PublishDelayResult(ctx context.Context, journey *domain.JourneyInstance, result *domain.DelayResult) error {
	m.delayResults++
	return nil
}

func (m *mockPublisher) PublishJourneyCreated(ctx context.Context, journey *domain.JourneyInstance) error {
	m.journeysCreated++
	return nil
}

func (m *mockPublisher) PublishClaimEvaluated(ctx context.Context, ticketID string, outcome []byte) error {
	m.claimsEvaluated++
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- helpers ---

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}
