package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

func TestBuildNaturalKey_Normalizes(t *testing.T) {
	a := domain.BuildNaturalKey(" vy ", "r20", "2025-01-15", "NSR:StopPlace:59872", "NSR:StopPlace:320")
	b := domain.BuildNaturalKey("VY", "R20", "2025-01-15", "NSR:StopPlace:59872", "NSR:StopPlace:320")
	if a != b {
		t.Errorf("expected identical keys, got %q and %q", a, b)
	}
	want := "VY:R20:2025-01-15:NSR:StopPlace:59872:NSR:StopPlace:320"
	if a != want {
		t.Errorf("expected %q, got %q", want, a)
	}
}

func TestParseNaturalKey_RoundTrip(t *testing.T) {
	key := domain.BuildNaturalKey("VY", "R20", "2025-01-15", "NSR:StopPlace:59872", "NSR:StopPlace:320")
	nk, err := domain.ParseNaturalKey(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nk.Operator != "VY" || nk.TrainNumber != "R20" || nk.ServiceDate != "2025-01-15" {
		t.Errorf("unexpected components: %+v", nk)
	}
	if nk.FromStopPlaceID != "NSR:StopPlace:59872" {
		t.Errorf("expected from NSR:StopPlace:59872, got %s", nk.FromStopPlaceID)
	}
	if nk.ToStopPlaceID != "NSR:StopPlace:320" {
		t.Errorf("expected to NSR:StopPlace:320, got %s", nk.ToStopPlaceID)
	}
}

func TestParseNaturalKey_Malformed(t *testing.T) {
	if _, err := domain.ParseNaturalKey("VY:R20"); err == nil {
		t.Error("expected error for truncated key")
	}
	if _, err := domain.ParseNaturalKey("VY:R20:2025-01-15:no-stop-ids-here"); err == nil {
		t.Error("expected error for key without stop-place boundary")
	}
}

func TestNormalizeOperator(t *testing.T) {
	cases := map[string]domain.Operator{
		"VY":                domain.OperatorVy,
		"vy":                domain.OperatorVy,
		"NSB":               domain.OperatorVy,
		"Vy Tog AS":         domain.OperatorVy,
		"SJ":                domain.OperatorSJ,
		"SJ Norge AS":       domain.OperatorSJ,
		"Go-Ahead":          domain.OperatorGoAhead,
		"GO AHEAD NORDIC":   domain.OperatorGoAhead,
		"Flytoget":          domain.OperatorOther,
		"":                  domain.OperatorOther,
		"  GO-AHEAD NORGE ": domain.OperatorGoAhead,
	}
	for in, want := range cases {
		if got := domain.NormalizeOperator(in); got != want {
			t.Errorf("NormalizeOperator(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestMinutes_JSON(t *testing.T) {
	b, err := json.Marshal(domain.KnownMinutes(-2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(b) != "-2" {
		t.Errorf("expected -2, got %s", b)
	}

	b, _ = json.Marshal(domain.Minutes{})
	if string(b) != "null" {
		t.Errorf("expected null for unknown measurement, got %s", b)
	}

	var m domain.Minutes
	if err := json.Unmarshal([]byte("null"), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Known {
		t.Error("expected unknown after unmarshalling null")
	}
	if err := json.Unmarshal([]byte("75"), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Known || m.Value != 75 {
		t.Errorf("expected known 75, got %+v", m)
	}
}

func TestDelayResult_GoverningDelay(t *testing.T) {
	r := domain.DelayResult{
		DepartureDelay: domain.KnownMinutes(10),
		ArrivalDelay:   domain.KnownMinutes(20),
	}
	if got := r.GoverningDelay(); got.Value != 20 {
		t.Errorf("expected arrival delay to govern, got %d", got.Value)
	}

	r.ArrivalDelay = domain.Minutes{}
	if got := r.GoverningDelay(); got.Value != 10 {
		t.Errorf("expected departure fallback, got %d", got.Value)
	}

	r.DepartureDelay = domain.Minutes{}
	if got := r.GoverningDelay(); got.Known {
		t.Error("expected unknown governing delay")
	}
}

func TestEstimatedCall_BestTimes(t *testing.T) {
	actual := time.Date(2025, 1, 15, 12, 10, 0, 0, time.UTC)
	expected := time.Date(2025, 1, 15, 12, 5, 0, 0, time.UTC)

	c := domain.EstimatedCall{ExpectedDeparture: &expected}
	if got := c.BestDeparture(); got == nil || !got.Equal(expected) {
		t.Errorf("expected live estimate, got %v", got)
	}

	c.ActualDeparture = &actual
	if got := c.BestDeparture(); got == nil || !got.Equal(actual) {
		t.Errorf("expected actual time to win, got %v", got)
	}

	if got := (domain.EstimatedCall{}).BestArrival(); got != nil {
		t.Errorf("expected nil for unpublished arrival, got %v", got)
	}
}
