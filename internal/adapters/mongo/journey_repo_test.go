package mongo

import (
	"testing"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// The document store rejects explicit nulls, so every absent field must be
// left out of the document entirely.
func TestDelayResultDoc_OmitsAbsentFields(t *testing.T) {
	result := &domain.DelayResult{
		JourneyInstanceID: "j-1",
		TrainNumber:       "R20",
		Status:            domain.StatusUnknown,
		CheckedAt:         time.Now().UTC(),
		Source:            domain.SourceAuto,
		Message:           "Ingen sanntidsdata.",
	}

	doc := delayResultDoc(result)

	for _, absent := range []string{
		"operator",
		"plannedDeparture", "actualDeparture",
		"plannedArrival", "actualArrival",
		"departureDelay", "arrivalDelay",
		"match",
	} {
		if _, ok := doc[absent]; ok {
			t.Errorf("field %q present in document, want omitted", absent)
		}
	}

	for _, present := range []string{"journeyInstanceId", "trainNumber", "status", "checkedAt", "source", "message"} {
		if _, ok := doc[present]; !ok {
			t.Errorf("field %q missing from document", present)
		}
	}
}

func TestDelayResultDoc_KnownDelaysIncluded(t *testing.T) {
	now := time.Now().UTC()
	result := &domain.DelayResult{
		JourneyInstanceID: "j-1",
		TrainNumber:       "R20",
		Status:            domain.StatusDelayed,
		CheckedAt:         now,
		Source:            domain.SourceManual,
		ActualDeparture:   &now,
		DepartureDelay:    domain.KnownMinutes(75),
		ArrivalDelay:      domain.KnownMinutes(-2),
		Match:             &domain.EstimatedCall{LineCode: "R20"},
	}

	doc := delayResultDoc(result)

	if _, ok := doc["departureDelay"]; !ok {
		t.Error("departureDelay missing")
	}
	if _, ok := doc["arrivalDelay"]; !ok {
		t.Error("arrivalDelay missing (negative delays are still known)")
	}
	if _, ok := doc["match"]; !ok {
		t.Error("match missing")
	}
	if _, ok := doc["actualDeparture"]; !ok {
		t.Error("actualDeparture missing")
	}
}
