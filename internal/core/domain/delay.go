package domain

import (
	"encoding/json"
	"time"
)

// DelayStatus classifies the outcome of a single delay check.
type DelayStatus string

const (
	StatusOnTime    DelayStatus = "ON_TIME"
	StatusDelayed   DelayStatus = "DELAYED"
	StatusCancelled DelayStatus = "CANCELLED"
	StatusUnknown   DelayStatus = "UNKNOWN"
)

// CheckSource records whether a delay check was triggered by the periodic
// batch job or by an explicit user/API request.
type CheckSource string

const (
	SourceAuto   CheckSource = "AUTO"
	SourceManual CheckSource = "MANUAL"
)

// Minutes is a delay measurement in whole minutes that may not be known yet.
// The zero value means "not yet known"; negative values mean the train ran
// early. Callers must check Known before using Value.
type Minutes struct {
	Known bool `bson:"known"`
	Value int  `bson:"value"`
}

// KnownMinutes wraps a measured delay figure.
func KnownMinutes(v int) Minutes {
	return Minutes{Known: true, Value: v}
}

// Or returns the measured value, or fallback when the measurement is unknown.
func (m Minutes) Or(fallback int) int {
	if !m.Known {
		return fallback
	}
	return m.Value
}

// MarshalJSON renders a known measurement as a bare number and an unknown
// one as null, matching the wire format of the delay-check API.
func (m Minutes) MarshalJSON() ([]byte, error) {
	if !m.Known {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

func (m *Minutes) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Minutes{}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*m = KnownMinutes(v)
	return nil
}

// EstimatedCall is one departure at a stop place as reported by the
// real-time feed. Times that the feed has not published yet are nil.
type EstimatedCall struct {
	ServiceJourneyID  string     `json:"service_journey_id" bson:"serviceJourneyId,omitempty"`
	LineID            string     `json:"line_id" bson:"lineId,omitempty"`
	LineCode          string     `json:"line_code" bson:"lineCode,omitempty"` // public train number, e.g. "R20"
	Destination       string     `json:"destination,omitempty" bson:"destination,omitempty"`
	QuayID            string     `json:"quay_id,omitempty" bson:"quayId,omitempty"`
	StopPlaceID       string     `json:"stop_place_id,omitempty" bson:"stopPlaceId,omitempty"`
	AimedDeparture    *time.Time `json:"aimed_departure,omitempty" bson:"aimedDeparture,omitempty"`
	ExpectedDeparture *time.Time `json:"expected_departure,omitempty" bson:"expectedDeparture,omitempty"`
	ActualDeparture   *time.Time `json:"actual_departure,omitempty" bson:"actualDeparture,omitempty"`
	AimedArrival      *time.Time `json:"aimed_arrival,omitempty" bson:"aimedArrival,omitempty"`
	ExpectedArrival   *time.Time `json:"expected_arrival,omitempty" bson:"expectedArrival,omitempty"`
	ActualArrival     *time.Time `json:"actual_arrival,omitempty" bson:"actualArrival,omitempty"`
	Cancelled         bool       `json:"cancelled" bson:"cancelled"`
}

// BestDeparture returns the most authoritative departure time known for the
// call: the actual time when recorded, else the live estimate, else nil.
func (c EstimatedCall) BestDeparture() *time.Time {
	if c.ActualDeparture != nil {
		return c.ActualDeparture
	}
	return c.ExpectedDeparture
}

// BestArrival is the arrival-side counterpart of BestDeparture.
func (c EstimatedCall) BestArrival() *time.Time {
	if c.ActualArrival != nil {
		return c.ActualArrival
	}
	return c.ExpectedArrival
}

// DelayResult is the outcome of one point-in-time delay check for a journey
// instance. It overwrites the previous result on the instance; there is no
// history chain here.
type DelayResult struct {
	JourneyInstanceID string `json:"journey_instance_id" bson:"journeyInstanceId,omitempty"`
	TrainNumber       string `json:"train_number" bson:"trainNumber"`
	Operator          string `json:"operator,omitempty" bson:"operator,omitempty"`

	PlannedDeparture *time.Time `json:"planned_departure,omitempty" bson:"plannedDeparture,omitempty"`
	ActualDeparture  *time.Time `json:"actual_departure,omitempty" bson:"actualDeparture,omitempty"`
	PlannedArrival   *time.Time `json:"planned_arrival,omitempty" bson:"plannedArrival,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty" bson:"actualArrival,omitempty"`

	DepartureDelay Minutes `json:"departure_delay_minutes" bson:"departureDelay,omitempty"`
	ArrivalDelay   Minutes `json:"arrival_delay_minutes" bson:"arrivalDelay,omitempty"`

	Status    DelayStatus `json:"status" bson:"status"`
	CheckedAt time.Time   `json:"checked_at" bson:"checkedAt"`
	Source    CheckSource `json:"source" bson:"source"`

	// Match is a trimmed copy of the feed call the check was based on,
	// kept for audit. Nil when no match was found.
	Match *EstimatedCall `json:"match,omitempty" bson:"match,omitempty"`

	Message string `json:"message,omitempty" bson:"message,omitempty"`
}

// GoverningDelay is the figure rule evaluation runs on: arrival delay when
// measured, departure delay as fallback.
func (r DelayResult) GoverningDelay() Minutes {
	if r.ArrivalDelay.Known {
		return r.ArrivalDelay
	}
	return r.DepartureDelay
}
