package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketSource records how a ticket entered the system.
type TicketSource string

const (
	TicketSourceQR     TicketSource = "qr"
	TicketSourceManual TicketSource = "manual"
	TicketSourceEmail  TicketSource = "email"
)

// TicketStatus is the ticket's lifecycle state.
type TicketStatus string

const (
	TicketImported  TicketStatus = "imported"
	TicketValidated TicketStatus = "validated"
	TicketTracked   TicketStatus = "tracked"
)

// Ticket is a passenger's purchased journey record.
type Ticket struct {
	ID     string `json:"id" bson:"_id,omitempty"`
	UserID string `json:"user_id" bson:"userId"`

	ServiceDate   string `json:"service_date" bson:"serviceDate"`     // YYYY-MM-DD
	DepartureTime string `json:"departure_time" bson:"departureTime"` // HH:MM, local
	TrainNumber   string `json:"train_number" bson:"trainNumber"`
	Operator      string `json:"operator" bson:"operator"`
	FromStation   string `json:"from_station" bson:"fromStation"`
	ToStation     string `json:"to_station" bson:"toStation"`

	// NSR stop-place IDs when already resolved (QR tickets carry them,
	// manual tickets usually do not).
	FromStopPlaceID string `json:"from_stop_place_id,omitempty" bson:"fromStopPlaceId,omitempty"`
	ToStopPlaceID   string `json:"to_stop_place_id,omitempty" bson:"toStopPlaceId,omitempty"`

	// LineCode identifies the line when known (e.g. "F6"); used for
	// long-distance classification in operator overrides.
	LineCode string `json:"line_code,omitempty" bson:"lineCode,omitempty"`

	PriceNOK float64 `json:"price_nok" bson:"priceNOK"`
	Currency string  `json:"currency" bson:"currency"`

	Source TicketSource `json:"source" bson:"source"`
	Status TicketStatus `json:"status" bson:"status"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// CauseClassification is the classified root cause of a delay/cancellation.
type CauseClassification string

const (
	CauseNormalTechnical CauseClassification = "NORMAL_TECHNICAL"
	CauseWeatherExtreme  CauseClassification = "WEATHER_EXTREME"
	CauseThirdParty      CauseClassification = "THIRD_PARTY"
	CauseStrike          CauseClassification = "STRIKE"
	CauseUnknown         CauseClassification = "UNKNOWN"
)

// MatchingQuality grades how the journey's origin/destination were matched
// against the feed when the instance was created.
//
//	EXACT    - both stops matched by NSR stop-place ID
//	PARTIAL  - at least one stop matched by name
//	FALLBACK - first/last call of the service journey used as a stand-in
type MatchingQuality string

const (
	MatchExact    MatchingQuality = "EXACT"
	MatchPartial  MatchingQuality = "PARTIAL"
	MatchFallback MatchingQuality = "FALLBACK"
)

// JourneyInstance is the canonical record of one physical train run. Many
// tickets and claims may reference the same instance; the delay evidence on
// it is gathered once and shared.
type JourneyInstance struct {
	ID string `json:"id" bson:"_id,omitempty"`

	// Natural key components.
	Operator        string `json:"operator" bson:"operator"`
	TrainNumber     string `json:"train_number" bson:"trainNumber"`
	ServiceDate     string `json:"service_date" bson:"serviceDate"`
	FromStopPlaceID string `json:"from_stop_place_id" bson:"fromStopPlaceId"`
	ToStopPlaceID   string `json:"to_stop_place_id" bson:"toStopPlaceId"`
	NaturalKey      string `json:"natural_key" bson:"naturalKey"`

	// Feed references.
	ServiceJourneyID string `json:"service_journey_id,omitempty" bson:"serviceJourneyId,omitempty"`
	LineID           string `json:"line_id,omitempty" bson:"lineId,omitempty"`

	PlannedDeparture time.Time  `json:"planned_departure" bson:"plannedDepartureUTC"`
	PlannedArrival   time.Time  `json:"planned_arrival" bson:"plannedArrivalUTC"`
	ActualDeparture  *time.Time `json:"actual_departure,omitempty" bson:"actualDepartureUTC,omitempty"`
	ActualArrival    *time.Time `json:"actual_arrival,omitempty" bson:"actualArrivalUTC,omitempty"`
	ExpectedArrival  *time.Time `json:"expected_arrival,omitempty" bson:"expectedArrivalUTC,omitempty"`

	Cancelled    bool    `json:"cancelled" bson:"isCancelled"`
	ArrivalDelay Minutes `json:"arrival_delay_minutes" bson:"arrivalDelay"`

	ClassifiedCause CauseClassification `json:"classified_cause" bson:"classifiedCause"`
	ForceMajeure    bool                `json:"force_majeure" bson:"forceMajeureFlag"`

	RuleVersion     string          `json:"rule_version" bson:"ruleVersion"`
	EvidenceSummary string          `json:"evidence_summary,omitempty" bson:"evidenceSummary,omitempty"`
	MatchingQuality MatchingQuality `json:"matching_quality,omitempty" bson:"matchingQuality,omitempty"`

	LastDelayResult  *DelayResult `json:"last_delay_result,omitempty" bson:"lastDelayResult,omitempty"`
	LastDelayCheckAt *time.Time   `json:"last_delay_check_at,omitempty" bson:"lastDelayCheckAt,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// NaturalKey identifies a physical journey deterministically.
type NaturalKey struct {
	Operator        string
	TrainNumber     string
	ServiceDate     string
	FromStopPlaceID string
	ToStopPlaceID   string
}

// BuildNaturalKey derives the deduplication key for a physical journey.
// Operator and train number are normalized so that "vy"/"Vy"/"VY" and
// "r20"/"R20" land on the same instance.
func BuildNaturalKey(operator, trainNumber, serviceDate, fromStopPlaceID, toStopPlaceID string) string {
	op := strings.ToUpper(strings.TrimSpace(operator))
	tn := strings.ToUpper(strings.TrimSpace(trainNumber))
	return strings.Join([]string{op, tn, serviceDate, fromStopPlaceID, toStopPlaceID}, ":")
}

// ParseNaturalKey splits a natural key back into components. Stop-place IDs
// themselves contain colons ("NSR:StopPlace:59872"), so the key cannot be
// split naively; the first three segments are fixed and the remainder is
// split on the known "NSR:" boundary.
func ParseNaturalKey(key string) (NaturalKey, error) {
	parts := strings.SplitN(key, ":", 4)
	if len(parts) != 4 {
		return NaturalKey{}, fmt.Errorf("malformed natural key %q", key)
	}

	rest := parts[3]
	// Two stop-place IDs joined by ':'. Find the boundary at ":NSR:".
	idx := strings.Index(rest, ":NSR:")
	if idx < 0 {
		return NaturalKey{}, fmt.Errorf("malformed natural key %q: missing stop-place boundary", key)
	}

	return NaturalKey{
		Operator:        parts[0],
		TrainNumber:     parts[1],
		ServiceDate:     parts[2],
		FromStopPlaceID: rest[:idx],
		ToStopPlaceID:   rest[idx+1:],
	}, nil
}

// StopPlace is one entry in the stop-place registry mapping station names to
// NSR IDs.
type StopPlace struct {
	ID   string `json:"id"`   // NSR stop-place ID, e.g. "NSR:StopPlace:59872"
	Name string `json:"name"` // display name, e.g. "Oslo S"
}
