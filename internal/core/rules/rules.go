// Package rules implements the compensation rule engine: jurisdiction-wide
// base tiers, operator-specific override schemes, and the combiner that
// always selects the outcome most favorable to the passenger.
//
// Every evaluator here is a pure function over its input and config; nothing
// in this package touches storage or the network, which keeps the engine
// safe to call concurrently and trivial to test with alternate configs.
package rules

import (
	"math"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// Eligibility is the claim-level verdict of an evaluation.
type Eligibility string

const (
	Eligible    Eligibility = "ELIGIBLE"
	NotEligible Eligibility = "NOT_ELIGIBLE"
	Unknown     Eligibility = "UNKNOWN"
)

// DistanceBand classifies journey length when known from ticket metadata.
type DistanceBand string

const (
	BandShort  DistanceBand = "SHORT"
	BandMedium DistanceBand = "MEDIUM"
	BandLong   DistanceBand = "LONG"
)

// JourneyClass is the coarse classification operator schemes key on.
type JourneyClass string

const (
	ClassLongDistance JourneyClass = "LONG_DISTANCE"
	ClassOther        JourneyClass = "OTHER"
)

// Input is the consolidated, ephemeral input to one evaluation. It is built
// per call from the domain models and never persisted.
type Input struct {
	Ticket  domain.Ticket
	Journey domain.JourneyInstance
	Delay   domain.DelayResult

	// ForceMajeureOverride, when non-nil, replaces the journey's own
	// force-majeure flag (manual caseworker override).
	ForceMajeureOverride *bool

	Operator     domain.Operator
	LineCode     string
	DistanceBand DistanceBand
}

// NewInput maps the domain models onto an evaluation input, deriving the
// normalized operator and the line-code hint the way the claim flow does.
func NewInput(ticket domain.Ticket, journey domain.JourneyInstance, delay domain.DelayResult, fmOverride *bool) Input {
	operator := ticket.Operator
	if operator == "" {
		operator = journey.Operator
	}

	lineCode := ticket.LineCode
	if lineCode == "" {
		// The public train number often doubles as the line code.
		lineCode = ticket.TrainNumber
	}

	return Input{
		Ticket:               ticket,
		Journey:              journey,
		Delay:                delay,
		ForceMajeureOverride: fmOverride,
		Operator:             domain.NormalizeOperator(operator),
		LineCode:             lineCode,
	}
}

func (in Input) forceMajeure() bool {
	if in.ForceMajeureOverride != nil {
		return *in.ForceMajeureOverride
	}
	return in.Journey.ForceMajeure
}

// Debug is the audit trace attached to every outcome. Claim letters are
// generated from outcomes, so knowing which rule fired is a correctness
// requirement, not a nicety.
type Debug struct {
	AppliedRule  string          `json:"applied_rule"`
	Source       string          `json:"source,omitempty"` // BASE_ONLY, OPERATOR_OVERRIDE_SELECTED, BASE_SELECTED
	DelayMinutes domain.Minutes  `json:"delay_minutes"`
	ForceMajeure bool            `json:"force_majeure"`
	Operator     domain.Operator `json:"operator"`
	JourneyClass JourneyClass    `json:"journey_class,omitempty"`

	// Recorded when both evaluators produced a percentage.
	BasePct            int  `json:"base_pct"`
	OverridePct        int  `json:"override_pct,omitempty"`
	OverrideConsidered bool `json:"override_considered"`
}

// Outcome is the result of one rule evaluation.
type Outcome struct {
	Status          Eligibility `json:"status"`
	CompensationPct int         `json:"compensation_pct"` // 0-100
	LegalBasis      []string    `json:"legal_basis"`
	Reasons         []string    `json:"reasons"` // user-facing, Norwegian
	Debug           Debug       `json:"debug"`
}

// Amount converts a percentage outcome into whole kroner, rounded to the
// nearest krone.
func Amount(priceNOK float64, compensationPct int) int {
	if priceNOK <= 0 || compensationPct <= 0 {
		return 0
	}
	return int(math.Round(priceNOK * float64(compensationPct) / 100))
}
