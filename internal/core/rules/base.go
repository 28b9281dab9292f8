package rules

import (
	"fmt"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// reasonDelayPrefix opens every reason string that restates the measured
// delay. The combiner filters on it to avoid repeating the figure when it
// merges base and override reasons.
const reasonDelayPrefix = "Forsinkelsen er"

func delayReason(minutes int) string {
	return fmt.Sprintf("%s %d minutter.", reasonDelayPrefix, minutes)
}

// EvaluateBase applies the jurisdiction-wide minimum tiers to a delay
// classification. Rules are checked in a fixed order; the first match wins.
func EvaluateBase(in Input, cfg Config) Outcome {
	fm := in.forceMajeure()
	debug := Debug{
		Operator:     in.Operator,
		ForceMajeure: fm,
		DelayMinutes: in.Delay.GoverningDelay(),
	}

	// Rule 1: the delay could not be determined at all.
	if in.Delay.Status == domain.StatusUnknown {
		debug.AppliedRule = "UNKNOWN_DELAY"
		return Outcome{
			Status:          Unknown,
			CompensationPct: 0,
			LegalBasis:      []string{},
			Reasons: []string{
				"Forsinkelsen kunne ikke beregnes.",
				"Vennligst sjekk togets faktiske avgangstid manuelt.",
			},
			Debug: debug,
		}
	}

	// Rule 2: cancelled journey. Always a full refund; see CancelledPct for
	// the policy rationale. Force majeure changes the explanation, not the
	// percentage.
	if in.Delay.Status == domain.StatusCancelled {
		debug.AppliedRule = "CANCELLED_FULL_REFUND"
		second := "En kansellert reise gir alltid rett til full refusjon."
		if fm {
			second = "Force majeure påvirker ikke retten til refusjon for en reise som ikke ble gjennomført."
		}
		return Outcome{
			Status:          Eligible,
			CompensationPct: CancelledPct,
			LegalBasis:      []string{BasisEUCancellation, BasisNOCancellation},
			Reasons: []string{
				"Toget ble innstilt. Du har krav på full refusjon av billettprisen.",
				second,
			},
			Debug: debug,
		}
	}

	// Rule 3: force majeure exempts non-cancelled delays from compensation.
	if fm {
		debug.AppliedRule = "FORCE_MAJEURE"
		return Outcome{
			Status:          NotEligible,
			CompensationPct: 0,
			LegalBasis:      []string{BasisEUForceMajeure},
			Reasons: []string{
				"Forsinkelsen skyldes force majeure (ekstraordinære omstendigheter).",
				"Etter jernbanepassasjer-rettigheter gis det ikke erstatning i slike tilfeller.",
			},
			Debug: debug,
		}
	}

	// Rule 4: governing delay, arrival preferred over departure.
	delayMinutes := in.Delay.GoverningDelay().Or(0)

	// Rule 5: below the minimum threshold.
	if delayMinutes < cfg.MinDelayMinutes {
		debug.AppliedRule = "BELOW_MINIMUM"
		return Outcome{
			Status:          NotEligible,
			CompensationPct: 0,
			LegalBasis:      []string{BasisEUArt19},
			Reasons: []string{
				delayReason(delayMinutes),
				fmt.Sprintf("Minstekravet for erstatning er %d minutter.", cfg.MinDelayMinutes),
			},
			Debug: debug,
		}
	}

	// Rule 6: tier 2 (high delay).
	if delayMinutes >= cfg.Tier2DelayMinutes {
		debug.AppliedRule = "TIER2_HIGH_DELAY"
		return Outcome{
			Status:          Eligible,
			CompensationPct: cfg.Tier2Pct,
			LegalBasis:      []string{BasisEUArt19, BasisNOPassengerRight},
			Reasons: []string{
				delayReason(delayMinutes),
				fmt.Sprintf("Du har krav på %d%% erstatning av billettpris.", cfg.Tier2Pct),
			},
			Debug: debug,
		}
	}

	// Rule 7: tier 1 (moderate delay).
	if delayMinutes >= cfg.Tier1DelayMinutes {
		debug.AppliedRule = "TIER1_MODERATE_DELAY"
		return Outcome{
			Status:          Eligible,
			CompensationPct: cfg.Tier1Pct,
			LegalBasis:      []string{BasisEUArt19, BasisNOPassengerRight},
			Reasons: []string{
				delayReason(delayMinutes),
				fmt.Sprintf("Du har krav på %d%% erstatning av billettpris.", cfg.Tier1Pct),
			},
			Debug: debug,
		}
	}

	// Rule 8: unreachable while MinDelayMinutes <= Tier1DelayMinutes, kept
	// so a misconfigured threshold degrades to "not eligible" instead of
	// panicking.
	debug.AppliedRule = "ON_TIME"
	return Outcome{
		Status:          NotEligible,
		CompensationPct: 0,
		LegalBasis:      []string{},
		Reasons: []string{
			"Toget var i rute eller ankom tidlig.",
			"Ingen forsinkelse registrert.",
		},
		Debug: debug,
	}
}

// Summary renders an outcome as a single user-facing sentence.
func Summary(o Outcome, priceNOK float64) string {
	switch o.Status {
	case Unknown:
		return "Status ukjent - kan ikke evaluere krav."
	case NotEligible:
		return "Ikke berettiget til erstatning. " + joinReasons(o.Reasons)
	case Eligible:
		amount := ""
		if priceNOK > 0 {
			amount = fmt.Sprintf(" (%d kr)", Amount(priceNOK, o.CompensationPct))
		}
		return fmt.Sprintf("Berettiget til %d%% erstatning%s. %s", o.CompensationPct, amount, joinReasons(o.Reasons))
	}
	return "Ukjent status."
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += " "
		}
		out += r
	}
	return out
}
