package rules

import "github.com/togrefusjon/togrefusjon/internal/core/domain"

// EvaluateOverride applies an operator's own compensation terms when they
// are applicable. A nil return means "no override; defer to the base rules".
//
// Overrides never fire for unknown or cancelled journeys: unknown because
// there is nothing to measure against, cancelled because the refund rule in
// the base evaluator already owns that case.
func EvaluateOverride(in Input, cfg Config) *Outcome {
	if in.Operator == domain.OperatorOther {
		return nil
	}

	if in.Delay.Status == domain.StatusUnknown || in.Delay.Status == domain.StatusCancelled {
		return nil
	}

	scheme, ok := cfg.Schemes[in.Operator]
	if !ok {
		return nil
	}

	class := cfg.Classify(in.LineCode, in.DistanceBand)
	rule := scheme.Rule(class)
	if rule == nil {
		return nil
	}

	delayMinutes := in.Delay.GoverningDelay().Or(0)
	if delayMinutes < rule.MinDelayMinutes {
		// Too short to qualify for the operator's guarantee.
		return nil
	}

	return &Outcome{
		Status:          Eligible,
		CompensationPct: rule.CompensationPct,
		LegalBasis:      []string{BasisEUArt19, scheme.LegalBasis},
		Reasons: []string{
			rule.Description,
			delayReason(delayMinutes),
		},
		Debug: Debug{
			AppliedRule:  "OPERATOR_" + string(in.Operator) + "_" + string(class),
			Source:       "OPERATOR_OVERRIDE",
			DelayMinutes: in.Delay.GoverningDelay(),
			ForceMajeure: in.forceMajeure(),
			Operator:     in.Operator,
			JourneyClass: class,
		},
	}
}
