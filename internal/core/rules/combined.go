package rules

import "strings"

// Evaluate runs the base rules and any operator override and combines them.
// The passenger is always given the better of the two percentages; an
// override can only improve on the statutory minimum, never reduce it.
func Evaluate(in Input, cfg Config) Outcome {
	base := EvaluateBase(in, cfg)
	override := EvaluateOverride(in, cfg)

	if override == nil {
		base.Debug.Source = "BASE_ONLY"
		return base
	}

	base.Debug.BasePct = base.CompensationPct
	base.Debug.OverridePct = override.CompensationPct
	base.Debug.OverrideConsidered = true
	override.Debug.BasePct = base.CompensationPct
	override.Debug.OverridePct = override.CompensationPct
	override.Debug.OverrideConsidered = true

	if override.CompensationPct > base.CompensationPct {
		out := *override
		out.Status = Eligible
		out.LegalBasis = unionBasis(base.LegalBasis, override.LegalBasis)
		out.Reasons = mergeReasons(override.Reasons, base.Reasons)
		out.Debug.Source = "OPERATOR_OVERRIDE_SELECTED"
		return out
	}

	// The rejected override must not leak into the citations: a claim
	// decided on the statutory rules cites those alone.
	base.Debug.Source = "BASE_SELECTED"
	return base
}

// unionBasis concatenates the two basis lists, base entries first, dropping
// duplicates while preserving first-seen order.
func unionBasis(base, override []string) []string {
	seen := make(map[string]bool, len(base)+len(override))
	out := make([]string, 0, len(base)+len(override))
	for _, b := range base {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	for _, b := range override {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// mergeReasons puts the winning override's reasons first, then the base
// reasons minus the generic delay statement the override already carries.
func mergeReasons(winner, base []string) []string {
	out := make([]string, 0, len(winner)+len(base))
	out = append(out, winner...)
	for _, r := range base {
		if strings.Contains(r, reasonDelayPrefix) {
			continue
		}
		out = append(out, r)
	}
	return out
}
