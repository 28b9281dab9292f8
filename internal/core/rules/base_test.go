package rules_test

import (
	"testing"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
)

func delayed(arrivalMinutes int) domain.DelayResult {
	return domain.DelayResult{
		Status:       domain.StatusDelayed,
		ArrivalDelay: domain.Minutes{Known: true, Value: arrivalMinutes},
	}
}

func baseInput(delay domain.DelayResult) rules.Input {
	return rules.NewInput(
		domain.Ticket{TrainNumber: "R10", Operator: "VY", PriceNOK: 500},
		domain.JourneyInstance{Operator: "VY"},
		delay,
		nil,
	)
}

func TestEvaluateBaseTiers(t *testing.T) {
	cfg := rules.DefaultConfig()

	tests := []struct {
		name       string
		delay      domain.DelayResult
		wantStatus rules.Eligibility
		wantPct    int
		wantRule   string
	}{
		{
			name:       "on time",
			delay:      domain.DelayResult{Status: domain.StatusOnTime, ArrivalDelay: domain.Minutes{Known: true, Value: 0}},
			wantStatus: rules.NotEligible,
			wantPct:    0,
			wantRule:   "BELOW_MINIMUM",
		},
		{
			name:       "just under threshold",
			delay:      delayed(59),
			wantStatus: rules.NotEligible,
			wantPct:    0,
			wantRule:   "BELOW_MINIMUM",
		},
		{
			name:       "at tier 1 threshold",
			delay:      delayed(60),
			wantStatus: rules.Eligible,
			wantPct:    25,
			wantRule:   "TIER1_MODERATE_DELAY",
		},
		{
			name:       "between tiers",
			delay:      delayed(119),
			wantStatus: rules.Eligible,
			wantPct:    25,
			wantRule:   "TIER1_MODERATE_DELAY",
		},
		{
			name:       "at tier 2 threshold",
			delay:      delayed(120),
			wantStatus: rules.Eligible,
			wantPct:    50,
			wantRule:   "TIER2_HIGH_DELAY",
		},
		{
			name:       "far beyond tier 2",
			delay:      delayed(240),
			wantStatus: rules.Eligible,
			wantPct:    50,
			wantRule:   "TIER2_HIGH_DELAY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.EvaluateBase(baseInput(tt.delay), cfg)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.CompensationPct != tt.wantPct {
				t.Errorf("pct = %d, want %d", got.CompensationPct, tt.wantPct)
			}
			if got.Debug.AppliedRule != tt.wantRule {
				t.Errorf("applied rule = %s, want %s", got.Debug.AppliedRule, tt.wantRule)
			}
		})
	}
}

func TestEvaluateBaseUnknownDelay(t *testing.T) {
	cfg := rules.DefaultConfig()
	got := rules.EvaluateBase(baseInput(domain.DelayResult{Status: domain.StatusUnknown}), cfg)

	if got.Status != rules.Unknown {
		t.Fatalf("status = %s, want UNKNOWN", got.Status)
	}
	if got.CompensationPct != 0 {
		t.Errorf("pct = %d, want 0", got.CompensationPct)
	}
	if len(got.LegalBasis) != 0 {
		t.Errorf("legal basis = %v, want empty", got.LegalBasis)
	}
	if got.Debug.AppliedRule != "UNKNOWN_DELAY" {
		t.Errorf("applied rule = %s", got.Debug.AppliedRule)
	}
}

func TestEvaluateBaseCancelled(t *testing.T) {
	cfg := rules.DefaultConfig()

	t.Run("ordinary cancellation", func(t *testing.T) {
		got := rules.EvaluateBase(baseInput(domain.DelayResult{Status: domain.StatusCancelled}), cfg)
		if got.Status != rules.Eligible || got.CompensationPct != 100 {
			t.Fatalf("got %s %d%%, want ELIGIBLE 100%%", got.Status, got.CompensationPct)
		}
		if got.Debug.AppliedRule != "CANCELLED_FULL_REFUND" {
			t.Errorf("applied rule = %s", got.Debug.AppliedRule)
		}
	})

	t.Run("cancellation beats force majeure", func(t *testing.T) {
		in := baseInput(domain.DelayResult{Status: domain.StatusCancelled})
		in.Journey.ForceMajeure = true
		got := rules.EvaluateBase(in, cfg)
		if got.Status != rules.Eligible || got.CompensationPct != 100 {
			t.Fatalf("got %s %d%%, want ELIGIBLE 100%% even under force majeure", got.Status, got.CompensationPct)
		}
	})
}

func TestEvaluateBaseForceMajeure(t *testing.T) {
	cfg := rules.DefaultConfig()

	in := baseInput(delayed(180))
	in.Journey.ForceMajeure = true
	got := rules.EvaluateBase(in, cfg)

	if got.Status != rules.NotEligible {
		t.Fatalf("status = %s, want NOT_ELIGIBLE", got.Status)
	}
	if got.Debug.AppliedRule != "FORCE_MAJEURE" {
		t.Errorf("applied rule = %s", got.Debug.AppliedRule)
	}
	if len(got.LegalBasis) != 1 || got.LegalBasis[0] != rules.BasisEUForceMajeure {
		t.Errorf("legal basis = %v", got.LegalBasis)
	}
}

func TestEvaluateBaseForceMajeureOverrideFlag(t *testing.T) {
	cfg := rules.DefaultConfig()

	// The journey says force majeure but a caseworker has overruled it.
	override := false
	in := rules.NewInput(
		domain.Ticket{TrainNumber: "R10", Operator: "VY"},
		domain.JourneyInstance{Operator: "VY", ForceMajeure: true},
		delayed(90),
		&override,
	)
	got := rules.EvaluateBase(in, cfg)
	if got.Status != rules.Eligible {
		t.Fatalf("status = %s, want ELIGIBLE when override clears force majeure", got.Status)
	}
}

func TestEvaluateBaseArrivalPreferredOverDeparture(t *testing.T) {
	cfg := rules.DefaultConfig()

	in := baseInput(domain.DelayResult{
		Status:         domain.StatusDelayed,
		DepartureDelay: domain.Minutes{Known: true, Value: 200},
		ArrivalDelay:   domain.Minutes{Known: true, Value: 65},
	})
	got := rules.EvaluateBase(in, cfg)
	if got.CompensationPct != 25 {
		t.Errorf("pct = %d, want 25 (arrival delay governs)", got.CompensationPct)
	}
}

func TestEvaluateBaseMonotonic(t *testing.T) {
	cfg := rules.DefaultConfig()

	prev := -1
	for minutes := 0; minutes <= 300; minutes += 5 {
		got := rules.EvaluateBase(baseInput(delayed(minutes)), cfg)
		if got.CompensationPct < prev {
			t.Fatalf("compensation decreased: %d minutes -> %d%%, previous %d%%", minutes, got.CompensationPct, prev)
		}
		wantEligible := minutes >= cfg.MinDelayMinutes
		if (got.Status == rules.Eligible) != wantEligible {
			t.Fatalf("%d minutes: eligible = %v, want %v", minutes, got.Status == rules.Eligible, wantEligible)
		}
		prev = got.CompensationPct
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		price float64
		pct   int
		want  int
	}{
		{500, 50, 250},
		{500, 25, 125},
		{349, 25, 87},  // 87.25 rounds down
		{350, 25, 88},  // 87.5 rounds up
		{0, 50, 0},
		{-10, 50, 0},
		{500, 0, 0},
	}
	for _, tt := range tests {
		if got := rules.Amount(tt.price, tt.pct); got != tt.want {
			t.Errorf("Amount(%v, %d) = %d, want %d", tt.price, tt.pct, got, tt.want)
		}
	}
}
