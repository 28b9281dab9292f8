package rules_test

import (
	"strings"
	"testing"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
)

func TestEvaluateOverrideWins(t *testing.T) {
	cfg := rules.DefaultConfig()

	// 35 min on a Vy regional train: base says 0%, Vy's guarantee says 50%.
	got := rules.Evaluate(overrideInput("VY", "R10", delayed(35)), cfg)

	if got.Status != rules.Eligible {
		t.Fatalf("status = %s, want ELIGIBLE", got.Status)
	}
	if got.CompensationPct != 50 {
		t.Errorf("pct = %d, want 50", got.CompensationPct)
	}
	if got.Debug.Source != "OPERATOR_OVERRIDE_SELECTED" {
		t.Errorf("source = %s, want OPERATOR_OVERRIDE_SELECTED", got.Debug.Source)
	}
	if !got.Debug.OverrideConsidered {
		t.Error("override considered flag not set")
	}
	if got.Debug.BasePct != 0 || got.Debug.OverridePct != 50 {
		t.Errorf("debug pcts = %d/%d, want 0/50", got.Debug.BasePct, got.Debug.OverridePct)
	}
}

func TestEvaluateBaseOnly(t *testing.T) {
	cfg := rules.DefaultConfig()

	got := rules.Evaluate(overrideInput("FLYTOGET", "R10", delayed(45)), cfg)
	if got.Status != rules.NotEligible || got.CompensationPct != 0 {
		t.Fatalf("got %s %d%%, want NOT_ELIGIBLE 0%%", got.Status, got.CompensationPct)
	}
	if got.Debug.Source != "BASE_ONLY" {
		t.Errorf("source = %s, want BASE_ONLY", got.Debug.Source)
	}
	if got.Debug.OverrideConsidered {
		t.Error("no override should have been considered for an unknown operator")
	}
}

func TestEvaluateBaseSelected(t *testing.T) {
	cfg := rules.DefaultConfig()
	// Shrink the Vy scheme so the base tier beats it.
	scheme := cfg.Schemes[domain.OperatorVy]
	scheme.Other = &rules.SchemeRule{MinDelayMinutes: 30, CompensationPct: 20, Description: "Vys reisegaranti."}
	cfg.Schemes[domain.OperatorVy] = scheme

	in := overrideInput("VY", "R10", delayed(150))
	got := rules.Evaluate(in, cfg)
	if got.CompensationPct != 50 {
		t.Fatalf("pct = %d, want 50 (base tier 2 beats 20%% override)", got.CompensationPct)
	}
	if got.Debug.Source != "BASE_SELECTED" {
		t.Errorf("source = %s, want BASE_SELECTED", got.Debug.Source)
	}
	if !got.Debug.OverrideConsidered {
		t.Error("override considered flag not set")
	}

	// A claim decided on the statutory rules cites those alone; the losing
	// operator scheme must not show up in the basis list.
	base := rules.EvaluateBase(in, cfg)
	if len(got.LegalBasis) != len(base.LegalBasis) {
		t.Fatalf("legal basis = %v, want base evaluator's %v", got.LegalBasis, base.LegalBasis)
	}
	for i, b := range base.LegalBasis {
		if got.LegalBasis[i] != b {
			t.Fatalf("legal basis = %v, want base evaluator's %v", got.LegalBasis, base.LegalBasis)
		}
	}
	for _, b := range got.LegalBasis {
		if b == "VY_reisevilkar_prisavslag" {
			t.Errorf("rejected override basis %q leaked into a base-decided outcome", b)
		}
	}
}

func TestEvaluateMaxGuarantee(t *testing.T) {
	cfg := rules.DefaultConfig()

	for minutes := 0; minutes <= 300; minutes += 5 {
		in := overrideInput("VY", "R10", delayed(minutes))
		base := rules.EvaluateBase(in, cfg)
		override := rules.EvaluateOverride(in, cfg)
		combined := rules.Evaluate(in, cfg)

		want := base.CompensationPct
		if override != nil && override.CompensationPct > want {
			want = override.CompensationPct
		}
		if combined.CompensationPct != want {
			t.Fatalf("%d minutes: combined pct = %d, want max %d", minutes, combined.CompensationPct, want)
		}
	}
}

func TestEvaluateLegalBasisUnion(t *testing.T) {
	cfg := rules.DefaultConfig()

	// 90 min on a Vy regional: base gives 25% with art19 basis, override 50%.
	got := rules.Evaluate(overrideInput("VY", "R10", delayed(90)), cfg)

	seen := map[string]int{}
	for _, b := range got.LegalBasis {
		seen[b]++
	}
	for b, n := range seen {
		if n > 1 {
			t.Errorf("legal basis %q appears %d times", b, n)
		}
	}
	if seen[rules.BasisEUArt19] == 0 {
		t.Error("missing general regulation basis")
	}
	if seen["VY_reisevilkar_prisavslag"] == 0 {
		t.Error("missing operator terms basis")
	}
	// Base entries come first.
	if got.LegalBasis[0] != rules.BasisEUArt19 {
		t.Errorf("first basis = %s, want %s", got.LegalBasis[0], rules.BasisEUArt19)
	}
}

func TestEvaluateReasonMergeDedupesDelayStatement(t *testing.T) {
	cfg := rules.DefaultConfig()

	got := rules.Evaluate(overrideInput("VY", "R10", delayed(90)), cfg)

	count := 0
	for _, r := range got.Reasons {
		if strings.Contains(r, "Forsinkelsen er") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("delay statement appears %d times in reasons %v, want 1", count, got.Reasons)
	}
	// The winning override's guarantee description leads.
	if !strings.Contains(got.Reasons[0], "reisegaranti") {
		t.Errorf("first reason = %q, want the operator guarantee", got.Reasons[0])
	}
}

func TestEvaluateUnknownStatus(t *testing.T) {
	cfg := rules.DefaultConfig()

	got := rules.Evaluate(overrideInput("VY", "R10", domain.DelayResult{Status: domain.StatusUnknown}), cfg)
	if got.Status != rules.Unknown {
		t.Fatalf("status = %s, want UNKNOWN", got.Status)
	}
	if got.CompensationPct != 0 {
		t.Errorf("pct = %d, want 0", got.CompensationPct)
	}
	if len(got.LegalBasis) != 0 {
		t.Errorf("legal basis = %v, want empty", got.LegalBasis)
	}
	if got.Debug.Source != "BASE_ONLY" {
		t.Errorf("source = %s, want BASE_ONLY", got.Debug.Source)
	}
}

func TestEvaluateScenarioAmounts(t *testing.T) {
	cfg := rules.DefaultConfig()

	tests := []struct {
		name       string
		operator   string
		minutes    int
		price      float64
		wantPct    int
		wantAmount int
	}{
		{"75 min moderate delay", "FLYTOGET", 75, 1000, 25, 250},
		{"150 min high delay", "FLYTOGET", 150, 1200, 50, 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Evaluate(overrideInput(tt.operator, "R10", delayed(tt.minutes)), cfg)
			if got.CompensationPct != tt.wantPct {
				t.Fatalf("pct = %d, want %d", got.CompensationPct, tt.wantPct)
			}
			if amount := rules.Amount(tt.price, got.CompensationPct); amount != tt.wantAmount {
				t.Errorf("amount = %d, want %d", amount, tt.wantAmount)
			}
		})
	}
}
