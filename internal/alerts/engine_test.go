package alerts

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/config"
	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(config.DefaultEngineConfig())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func severities(alerts []domain.Alert) map[domain.AlertSeverity]int {
	out := make(map[domain.AlertSeverity]int)
	for _, a := range alerts {
		out[a.Severity]++
	}
	return out
}

func hasAlert(alerts []domain.Alert, id string) bool {
	for _, a := range alerts {
		if a.ID == id {
			return true
		}
	}
	return false
}

func TestNewEngine(t *testing.T) {
	t.Run("CompilesDefaultGuards", func(t *testing.T) {
		engine := newTestEngine(t)
		if engine.GuardCount() == 0 {
			t.Error("expected compiled guard rules from the default configuration")
		}
	})

	t.Run("BadGuardExpression", func(t *testing.T) {
		cfg := config.DefaultEngineConfig()
		market := cfg.Markets[domain.MarketUS]
		market.GuardRules = append(market.GuardRules, domain.GuardRule{
			ID:         "broken",
			Expression: "features.x ==",
			Severity:   domain.SeverityInfo,
		})
		cfg.Markets[domain.MarketUS] = market

		_, err := NewEngine(cfg)
		if err == nil {
			t.Error("expected error for unparseable guard expression")
		}
	})

	t.Run("NonBoolGuardExpression", func(t *testing.T) {
		cfg := config.DefaultEngineConfig()
		market := cfg.Markets[domain.MarketUS]
		market.GuardRules = append(market.GuardRules, domain.GuardRule{
			ID:         "not-a-predicate",
			Expression: `features.monthly_dispute_rate`,
			Severity:   domain.SeverityInfo,
		})
		cfg.Markets[domain.MarketUS] = market

		_, err := NewEngine(cfg)
		if err == nil {
			t.Error("expected error for non-boolean guard expression")
		}
	})
}

func TestThresholdRules(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("CleanVectorNoAlerts", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.002),
			domain.FeatureChargebackRate:   domain.NumberValue(0.003),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if len(alerts) != 0 {
			t.Errorf("expected no alerts for clean vector, got %v", alerts)
		}
	})

	t.Run("InclusiveGTEBoundary", func(t *testing.T) {
		// Exactly at the US early-warning level fires the warning only
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.0065),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		counts := severities(alerts)

		if counts[domain.SeverityWarning] != 1 {
			t.Errorf("expected 1 warning at the inclusive boundary, got %v", alerts)
		}
		if counts[domain.SeverityCritical] != 0 {
			t.Errorf("expected no critical at 0.0065, got %v", alerts)
		}
	})

	t.Run("OverlappingRulesAllFire", func(t *testing.T) {
		// Past the breach level both dispute rules fire independently
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.012),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)

		if !hasAlert(alerts, "us-dispute-early-warning") || !hasAlert(alerts, "us-dispute-breach") {
			t.Errorf("expected both overlapping dispute rules to fire, got %v", alerts)
		}
	})

	t.Run("InclusiveLTEBoundary", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureAuthorizationRate: domain.NumberValue(0.88),
		}

		alerts := engine.Evaluate(domain.MarketEUSCA, fv)

		// 0.88 is at both the warning (0.92) and critical (0.88) floors
		if !hasAlert(alerts, "sca-auth-rate-warning") || !hasAlert(alerts, "sca-auth-rate-critical") {
			t.Errorf("expected both SCA rate rules at the inclusive floor, got %v", alerts)
		}
	})

	t.Run("MissingFeatureDoesNotFire", func(t *testing.T) {
		// No dispute rate: unknown is not breached
		fv := domain.FeatureVector{
			domain.FeatureIndustry: domain.EnumValue("saas"),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if len(alerts) != 0 {
			t.Errorf("expected no alerts for absent features, got %v", alerts)
		}
	})

	t.Run("NullFeatureDoesNotFire", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate: domain.NullValue(),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if len(alerts) != 0 {
			t.Errorf("expected no alerts for null feature, got %v", alerts)
		}
	})

	t.Run("AlertCarriesValueAndThreshold", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.008),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %v", alerts)
		}

		a := alerts[0]
		if a.Value != 0.008 {
			t.Errorf("expected value 0.008, got %v", a.Value)
		}
		if a.Threshold != 0.0065 {
			t.Errorf("expected threshold 0.0065, got %v", a.Threshold)
		}
		if a.Market != domain.MarketUS {
			t.Errorf("expected market US, got %s", a.Market)
		}
		if a.Message == "" || a.Action == "" {
			t.Error("expected message and action on the alert")
		}
	})

	t.Run("UnknownMarketUsesDefaultRules", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate: domain.NumberValue(0.009),
		}

		alerts := engine.Evaluate("MARS", fv)
		if !hasAlert(alerts, "other-dispute-elevated") {
			t.Errorf("expected fallback market rule to fire, got %v", alerts)
		}
	})
}

func TestGuardRules(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("GuardFires", func(t *testing.T) {
		// Elevated disputes with no documented procedure
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.007),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureNone),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if !hasAlert(alerts, "us-no-dispute-procedure") {
			t.Errorf("expected guard rule to fire, got %v", alerts)
		}
	})

	t.Run("GuardStaysQuiet", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.007),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if hasAlert(alerts, "us-no-dispute-procedure") {
			t.Errorf("expected guard rule to stay quiet with a documented procedure, got %v", alerts)
		}
	})

	t.Run("MissingFeatureSilencesGuard", func(t *testing.T) {
		// The guard references dispute_procedure_level; with it absent the
		// expression errors out and the rule does not fire
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate: domain.NumberValue(0.007),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		if hasAlert(alerts, "us-no-dispute-procedure") {
			t.Errorf("expected guard rule silent on missing feature, got %v", alerts)
		}
	})

	t.Run("GuardAlertHasNoValue", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.007),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureNone),
		}

		alerts := engine.Evaluate(domain.MarketUS, fv)
		for _, a := range alerts {
			if a.ID == "us-no-dispute-procedure" {
				if a.Value != 0 || a.Threshold != 0 {
					t.Errorf("expected guard alert without value/threshold, got %+v", a)
				}
			}
		}
	})
}

func TestEvaluateAll(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("PerMarketIndependence", func(t *testing.T) {
		// Bad for PIX (breach at 0.006), merely warned for US
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.007),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.EvaluateAll([]domain.MarketCode{domain.MarketUS, domain.MarketBRPIX}, fv)

		if !hasAlert(alerts, "pix-med-breach") {
			t.Errorf("expected PIX breach alert at 0.7%%, got %v", alerts)
		}
		if hasAlert(alerts, "us-dispute-breach") {
			t.Errorf("expected no US breach alert at 0.7%%, got %v", alerts)
		}
		if !hasAlert(alerts, "us-dispute-early-warning") {
			t.Errorf("expected US early warning at 0.7%%, got %v", alerts)
		}
	})

	t.Run("EmptyMarketsEvaluatesAll", func(t *testing.T) {
		fv := domain.FeatureVector{
			domain.FeatureDisputeRate:      domain.NumberValue(0.02),
			domain.FeatureDisputeProcedure: domain.EnumValue(domain.ProcedureDocumented),
		}

		alerts := engine.EvaluateAll(nil, fv)

		marketsSeen := make(map[domain.MarketCode]bool)
		for _, a := range alerts {
			marketsSeen[a.Market] = true
		}
		if len(marketsSeen) < 3 {
			t.Errorf("expected alerts across configured markets, got %v", marketsSeen)
		}
	})
}
