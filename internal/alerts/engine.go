// Package alerts evaluates market-specific threshold rules over a feature
// vector and emits graded alerts.
package alerts

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine evaluates a market's ordered threshold rules plus its optional CEL
// guard rules. Rules are independent: overlapping thresholds may all fire.
// The engine is read-only after construction and safe for concurrent use.
type Engine struct {
	cfg    *domain.EngineConfig
	env    *cel.Env
	guards map[domain.MarketCode][]compiledGuard
}

type compiledGuard struct {
	rule    domain.GuardRule
	program cel.Program
}

// NewEngine compiles every configured guard rule. A compile failure is a
// configuration error and must abort startup.
func NewEngine(cfg *domain.EngineConfig) (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("features", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	engine := &Engine{
		cfg:    cfg,
		env:    env,
		guards: make(map[domain.MarketCode][]compiledGuard),
	}

	for code, market := range cfg.Markets {
		for _, rule := range market.GuardRules {
			compiled, err := engine.compileGuard(rule)
			if err != nil {
				return nil, err
			}
			engine.guards[code] = append(engine.guards[code], compiled)
		}
	}

	return engine, nil
}

func (e *Engine) compileGuard(rule domain.GuardRule) (compiledGuard, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return compiledGuard{}, fmt.Errorf("failed to compile guard rule %s: %w", rule.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return compiledGuard{}, fmt.Errorf("guard rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return compiledGuard{}, fmt.Errorf("failed to create program for guard rule %s: %w", rule.ID, err)
	}

	return compiledGuard{rule: rule, program: program}, nil
}

// Evaluate runs every rule the market owns against the feature vector.
// Missing features mean "unknown, not breached": the rule does not fire.
// Unrecognized market codes evaluate against the default market's rules.
func (e *Engine) Evaluate(code domain.MarketCode, fv domain.FeatureVector) []domain.Alert {
	market := e.cfg.Market(code)

	alerts := make([]domain.Alert, 0)

	for _, rule := range market.AlertRules {
		value, ok := fv.Number(rule.Feature)
		if !ok {
			continue
		}
		if !crossed(rule.Compare, value, rule.Threshold) {
			continue
		}
		alerts = append(alerts, domain.Alert{
			ID:        rule.ID,
			Market:    market.Code,
			Severity:  rule.Severity,
			Value:     value,
			Threshold: rule.Threshold,
			Message:   rule.Message,
			Action:    rule.Action,
		})
	}

	alerts = append(alerts, e.evaluateGuards(market.Code, fv)...)

	return alerts
}

// EvaluateAll evaluates every requested market and returns the combined,
// market-ordered alert list.
func (e *Engine) EvaluateAll(markets []domain.MarketCode, fv domain.FeatureVector) []domain.Alert {
	if len(markets) == 0 {
		markets = e.cfg.MarketCodes()
	}
	alerts := make([]domain.Alert, 0)
	for _, code := range markets {
		alerts = append(alerts, e.Evaluate(code, fv)...)
	}
	return alerts
}

// GuardCount returns the number of compiled guard rules, for startup logs.
func (e *Engine) GuardCount() int {
	n := 0
	for _, guards := range e.guards {
		n += len(guards)
	}
	return n
}

func (e *Engine) evaluateGuards(code domain.MarketCode, fv domain.FeatureVector) []domain.Alert {
	guards := e.guards[code]
	if len(guards) == 0 {
		return nil
	}

	activation := map[string]any{
		"features": featureActivation(fv),
	}

	var alerts []domain.Alert
	for _, guard := range guards {
		out, _, err := guard.program.Eval(activation)
		if err != nil {
			// Most commonly a reference to an absent feature: unknown is
			// not breached, so the rule simply does not fire.
			slog.Debug("guard rule did not evaluate",
				"rule_id", guard.rule.ID,
				"market", code,
				"error", err,
			)
			continue
		}
		if !toBool(out) {
			continue
		}
		alerts = append(alerts, domain.Alert{
			ID:       guard.rule.ID,
			Market:   code,
			Severity: guard.rule.Severity,
			Message:  guard.rule.Message,
			Action:   guard.rule.Action,
		})
	}
	return alerts
}

// featureActivation flattens the feature vector into native values for CEL.
// Null features are omitted so guard expressions referencing them error out
// and the rule stays silent.
func featureActivation(fv domain.FeatureVector) map[string]any {
	out := make(map[string]any, len(fv))
	for name, value := range fv {
		if value.IsNull() {
			continue
		}
		out[name] = value.Native()
	}
	return out
}

func toBool(val ref.Val) bool {
	b, ok := val.(types.Bool)
	return ok && bool(b)
}

// crossed applies the rule's comparison direction. Both directions are
// inclusive: a value exactly at the threshold fires the rule.
func crossed(cmp domain.Comparison, value, threshold float64) bool {
	switch cmp {
	case domain.CompareGTE:
		return value >= threshold
	case domain.CompareLTE:
		return value <= threshold
	default:
		return false
	}
}
