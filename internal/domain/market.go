package domain

import (
	"fmt"
	"time"
)

// MarketCode identifies a regulatory/processor jurisdiction context.
type MarketCode string

const (
	MarketUS    MarketCode = "US"      // US card networks
	MarketBRPIX MarketCode = "BR_PIX"  // Brazil instant-payment rails (PIX / MED)
	MarketEUSCA MarketCode = "EU_SCA"  // EU card rails under SCA
	MarketOther MarketCode = "OTHER"   // fallback for unrecognized markets
)

// Comparison is the direction an alert threshold is evaluated in.
type Comparison string

const (
	// CompareGTE fires when the feature value is at or above the threshold.
	// Used for upper-bound risk metrics such as dispute rate.
	CompareGTE Comparison = "gte"

	// CompareLTE fires when the feature value is at or below the threshold.
	// Used for rate-floor metrics such as authorization rate.
	CompareLTE Comparison = "lte"
)

// AlertSeverity grades a fired alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertRule is one named threshold rule owned by a market. Rules are
// independent: overlapping rules may all fire for the same evaluation.
type AlertRule struct {
	ID        string        `json:"id" yaml:"id"`
	Feature   string        `json:"feature" yaml:"feature"`
	Compare   Comparison    `json:"compare" yaml:"compare"`
	Threshold float64       `json:"threshold" yaml:"threshold"`
	Severity  AlertSeverity `json:"severity" yaml:"severity"`
	Message   string        `json:"message" yaml:"message"`
	Action    string        `json:"action" yaml:"action"`
}

// Validate checks the rule for internal consistency.
func (r AlertRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("alert rule: id is required")
	}
	if r.Feature == "" {
		return fmt.Errorf("alert rule %s: feature is required", r.ID)
	}
	if r.Compare != CompareGTE && r.Compare != CompareLTE {
		return fmt.Errorf("alert rule %s: unknown comparison %q", r.ID, r.Compare)
	}
	switch r.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return fmt.Errorf("alert rule %s: unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

// GuardRule is a custom alert predicate written as a CEL expression over the
// feature vector. Guard rules are compiled once at configuration load.
type GuardRule struct {
	ID         string        `json:"id" yaml:"id"`
	Expression string        `json:"expression" yaml:"expression"`
	Severity   AlertSeverity `json:"severity" yaml:"severity"`
	Message    string        `json:"message" yaml:"message"`
	Action     string        `json:"action" yaml:"action"`
}

// MarketConfig holds the static per-market scoring and alerting tables.
type MarketConfig struct {
	Code MarketCode `json:"code" yaml:"code"`
	Name string     `json:"name" yaml:"name"`

	// BaseWeight is the static profile weight applied in the market
	// multiplier before conditional boosts and penalties.
	BaseWeight float64 `json:"baseWeight" yaml:"base_weight"`

	// Conditional multiplier components.
	VerifiedBoost     float64 `json:"verifiedBoost" yaml:"verified_boost"`
	ProcedureBoost    float64 `json:"procedureBoost" yaml:"procedure_boost"`
	SuspensionPenalty float64 `json:"suspensionPenalty" yaml:"suspension_penalty"`

	// Visa status thresholds over the combined market score.
	ReadyThreshold   int `json:"readyThreshold" yaml:"ready_threshold"`
	PendingThreshold int `json:"pendingThreshold" yaml:"pending_threshold"`

	// RelevantFeatures lists the feature names whose confidence feeds this
	// market's confidence factor. Empty means every converted feature counts.
	RelevantFeatures []string `json:"relevantFeatures,omitempty" yaml:"relevant_features,omitempty"`

	// AlertRules is the ordered threshold rule list for this market.
	AlertRules []AlertRule `json:"alertRules" yaml:"alert_rules"`

	// GuardRules are optional CEL predicates evaluated after threshold rules.
	GuardRules []GuardRule `json:"guardRules,omitempty" yaml:"guard_rules,omitempty"`
}

// Validate checks the market configuration for internal consistency.
func (m MarketConfig) Validate() error {
	if m.Code == "" {
		return fmt.Errorf("market config: code is required")
	}
	if m.BaseWeight <= 0 {
		return fmt.Errorf("market %s: base weight must be positive", m.Code)
	}
	if m.ReadyThreshold < m.PendingThreshold {
		return fmt.Errorf("market %s: ready threshold %d below pending threshold %d",
			m.Code, m.ReadyThreshold, m.PendingThreshold)
	}
	for _, r := range m.AlertRules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("market %s: %w", m.Code, err)
		}
	}
	for _, g := range m.GuardRules {
		if g.ID == "" || g.Expression == "" {
			return fmt.Errorf("market %s: guard rule requires id and expression", m.Code)
		}
	}
	return nil
}

// EngineConfig is the immutable configuration consumed by the registry, the
// scoring engine, and the alert engine. It is constructed once at process
// start and passed by reference into constructors, never read from globals.
type EngineConfig struct {
	Features []FeatureDefinition         `yaml:"features"`
	Markets  map[MarketCode]MarketConfig `yaml:"markets"`

	// DefaultMarket receives scoring requests for unrecognized market codes.
	DefaultMarket MarketCode `yaml:"default_market"`

	// PassportValidity is the credential validity window.
	PassportValidity time.Duration `yaml:"passport_validity"`
}

// Validate checks the whole configuration. A failure here is fatal at
// process start: the engine must not run on empty or inconsistent tables.
func (c *EngineConfig) Validate() error {
	if len(c.Features) == 0 {
		return fmt.Errorf("engine config: feature table is empty")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("engine config: market table is empty")
	}
	seen := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.QuestionID] {
			return fmt.Errorf("engine config: duplicate question id %s", f.QuestionID)
		}
		seen[f.QuestionID] = true
	}
	for code, m := range c.Markets {
		if code != m.Code {
			return fmt.Errorf("engine config: market keyed %s declares code %s", code, m.Code)
		}
		if err := m.Validate(); err != nil {
			return err
		}
	}
	if c.DefaultMarket == "" {
		return fmt.Errorf("engine config: default market is required")
	}
	if _, ok := c.Markets[c.DefaultMarket]; !ok {
		return fmt.Errorf("engine config: default market %s is not configured", c.DefaultMarket)
	}
	if c.PassportValidity <= 0 {
		return fmt.Errorf("engine config: passport validity must be positive")
	}
	return nil
}

// Market resolves a market code, falling back to the default market for
// unrecognized codes rather than failing the scoring call.
func (c *EngineConfig) Market(code MarketCode) MarketConfig {
	if m, ok := c.Markets[code]; ok {
		return m
	}
	return c.Markets[c.DefaultMarket]
}

// MarketCodes returns every configured market code, iteration order
// unspecified.
func (c *EngineConfig) MarketCodes() []MarketCode {
	codes := make([]MarketCode, 0, len(c.Markets))
	for code := range c.Markets {
		codes = append(codes, code)
	}
	return codes
}
