// Package scoring computes market-aware compliance scores from feature and
// confidence vectors.
package scoring

import (
	"sync"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Strategy is one market's risk-scoring behavior. Adding a market means
// registering a new strategy, not editing dispatch logic.
type Strategy interface {
	// Code returns the market this strategy scores.
	Code() domain.MarketCode

	// RiskScore computes the market-specific risk component in [10,90] from
	// stepped breakpoint adjustments over named features.
	RiskScore(fv domain.FeatureVector) float64
}

// StrategyRegistry maps market codes to strategies, with a fallback for
// unrecognized codes.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[domain.MarketCode]Strategy
	fallback   Strategy
}

// NewStrategyRegistry creates a registry pre-loaded with the built-in
// market strategies. The fallback handles unrecognized market codes.
func NewStrategyRegistry() *StrategyRegistry {
	r := &StrategyRegistry{
		strategies: make(map[domain.MarketCode]Strategy),
		fallback:   &otherStrategy{},
	}
	r.Register(&usStrategy{})
	r.Register(&brPixStrategy{})
	r.Register(&euSCAStrategy{})
	r.Register(r.fallback)
	return r
}

// Register adds or replaces a market strategy.
func (r *StrategyRegistry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Code()] = s
}

// Get resolves the strategy for a market, falling back for unknown codes.
func (r *StrategyRegistry) Get(code domain.MarketCode) Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[code]; ok {
		return s
	}
	return r.fallback
}

// Count returns the number of registered strategies.
func (r *StrategyRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.strategies)
}

// clampComponent bounds a profile or risk component to [10,90] before
// combination.
func clampComponent(score float64) float64 {
	if score < 10 {
		return 10
	}
	if score > 90 {
		return 90
	}
	return score
}

// procedureAdjustment maps the documented-procedure level onto a stepped
// bonus shared by several market strategies, scaled per market.
func procedureAdjustment(fv domain.FeatureVector, comprehensive, documented, basic, none float64) float64 {
	level, ok := fv.Enum(domain.FeatureDisputeProcedure)
	if !ok {
		return 0
	}
	switch level {
	case domain.ProcedureComprehensive:
		return comprehensive
	case domain.ProcedureDocumented:
		return documented
	case domain.ProcedureBasic:
		return basic
	case domain.ProcedureNone:
		return none
	default:
		return 0
	}
}
