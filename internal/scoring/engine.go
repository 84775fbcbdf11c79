package scoring

import (
	"math"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Combination constants. The combined score blends the profile and risk
// components, then applies the confidence factor and market multiplier.
const (
	profileWeight = 0.6
	riskWeight    = 0.4

	// Confidence factor endpoints: zero average confidence maps to the
	// floor, full confidence to the ceiling, linearly in between.
	confidenceFactorFloor   = 0.5
	confidenceFactorCeiling = 1.3

	scoreFloor   = 10
	scoreCeiling = 100
)

// Engine computes per-market and overall scores. It is stateless and safe
// for concurrent use; configuration is read-only after construction.
type Engine struct {
	cfg        *domain.EngineConfig
	strategies *StrategyRegistry
}

// NewEngine creates a scoring engine over the given configuration.
func NewEngine(cfg *domain.EngineConfig) *Engine {
	return &Engine{
		cfg:        cfg,
		strategies: NewStrategyRegistry(),
	}
}

// Strategies exposes the strategy registry so deployments can register
// additional markets.
func (e *Engine) Strategies() *StrategyRegistry {
	return e.strategies
}

// ScoreMarket computes the bounded score and visa status for one market.
// Unrecognized market codes fall back to the default market configuration.
func (e *Engine) ScoreMarket(code domain.MarketCode, fv domain.FeatureVector, cv domain.ConfidenceVector) domain.MarketScoreResult {
	market := e.cfg.Market(code)
	strategy := e.strategies.Get(market.Code)

	profile := profileScore(fv)
	risk := strategy.RiskScore(fv)
	factor := confidenceFactor(cv, market.RelevantFeatures)
	multiplier := e.marketMultiplier(market, fv)

	raw := (profileWeight*profile + riskWeight*risk) * factor * multiplier
	score := clampScore(int(math.Round(raw)))

	return domain.MarketScoreResult{
		Market:           market.Code,
		Score:            score,
		ProfileScore:     profile,
		RiskScore:        risk,
		ConfidenceFactor: factor,
		Multiplier:       multiplier,
		Visa:             visaStatus(score, market),
	}
}

// ScoreOverall scores every requested market and aggregates into one overall
// score weighted by each market's share of transaction volume. Missing
// shares default to equal weighting across the requested markets.
func (e *Engine) ScoreOverall(markets []domain.MarketCode, shares map[domain.MarketCode]float64, fv domain.FeatureVector, cv domain.ConfidenceVector) domain.OverallResult {
	if len(markets) == 0 {
		markets = e.cfg.MarketCodes()
	}

	results := make([]domain.MarketScoreResult, 0, len(markets))
	var weightedSum, totalWeight, confidenceSum float64

	for _, code := range markets {
		result := e.ScoreMarket(code, fv, cv)
		results = append(results, result)

		weight := shares[code]
		if weight <= 0 {
			weight = 1.0 / float64(len(markets))
		}
		weightedSum += float64(result.Score) * weight
		totalWeight += weight
		confidenceSum += result.ConfidenceFactor
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = weightedSum / totalWeight
	}
	score := clampScore(int(math.Round(overall)))

	return domain.OverallResult{
		Score:      score,
		RiskTier:   domain.TierForScore(score),
		Confidence: confidenceSum / float64(len(results)),
		Markets:    results,
	}
}

// confidenceFactor maps the average confidence of the market's relevant
// features onto a multiplier in [floor, ceiling]. Features without a
// confidence entry simply do not count; an empty vector yields the floor.
func confidenceFactor(cv domain.ConfidenceVector, relevant []string) float64 {
	var sum float64
	var n int

	if len(relevant) > 0 {
		for _, name := range relevant {
			if conf, ok := cv[name]; ok {
				sum += conf
				n++
			}
		}
	}
	if n == 0 {
		for _, conf := range cv {
			sum += conf
			n++
		}
	}
	if n == 0 {
		return confidenceFactorFloor
	}

	avg := sum / float64(n)
	return confidenceFactorFloor + avg*(confidenceFactorCeiling-confidenceFactorFloor)
}

// marketMultiplier applies the static market weight and the conditional
// boosts and penalties from the market configuration.
func (e *Engine) marketMultiplier(market domain.MarketConfig, fv domain.FeatureVector) float64 {
	multiplier := market.BaseWeight

	if verified, ok := fv.Bool(domain.FeatureVerifiedData); ok && verified {
		multiplier *= market.VerifiedBoost
	}
	if level, ok := fv.Enum(domain.FeatureDisputeProcedure); ok && level == domain.ProcedureComprehensive {
		multiplier *= market.ProcedureBoost
	}
	if suspended, ok := fv.Bool(domain.FeaturePriorSuspension); ok && suspended {
		multiplier *= market.SuspensionPenalty
	}

	return multiplier
}

func visaStatus(score int, market domain.MarketConfig) domain.VisaStatus {
	switch {
	case score >= market.ReadyThreshold:
		return domain.VisaReady
	case score >= market.PendingThreshold:
		return domain.VisaPending
	default:
		return domain.VisaBlocked
	}
}

func clampScore(score int) int {
	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCeiling {
		return scoreCeiling
	}
	return score
}
