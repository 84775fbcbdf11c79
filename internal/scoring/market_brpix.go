package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// brPixStrategy scores the Brazil PIX market. Breakpoints follow the BCB's
// MED dispute mechanism: 0.45% early warning, 0.6% breach.
type brPixStrategy struct{}

func (brPixStrategy) Code() domain.MarketCode { return domain.MarketBRPIX }

func (s *brPixStrategy) RiskScore(fv domain.FeatureVector) float64 {
	score := 50.0

	if rate, ok := fv.Number(domain.FeatureDisputeRate); ok {
		switch {
		case rate < 0.002:
			score += 18
		case rate < 0.0045:
			score += 10
		case rate < 0.006:
			// early-warning band
		default:
			score -= 22
		}
	}

	if automated, ok := fv.Bool(domain.FeaturePixRefundAutomation); ok {
		if automated {
			score += 8
		} else {
			score -= 5
		}
	}

	score += procedureAdjustment(fv, 8, 5, 2, -8)

	if experienced, ok := fv.Bool(domain.FeatureComplianceExperience); ok && experienced {
		score += 4
	}

	return clampComponent(score)
}
