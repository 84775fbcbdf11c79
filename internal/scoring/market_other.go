package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// otherStrategy is the fallback for unrecognized market codes. Conservative
// breakpoints: less credit for clean metrics, the same penalties.
type otherStrategy struct{}

func (otherStrategy) Code() domain.MarketCode { return domain.MarketOther }

func (s *otherStrategy) RiskScore(fv domain.FeatureVector) float64 {
	score := 50.0

	if rate, ok := fv.Number(domain.FeatureDisputeRate); ok {
		switch {
		case rate < 0.002:
			score += 12
		case rate < 0.008:
			score += 4
		default:
			score -= 12
		}
	}

	score += procedureAdjustment(fv, 8, 5, 2, -8)

	if experienced, ok := fv.Bool(domain.FeatureComplianceExperience); ok && experienced {
		score += 4
	}

	return clampComponent(score)
}
