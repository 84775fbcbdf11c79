package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// usStrategy scores the US card-network market. Breakpoints track the card
// networks' dispute monitoring programs: the 0.65% early-warning and 1%
// breach levels for disputes, 0.9% for chargebacks.
type usStrategy struct{}

func (usStrategy) Code() domain.MarketCode { return domain.MarketUS }

func (s *usStrategy) RiskScore(fv domain.FeatureVector) float64 {
	score := 50.0

	if rate, ok := fv.Number(domain.FeatureDisputeRate); ok {
		switch {
		case rate < 0.002:
			score += 18
		case rate < 0.0065:
			score += 10
		case rate < 0.01:
			// inside the early-warning band, no bonus
		default:
			score -= 20
		}
	}

	if rate, ok := fv.Number(domain.FeatureChargebackRate); ok {
		switch {
		case rate < 0.003:
			score += 12
		case rate < 0.009:
			score += 5
		default:
			score -= 15
		}
	}

	score += procedureAdjustment(fv, 10, 6, 2, -10)

	if experienced, ok := fv.Bool(domain.FeatureComplianceExperience); ok && experienced {
		score += 5
	}
	if enrolled, ok := fv.Bool(domain.FeatureRDREnrolled); ok && enrolled {
		score += 4
	}
	if enabled, ok := fv.Bool(domain.FeatureAVSEnabled); ok && enabled {
		score += 3
	}

	return clampComponent(score)
}
