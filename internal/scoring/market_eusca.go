package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// euSCAStrategy scores the EU card market under SCA. The authorization-rate
// breakpoints mirror the alert thresholds: 92% healthy, 88% critical.
type euSCAStrategy struct{}

func (euSCAStrategy) Code() domain.MarketCode { return domain.MarketEUSCA }

func (s *euSCAStrategy) RiskScore(fv domain.FeatureVector) float64 {
	score := 50.0

	if rate, ok := fv.Number(domain.FeatureAuthorizationRate); ok {
		switch {
		case rate >= 0.95:
			score += 18
		case rate >= 0.92:
			score += 10
		case rate > 0.88:
			// below benchmark but above the critical floor
		default:
			score -= 18
		}
	}

	if strategy, ok := fv.Enum(domain.FeatureSCAExemptionStrategy); ok {
		switch strategy {
		case "mixed":
			score += 8
		case "tra":
			score += 6
		case "low_value":
			score += 4
		case "none":
			score -= 5
		}
	}

	score += procedureAdjustment(fv, 6, 4, 1, -6)

	return clampComponent(score)
}
