package scoring

import "github.com/opensource-finance/kestrel/internal/domain"

// Profile score constants. The base is adjusted by additive terms for
// industry, maturity, policy completeness, and suspension history, then
// clamped to [10,90] before combination.
const profileBase = 50.0

// Stepped industry adjustments. Values reflect historic dispute exposure per
// vertical, not a judgment of the business.
var industryAdjustments = map[string]float64{
	"saas":               8,
	"physical_goods":     6,
	"digital_goods":      4,
	"marketplace":        2,
	"other":              0,
	"travel":             -4,
	"financial_services": -6,
	"gambling":           -12,
}

var stageAdjustments = map[string]float64{
	"established": 10,
	"growth":      6,
	"early":       1,
	"pre_launch":  -6,
}

const (
	policyBonus       = 3.0
	suspensionPenalty = -15.0
	matureYearsBonus  = 5.0
	settledYearsBonus = 2.0
)

// profileScore computes the market-independent profile component.
func profileScore(fv domain.FeatureVector) float64 {
	score := profileBase

	if industry, ok := fv.Enum(domain.FeatureIndustry); ok {
		score += industryAdjustments[industry]
	}
	if stage, ok := fv.Enum(domain.FeatureBusinessStage); ok {
		score += stageAdjustments[stage]
	}

	if years, ok := fv.Number(domain.FeatureYearsOperating); ok {
		switch {
		case years >= 5:
			score += matureYearsBonus
		case years >= 2:
			score += settledYearsBonus
		}
	}

	for _, policy := range []string{
		domain.FeatureRefundPolicy,
		domain.FeaturePrivacyPolicy,
		domain.FeatureTermsPublished,
	} {
		if published, ok := fv.Bool(policy); ok && published {
			score += policyBonus
		}
	}

	if suspended, ok := fv.Bool(domain.FeaturePriorSuspension); ok && suspended {
		score += suspensionPenalty
	}

	return clampComponent(score)
}
