package domain

// VisaStatus is a market-specific readiness label derived from the score.
type VisaStatus string

const (
	VisaReady   VisaStatus = "READY"
	VisaPending VisaStatus = "PENDING"
	VisaBlocked VisaStatus = "BLOCKED"
)

// MarketScoreResult is the scoring output for a single market.
type MarketScoreResult struct {
	Market MarketCode `json:"market"`

	// Score is the combined, bounded score in [10,100].
	Score int `json:"score"`

	// Components of the combination, kept for explainability.
	ProfileScore     float64 `json:"profileScore"`
	RiskScore        float64 `json:"riskScore"`
	ConfidenceFactor float64 `json:"confidenceFactor"`
	Multiplier       float64 `json:"multiplier"`

	Visa VisaStatus `json:"visa"`
}

// OverallResult aggregates per-market scores weighted by volume share.
type OverallResult struct {
	Score      int     `json:"score"`
	RiskTier   string  `json:"riskTier"`
	Confidence float64 `json:"confidence"`

	Markets []MarketScoreResult `json:"markets"`
}

// Risk tier labels over the overall score.
const (
	RiskTierLow      = "low"
	RiskTierModerate = "moderate"
	RiskTierElevated = "elevated"
	RiskTierHigh     = "high"
)

// TierForScore maps an overall score onto a risk tier label.
func TierForScore(score int) string {
	switch {
	case score >= 80:
		return RiskTierLow
	case score >= 60:
		return RiskTierModerate
	case score >= 40:
		return RiskTierElevated
	default:
		return RiskTierHigh
	}
}

// MarketVisas flattens per-market visa statuses for credential embedding.
func (r OverallResult) MarketVisas() map[string]string {
	visas := make(map[string]string, len(r.Markets))
	for _, m := range r.Markets {
		visas[string(m.Market)] = string(m.Visa)
	}
	return visas
}
