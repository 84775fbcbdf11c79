package domain

// Alert is one fired threshold rule. Alerts are recomputed on every
// evaluation and never persisted as entities by this subsystem.
type Alert struct {
	ID       string        `json:"id"`
	Market   MarketCode    `json:"market"`
	Severity AlertSeverity `json:"severity"`

	// Value is the live feature value that crossed the threshold. Guard-rule
	// alerts carry no single value and report zero.
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`

	Message string `json:"message"`
	Action  string `json:"action"`
}
