package domain

import "time"

// Assessment is the complete outcome of one questionnaire evaluation: the
// converted vectors, per-market scores, alerts, and the issued passport.
type Assessment struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	SubjectID string `json:"subjectId"`

	Features   FeatureVector    `json:"features"`
	Confidence ConfidenceVector `json:"confidence"`

	Overall OverallResult `json:"overall"`
	Alerts  []Alert       `json:"alerts"`

	Passport *Passport `json:"passport,omitempty"`

	CreatedAt time.Time          `json:"createdAt"`
	Metadata  AssessmentMetadata `json:"metadata"`
}

// AssessmentMetadata carries processing information for observability.
type AssessmentMetadata struct {
	TraceID          string `json:"traceId"`
	ConvertMs        int64  `json:"convertMs"`
	ScoreMs          int64  `json:"scoreMs"`
	TotalMs          int64  `json:"totalMs"`
	QuestionsSkipped int    `json:"questionsSkipped"`
	MarketsScored    int    `json:"marketsScored"`
	EngineVersion    string `json:"engineVersion"`
}

// BehavioralSignals are per-session signals forwarded by the questionnaire
// layer; they only influence confidence scoring.
type BehavioralSignals struct {
	EngagementDepth   float64 `json:"engagementDepth"`
	AnswerLatencySecs float64 `json:"answerLatencySecs"`
}

// AssessmentRequest is the external input contract: a raw answer map plus
// optional metadata.
type AssessmentRequest struct {
	SubjectID string         `json:"subjectId"`
	Answers   map[string]any `json:"answers"`

	Markets      []MarketCode           `json:"markets,omitempty"`
	VolumeShares map[MarketCode]float64 `json:"volumeShares,omitempty"`

	HasUploadedVerificationData bool               `json:"hasUploadedVerificationData,omitempty"`
	BehavioralSignals           *BehavioralSignals `json:"behavioralSignals,omitempty"`
}
