package domain

import "fmt"

// ValueType declares how a raw answer is converted into a typed feature.
type ValueType string

const (
	TypeFloat      ValueType = "float"
	TypeInt        ValueType = "int"
	TypeBool       ValueType = "bool"
	TypeEnum       ValueType = "enum"
	TypeStringList ValueType = "string_list"
	TypeStringMap  ValueType = "string_map"
)

// FeatureUsage tags what a feature is consumed for.
type FeatureUsage string

const (
	UsageDescriptive  FeatureUsage = "descriptive"
	UsageRisk         FeatureUsage = "risk"
	UsagePrescriptive FeatureUsage = "prescriptive"
)

// GlobalMarket scopes a feature definition to every market.
const GlobalMarket MarketCode = "GLOBAL"

// FeatureDefinition describes one questionnaire question: which feature it
// feeds, how the answer is typed, and the confidence band the conversion may
// assign. Definitions are loaded once at process start and never mutated.
type FeatureDefinition struct {
	QuestionID    string       `json:"questionId" yaml:"question_id"`
	FeatureName   string       `json:"featureName" yaml:"feature_name"`
	Type          ValueType    `json:"type" yaml:"type"`
	AllowedValues []string     `json:"allowedValues,omitempty" yaml:"allowed_values,omitempty"`
	ConfidenceMin float64      `json:"confidenceMin" yaml:"confidence_min"`
	ConfidenceMax float64      `json:"confidenceMax" yaml:"confidence_max"`
	Market        MarketCode   `json:"market" yaml:"market"`
	Usage         FeatureUsage `json:"usage" yaml:"usage"`

	// VerifiableByUpload marks features whose confidence is promoted to the
	// range maximum when the merchant has uploaded transaction history.
	VerifiableByUpload bool `json:"verifiableByUpload,omitempty" yaml:"verifiable_by_upload,omitempty"`
}

// Validate checks the definition for internal consistency.
func (d FeatureDefinition) Validate() error {
	if d.QuestionID == "" {
		return fmt.Errorf("feature definition: question id is required")
	}
	if d.FeatureName == "" {
		return fmt.Errorf("feature definition %s: feature name is required", d.QuestionID)
	}
	switch d.Type {
	case TypeFloat, TypeInt, TypeBool, TypeStringList, TypeStringMap:
	case TypeEnum:
		if len(d.AllowedValues) == 0 {
			return fmt.Errorf("feature definition %s: enum requires allowed values", d.QuestionID)
		}
	default:
		return fmt.Errorf("feature definition %s: unknown value type %q", d.QuestionID, d.Type)
	}
	if d.ConfidenceMin < 0 || d.ConfidenceMax > 1 || d.ConfidenceMin > d.ConfidenceMax {
		return fmt.Errorf("feature definition %s: confidence range [%v,%v] is invalid",
			d.QuestionID, d.ConfidenceMin, d.ConfidenceMax)
	}
	if d.Market == "" {
		return fmt.Errorf("feature definition %s: market scope is required", d.QuestionID)
	}
	return nil
}

// Canonical feature names shared between the registry, scoring strategies,
// and alert rules.
const (
	FeatureIndustry             = "industry"
	FeatureBusinessStage        = "business_stage"
	FeatureYearsOperating       = "years_operating"
	FeatureRefundPolicy         = "refund_policy_published"
	FeaturePrivacyPolicy        = "privacy_policy_published"
	FeatureTermsPublished       = "terms_published"
	FeaturePriorSuspension      = "prior_suspension"
	FeatureDisputeRate          = "monthly_dispute_rate"
	FeatureChargebackRate       = "chargeback_rate"
	FeatureDisputeProcedure     = "dispute_procedure_level"
	FeatureComplianceExperience = "prior_compliance_experience"
	FeatureFulfillmentDays      = "fulfillment_days"
	FeaturePaymentMethods       = "payment_methods"
	FeatureSupportChannels      = "support_channels"
	FeatureRDREnrolled          = "rdr_enrolled"
	FeatureAVSEnabled           = "avs_enabled"
	FeaturePixRefundAutomation  = "pix_refund_automation"
	FeatureAuthorizationRate    = "authorization_rate"
	FeatureSCAExemptionStrategy = "sca_exemption_strategy"

	// FeatureVerifiedData is synthetic: injected during conversion when the
	// merchant uploaded transaction history, never asked as a question.
	FeatureVerifiedData = "verified_data_uploaded"
)

// Dispute procedure levels for FeatureDisputeProcedure.
const (
	ProcedureNone          = "none"
	ProcedureBasic         = "basic"
	ProcedureDocumented    = "documented"
	ProcedureComprehensive = "comprehensive"
)

// ConversionContext carries the optional request metadata that influences
// confidence scoring during answer conversion.
type ConversionContext struct {
	// HasVerifiedData is true when the merchant uploaded transaction history
	// backing their self-reported answers.
	HasVerifiedData bool

	// EngagementDepth is a 0..1 behavioral signal from the questionnaire
	// session; deep engagement earns a small confidence bump.
	EngagementDepth float64

	// AnswerLatencySecs is the median seconds-per-answer for the session.
	AnswerLatencySecs float64
}
