// Package config loads the engine configuration: the question table and the
// per-market scoring and alerting tables.
package config

import (
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// PassportValidity is the default credential validity window.
const PassportValidity = 180 * 24 * time.Hour

// DefaultEngineConfig returns the built-in question and market tables.
// A YAML file may overlay individual entries; see Load.
func DefaultEngineConfig() *domain.EngineConfig {
	return &domain.EngineConfig{
		Features:         defaultFeatures(),
		Markets:          defaultMarkets(),
		DefaultMarket:    domain.MarketOther,
		PassportValidity: PassportValidity,
	}
}

func defaultFeatures() []domain.FeatureDefinition {
	return []domain.FeatureDefinition{
		{
			QuestionID:    "q_industry",
			FeatureName:   domain.FeatureIndustry,
			Type:          domain.TypeEnum,
			AllowedValues: []string{"digital_goods", "physical_goods", "saas", "marketplace", "travel", "financial_services", "gambling", "other"},
			ConfidenceMin: 0.3, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_business_stage",
			FeatureName:   domain.FeatureBusinessStage,
			Type:          domain.TypeEnum,
			AllowedValues: []string{"pre_launch", "early", "growth", "established"},
			ConfidenceMin: 0.3, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_years_operating",
			FeatureName:   domain.FeatureYearsOperating,
			Type:          domain.TypeInt,
			ConfidenceMin: 0.3, ConfidenceMax: 0.85,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_policy_refund",
			FeatureName:   domain.FeatureRefundPolicy,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.4, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_policy_privacy",
			FeatureName:   domain.FeaturePrivacyPolicy,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.4, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_policy_terms",
			FeatureName:   domain.FeatureTermsPublished,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.4, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_prior_suspension",
			FeatureName:   domain.FeaturePriorSuspension,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.35, ConfidenceMax: 0.8,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageRisk,
		},
		{
			QuestionID:    "q_monthly_dispute_rate",
			FeatureName:   domain.FeatureDisputeRate,
			Type:          domain.TypeFloat,
			ConfidenceMin: 0.25, ConfidenceMax: 1.0,
			Market:             domain.GlobalMarket,
			Usage:              domain.UsageRisk,
			VerifiableByUpload: true,
		},
		{
			QuestionID:    "q_chargeback_rate",
			FeatureName:   domain.FeatureChargebackRate,
			Type:          domain.TypeFloat,
			ConfidenceMin: 0.25, ConfidenceMax: 1.0,
			Market:             domain.GlobalMarket,
			Usage:              domain.UsageRisk,
			VerifiableByUpload: true,
		},
		{
			QuestionID:    "q_dispute_procedure",
			FeatureName:   domain.FeatureDisputeProcedure,
			Type:          domain.TypeEnum,
			AllowedValues: []string{domain.ProcedureNone, domain.ProcedureBasic, domain.ProcedureDocumented, domain.ProcedureComprehensive},
			ConfidenceMin: 0.35, ConfidenceMax: 0.9,
			Market: domain.GlobalMarket,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_compliance_experience",
			FeatureName:   domain.FeatureComplianceExperience,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.3, ConfidenceMax: 0.85,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageRisk,
		},
		{
			QuestionID:    "q_fulfillment_days",
			FeatureName:   domain.FeatureFulfillmentDays,
			Type:          domain.TypeInt,
			ConfidenceMin: 0.3, ConfidenceMax: 0.85,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_payment_methods",
			FeatureName:   domain.FeaturePaymentMethods,
			Type:          domain.TypeStringList,
			ConfidenceMin: 0.3, ConfidenceMax: 0.8,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_support_channels",
			FeatureName:   domain.FeatureSupportChannels,
			Type:          domain.TypeStringMap,
			ConfidenceMin: 0.3, ConfidenceMax: 0.8,
			Market: domain.GlobalMarket,
			Usage:  domain.UsageDescriptive,
		},
		{
			QuestionID:    "q_us_rdr_enrolled",
			FeatureName:   domain.FeatureRDREnrolled,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.35, ConfidenceMax: 0.9,
			Market: domain.MarketUS,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_us_avs_enabled",
			FeatureName:   domain.FeatureAVSEnabled,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.35, ConfidenceMax: 0.9,
			Market: domain.MarketUS,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_pix_refund_automation",
			FeatureName:   domain.FeaturePixRefundAutomation,
			Type:          domain.TypeBool,
			ConfidenceMin: 0.35, ConfidenceMax: 0.9,
			Market: domain.MarketBRPIX,
			Usage:  domain.UsagePrescriptive,
		},
		{
			QuestionID:    "q_sca_auth_rate",
			FeatureName:   domain.FeatureAuthorizationRate,
			Type:          domain.TypeFloat,
			ConfidenceMin: 0.25, ConfidenceMax: 1.0,
			Market:             domain.MarketEUSCA,
			Usage:              domain.UsageRisk,
			VerifiableByUpload: true,
		},
		{
			QuestionID:    "q_sca_exemption_strategy",
			FeatureName:   domain.FeatureSCAExemptionStrategy,
			Type:          domain.TypeEnum,
			AllowedValues: []string{"none", "tra", "low_value", "mixed"},
			ConfidenceMin: 0.3, ConfidenceMax: 0.85,
			Market: domain.MarketEUSCA,
			Usage:  domain.UsagePrescriptive,
		},
	}
}

func defaultMarkets() map[domain.MarketCode]domain.MarketConfig {
	return map[domain.MarketCode]domain.MarketConfig{
		domain.MarketUS: {
			Code:              domain.MarketUS,
			Name:              "US card networks",
			BaseWeight:        1.0,
			VerifiedBoost:     1.10,
			ProcedureBoost:    1.05,
			SuspensionPenalty: 0.85,
			ReadyThreshold:    75,
			PendingThreshold:  50,
			RelevantFeatures: []string{
				domain.FeatureDisputeRate,
				domain.FeatureChargebackRate,
				domain.FeatureDisputeProcedure,
				domain.FeatureComplianceExperience,
				domain.FeatureRDREnrolled,
				domain.FeatureAVSEnabled,
			},
			AlertRules: []domain.AlertRule{
				{
					ID:        "us-dispute-early-warning",
					Feature:   domain.FeatureDisputeRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.0065,
					Severity:  domain.SeverityWarning,
					Message:   "Monthly dispute rate is approaching the VAMP breach level",
					Action:    "Review recent disputes and enable pre-dispute resolution (RDR/CDRN)",
				},
				{
					ID:        "us-dispute-breach",
					Feature:   domain.FeatureDisputeRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.01,
					Severity:  domain.SeverityCritical,
					Message:   "Monthly dispute rate breaches the network monitoring threshold",
					Action:    "Engage your acquirer immediately and file a remediation plan",
				},
				{
					ID:        "us-chargeback-warning",
					Feature:   domain.FeatureChargebackRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.009,
					Severity:  domain.SeverityWarning,
					Message:   "Chargeback rate is near the excessive-chargeback program floor",
					Action:    "Tighten fraud screening and review refund responsiveness",
				},
			},
			GuardRules: []domain.GuardRule{
				{
					ID:         "us-no-dispute-procedure",
					Expression: `features.monthly_dispute_rate >= 0.0065 && features.dispute_procedure_level == "none"`,
					Severity:   domain.SeverityWarning,
					Message:    "Elevated disputes with no documented dispute procedure",
					Action:     "Document a dispute handling procedure before volume grows",
				},
			},
		},
		domain.MarketBRPIX: {
			Code:              domain.MarketBRPIX,
			Name:              "Brazil PIX rails",
			BaseWeight:        0.95,
			VerifiedBoost:     1.10,
			ProcedureBoost:    1.05,
			SuspensionPenalty: 0.80,
			ReadyThreshold:    75,
			PendingThreshold:  50,
			RelevantFeatures: []string{
				domain.FeatureDisputeRate,
				domain.FeatureDisputeProcedure,
				domain.FeaturePixRefundAutomation,
			},
			AlertRules: []domain.AlertRule{
				{
					ID:        "pix-med-early-warning",
					Feature:   domain.FeatureDisputeRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.0045,
					Severity:  domain.SeverityWarning,
					Message:   "PIX MED dispute rate is trending toward the breach level",
					Action:    "Audit MED responses and shorten refund turnaround",
				},
				{
					ID:        "pix-med-breach",
					Feature:   domain.FeatureDisputeRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.006,
					Severity:  domain.SeverityCritical,
					Message:   "PIX MED dispute rate breaches the BCB monitoring threshold",
					Action:    "Enable automated MED refunds and notify your PSP",
				},
			},
		},
		domain.MarketEUSCA: {
			Code:              domain.MarketEUSCA,
			Name:              "EU card rails (SCA)",
			BaseWeight:        0.90,
			VerifiedBoost:     1.10,
			ProcedureBoost:    1.05,
			SuspensionPenalty: 0.85,
			ReadyThreshold:    75,
			PendingThreshold:  50,
			RelevantFeatures: []string{
				domain.FeatureAuthorizationRate,
				domain.FeatureSCAExemptionStrategy,
				domain.FeatureDisputeProcedure,
			},
			AlertRules: []domain.AlertRule{
				{
					ID:        "sca-auth-rate-warning",
					Feature:   domain.FeatureAuthorizationRate,
					Compare:   domain.CompareLTE,
					Threshold: 0.92,
					Severity:  domain.SeverityWarning,
					Message:   "Authorization rate is below the healthy SCA benchmark",
					Action:    "Review 3DS flows and exemption routing",
				},
				{
					ID:        "sca-auth-rate-critical",
					Feature:   domain.FeatureAuthorizationRate,
					Compare:   domain.CompareLTE,
					Threshold: 0.88,
					Severity:  domain.SeverityCritical,
					Message:   "Authorization rate is critically low under SCA",
					Action:    "Escalate to your PSP; consider TRA exemptions and delegated authentication",
				},
			},
			GuardRules: []domain.GuardRule{
				{
					ID:         "sca-no-exemption-strategy",
					Expression: `features.authorization_rate <= 0.92 && features.sca_exemption_strategy == "none"`,
					Severity:   domain.SeverityInfo,
					Message:    "Low authorization rate with no exemption strategy configured",
					Action:     "Adopt a TRA or low-value exemption strategy",
				},
			},
		},
		domain.MarketOther: {
			Code:              domain.MarketOther,
			Name:              "Other markets",
			BaseWeight:        0.85,
			VerifiedBoost:     1.10,
			ProcedureBoost:    1.05,
			SuspensionPenalty: 0.85,
			ReadyThreshold:    80,
			PendingThreshold:  55,
			AlertRules: []domain.AlertRule{
				{
					ID:        "other-dispute-elevated",
					Feature:   domain.FeatureDisputeRate,
					Compare:   domain.CompareGTE,
					Threshold: 0.008,
					Severity:  domain.SeverityWarning,
					Message:   "Dispute rate is elevated for an unclassified market",
					Action:    "Review dispute drivers before expanding volume",
				},
			},
		},
	}
}
