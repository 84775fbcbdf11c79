// Package metrics exposes Prometheus instrumentation for the assessment
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline counters and histograms. A nil *Metrics is
// valid and records nothing, so wiring stays optional in tests.
type Metrics struct {
	AssessmentsTotal   *prometheus.CounterVec
	AlertsTotal        *prometheus.CounterVec
	PassportsIssued    prometheus.Counter
	VerifyFailures     *prometheus.CounterVec
	AssessmentDuration prometheus.Histogram
}

// New registers the Kestrel metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		AssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_assessments_total",
			Help: "Total number of questionnaire assessments processed",
		}, []string{"risk_tier"}),
		AlertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_alerts_total",
			Help: "Total number of alerts fired by market and severity",
		}, []string{"market", "severity"}),
		PassportsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kestrel_passports_issued_total",
			Help: "Total number of passports issued",
		}),
		VerifyFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kestrel_passport_verify_failures_total",
			Help: "Total number of failed passport verifications by reason",
		}, []string{"reason"}),
		AssessmentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kestrel_assessment_duration_seconds",
			Help:    "End-to-end assessment pipeline duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveAssessment records one completed assessment.
func (m *Metrics) ObserveAssessment(riskTier string, seconds float64) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(riskTier).Inc()
	m.AssessmentDuration.Observe(seconds)
}

// ObserveAlert records one fired alert.
func (m *Metrics) ObserveAlert(market, severity string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(market, severity).Inc()
}

// ObservePassportIssued records one issued passport.
func (m *Metrics) ObservePassportIssued() {
	if m == nil {
		return
	}
	m.PassportsIssued.Inc()
}

// ObserveVerifyFailure records one failed verification.
func (m *Metrics) ObserveVerifyFailure(reason string) {
	if m == nil {
		return
	}
	m.VerifyFailures.WithLabelValues(reason).Inc()
}
