// Package assessment orchestrates the scoring pipeline: answers in, scored
// markets, alerts, and a signed passport out.
package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/alerts"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/metrics"
	"github.com/opensource-finance/kestrel/internal/passport"
	"github.com/opensource-finance/kestrel/internal/registry"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// EngineVersion is stamped into assessment metadata.
const EngineVersion = "kestrel-1.0"

// Service runs the full assessment pipeline. The repository, cache, bus,
// and metrics are optional collaborators: when absent the pipeline still
// scores and issues, it just does not persist, cache, or publish.
type Service struct {
	registry *registry.Registry
	scorer   *scoring.Engine
	alerter  *alerts.Engine
	issuer   *passport.Issuer

	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	metrics *metrics.Metrics
}

// NewService wires the pipeline components.
func NewService(reg *registry.Registry, scorer *scoring.Engine, alerter *alerts.Engine, issuer *passport.Issuer) *Service {
	return &Service{
		registry: reg,
		scorer:   scorer,
		alerter:  alerter,
		issuer:   issuer,
	}
}

// WithRepository attaches persistence.
func (s *Service) WithRepository(repo domain.Repository) *Service {
	s.repo = repo
	return s
}

// WithCache attaches the passport cache.
func (s *Service) WithCache(cache domain.Cache) *Service {
	s.cache = cache
	return s
}

// WithBus attaches the event bus.
func (s *Service) WithBus(bus domain.EventBus) *Service {
	s.bus = bus
	return s
}

// WithMetrics attaches Prometheus instrumentation.
func (s *Service) WithMetrics(m *metrics.Metrics) *Service {
	s.metrics = m
	return s
}

// Run executes one assessment: convert answers, score every requested
// market, evaluate alerts, and issue a signed passport. One bad answer
// never aborts the batch; only an empty subject id or answer map does.
func (s *Service) Run(ctx context.Context, tenantID, traceID string, req domain.AssessmentRequest) (*domain.Assessment, error) {
	start := time.Now()

	if req.SubjectID == "" {
		return nil, fmt.Errorf("subject id is required")
	}
	if len(req.Answers) == 0 {
		return nil, fmt.Errorf("answer map is empty")
	}

	cctx := domain.ConversionContext{
		HasVerifiedData: req.HasUploadedVerificationData,
	}
	if req.BehavioralSignals != nil {
		cctx.EngagementDepth = req.BehavioralSignals.EngagementDepth
		cctx.AnswerLatencySecs = req.BehavioralSignals.AnswerLatencySecs
	}

	features, confidence, skipped := s.registry.ConvertAll(req.Answers, cctx)
	convertMs := time.Since(start).Milliseconds()

	scoreStart := time.Now()
	overall := s.scorer.ScoreOverall(req.Markets, req.VolumeShares, features, confidence)
	fired := s.alerter.EvaluateAll(req.Markets, features)
	scoreMs := time.Since(scoreStart).Milliseconds()

	tier := domain.TierSelfAttested
	if req.HasUploadedVerificationData {
		tier = domain.TierDataVerified
	}

	issued, err := s.issuer.Issue(req.SubjectID, overall, tier)
	if err != nil {
		return nil, fmt.Errorf("failed to issue passport: %w", err)
	}

	assessment := &domain.Assessment{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		SubjectID:  req.SubjectID,
		Features:   features,
		Confidence: confidence,
		Overall:    overall,
		Alerts:     fired,
		Passport:   &issued,
		CreatedAt:  time.Now().UTC(),
		Metadata: domain.AssessmentMetadata{
			TraceID:          traceID,
			ConvertMs:        convertMs,
			ScoreMs:          scoreMs,
			TotalMs:          time.Since(start).Milliseconds(),
			QuestionsSkipped: skipped,
			MarketsScored:    len(overall.Markets),
			EngineVersion:    EngineVersion,
		},
	}

	s.persist(ctx, tenantID, assessment)
	s.publish(ctx, tenantID, assessment)
	s.observe(assessment, time.Since(start))

	slog.Info("assessment completed",
		"assessment_id", assessment.ID,
		"tenant_id", tenantID,
		"subject_id", req.SubjectID,
		"score", overall.Score,
		"risk_tier", overall.RiskTier,
		"alerts", len(fired),
		"duration_ms", assessment.Metadata.TotalMs,
	)

	return assessment, nil
}

// Verify checks a presented passport and records failures.
func (s *Service) Verify(p domain.Passport) domain.VerificationResult {
	result := s.issuer.Verify(p)
	if !result.Valid {
		s.metrics.ObserveVerifyFailure(string(result.Reason))
	}
	return result
}

// Token exports a passport as a portable JWT.
func (s *Service) Token(p domain.Passport) (string, error) {
	return s.issuer.Token(p)
}

func (s *Service) persist(ctx context.Context, tenantID string, a *domain.Assessment) {
	if s.repo != nil {
		if err := s.repo.SaveAssessment(ctx, tenantID, a); err != nil {
			slog.Error("failed to save assessment", "assessment_id", a.ID, "error", err)
		}
		if err := s.repo.SavePassport(ctx, tenantID, a.Passport); err != nil {
			slog.Error("failed to save passport", "passport_id", a.Passport.PassportID, "error", err)
		}
	}
	if s.cache != nil {
		ttl := time.Until(a.Passport.ExpiresAt)
		if err := s.cache.SetPassport(ctx, tenantID, a.Passport, ttl); err != nil {
			slog.Warn("failed to cache passport", "passport_id", a.Passport.PassportID, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, tenantID string, a *domain.Assessment) {
	if s.bus == nil {
		return
	}

	payload, _ := json.Marshal(a)
	if err := s.bus.Publish(ctx, tenantID, domain.TopicAssessmentCompleted, payload); err != nil {
		slog.Error("failed to publish assessment", "assessment_id", a.ID, "error", err)
	}

	if hasCritical(a.Alerts) {
		alertPayload, _ := json.Marshal(a.Alerts)
		if err := s.bus.Publish(ctx, tenantID, domain.TopicAlertRaised, alertPayload); err != nil {
			slog.Error("failed to publish alerts", "assessment_id", a.ID, "error", err)
		}
	}

	passportPayload, _ := json.Marshal(a.Passport)
	if err := s.bus.Publish(ctx, tenantID, domain.TopicPassportIssued, passportPayload); err != nil {
		slog.Error("failed to publish passport", "passport_id", a.Passport.PassportID, "error", err)
	}
}

func (s *Service) observe(a *domain.Assessment, elapsed time.Duration) {
	s.metrics.ObserveAssessment(a.Overall.RiskTier, elapsed.Seconds())
	s.metrics.ObservePassportIssued()
	for _, alert := range a.Alerts {
		s.metrics.ObserveAlert(string(alert.Market), string(alert.Severity))
	}
}

func hasCritical(alerts []domain.Alert) bool {
	for _, a := range alerts {
		if a.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}
