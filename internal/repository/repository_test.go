package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func testPassport(id, subjectID string) *domain.Passport {
	issued := time.Now().UTC().Truncate(time.Second)
	return &domain.Passport{
		PassportID:   id,
		SubjectID:    subjectID,
		OverallScore: 74,
		Tier:         domain.TierDataVerified,
		MarketVisas:  map[string]string{"US": "READY", "EU_SCA": "PENDING"},
		IssuedAt:     issued,
		ExpiresAt:    issued.Add(180 * 24 * time.Hour),
		Signature: domain.Signature{
			Algorithm: domain.SignatureAlgorithmHMACSHA256,
			KeyID:     "k1",
			Value:     "deadbeef",
		},
	}
}

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "kestrel-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		p := testPassport("psp-001", "merchant-001")
		a := &domain.Assessment{
			ID:        "asm-001",
			SubjectID: "merchant-001",
			Features: domain.FeatureVector{
				"industry":             domain.EnumValue("saas"),
				"monthly_dispute_rate": domain.NumberValue(0.003),
			},
			Confidence: domain.ConfidenceVector{
				"industry":             0.85,
				"monthly_dispute_rate": 0.6,
			},
			Overall: domain.OverallResult{
				Score:    74,
				RiskTier: "moderate",
				Markets: []domain.MarketScoreResult{
					{Market: domain.MarketUS, Score: 74, Visa: domain.VisaPending},
				},
			},
			Alerts: []domain.Alert{
				{ID: "alert-001", Market: domain.MarketUS, Severity: domain.SeverityWarning},
			},
			Passport:  p,
			CreatedAt: time.Now().UTC(),
			Metadata:  domain.AssessmentMetadata{TraceID: "trace-001", EngineVersion: "kestrel-1.0"},
		}

		if err := repo.SavePassport(ctx, tenantID, p); err != nil {
			t.Fatalf("SavePassport failed: %v", err)
		}
		if err := repo.SaveAssessment(ctx, tenantID, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		retrieved, err := repo.GetAssessment(ctx, tenantID, a.ID)
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}

		if retrieved.ID != a.ID {
			t.Errorf("expected ID %s, got %s", a.ID, retrieved.ID)
		}
		if retrieved.SubjectID != a.SubjectID {
			t.Errorf("expected SubjectID %s, got %s", a.SubjectID, retrieved.SubjectID)
		}
		if retrieved.Overall.Score != a.Overall.Score {
			t.Errorf("expected score %d, got %d", a.Overall.Score, retrieved.Overall.Score)
		}
		if retrieved.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, retrieved.TenantID)
		}
		if len(retrieved.Alerts) != 1 {
			t.Errorf("expected 1 alert, got %d", len(retrieved.Alerts))
		}
		if retrieved.Passport == nil {
			t.Fatal("expected passport to be attached")
		}
		if retrieved.Passport.Signature.Value != p.Signature.Value {
			t.Errorf("expected signature %s, got %s", p.Signature.Value, retrieved.Passport.Signature.Value)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		_, err := repo.GetAssessment(ctx, otherTenant, "asm-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}

		_, err = repo.GetPassport(ctx, otherTenant, "psp-001")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		a := &domain.Assessment{ID: "asm-test"}

		err := repo.SaveAssessment(ctx, "", a)
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = repo.GetAssessment(ctx, "", "asm-001")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}

		_, err = repo.GetPassport(ctx, "", "psp-001")
		if err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("ListAssessmentsBySubject", func(t *testing.T) {
		a2 := &domain.Assessment{
			ID:        "asm-002",
			SubjectID: "merchant-001",
			Overall:   domain.OverallResult{Score: 81, RiskTier: "low"},
			CreatedAt: time.Now().UTC(),
			Metadata:  domain.AssessmentMetadata{EngineVersion: "kestrel-1.0"},
		}

		if err := repo.SaveAssessment(ctx, tenantID, a2); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		since := time.Now().Add(-1 * time.Hour)
		assessments, err := repo.ListAssessmentsBySubject(ctx, tenantID, "merchant-001", since)
		if err != nil {
			t.Fatalf("ListAssessmentsBySubject failed: %v", err)
		}

		if len(assessments) != 2 {
			t.Errorf("expected 2 assessments, got %d", len(assessments))
		}
	})

	t.Run("SaveAndGetPassport", func(t *testing.T) {
		p := testPassport("psp-002", "merchant-002")

		if err := repo.SavePassport(ctx, tenantID, p); err != nil {
			t.Fatalf("SavePassport failed: %v", err)
		}

		retrieved, err := repo.GetPassport(ctx, tenantID, p.PassportID)
		if err != nil {
			t.Fatalf("GetPassport failed: %v", err)
		}

		if retrieved.SubjectID != p.SubjectID {
			t.Errorf("expected SubjectID %s, got %s", p.SubjectID, retrieved.SubjectID)
		}
		if retrieved.Tier != p.Tier {
			t.Errorf("expected Tier %s, got %s", p.Tier, retrieved.Tier)
		}
		if !retrieved.IssuedAt.Equal(p.IssuedAt) {
			t.Errorf("expected IssuedAt %v, got %v", p.IssuedAt, retrieved.IssuedAt)
		}
		if retrieved.MarketVisas["US"] != "READY" {
			t.Errorf("expected US visa READY, got %s", retrieved.MarketVisas["US"])
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetAssessment(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		_, err = repo.GetPassport(ctx, tenantID, "nonexistent")
		if err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
