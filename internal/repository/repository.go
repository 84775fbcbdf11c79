// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAssessment stores an assessment result with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, a *domain.Assessment) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	features, _ := json.Marshal(a.Features)
	confidence, _ := json.Marshal(a.Confidence)
	overall, _ := json.Marshal(a.Overall)
	alerts, _ := json.Marshal(a.Alerts)
	metadata, _ := json.Marshal(a.Metadata)

	passportID := ""
	if a.Passport != nil {
		passportID = a.Passport.PassportID
	}

	query := `
		INSERT INTO assessments (
			id, tenant_id, subject_id, overall_score, risk_tier,
			features, confidence, overall, alerts, passport_id,
			created_at, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		a.ID, tenantID, a.SubjectID, a.Overall.Score, a.Overall.RiskTier,
		string(features), string(confidence), string(overall), string(alerts), passportID,
		a.CreatedAt, string(metadata),
	)
	return err
}

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, assessmentID string) (*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, subject_id, features, confidence,
			   overall, alerts, passport_id, created_at, metadata
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`

	a, err := r.scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, assessmentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	r.attachPassport(ctx, tenantID, a)
	return a, nil
}

// ListAssessmentsBySubject retrieves assessments for a subject with tenant
// isolation, most recent first.
func (r *SQLRepository) ListAssessmentsBySubject(ctx context.Context, tenantID string, subjectID string, since time.Time) ([]*domain.Assessment, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, subject_id, features, confidence,
			   overall, alerts, passport_id, created_at, metadata
		FROM assessments
		WHERE tenant_id = ? AND subject_id = ? AND created_at >= ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, subjectID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []*domain.Assessment
	for rows.Next() {
		a, err := r.scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		r.attachPassport(ctx, tenantID, a)
		assessments = append(assessments, a)
	}

	return assessments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanAssessment(row rowScanner) (*domain.Assessment, error) {
	var a domain.Assessment
	var features, confidence, overall, alerts, metadata string
	var passportID string

	if err := row.Scan(
		&a.ID, &a.TenantID, &a.SubjectID,
		&features, &confidence, &overall, &alerts, &passportID,
		&a.CreatedAt, &metadata,
	); err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(features), &a.Features)
	json.Unmarshal([]byte(confidence), &a.Confidence)
	json.Unmarshal([]byte(overall), &a.Overall)
	if alerts != "" {
		json.Unmarshal([]byte(alerts), &a.Alerts)
	}
	json.Unmarshal([]byte(metadata), &a.Metadata)

	if passportID != "" {
		a.Passport = &domain.Passport{PassportID: passportID}
	}

	return &a, nil
}

// attachPassport replaces the passport stub on a loaded assessment with the
// full stored credential. A missing passport row is not an error; the
// assessment simply carries the id.
func (r *SQLRepository) attachPassport(ctx context.Context, tenantID string, a *domain.Assessment) {
	if a.Passport == nil || a.Passport.PassportID == "" {
		return
	}
	if p, err := r.GetPassport(ctx, tenantID, a.Passport.PassportID); err == nil {
		a.Passport = p
	}
}

// SavePassport stores an issued passport with tenant isolation.
func (r *SQLRepository) SavePassport(ctx context.Context, tenantID string, p *domain.Passport) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	visas, _ := json.Marshal(p.MarketVisas)

	query := `
		INSERT INTO passports (
			id, tenant_id, subject_id, overall_score, tier,
			market_visas, issued_at, expires_at, algorithm, key_id, signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.PassportID, tenantID, p.SubjectID, p.OverallScore, string(p.Tier),
		string(visas), p.IssuedAt, p.ExpiresAt,
		p.Signature.Algorithm, p.Signature.KeyID, p.Signature.Value,
	)
	return err
}

// GetPassport retrieves a passport by ID with tenant isolation.
func (r *SQLRepository) GetPassport(ctx context.Context, tenantID string, passportID string) (*domain.Passport, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, subject_id, overall_score, tier, market_visas,
			   issued_at, expires_at, algorithm, key_id, signature
		FROM passports
		WHERE tenant_id = ? AND id = ?
	`

	var p domain.Passport
	var tier, visas string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, passportID).Scan(
		&p.PassportID, &p.SubjectID, &p.OverallScore, &tier, &visas,
		&p.IssuedAt, &p.ExpiresAt,
		&p.Signature.Algorithm, &p.Signature.KeyID, &p.Signature.Value,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Tier = domain.PassportTier(tier)
	json.Unmarshal([]byte(visas), &p.MarketVisas)

	// Stored timestamps come back in the driver's local zone; the signed
	// canonical form is UTC to the second.
	p.IssuedAt = p.IssuedAt.UTC().Truncate(time.Second)
	p.ExpiresAt = p.ExpiresAt.UTC().Truncate(time.Second)

	return &p, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
