package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    overall_score INTEGER NOT NULL,
    risk_tier TEXT NOT NULL,
    features TEXT NOT NULL,
    confidence TEXT NOT NULL,
    overall TEXT NOT NULL,
    alerts TEXT,
    passport_id TEXT,
    created_at TIMESTAMP NOT NULL,
    metadata TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_subject ON assessments(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(tenant_id, created_at);
`

const schemaPassports = `
CREATE TABLE IF NOT EXISTS passports (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    overall_score INTEGER NOT NULL,
    tier TEXT NOT NULL,
    market_visas TEXT NOT NULL,
    issued_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    algorithm TEXT NOT NULL,
    key_id TEXT NOT NULL,
    signature TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_passports_tenant ON passports(tenant_id);
CREATE INDEX IF NOT EXISTS idx_passports_subject ON passports(tenant_id, subject_id);
CREATE INDEX IF NOT EXISTS idx_passports_expires ON passports(tenant_id, expires_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaPassports,
	}
}
