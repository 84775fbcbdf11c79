// Package passport assembles, signs, and verifies merchant compliance
// credentials.
package passport

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Issuer signs and verifies passports with a process-wide secret fixed at
// startup. The secret is injected here, never read ambiently at call time.
type Issuer struct {
	secret   []byte
	keyID    string
	validity time.Duration
	now      func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock overrides the issuer's clock for testing.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates a passport issuer. The secret must be non-empty: an
// unsigned credential is worse than no credential.
func NewIssuer(secret []byte, keyID string, validity time.Duration, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("passport issuer: signing secret is required")
	}
	if keyID == "" {
		return nil, fmt.Errorf("passport issuer: key id is required")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("passport issuer: validity window must be positive")
	}

	issuer := &Issuer{
		secret:   secret,
		keyID:    keyID,
		validity: validity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer, nil
}

// Issue assembles and signs a passport for a scored subject.
// expires_at is always issued_at plus the validity window.
func (i *Issuer) Issue(subjectID string, overall domain.OverallResult, tier domain.PassportTier) (domain.Passport, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)

	p := domain.Passport{
		PassportID:   "psp-" + uuid.New().String(),
		SubjectID:    subjectID,
		OverallScore: overall.Score,
		Tier:         tier,
		MarketVisas:  overall.MarketVisas(),
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(i.validity),
		Signature: domain.Signature{
			Algorithm: domain.SignatureAlgorithmHMACSHA256,
			KeyID:     i.keyID,
		},
	}

	digest, err := i.sign(p)
	if err != nil {
		return domain.Passport{}, err
	}
	p.Signature.Value = digest

	return p, nil
}

// Verify recomputes the signature over the canonical form and compares in
// constant time, then checks expiry as a separate, explicit condition.
// An expired-but-intact credential reports VerifyExpired, not a signature
// failure. Verification never returns an error for bad credentials.
func (i *Issuer) Verify(p domain.Passport) domain.VerificationResult {
	if p.PassportID == "" || p.Signature.Value == "" {
		return domain.VerificationResult{Valid: false, Reason: domain.VerifyMalformed}
	}
	if p.Signature.Algorithm != domain.SignatureAlgorithmHMACSHA256 {
		return domain.VerificationResult{Valid: false, Reason: domain.VerifyMalformed}
	}

	expected, err := i.sign(p)
	if err != nil {
		return domain.VerificationResult{Valid: false, Reason: domain.VerifyMalformed}
	}
	if !hmac.Equal([]byte(expected), []byte(p.Signature.Value)) {
		return domain.VerificationResult{Valid: false, Reason: domain.VerifyBadSignature}
	}

	if !i.now().Before(p.ExpiresAt) {
		return domain.VerificationResult{Valid: false, Reason: domain.VerifyExpired}
	}

	return domain.VerificationResult{Valid: true, Reason: domain.VerifyOK}
}

// sign computes the hex-encoded HMAC-SHA256 digest of the canonical form.
func (i *Issuer) sign(p domain.Passport) (string, error) {
	payload, err := canonicalPayload(p)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize passport: %w", err)
	}

	mac := hmac.New(sha256.New, i.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}
