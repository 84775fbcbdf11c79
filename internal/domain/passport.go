package domain

import "time"

// PassportTier records how the passport's underlying answers were sourced.
type PassportTier string

const (
	TierSelfAttested PassportTier = "self-attested"
	TierDataVerified PassportTier = "data-verified"
)

// SignatureAlgorithmHMACSHA256 is the only signing algorithm currently
// issued. The algorithm name is part of the public wire contract.
const SignatureAlgorithmHMACSHA256 = "HMAC-SHA256"

// Signature is the keyed-hash envelope attached to a passport.
type Signature struct {
	Algorithm string `json:"algorithm"`
	KeyID     string `json:"key_id"`
	Value     string `json:"value"`
}

// Passport is the signed, expiring credential attesting to a subject's
// overall score and per-market visa statuses. The JSON form of this struct
// is the wire format third parties verify against; field names and the
// canonicalization rule must remain stable across versions.
type Passport struct {
	PassportID   string            `json:"passport_id"`
	SubjectID    string            `json:"subject_id"`
	OverallScore int               `json:"overall_score"`
	Tier         PassportTier      `json:"tier"`
	MarketVisas  map[string]string `json:"market_visas"`
	IssuedAt     time.Time         `json:"issued_at"`
	ExpiresAt    time.Time         `json:"expires_at"`
	Signature    Signature         `json:"signature"`
}

// VerifyReason distinguishes why a passport failed verification.
type VerifyReason string

const (
	VerifyOK           VerifyReason = "ok"
	VerifyBadSignature VerifyReason = "bad_signature"
	VerifyExpired      VerifyReason = "expired"
	VerifyMalformed    VerifyReason = "malformed"
)

// VerificationResult is the outcome of passport verification. Failures are
// values, never errors: a tampered or expired credential is a normal input.
type VerificationResult struct {
	Valid  bool         `json:"valid"`
	Reason VerifyReason `json:"reason"`
}
