package passport

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const testValidity = 180 * 24 * time.Hour

func newTestIssuer(t *testing.T, opts ...Option) *Issuer {
	t.Helper()
	issuer, err := NewIssuer([]byte("issuer-test-secret"), "k1", testValidity, opts...)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func testOverall() domain.OverallResult {
	return domain.OverallResult{
		Score:    74,
		RiskTier: domain.RiskTierModerate,
		Markets: []domain.MarketScoreResult{
			{Market: domain.MarketUS, Score: 78, Visa: domain.VisaReady},
			{Market: domain.MarketEUSCA, Score: 64, Visa: domain.VisaPending},
		},
	}
}

func TestNewIssuer(t *testing.T) {
	t.Run("RequiresSecret", func(t *testing.T) {
		_, err := NewIssuer(nil, "k1", testValidity)
		if err == nil {
			t.Error("expected error for empty secret")
		}
	})

	t.Run("RequiresKeyID", func(t *testing.T) {
		_, err := NewIssuer([]byte("secret"), "", testValidity)
		if err == nil {
			t.Error("expected error for empty key id")
		}
	})

	t.Run("RequiresPositiveValidity", func(t *testing.T) {
		_, err := NewIssuer([]byte("secret"), "k1", 0)
		if err == nil {
			t.Error("expected error for zero validity")
		}
	})
}

func TestIssue(t *testing.T) {
	issuer := newTestIssuer(t)

	p, err := issuer.Issue("merchant-001", testOverall(), domain.TierSelfAttested)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if p.PassportID == "" {
		t.Error("expected a passport id")
	}
	if p.SubjectID != "merchant-001" {
		t.Errorf("expected subject 'merchant-001', got '%s'", p.SubjectID)
	}
	if p.OverallScore != 74 {
		t.Errorf("expected overall score 74, got %d", p.OverallScore)
	}
	if p.MarketVisas["US"] != "READY" || p.MarketVisas["EU_SCA"] != "PENDING" {
		t.Errorf("expected flattened visas, got %v", p.MarketVisas)
	}
	if !p.ExpiresAt.Equal(p.IssuedAt.Add(testValidity)) {
		t.Errorf("expected expiry = issued + validity, got issued=%v expires=%v", p.IssuedAt, p.ExpiresAt)
	}
	if !p.IssuedAt.Equal(p.IssuedAt.Truncate(time.Second)) {
		t.Errorf("expected issued_at truncated to whole seconds, got %v", p.IssuedAt)
	}
	if p.Signature.Algorithm != domain.SignatureAlgorithmHMACSHA256 {
		t.Errorf("expected HMAC-SHA256 algorithm, got %s", p.Signature.Algorithm)
	}
	if p.Signature.KeyID != "k1" {
		t.Errorf("expected key id k1, got %s", p.Signature.KeyID)
	}
	if p.Signature.Value == "" {
		t.Error("expected a signature value")
	}
}

func TestVerify(t *testing.T) {
	issuer := newTestIssuer(t)

	issued, err := issuer.Issue("merchant-001", testOverall(), domain.TierDataVerified)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("FreshPassportVerifies", func(t *testing.T) {
		result := issuer.Verify(issued)
		if !result.Valid || result.Reason != domain.VerifyOK {
			t.Errorf("expected valid, got %+v", result)
		}
	})

	t.Run("SurvivesJSONRoundTrip", func(t *testing.T) {
		data, _ := json.Marshal(issued)
		var decoded domain.Passport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		result := issuer.Verify(decoded)
		if !result.Valid {
			t.Errorf("expected round-tripped passport to verify, got %+v", result)
		}
	})

	t.Run("TamperedFields", func(t *testing.T) {
		cases := []struct {
			name   string
			mutate func(p *domain.Passport)
		}{
			{"Score", func(p *domain.Passport) { p.OverallScore = 100 }},
			{"Subject", func(p *domain.Passport) { p.SubjectID = "merchant-other" }},
			{"Tier", func(p *domain.Passport) { p.Tier = domain.TierDataVerified + "x" }},
			{"Visa", func(p *domain.Passport) { p.MarketVisas = map[string]string{"US": "READY", "EU_SCA": "READY"} }},
			{"Expiry", func(p *domain.Passport) { p.ExpiresAt = p.ExpiresAt.Add(24 * time.Hour) }},
			{"KeyID", func(p *domain.Passport) { p.Signature.KeyID = "k2" }},
			{"SignatureValue", func(p *domain.Passport) { p.Signature.Value = "00" + p.Signature.Value[2:] }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				tampered := issued
				tampered.MarketVisas = map[string]string{}
				for k, v := range issued.MarketVisas {
					tampered.MarketVisas[k] = v
				}
				tc.mutate(&tampered)

				result := issuer.Verify(tampered)
				if result.Valid {
					t.Error("expected tampered passport to fail")
				}
				if result.Reason != domain.VerifyBadSignature {
					t.Errorf("expected reason bad_signature, got %s", result.Reason)
				}
			})
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		cases := []struct {
			name string
			p    domain.Passport
		}{
			{"Empty", domain.Passport{}},
			{"NoSignature", func() domain.Passport { p := issued; p.Signature.Value = ""; return p }()},
			{"NoID", func() domain.Passport { p := issued; p.PassportID = ""; return p }()},
			{"UnknownAlgorithm", func() domain.Passport { p := issued; p.Signature.Algorithm = "none"; return p }()},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				result := issuer.Verify(tc.p)
				if result.Valid {
					t.Error("expected malformed passport to fail")
				}
				if result.Reason != domain.VerifyMalformed {
					t.Errorf("expected reason malformed, got %s", result.Reason)
				}
			})
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewIssuer([]byte("a-different-secret"), "k1", testValidity)
		if err != nil {
			t.Fatalf("NewIssuer failed: %v", err)
		}

		result := other.Verify(issued)
		if result.Valid || result.Reason != domain.VerifyBadSignature {
			t.Errorf("expected bad_signature under a different secret, got %+v", result)
		}
	})
}

func TestVerifyExpiry(t *testing.T) {
	issuedAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := issuedAt

	issuer := newTestIssuer(t, WithClock(func() time.Time { return clock }))

	issued, err := issuer.Issue("merchant-001", testOverall(), domain.TierSelfAttested)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("ValidUntilExpiry", func(t *testing.T) {
		clock = issuedAt.Add(testValidity - time.Second)
		if result := issuer.Verify(issued); !result.Valid {
			t.Errorf("expected valid one second before expiry, got %+v", result)
		}
	})

	t.Run("ExpiredAtBoundary", func(t *testing.T) {
		// expires_at itself is already outside the validity window
		clock = issuedAt.Add(testValidity)
		result := issuer.Verify(issued)
		if result.Valid || result.Reason != domain.VerifyExpired {
			t.Errorf("expected expired at the boundary, got %+v", result)
		}
	})

	t.Run("ExpiredLongAfter", func(t *testing.T) {
		clock = issuedAt.Add(testValidity + 24*time.Hour)
		result := issuer.Verify(issued)
		if result.Valid || result.Reason != domain.VerifyExpired {
			t.Errorf("expected expired, got %+v", result)
		}
	})

	t.Run("ExpiredIntactIsNotBadSignature", func(t *testing.T) {
		// An intact-but-stale credential must report expiry, and a stale AND
		// tampered credential must report the signature failure first
		clock = issuedAt.Add(testValidity + time.Hour)

		tampered := issued
		tampered.OverallScore = 99
		result := issuer.Verify(tampered)
		if result.Reason != domain.VerifyBadSignature {
			t.Errorf("expected bad_signature to win over expiry, got %s", result.Reason)
		}
	})
}

func TestToken(t *testing.T) {
	issuer := newTestIssuer(t)

	issued, err := issuer.Issue("merchant-001", testOverall(), domain.TierDataVerified)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	t.Run("RoundTrip", func(t *testing.T) {
		token, err := issuer.Token(issued)
		if err != nil {
			t.Fatalf("Token failed: %v", err)
		}
		if token == "" {
			t.Fatal("expected a non-empty token")
		}

		claims, result := issuer.ParseToken(token)
		if !result.Valid {
			t.Fatalf("expected valid token, got %+v", result)
		}

		if claims.ID != issued.PassportID {
			t.Errorf("expected jti %s, got %s", issued.PassportID, claims.ID)
		}
		if claims.Subject != issued.SubjectID {
			t.Errorf("expected sub %s, got %s", issued.SubjectID, claims.Subject)
		}
		if claims.OverallScore != issued.OverallScore {
			t.Errorf("expected score %d, got %d", issued.OverallScore, claims.OverallScore)
		}
		if claims.Tier != string(issued.Tier) {
			t.Errorf("expected tier %s, got %s", issued.Tier, claims.Tier)
		}
		if claims.MarketVisas["US"] != "READY" {
			t.Errorf("expected US visa in claims, got %v", claims.MarketVisas)
		}
		if claims.Issuer != tokenIssuer {
			t.Errorf("expected issuer %s, got %s", tokenIssuer, claims.Issuer)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _ := issuer.Token(issued)

		other, _ := NewIssuer([]byte("a-different-secret"), "k1", testValidity)
		_, result := other.ParseToken(token)
		if result.Valid || result.Reason != domain.VerifyBadSignature {
			t.Errorf("expected bad_signature under a different secret, got %+v", result)
		}
	})

	t.Run("GarbageToken", func(t *testing.T) {
		_, result := issuer.ParseToken("not.a.token")
		if result.Valid {
			t.Error("expected garbage token to fail")
		}
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		issuedAt := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
		clock := issuedAt

		clocked := newTestIssuer(t, WithClock(func() time.Time { return clock }))
		p, _ := clocked.Issue("merchant-001", testOverall(), domain.TierSelfAttested)
		token, _ := clocked.Token(p)

		clock = issuedAt.Add(testValidity + time.Hour)
		_, result := clocked.ParseToken(token)
		if result.Valid || result.Reason != domain.VerifyExpired {
			t.Errorf("expected expired token, got %+v", result)
		}
	})
}

func TestCanonicalPayload(t *testing.T) {
	issuer := newTestIssuer(t)

	t.Run("StableAcrossCalls", func(t *testing.T) {
		p, _ := issuer.Issue("merchant-001", testOverall(), domain.TierSelfAttested)

		first, err := canonicalPayload(p)
		if err != nil {
			t.Fatalf("canonicalPayload failed: %v", err)
		}
		for i := 0; i < 5; i++ {
			again, _ := canonicalPayload(p)
			if string(again) != string(first) {
				t.Fatal("canonical payload is not stable")
			}
		}
	})

	t.Run("ExcludesSignatureValue", func(t *testing.T) {
		p, _ := issuer.Issue("merchant-001", testOverall(), domain.TierSelfAttested)

		withSig, _ := canonicalPayload(p)
		p.Signature.Value = ""
		withoutSig, _ := canonicalPayload(p)

		if string(withSig) != string(withoutSig) {
			t.Error("expected signature value to be excluded from the canonical form")
		}
	})

	t.Run("NilVisasMarshalEmpty", func(t *testing.T) {
		p := domain.Passport{
			PassportID: "psp-x",
			SubjectID:  "merchant-x",
			Signature:  domain.Signature{Algorithm: domain.SignatureAlgorithmHMACSHA256, KeyID: "k1"},
		}

		payload, err := canonicalPayload(p)
		if err != nil {
			t.Fatalf("canonicalPayload failed: %v", err)
		}
		if !json.Valid(payload) {
			t.Error("expected valid JSON payload")
		}
	})
}
