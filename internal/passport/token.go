package passport

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// tokenIssuer is the iss claim on exported passport tokens.
const tokenIssuer = "kestrel"

// TokenClaims is the JWT projection of a passport, for processors that
// verify credentials offline through standard JWT tooling. The canonical
// HMAC-signed JSON form remains authoritative; the token is derived.
type TokenClaims struct {
	OverallScore int               `json:"overall_score"`
	Tier         string            `json:"tier"`
	MarketVisas  map[string]string `json:"market_visas"`
	KeyID        string            `json:"key_id"`
	jwt.RegisteredClaims
}

// Token exports a passport as a signed HS256 JWT using the issuer's secret.
func (i *Issuer) Token(p domain.Passport) (string, error) {
	claims := TokenClaims{
		OverallScore: p.OverallScore,
		Tier:         string(p.Tier),
		MarketVisas:  p.MarketVisas,
		KeyID:        i.keyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        p.PassportID,
			Subject:   p.SubjectID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(p.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(p.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign passport token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an exported passport token and returns its claims.
// Expired tokens report VerifyExpired through the returned result so the
// caller can distinguish expiry from tampering, matching Verify.
func (i *Issuer) ParseToken(tokenString string) (*TokenClaims, domain.VerificationResult) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.VerificationResult{Valid: false, Reason: domain.VerifyExpired}
		}
		return nil, domain.VerificationResult{Valid: false, Reason: domain.VerifyBadSignature}
	}
	if !parsed.Valid {
		return nil, domain.VerificationResult{Valid: false, Reason: domain.VerifyBadSignature}
	}

	return claims, domain.VerificationResult{Valid: true, Reason: domain.VerifyOK}
}
