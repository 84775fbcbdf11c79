package passport

import (
	"encoding/json"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// canonicalTimeFormat is the timestamp layout inside the signed payload.
// Issued and expiry times are truncated to whole seconds at issue so the
// canonical form survives JSON round-trips in any language.
const canonicalTimeFormat = time.RFC3339

// canonicalPayload produces the byte form that is signed and verified. The
// signature value itself is excluded; the algorithm and key id are signed so
// they cannot be swapped. encoding/json marshals map keys in lexicographic
// order with no extra whitespace, which is exactly the canonical rule the
// wire contract documents.
func canonicalPayload(p domain.Passport) ([]byte, error) {
	visas := p.MarketVisas
	if visas == nil {
		visas = map[string]string{}
	}

	return json.Marshal(map[string]any{
		"algorithm":     p.Signature.Algorithm,
		"expires_at":    p.ExpiresAt.UTC().Format(canonicalTimeFormat),
		"issued_at":     p.IssuedAt.UTC().Format(canonicalTimeFormat),
		"key_id":        p.Signature.KeyID,
		"market_visas":  visas,
		"overall_score": p.OverallScore,
		"passport_id":   p.PassportID,
		"subject_id":    p.SubjectID,
		"tier":          string(p.Tier),
	})
}
