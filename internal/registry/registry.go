// Package registry maps immutable question identifiers to typed,
// confidence-weighted features.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	// ErrUnknownQuestion is returned for question ids with no definition.
	// Callers log and skip; one unknown id never aborts a batch.
	ErrUnknownQuestion = errors.New("unknown question id")
)

// Confidence increments applied on top of a definition's range minimum.
const (
	answeredIncrement   = 0.15
	engagementIncrement = 0.05
	latencyIncrement    = 0.05

	deepEngagementFloor = 0.7
	fastAnswerSecs      = 20.0
)

// Registry holds the immutable question table. Safe for concurrent reads
// after construction; it is never mutated.
type Registry struct {
	defs map[string]domain.FeatureDefinition
}

// New builds a registry from feature definitions. Definitions are validated;
// any inconsistency is a configuration error and must abort startup.
func New(defs []domain.FeatureDefinition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("registry: no feature definitions")
	}

	table := make(map[string]domain.FeatureDefinition, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := table[d.QuestionID]; dup {
			return nil, fmt.Errorf("registry: duplicate question id %s", d.QuestionID)
		}
		table[d.QuestionID] = d
	}

	return &Registry{defs: table}, nil
}

// Lookup returns the definition for a question id.
func (r *Registry) Lookup(questionID string) (domain.FeatureDefinition, error) {
	def, ok := r.defs[questionID]
	if !ok {
		return domain.FeatureDefinition{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	return def, nil
}

// Definitions returns all feature definitions, for the read-only API surface.
func (r *Registry) Definitions() []domain.FeatureDefinition {
	out := make([]domain.FeatureDefinition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	return out
}

// Count returns the number of registered questions.
func (r *Registry) Count() int {
	return len(r.defs)
}

// Convert turns a raw answer into (feature name, typed value, confidence).
// A conversion failure for a known question yields a null value with
// confidence computed as usual; it never aborts the batch.
func (r *Registry) Convert(questionID string, raw any, cctx domain.ConversionContext) (string, domain.Value, float64, error) {
	def, err := r.Lookup(questionID)
	if err != nil {
		return "", domain.NullValue(), 0, err
	}

	value := convertValue(def, raw)
	conf := r.confidence(def, raw, cctx)

	return def.FeatureName, value, conf, nil
}

// ConvertAll converts a full answer map into paired feature and confidence
// vectors. Unknown question ids are logged and skipped; skipped counts the
// ids that produced no feature.
func (r *Registry) ConvertAll(answers map[string]any, cctx domain.ConversionContext) (domain.FeatureVector, domain.ConfidenceVector, int) {
	features := make(domain.FeatureVector, len(answers)+1)
	confidence := make(domain.ConfidenceVector, len(answers)+1)
	skipped := 0

	for questionID, raw := range answers {
		name, value, conf, err := r.Convert(questionID, raw, cctx)
		if err != nil {
			slog.Warn("skipping unknown question", "question_id", questionID)
			skipped++
			continue
		}
		features[name] = value
		confidence[name] = conf
	}

	if cctx.HasVerifiedData {
		features[domain.FeatureVerifiedData] = domain.BoolValue(true)
		confidence[domain.FeatureVerifiedData] = 1.0
	}

	return features, confidence, skipped
}

// confidence starts at the definition's range minimum and climbs with
// answer presence, verified data, and behavioral signals, capped at the
// range maximum.
func (r *Registry) confidence(def domain.FeatureDefinition, raw any, cctx domain.ConversionContext) float64 {
	conf := def.ConfidenceMin

	answered := !isEmptyAnswer(raw)
	if answered {
		conf += answeredIncrement
	}

	if cctx.HasVerifiedData && def.VerifiableByUpload {
		return def.ConfidenceMax
	}

	if answered {
		if cctx.EngagementDepth >= deepEngagementFloor {
			conf += engagementIncrement
		}
		if cctx.AnswerLatencySecs > 0 && cctx.AnswerLatencySecs <= fastAnswerSecs {
			conf += latencyIncrement
		}
	}

	if conf > def.ConfidenceMax {
		conf = def.ConfidenceMax
	}
	return conf
}

func isEmptyAnswer(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case map[string]string:
		return len(v) == 0
	default:
		return false
	}
}

// convertValue applies the type conversion rules for one answer.
func convertValue(def domain.FeatureDefinition, raw any) domain.Value {
	if isEmptyAnswer(raw) {
		return domain.NullValue()
	}

	switch def.Type {
	case domain.TypeFloat:
		n, ok := parseFloat(raw)
		if !ok {
			return domain.NullValue()
		}
		return domain.NumberValue(n)

	case domain.TypeInt:
		n, ok := parseInt(raw)
		if !ok {
			return domain.NullValue()
		}
		return domain.NumberValue(float64(n))

	case domain.TypeBool:
		b, ok := parseBool(raw)
		if !ok {
			return domain.NullValue()
		}
		return domain.BoolValue(b)

	case domain.TypeEnum:
		tag, ok := raw.(string)
		if !ok {
			return domain.NullValue()
		}
		tag = strings.ToLower(strings.TrimSpace(tag))
		for _, allowed := range def.AllowedValues {
			if tag == allowed {
				return domain.EnumValue(tag)
			}
		}
		// Not a member of the allowed set.
		return domain.NullValue()

	case domain.TypeStringList:
		// Parse failures default to empty, not null.
		return domain.StringListValue(parseStringList(raw))

	case domain.TypeStringMap:
		return domain.StringMapValue(parseStringMap(raw))

	default:
		return domain.NullValue()
	}
}

// parseFloat converts a raw numeric answer. Strings with a trailing "%" and
// bare values above 1.0 are treated as percentages and divided by 100.
func parseFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return normalizePercent(v), true
	case float32:
		return normalizePercent(float64(v)), true
	case int:
		return normalizePercent(float64(v)), true
	case int64:
		return normalizePercent(float64(v)), true
	case string:
		s := strings.TrimSpace(v)
		percent := strings.HasSuffix(s, "%")
		s = strings.TrimSuffix(s, "%")
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		if percent {
			return n / 100, true
		}
		return normalizePercent(n), true
	default:
		return 0, false
	}
}

func normalizePercent(n float64) float64 {
	if n > 1.0 {
		return n / 100
	}
	return n
}

func parseInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func parseBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
		return false, false
	default:
		return false, false
	}
}

func parseStringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	default:
		return []string{}
	}
}

func parseStringMap(raw any) map[string]string {
	switch v := raw.(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			if s, ok := item.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return map[string]string{}
	}
}
