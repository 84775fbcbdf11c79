package domain

import "encoding/json"

// ValueKind tags the concrete type carried by a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindBool
	KindEnum
	KindStringList
	KindStringMap
)

// Value is the tagged variant produced by answer conversion. Downstream
// consumers switch on Kind instead of re-parsing raw answers.
type Value struct {
	Kind ValueKind

	Num  float64
	Flag bool
	Tag  string
	List []string
	Map  map[string]string
}

// NullValue represents an unanswered or unconvertible answer.
func NullValue() Value {
	return Value{Kind: KindNull}
}

func NumberValue(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}

func BoolValue(b bool) Value {
	return Value{Kind: KindBool, Flag: b}
}

func EnumValue(tag string) Value {
	return Value{Kind: KindEnum, Tag: tag}
}

func StringListValue(items []string) Value {
	return Value{Kind: KindStringList, List: items}
}

func StringMapValue(m map[string]string) Value {
	return Value{Kind: KindStringMap, Map: m}
}

// IsNull reports whether the value carries no data.
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// AsNumber returns the numeric payload when the value is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// AsBool returns the boolean payload when the value is a bool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Flag, true
}

// AsEnum returns the enum tag when the value is an enum member.
func (v Value) AsEnum() (string, bool) {
	if v.Kind != KindEnum {
		return "", false
	}
	return v.Tag, true
}

// AsStringList returns the list payload when the value is a string list.
func (v Value) AsStringList() ([]string, bool) {
	if v.Kind != KindStringList {
		return nil, false
	}
	return v.List, true
}

// AsStringMap returns the map payload when the value is a string map.
func (v Value) AsStringMap() (map[string]string, bool) {
	if v.Kind != KindStringMap {
		return nil, false
	}
	return v.Map, true
}

// Native returns the untagged Go representation, suitable for JSON
// serialization and CEL activations. Null values map to nil.
func (v Value) Native() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Flag
	case KindEnum:
		return v.Tag
	case KindStringList:
		return v.List
	case KindStringMap:
		return v.Map
	default:
		return nil
	}
}

// MarshalJSON serializes the underlying value without the tag.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON reconstructs the tagged form from the untagged wire shape.
// JSON strings decode as enums, which is the only string-valued kind that
// conversion produces.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch typed := raw.(type) {
	case nil:
		*v = NullValue()
	case float64:
		*v = NumberValue(typed)
	case bool:
		*v = BoolValue(typed)
	case string:
		*v = EnumValue(typed)
	case []any:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
		*v = StringListValue(items)
	case map[string]any:
		m := make(map[string]string, len(typed))
		for k, item := range typed {
			if s, ok := item.(string); ok {
				m[k] = s
			}
		}
		*v = StringMapValue(m)
	default:
		*v = NullValue()
	}
	return nil
}

// FeatureVector maps feature names to typed values. Entries may be null for
// answered-but-unconvertible questions; unanswered questions are absent.
type FeatureVector map[string]Value

// ConfidenceVector maps feature names to confidence scores. Paired 1:1 with
// the FeatureVector produced by the same conversion pass.
type ConfidenceVector map[string]float64

// Number is a convenience accessor for a numeric feature.
func (fv FeatureVector) Number(name string) (float64, bool) {
	v, ok := fv[name]
	if !ok {
		return 0, false
	}
	return v.AsNumber()
}

// Bool is a convenience accessor for a boolean feature.
func (fv FeatureVector) Bool(name string) (bool, bool) {
	v, ok := fv[name]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// Enum is a convenience accessor for an enum feature.
func (fv FeatureVector) Enum(name string) (string, bool) {
	v, ok := fv[name]
	if !ok {
		return "", false
	}
	return v.AsEnum()
}
