package decode

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind is the primitive JSON type a schema field expects.
type Kind int

const (
	Int Kind = iota + 1
	String
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "integer"
	case String:
		return "string"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field binds one required JSON key to a field of T.
type Field[T any] struct {
	Key  string
	Kind Kind
	set  func(*T, any)
}

// IntField declares a required integer key.
func IntField[T any](key string, set func(*T, int)) Field[T] {
	return Field[T]{Key: key, Kind: Int, set: func(t *T, v any) { set(t, v.(int)) }}
}

// StringField declares a required string key.
func StringField[T any](key string, set func(*T, string)) Field[T] {
	return Field[T]{Key: key, Kind: String, set: func(t *T, v any) { set(t, v.(string)) }}
}

// Schema is the ordered list of required fields for an entity type.
// Parse checks fields in declaration order and stops at the first failure.
type Schema[T any] struct {
	Fields []Field[T]
}

// NewSchema builds a Schema from fields in the order given.
func NewSchema[T any](fields ...Field[T]) Schema[T] {
	return Schema[T]{Fields: fields}
}

// Keys returns the required keys in declaration order.
func (s Schema[T]) Keys() []string {
	keys := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		keys[i] = f.Key
	}
	return keys
}

// Parse builds a T from a generic JSON object. It is all-or-nothing: any
// missing or mistyped field fails the whole object.
func (s Schema[T]) Parse(obj map[string]any) (T, error) {
	var out, zero T
	for _, f := range s.Fields {
		raw, ok := obj[f.Key]
		if !ok {
			return zero, &FieldMissingError{Key: f.Key}
		}
		v, ok := coerce(f.Kind, raw)
		if !ok {
			return zero, &FieldTypeMismatchError{Key: f.Key, Expected: f.Kind, Actual: typeName(raw)}
		}
		f.set(&out, v)
	}
	return out, nil
}

func coerce(k Kind, raw any) (any, bool) {
	switch k {
	case Int:
		return asInt(raw)
	case String:
		s, ok := raw.(string)
		return s, ok
	}
	return nil, false
}

// asInt accepts JSON numbers that are whole and fit in an int.
func asInt(raw any) (any, bool) {
	switch n := raw.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return wholeFloat(f)
	case float64:
		return wholeFloat(n)
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return nil, false
}

func wholeFloat(f float64) (any, bool) {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return nil, false
	}
	if f >= math.MaxInt || f < math.MinInt {
		return nil, false
	}
	return int(f), true
}

func typeName(raw any) string {
	switch raw.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case json.Number, float64, int, int64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
