// Package property models material property bags as a closed set of typed values.
//
// Property bags arrive from stores as loosely typed nested maps. They are
// converted once, at the store boundary, into Value trees; everything past
// that point works on the closed variant set.
package property

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindText
	KindBool
	KindList
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindList:
		return "list"
	case KindNested:
		return "nested"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged property value. The zero Value is Missing.
type Value struct {
	kind   Kind
	num    float64
	text   string
	flag   bool
	list   []Value
	nested Map
}

// Map is a nested property bag keyed by property name.
type Map map[string]Value

// Missing returns the absent value.
func Missing() Value { return Value{} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Text returns a textual value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// List returns a list value. The slice is copied.
func List(items ...Value) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// Nested returns a nested map value.
func Nested(m Map) Value { return Value{kind: KindNested, nested: m} }

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is absent.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Num returns the numeric payload; ok is false for non-numbers.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the text payload; ok is false for non-text values.
func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

// Flag returns the boolean payload; ok is false for non-booleans.
func (v Value) Flag() (bool, bool) { return v.flag, v.kind == KindBool }

// Items returns the list elements; ok is false for non-lists.
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Fields returns the nested map; ok is false for non-nested values.
func (v Value) Fields() (Map, bool) { return v.nested, v.kind == KindNested }

// NormalizeText lowercases s, trims it and collapses internal whitespace runs.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key returns a canonical string for v, used for set membership and equality.
// Text is normalized, so "Matte " and "matte" share a key.
func (v Value) Key() string {
	var b strings.Builder
	v.writeKey(&b)
	return b.String()
}

func (v Value) writeKey(b *strings.Builder) {
	switch v.kind {
	case KindMissing:
		b.WriteString("m:")
	case KindNumber:
		n := v.num
		if n == 0 {
			n = 0 // -0 and 0 share a key
		}
		b.WriteString("n:")
		b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	case KindText:
		b.WriteString("t:")
		b.WriteString(strconv.Quote(NormalizeText(v.text)))
	case KindBool:
		b.WriteString("b:")
		b.WriteString(strconv.FormatBool(v.flag))
	case KindList:
		b.WriteString("l:[")
		for i, item := range v.list {
			if i > 0 {
				b.WriteByte(',')
			}
			item.writeKey(b)
		}
		b.WriteByte(']')
	case KindNested:
		b.WriteString("o:{")
		keys := make([]string, 0, len(v.nested))
		for k := range v.nested {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte('=')
			v.nested[k].writeKey(b)
		}
		b.WriteByte('}')
	}
}

// Equal reports value equality after text normalization.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing:
		return true
	case KindNumber:
		return v.num == o.num || (math.IsNaN(v.num) && math.IsNaN(o.num))
	case KindText:
		return NormalizeText(v.text) == NormalizeText(o.text)
	case KindBool:
		return v.flag == o.flag
	default:
		return v.Key() == o.Key()
	}
}

// Native converts v back to plain Go values (nil, float64, string, bool,
// []any, map[string]any) for encoding.
func (v Value) Native() any {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil
		}
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.flag
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Native()
		}
		return out
	case KindNested:
		return v.nested.Native()
	default:
		return nil
	}
}

// Native converts the map to map[string]any.
func (m Map) Native() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Native()
	}
	return out
}

// String renders v for display.
func (v Value) String() string {
	switch v.kind {
	case KindMissing:
		return "—"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindText:
		return v.text
	case KindBool:
		if v.flag {
			return "yes"
		}
		return "no"
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return strings.Join(parts, ", ")
	default:
		data, _ := json.Marshal(v.Native())
		return string(data)
	}
}

// MarshalJSON encodes v as its native JSON form; Missing encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes any JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
