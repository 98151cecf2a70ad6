// Package jsonval provides an ordered JSON value type.
//
// Objects keep their members in document order, which field discovery and
// projection rely on ("first key wins" heuristics). The zero Value is Absent
// and stands for "no document" or "no value at this path".
package jsonval

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	Absent Kind = iota
	Null
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "absent"
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a JSON value. Values are immutable once built.
type Value struct {
	kind    Kind
	b       bool
	n       float64
	s       string
	elems   []Value
	members []Member
}

func NullValue() Value { return Value{kind: Null} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func NumberValue(n float64) Value { return Value{kind: Number, n: n} }
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue builds an array from elems.
func ArrayValue(elems ...Value) Value {
	return Value{kind: Array, elems: elems}
}

// ObjectValue builds an object. A repeated key keeps its first position and
// takes the last value, matching how JavaScript engines treat duplicate keys.
func ObjectValue(members ...Member) Value {
	var b objectBuilder
	for _, m := range members {
		b.set(m.Key, m.Value)
	}
	return b.value()
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsAbsent() bool { return v.kind == Absent }
func (v Value) IsNull() bool { return v.kind == Null }
func (v Value) IsObject() bool { return v.kind == Object }
func (v Value) IsArray() bool { return v.kind == Array }
func (v Value) IsNumber() bool { return v.kind == Number }
func (v Value) IsString() bool { return v.kind == String }
func (v Value) Bool() bool { return v.b }
func (v Value) Float() float64 { return v.n }
func (v Value) Str() string { return v.s }
func (v Value) Members() []Member { return v.members }
func (v Value) Elements() []Value { return v.elems }

// Len returns the number of members or elements; zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.elems)
	case Object:
		return len(v.members)
	}
	return 0
}

// Get returns the member named key of an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns element i of an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.elems) {
		return Value{}, false
	}
	return v.elems[i], true
}

// Keys returns object keys in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// First returns the first member of an object.
func (v Value) First() (Member, bool) {
	if v.kind != Object || len(v.members) == 0 {
		return Member{}, false
	}
	return v.members[0], true
}

// String coerces the value to display text: strings as-is, numbers in their
// shortest form, containers as compact JSON.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return FormatNumber(v.n)
	case String:
		return v.s
	case Array, Object:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// FormatNumber renders n the way a JavaScript engine stringifies numbers:
// no trailing zeros, exponent form only for very large or small magnitudes.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	}
	abs := math.Abs(n)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Interface converts the value to plain Go types (map[string]any, []any,
// float64, string, bool, nil). Member order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	}
	return nil
}

// FromAny converts plain Go values into a Value. Map keys are sorted so the
// result is deterministic.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case bool:
		return BoolValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return StringValue(t.String())
		}
		return NumberValue(f)
	case string:
		return StringValue(t)
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return ArrayValue(elems...)
	case []string:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = StringValue(e)
		}
		return ArrayValue(elems...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, len(keys))
		for i, k := range keys {
			members[i] = Member{Key: k, Value: FromAny(t[k])}
		}
		return Value{kind: Object, members: members}
	}
	return StringValue(strings.TrimSpace(stringify(x)))
}

func stringify(x any) string {
	b, err := json.Marshal(x)
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON writes the value with object members in document order.
// Absent encodes as null.
func (v Value) MarshalJSON() ([]byte, error) {
	var sb strings.Builder
	if err := v.encode(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func (v Value) encode(sb *strings.Builder) error {
	switch v.kind {
	case Absent, Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(v.b))
	case Number:
		b, err := json.Marshal(v.n)
		if err != nil {
			return err
		}
		sb.Write(b)
	case String:
		b, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		sb.Write(b)
	case Array:
		sb.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := e.encode(sb); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case Object:
		sb.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				sb.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			sb.Write(k)
			sb.WriteByte(':')
			if err := m.Value.encode(sb); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON parses data preserving member order.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type objectBuilder struct {
	members []Member
	index   map[string]int
}

func (b *objectBuilder) set(key string, val Value) {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if i, ok := b.index[key]; ok {
		b.members[i].Value = val
		return
	}
	b.index[key] = len(b.members)
	b.members = append(b.members, Member{Key: key, Value: val})
}

func (b *objectBuilder) value() Value {
	members := b.members
	if members == nil {
		members = []Member{}
	}
	return Value{kind: Object, members: members}
}
