package jsonval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

func TestParse_PreservesMemberOrder(t *testing.T) {
	v, err := Parse([]byte(`{"zeta":1,"alpha":2,"2024-01-02":3,"2024-01-01":4}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "2024-01-02", "2024-01-01"}, v.Keys())
}

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		str  string
	}{
		{`null`, Null, "null"},
		{`true`, Bool, "true"},
		{`42`, Number, "42"},
		{`100.0`, Number, "100"},
		{`3.14159`, Number, "3.14159"},
		{`"he said \"hi\""`, String, `he said "hi"`},
		{`"café"`, String, "café"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.str, v.String())
		})
	}
}

func TestParse_Nested(t *testing.T) {
	v := MustParse(`{"a":{"b":[1,{"c":"x"}],"e":{}},"f":[]}`)
	a, ok := v.Get("a")
	require.True(t, ok)
	b, ok := a.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, b.Len())
	el, ok := b.Index(1)
	require.True(t, ok)
	c, ok := el.Get("c")
	require.True(t, ok)
	assert.Equal(t, "x", c.Str())

	e, _ := a.Get("e")
	assert.True(t, e.IsObject())
	assert.Equal(t, 0, e.Len())

	f, _ := v.Get("f")
	assert.True(t, f.IsArray())
	assert.Equal(t, 0, f.Len())
}

func TestParse_EscapedKeys(t *testing.T) {
	v := MustParse(`{"a\"b":1,"1. open":"2"}`)
	assert.Equal(t, []string{`a"b`, "1. open"}, v.Keys())
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	v := MustParse(`{"a":1,"b":2,"a":3}`)
	assert.Equal(t, []string{"a", "b"}, v.Keys())
	a, _ := v.Get("a")
	assert.Equal(t, 3.0, a.Float())
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("   "))
	assert.ErrorIs(t, err, ErrEmpty)
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

func TestMarshalJSON_Ordered(t *testing.T) {
	src := `{"z":1,"a":[true,null,"s"],"m":{"y":2.5,"b":{}}}`
	v := MustParse(src)
	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestMarshalJSON_Absent(t *testing.T) {
	out, err := json.Marshal(Value{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestFromAny_SortsMapKeys(t *testing.T) {
	v := FromAny(map[string]any{"b": 1.0, "a": []any{"x", nil}})
	assert.Equal(t, []string{"a", "b"}, v.Keys())
	a, _ := v.Get("a")
	el, _ := a.Index(1)
	assert.True(t, el.IsNull())
}

func TestInterface_RoundTrip(t *testing.T) {
	v := MustParse(`{"a":{"b":[1,"two",false]}}`)
	assert.Equal(t, map[string]any{
		"a": map[string]any{"b": []any{1.0, "two", false}},
	}, v.Interface())
}

func TestUnmarshalJSON_Embedded(t *testing.T) {
	var holder struct {
		Doc Value `json:"doc"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"doc":{"k2":1,"k1":2}}`), &holder))
	assert.Equal(t, []string{"k2", "k1"}, holder.Doc.Keys())
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0.1234", FormatNumber(0.1234))
	assert.Equal(t, "1234567.89", FormatNumber(1234567.89))
	assert.Equal(t, "-5", FormatNumber(-5))
	assert.Equal(t, "1e+21", FormatNumber(1e21))
}
