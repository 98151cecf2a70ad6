package jsonval

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/buger/jsonparser"
)

// ErrEmpty is returned by Parse for empty or whitespace-only input.
var ErrEmpty = errors.New("empty json document")

// Parse decodes one JSON document, keeping object members in document order.
// Syntax validation is the caller's concern; Parse only reports what the
// tokenizer trips over.
func Parse(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Value{}, ErrEmpty
	}
	raw, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return Value{}, fmt.Errorf("parse json: %w", err)
	}
	v, err := decode(raw, typ)
	if err != nil {
		return Value{}, fmt.Errorf("parse json: %w", err)
	}
	return v, nil
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func decode(raw []byte, typ jsonparser.ValueType) (Value, error) {
	switch typ {
	case jsonparser.Null:
		return NullValue(), nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(raw)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	case jsonparser.Number:
		n, err := jsonparser.ParseFloat(raw)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case jsonparser.String:
		s, err := jsonparser.ParseString(raw)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case jsonparser.Array:
		return decodeArray(raw)
	case jsonparser.Object:
		return decodeObject(raw)
	}
	return Value{}, fmt.Errorf("unexpected token %q", truncate(raw))
}

func decodeArray(raw []byte) (Value, error) {
	if isEmptyContainer(raw) {
		return ArrayValue(), nil
	}
	var (
		elems []Value
		inner error
	)
	_, err := jsonparser.ArrayEach(raw, func(val []byte, typ jsonparser.ValueType, _ int, err error) {
		if inner != nil {
			return
		}
		if err != nil {
			inner = err
			return
		}
		v, err := decode(val, typ)
		if err != nil {
			inner = err
			return
		}
		elems = append(elems, v)
	})
	if err != nil {
		return Value{}, err
	}
	if inner != nil {
		return Value{}, inner
	}
	return ArrayValue(elems...), nil
}

func decodeObject(raw []byte) (Value, error) {
	var b objectBuilder
	if isEmptyContainer(raw) {
		return b.value(), nil
	}
	err := jsonparser.ObjectEach(raw, func(key, val []byte, typ jsonparser.ValueType, _ int) error {
		k, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("key %q: %w", truncate(key), err)
		}
		v, err := decode(val, typ)
		if err != nil {
			return fmt.Errorf("member %q: %w", k, err)
		}
		b.set(k, v)
		return nil
	})
	if err != nil {
		return Value{}, err
	}
	return b.value(), nil
}

// isEmptyContainer reports whether raw is "[]" or "{}" with optional inner whitespace.
func isEmptyContainer(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}
	return len(bytes.TrimSpace(raw[1:len(raw)-1])) == 0
}

func truncate(b []byte) string {
	if len(b) > 32 {
		return string(b[:32]) + "..."
	}
	return string(b)
}
