package ingest

import (
	"fmt"

	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/ohler55/ojg/jp"
)

// JsonWalker implements Walker with JSONPath.
type JsonWalker struct{}

func NewJsonWalker() *JsonWalker {
	return &JsonWalker{}
}

// Query implements Walker. JSONPath runs on a generic copy of root; each
// match is then read back from root by location so object keys keep their
// document order.
func (w *JsonWalker) Query(root jsonval.Value, selector string) ([]Match, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}

	locs := x.Locate(root.Interface(), 0)
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		v, ok := follow(root, loc)
		if !ok {
			continue
		}
		matches = append(matches, &jsonMatch{path: loc.String(), value: v})
	}
	return matches, nil
}

// follow walks a normalized location produced by Locate.
func follow(root jsonval.Value, loc jp.Expr) (jsonval.Value, bool) {
	cur := root
	for _, frag := range loc {
		var ok bool
		switch f := frag.(type) {
		case jp.Root, jp.At:
			continue
		case jp.Child:
			cur, ok = cur.Get(string(f))
		case jp.Nth:
			i := int(f)
			if i < 0 {
				i += cur.Len()
			}
			cur, ok = cur.Index(i)
		default:
			return jsonval.Value{}, false
		}
		if !ok {
			return jsonval.Value{}, false
		}
	}
	return cur, true
}

type jsonMatch struct {
	path  string
	value jsonval.Value
}

// Path implements Match.
func (m *jsonMatch) Path() string {
	return m.path
}

// Value implements Match.
func (m *jsonMatch) Value() jsonval.Value {
	return m.value
}

// Select narrows doc with a JSONPath selector. A single match is returned
// as-is; several are gathered into an array. No match is an error.
func Select(doc jsonval.Value, selector string) (jsonval.Value, error) {
	matches, err := NewJsonWalker().Query(doc, selector)
	if err != nil {
		return jsonval.Value{}, err
	}
	switch len(matches) {
	case 0:
		return jsonval.Value{}, fmt.Errorf("jsonpath '%s' matched nothing", selector)
	case 1:
		return matches[0].Value(), nil
	}
	vals := make([]jsonval.Value, len(matches))
	for i, m := range matches {
		vals[i] = m.Value()
	}
	return jsonval.ArrayValue(vals...), nil
}
