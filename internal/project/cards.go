package project

import (
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Card is one label/value pair.
type Card struct {
	Field string        `json:"field"`
	Label string        `json:"label"`
	Value jsonval.Value `json:"value"`
}

// Cards resolves up to MaxCards fields against the record that best
// summarises doc: element 0 of an array; the latest entry of a time-series
// map when the selection has wildcard fields, preceded by a date card; a
// member whose name mentions data, quote or price; or doc itself.
func Cards(doc jsonval.Value, fields []string) []Card {
	if len(fields) == 0 {
		return []Card{}
	}
	if len(fields) > MaxCards {
		fields = fields[:MaxCards]
	}
	var (
		base string
		rec  jsonval.Value
		out  = make([]Card, 0, len(fields)+1)
	)
	switch doc.Kind() {
	case jsonval.Array:
		first, ok := doc.Index(0)
		if !ok {
			return []Card{}
		}
		rec = first
	case jsonval.Object:
		rec = doc
		if entry, src, ok := latestEntry(doc, fields); ok {
			base, rec = src.base, entryRow(entry)
			out = append(out, Card{Field: DateField, Label: format.Label(DateField), Value: jsonval.StringValue(entry.Key)})
		} else if key, child, ok := summaryChild(doc); ok {
			base, rec = key, child
		}
	default:
		return []Card{}
	}
	for _, f := range fields {
		out = append(out, Card{Field: f, Label: format.Label(f), Value: resolveCell(doc, rec, base, f)})
	}
	return out
}

func latestEntry(doc jsonval.Value, fields []string) (jsonval.Member, source, bool) {
	wild := false
	for _, f := range fields {
		if fieldpath.IsWildcard(f) {
			wild = true
			break
		}
	}
	if !wild {
		return jsonval.Member{}, source{}, false
	}
	src, ok := seriesMap(doc, fields)
	if !ok {
		return jsonval.Member{}, source{}, false
	}
	first, ok := src.m.First()
	return first, src, ok
}

// summaryChild picks the first member whose name mentions data, quote or
// price. Only an object member is used; otherwise cards read doc itself.
func summaryChild(doc jsonval.Value) (string, jsonval.Value, bool) {
	for _, m := range doc.Members() {
		if containsFold(m.Key, "data", "quote", "price") {
			return m.Key, m.Value, m.Value.IsObject()
		}
	}
	return "", jsonval.Value{}, false
}
