package infer

import (
	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// FieldSuggestion is one discovered field with its sample and default format.
type FieldSuggestion struct {
	Path     string          `json:"path"`
	Sample   jsonval.Value   `json:"sample"`
	Format   api.FieldFormat `json:"format"`
	Selected bool            `json:"selected"`
}

// Suggest discovers fields in doc and pairs each with a sample value and an
// inferred format with its defaults filled in. The first Config.AutoSelect
// suggestions are pre-selected.
func (inf *Inferrer) Suggest(doc jsonval.Value) []FieldSuggestion {
	fields := inf.Discover(doc)
	out := make([]FieldSuggestion, len(fields))
	for i, f := range fields {
		sample, _ := SampleValue(doc, f)
		out[i] = FieldSuggestion{
			Path:     f,
			Sample:   sample,
			Format:   format.Defaults(api.FieldFormat{Kind: Classify(f, sample)}),
			Selected: i < inf.Config.AutoSelect,
		}
	}
	return out
}

// SampleValue resolves path against doc. Wildcard paths are resolved against
// the first record of the map their prefix names.
func SampleValue(doc jsonval.Value, path string) (jsonval.Value, bool) {
	p := fieldpath.Parse(path)
	if !p.Wildcard {
		return fieldpath.Resolve(doc, path, jsonval.Value{})
	}
	m, ok := fieldpath.Resolve(doc, p.Prefix, jsonval.Value{})
	if !ok {
		return jsonval.Value{}, false
	}
	record, ok := m.First()
	if !ok {
		return jsonval.Value{}, false
	}
	return fieldpath.Resolve(doc, path, record.Value)
}
