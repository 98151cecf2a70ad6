package infer

import (
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Discover walks doc depth-first and returns a deduplicated, prioritised list
// of field paths: time-series fields first, then ordinary leaves, then
// metadata, truncated to Config.MaxFields.
func (inf *Inferrer) Discover(doc jsonval.Value) []string {
	var paths []string
	walkFields(doc, "", &paths)
	if len(paths) == 0 {
		return []string{}
	}
	return inf.prioritise(dedup(paths))
}

func walkFields(v jsonval.Value, prefix string, paths *[]string) {
	switch v.Kind() {
	case jsonval.Array:
		// Homogeneous arrays: element 0 describes the rest.
		if first, ok := v.Index(0); ok {
			walkFields(first, prefix, paths)
		}
	case jsonval.Object:
		for _, m := range v.Members() {
			p := fieldpath.Join(prefix, m.Key)
			if !m.Value.IsObject() {
				// Scalar, array or null.
				*paths = append(*paths, p)
				continue
			}
			if IsHomogeneousMap(m.Value) {
				record, _ := m.Value.First()
				for _, sub := range record.Value.Keys() {
					*paths = append(*paths, fieldpath.Wildcard(p, sub))
				}
				continue
			}
			walkFields(m.Value, p, paths)
		}
	}
}

func dedup(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0]
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (inf *Inferrer) prioritise(paths []string) []string {
	var series, other, meta []string
	for _, p := range paths {
		switch {
		case containsAny(p, inf.Config.TimeSeriesMarkers) || fieldpath.IsWildcard(p):
			series = append(series, p)
		case containsAny(p, inf.Config.MetaMarkers):
			meta = append(meta, p)
		default:
			other = append(other, p)
		}
	}
	out := make([]string, 0, len(paths))
	out = append(out, series...)
	out = append(out, other...)
	out = append(out, meta...)
	if inf.Config.MaxFields > 0 && len(out) > inf.Config.MaxFields {
		out = out[:inf.Config.MaxFields]
	}
	return out
}
