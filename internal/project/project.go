// Package project turns a document and a field selection into the shapes a
// renderer draws: table rows, label/value cards, or a time series.
//
// Projection is pure. The same document and fields always give the same
// output, and a document without usable structure gives an empty result
// rather than an error.
package project

import (
	"regexp"
	"strings"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/fieldpath"
	"github.com/agentic-research/dashlens/internal/infer"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

const (
	MaxRows    = 10
	MaxColumns = 6
	MaxCards   = 8
	MaxPoints  = 30
)

// DateField is the synthetic field carrying a time-series entry's key.
const DateField = "date"

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Projection is the result of Project. Exactly one of Table, Cards or Series
// is populated, according to Mode.
type Projection struct {
	Mode   api.DisplayMode `json:"mode"`
	Table  *Table          `json:"table,omitempty"`
	Cards  []Card          `json:"cards,omitempty"`
	Series *Series         `json:"series,omitempty"`
}

// Empty reports whether the projection has nothing to draw.
func (p Projection) Empty() bool {
	switch {
	case p.Table != nil:
		return len(p.Table.Rows) == 0
	case p.Series != nil:
		return len(p.Series.Points) == 0
	}
	return len(p.Cards) == 0
}

// Project dispatches on mode. Unknown modes project as a table.
func Project(doc jsonval.Value, fields []string, mode api.DisplayMode) Projection {
	switch mode {
	case api.ModeCard:
		return Projection{Mode: mode, Cards: Cards(doc, fields)}
	case api.ModeChart:
		s := ProjectSeries(doc, fields)
		return Projection{Mode: mode, Series: &s}
	}
	t := ProjectTable(doc, fields)
	return Projection{Mode: api.ModeTable, Table: &t}
}

// source is where rows or cards are read from. Base is the path of the
// source inside the document, stripped from root-relative fields.
type source struct {
	base string
	m    jsonval.Value
}

// seriesMap locates the homogeneous map a projection expands. A map named by
// the prefix of a wildcard field wins; otherwise the first top-level member
// whose keys look like dates, then the first homogeneous member at all.
func seriesMap(doc jsonval.Value, fields []string) (source, bool) {
	if !doc.IsObject() {
		return source{}, false
	}
	for _, f := range fields {
		p := fieldpath.Parse(f)
		if !p.Wildcard || p.Prefix == "" {
			continue
		}
		if m, ok := fieldpath.Resolve(doc, p.Prefix, jsonval.Value{}); ok && infer.IsHomogeneousMap(m) {
			return source{base: p.Prefix, m: m}, true
		}
	}
	var fallback source
	found := false
	for _, mem := range doc.Members() {
		if !infer.IsHomogeneousMap(mem.Value) {
			continue
		}
		if hasDateKey(mem.Value) {
			return source{base: mem.Key, m: mem.Value}, true
		}
		if !found {
			fallback, found = source{base: mem.Key, m: mem.Value}, true
		}
	}
	if found {
		return fallback, true
	}
	return source{}, false
}

func hasDateKey(m jsonval.Value) bool {
	for _, k := range m.Keys() {
		if datePattern.MatchString(k) {
			return true
		}
	}
	return false
}

// entryRow flattens one map entry into {date: key, ...record}.
func entryRow(m jsonval.Member) jsonval.Value {
	members := []jsonval.Member{{Key: DateField, Value: jsonval.StringValue(m.Key)}}
	members = append(members, m.Value.Members()...)
	return jsonval.ObjectValue(members...)
}

// resolveCell resolves field against the active row. Wildcard keys are read
// off the row itself. Plain paths under base are made row-relative; plain
// paths outside base are read from the whole document.
func resolveCell(doc, row jsonval.Value, base, field string) jsonval.Value {
	if fieldpath.IsWildcard(field) {
		v, _ := fieldpath.ResolveInContext(row, field)
		return v
	}
	rel := fieldpath.Relative(field, base)
	if v, ok := fieldpath.ResolveInContext(row, rel); ok {
		return v
	}
	if base == "" || rel != field {
		return jsonval.Value{}
	}
	v, _ := fieldpath.Resolve(doc, field, row)
	return v
}

func firstN(vs []jsonval.Value, n int) []jsonval.Value {
	if len(vs) > n {
		return vs[:n]
	}
	return vs
}

func containsFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
