package project

import (
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/jsonval"
)

// Column heads one table column.
type Column struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// Row is one table row. Cells line up with Table.Columns; Source is the
// record the cells were resolved against.
type Row struct {
	Source jsonval.Value   `json:"-"`
	Cells  []jsonval.Value `json:"cells"`
}

// Table is a projected table.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ProjectTable projects doc into at most MaxRows rows of at most MaxColumns fields.
// The rows come from, in order of preference: the elements of an array
// document; the entries of a homogeneous map, flattened to
// {date: key, ...record}; the elements of the first array-valued member; the
// document itself as a single row.
func ProjectTable(doc jsonval.Value, fields []string) Table {
	base, rows := tableRows(doc, fields)
	if len(rows) == 0 {
		return Table{Columns: []Column{}, Rows: []Row{}}
	}
	if len(fields) > MaxColumns {
		fields = fields[:MaxColumns]
	}
	t := Table{
		Columns: make([]Column, len(fields)),
		Rows:    make([]Row, len(rows)),
	}
	for i, f := range fields {
		t.Columns[i] = Column{Field: f, Label: format.Label(f)}
	}
	for i, r := range rows {
		cells := make([]jsonval.Value, len(fields))
		for j, f := range fields {
			cells[j] = resolveCell(doc, r, base, f)
		}
		t.Rows[i] = Row{Source: r, Cells: cells}
	}
	return t
}

func tableRows(doc jsonval.Value, fields []string) (string, []jsonval.Value) {
	switch doc.Kind() {
	case jsonval.Array:
		return "", firstN(doc.Elements(), MaxRows)
	case jsonval.Object:
	default:
		return "", nil
	}
	if src, ok := seriesMap(doc, fields); ok {
		members := src.m.Members()
		if len(members) > MaxRows {
			members = members[:MaxRows]
		}
		rows := make([]jsonval.Value, len(members))
		for i, m := range members {
			rows[i] = entryRow(m)
		}
		return src.base, rows
	}
	for _, m := range doc.Members() {
		if m.Value.IsArray() {
			return m.Key, firstN(m.Value.Elements(), MaxRows)
		}
	}
	return "", []jsonval.Value{doc}
}
