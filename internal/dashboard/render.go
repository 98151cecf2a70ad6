package dashboard

import (
	"time"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/agentic-research/dashlens/internal/project"
)

// RenderedCard is a card with its value formatted for display.
type RenderedCard struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Rendered is a widget ready for display: the projection for its mode with
// every table cell and card formatted.
type Rendered struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Mode        api.DisplayMode  `json:"mode"`
	ChartType   api.ChartType    `json:"chartType,omitempty"`
	Columns     []project.Column `json:"columns,omitempty"`
	Rows        [][]string       `json:"rows,omitempty"`
	Cards       []RenderedCard   `json:"cards,omitempty"`
	Series      *project.Series  `json:"series,omitempty"`
	Performance *project.Summary `json:"performance,omitempty"`
	Empty       bool             `json:"empty"`
	Error       string           `json:"error,omitempty"`
	Loading     bool             `json:"loading"`
	LastUpdated *time.Time       `json:"lastUpdated,omitempty"`
}

// Render renders widget id from its current document.
func (m *Manager) Render(id string) (Rendered, error) {
	snap, err := m.Get(id)
	if err != nil {
		return Rendered{}, err
	}
	r := RenderDocument(m.formatter, snap.Widget, snap.Data)
	r.Error, r.Loading, r.LastUpdated = snap.Error, snap.Loading, snap.LastUpdated
	return r, nil
}

// RenderDocument projects doc for w and formats the result. Fields without
// an explicit format render as text.
func RenderDocument(fm *format.Formatter, w api.Widget, doc jsonval.Value) Rendered {
	r := Rendered{ID: w.ID, Title: w.Title, Mode: w.DisplayMode, ChartType: w.ChartType}
	p := project.Project(doc, w.Fields, w.DisplayMode)
	r.Mode = p.Mode
	r.Empty = p.Empty()

	switch {
	case p.Table != nil:
		r.Columns = p.Table.Columns
		r.Rows = make([][]string, len(p.Table.Rows))
		for i, row := range p.Table.Rows {
			texts := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				texts[j] = fm.Format(cell, formatFor(w, p.Table.Columns[j].Field))
			}
			r.Rows[i] = texts
		}
	case p.Series != nil:
		r.Series = p.Series
		if w.ChartType == api.ChartPerformance {
			if s, ok := project.Performance(doc, w.Fields); ok {
				r.Performance = &s
			}
		}
	default:
		r.Cards = make([]RenderedCard, len(p.Cards))
		for i, c := range p.Cards {
			r.Cards[i] = RenderedCard{
				Field: c.Field,
				Label: c.Label,
				Text:  fm.Format(c.Value, formatFor(w, c.Field)),
			}
		}
	}
	return r
}

func formatFor(w api.Widget, field string) *api.FieldFormat {
	f, ok := w.FieldFormats[field]
	if !ok {
		return nil
	}
	return &f
}
