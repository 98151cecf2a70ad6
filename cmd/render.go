package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentic-research/dashlens/api"
	"github.com/agentic-research/dashlens/internal/dashboard"
	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/infer"
	"github.com/agentic-research/dashlens/internal/jsonval"
	"github.com/agentic-research/dashlens/internal/project"
	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	renderFields    []string
	renderFormats   []string
	renderMode      string
	renderChartType string
	renderSelect    string
	renderHeaders   []string
	renderJSON      bool
)

func init() {
	renderCmd.Flags().StringArrayVarP(&renderFields, "field", "f", nil, "Field path to show (repeatable, in display order); default is the auto-selected fields")
	renderCmd.Flags().StringArrayVar(&renderFormats, "format", nil, "Field format as field=type, type one of text|number|currency|percentage|date")
	renderCmd.Flags().StringVarP(&renderMode, "mode", "m", string(api.ModeTable), "Display mode: table, card or chart")
	renderCmd.Flags().StringVar(&renderChartType, "chart-type", string(api.ChartLine), "Chart type: line, candlestick or performance")
	renderCmd.Flags().StringVar(&renderSelect, "select", "", "JSONPath applied before rendering")
	renderCmd.Flags().StringArrayVarP(&renderHeaders, "header", "H", nil, "Request header as key=value (repeatable)")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Print the rendered widget as JSON")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render <file|url|->",
	Short: "Render a JSON document the way a dashboard widget would",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd.Context(), cmd.InOrStdin(), args[0], renderSelect, renderHeaders)
		if err != nil {
			return err
		}
		w, err := widgetFromFlags(doc)
		if err != nil {
			return err
		}
		r := dashboard.RenderDocument(format.New(), w, doc)
		return printRendered(cmd.OutOrStdout(), r, renderJSON)
	},
}

// widgetFromFlags builds an ad-hoc widget. Without --field the suggested
// selection and formats are used; --format overrides per field.
func widgetFromFlags(doc jsonval.Value) (api.Widget, error) {
	w := api.Widget{
		Title:        "render",
		Fields:       renderFields,
		FieldFormats: make(map[string]api.FieldFormat),
		DisplayMode:  api.DisplayMode(renderMode),
		ChartType:    api.ChartType(renderChartType),
	}
	if !w.DisplayMode.Valid() {
		return api.Widget{}, fmt.Errorf("unknown mode %q", renderMode)
	}
	for _, s := range infer.NewInferrer().Suggest(doc) {
		if len(renderFields) == 0 && s.Selected {
			w.Fields = append(w.Fields, s.Path)
		}
		w.FieldFormats[s.Path] = s.Format
	}
	for _, pair := range renderFormats {
		field, kind, ok := strings.Cut(pair, "=")
		if !ok || field == "" {
			return api.Widget{}, fmt.Errorf("invalid format %q: want field=type", pair)
		}
		k := api.FormatKind(kind)
		if !k.Valid() {
			return api.Widget{}, fmt.Errorf("invalid format %q: unknown type %q", pair, kind)
		}
		w.FieldFormats[field] = format.Defaults(api.FieldFormat{Kind: k})
	}
	return w, nil
}

func printRendered(w io.Writer, r dashboard.Rendered, asJSON bool) error {
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal render: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if r.Empty {
		_, err := fmt.Fprintln(w, "No data.")
		return err
	}

	switch {
	case r.Series != nil:
		return printSeries(w, r)
	case r.Cards != nil:
		for _, c := range r.Cards {
			if _, err := fmt.Fprintf(w, "%s: %s\n", headerStyle.UnsetPadding().Render(c.Label), c.Text); err != nil {
				return err
			}
		}
		return nil
	}
	headers := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		headers[i] = c.Label
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(cellStyle).
		Rows(r.Rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printSeries(w io.Writer, r dashboard.Rendered) error {
	cols := []string{project.DateField, project.FieldOpen, project.FieldHigh, project.FieldLow, project.FieldClose, project.FieldVolume}
	if !r.Series.OHLC {
		cols = seriesColumns(r.Series.Points)
	}
	rows := make([][]string, len(r.Series.Points))
	for i, p := range r.Series.Points {
		row := make([]string, len(cols))
		for j, c := range cols {
			v, _ := p.Get(c)
			row[j] = format.Format(v, nil)
		}
		rows[i] = row
	}
	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = format.Label(c)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(cellStyle).
		Rows(rows...)
	if _, err := fmt.Fprintf(w, "%s\n%s\n", r.Series.Key, t.String()); err != nil {
		return err
	}
	if p := r.Performance; p != nil {
		_, err := fmt.Fprintf(w, "%s close %s, change %s (%+.2f%%) over %d points, range %s to %s\n",
			p.LatestDate,
			format.Format(jsonval.NumberValue(p.Close), &api.FieldFormat{Kind: api.KindCurrency}),
			format.Format(jsonval.NumberValue(p.Change), &api.FieldFormat{Kind: api.KindCurrency}),
			p.ChangePercent, p.Points,
			format.Format(jsonval.NumberValue(p.PeriodLow), &api.FieldFormat{Kind: api.KindCurrency}),
			format.Format(jsonval.NumberValue(p.PeriodHigh), &api.FieldFormat{Kind: api.KindCurrency}))
		return err
	}
	return nil
}

// seriesColumns lists the keys of the first point, date first.
func seriesColumns(points []jsonval.Value) []string {
	if len(points) == 0 {
		return []string{project.DateField}
	}
	return points[0].Keys()
}
