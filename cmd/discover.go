package cmd

import (
	"fmt"
	"io"

	"github.com/agentic-research/dashlens/internal/format"
	"github.com/agentic-research/dashlens/internal/infer"
	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	discoverSelect  string
	discoverHeaders []string
	discoverFilter  string
	discoverJSON    bool
)

func init() {
	discoverCmd.Flags().StringVar(&discoverSelect, "select", "", "JSONPath applied before discovery, e.g. $.data[0]")
	discoverCmd.Flags().StringArrayVarP(&discoverHeaders, "header", "H", nil, "Request header as key=value (repeatable)")
	discoverCmd.Flags().StringVarP(&discoverFilter, "filter", "f", "", "Only show fields whose path contains this text")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false, "Print suggestions as JSON")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover <file|url|->",
	Short: "List the fields of a JSON document with inferred formats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(cmd.Context(), cmd.InOrStdin(), args[0], discoverSelect, discoverHeaders)
		if err != nil {
			return err
		}
		sugg := infer.NewInferrer().Suggest(doc)
		if discoverFilter != "" {
			sugg = filterSuggestions(sugg, discoverFilter)
		}
		return printSuggestions(cmd.OutOrStdout(), sugg, discoverJSON)
	},
}

func filterSuggestions(sugg []infer.FieldSuggestion, term string) []infer.FieldSuggestion {
	paths := make([]string, len(sugg))
	for i, s := range sugg {
		paths[i] = s.Path
	}
	keep := make(map[string]bool)
	for _, p := range infer.Filter(paths, term) {
		keep[p] = true
	}
	out := sugg[:0:0]
	for _, s := range sugg {
		if keep[s.Path] {
			out = append(out, s)
		}
	}
	return out
}

func printSuggestions(w io.Writer, sugg []infer.FieldSuggestion, asJSON bool) error {
	if asJSON {
		data, err := sonic.ConfigStd.MarshalIndent(sugg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal suggestions: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	if len(sugg) == 0 {
		_, err := fmt.Fprintln(w, "No fields found.")
		return err
	}

	rows := make([][]string, len(sugg))
	for i, s := range sugg {
		f := s.Format
		mark := ""
		if s.Selected {
			mark = "*"
		}
		rows[i] = []string{mark, s.Path, string(f.Kind), format.Format(s.Sample, nil), format.Preview(s.Sample, &f)}
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "FIELD", "TYPE", "SAMPLE", "PREVIEW").
		StyleFunc(cellStyle).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

func cellStyle(row, col int) lipgloss.Style {
	if row == table.HeaderRow {
		return headerStyle
	}
	return lipgloss.NewStyle().Padding(0, 1)
}
