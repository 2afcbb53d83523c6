package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/engine"
	"github.com/lvillar/pdfexport/pageops"
	"github.com/lvillar/pdfexport/reader"
	"github.com/lvillar/pdfexport/sign"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printTable(w io.Writer, headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

func newFieldsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fields <form.pdf>",
		Short: "List the form fields of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := engine.Open(data, engine.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer doc.Close()

			var rows [][]string
			for _, f := range doc.Fields() {
				detail := f.Value
				if len(f.Options) > 0 {
					detail = strings.Join(f.Options, ", ")
				}
				if states := onStates(f.Widgets); len(states) > 0 {
					detail = strings.Join(states, ", ")
				}
				rows = append(rows, []string{
					f.Name,
					f.Type.String(),
					fmt.Sprint(f.Page),
					fmt.Sprintf("%.0f x %.0f", f.Rect.Width(), f.Rect.Height()),
					detail,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no form fields")
				return nil
			}
			printTable(cmd.OutOrStdout(), []string{"Field", "Type", "Page", "Size", "Value / States"}, rows)
			return nil
		},
	}
}

func onStates(widgets []draw.Widget) []string {
	var out []string
	for _, w := range widgets {
		if w.OnState != "" && !slices.Contains(out, w.OnState) {
			out = append(out, w.OnState)
		}
	}
	return out
}

func newSignaturesCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signatures <file.pdf>",
		Short: "List the digital signatures of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			sigs, err := sign.Inspect(data)
			if err != nil {
				return err
			}
			if len(sigs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no signatures")
				return nil
			}
			var rows [][]string
			for _, s := range sigs {
				coverage := okStyle.Render("whole document")
				if !s.CoversWholeDocument {
					coverage = badStyle.Render("partial")
				}
				signed := ""
				if !s.SignedAt.IsZero() {
					signed = s.SignedAt.Format("2006-01-02 15:04 MST")
				}
				rows = append(rows, []string{s.Field, s.Reason, s.Location, signed, coverage})
			}
			printTable(cmd.OutOrStdout(), []string{"Field", "Reason", "Location", "Signed", "Coverage"}, rows)
			return nil
		},
	}
}

func newInfoCommand(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.pdf>",
		Short: "Show page sizes and check the document structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := reader.Parse(data)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PDF %s, %d pages\n", doc.Version, doc.NumPages())
			info := doc.Info()
			for _, k := range slices.Sorted(maps.Keys(info)) {
				fmt.Fprintf(out, "%s: %s\n", k, info[k])
			}

			var rows [][]string
			for n, p := range doc.Pages() {
				rows = append(rows, []string{
					fmt.Sprint(n),
					fmt.Sprintf("%.0f x %.0f", p.MediaBox.Width(), p.MediaBox.Height()),
					fmt.Sprint(p.Rotate),
				})
			}
			printTable(out, []string{"Page", "Size (pt)", "Rotate"}, rows)

			if err := pageops.Validate(data); err != nil {
				fmt.Fprintln(out, badStyle.Render("invalid: "+err.Error()))
				return nil
			}
			fmt.Fprintln(out, okStyle.Render("valid"))
			return nil
		},
	}
}
