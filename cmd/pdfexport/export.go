package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/pdfexport"
	"github.com/lvillar/pdfexport/internal/datafile"
)

func (a *app) exporter(template string) (*pdfexport.Exporter, error) {
	opts := a.exporterOptions()
	if template == "" {
		template = a.env.Template
	}
	if template != "" {
		opts = append(opts, pdfexport.WithTemplateFile(template))
	}
	return pdfexport.New(opts...)
}

func newExportCommand(a *app) *cobra.Command {
	var template, configFile, dataFile, output string
	var tables []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fill a template with data and flatten it",
		Long: `Fill the fields of a template with the data of a JSON or YAML file and
flatten the result. Table rows may also come from spreadsheets, one
--table flag per table field; the first sheet row names the columns.

The template named by the configuration takes precedence over --template.`,
		Example: `  pdfexport export --template invoice.pdf --config styles.yaml --data invoice.json -o out.pdf
  pdfexport export --config styles.xml --data order.yaml --table items=items.xlsx:Lines -o order.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var config []byte
			if configFile != "" {
				b, err := os.ReadFile(configFile)
				if err != nil {
					return err
				}
				config = b
			}

			var data pdfexport.Data
			if dataFile != "" {
				d, err := datafile.Load(dataFile)
				if err != nil {
					return err
				}
				data = d
			}
			for _, arg := range tables {
				field, path, sheet, err := datafile.ParseTableArg(arg)
				if err != nil {
					return err
				}
				if err := datafile.AddSheet(&data, field, path, sheet); err != nil {
					return err
				}
			}

			exp, err := a.exporter(template)
			if err != nil {
				return err
			}
			if err := exp.ExportFile(output, config, data); err != nil {
				return err
			}
			a.log.Info().Str("output", output).Msg("exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&template, "template", "t", "", "template PDF (default: $PDFEXPORT_TEMPLATE)")
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "XML or YAML style configuration")
	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "JSON or YAML field data")
	cmd.Flags().StringArrayVar(&tables, "table", nil, "table rows from a spreadsheet, as field=file.xlsx[:sheet]")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newFlattenCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "flatten <form.pdf>",
		Short: "Bake the current field values of a form into its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := a.exporter(args[0])
			if err != nil {
				return err
			}
			if err := exp.ExportFile(output, nil, pdfexport.Data{}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "flattened %s -> %s\n", args[0], output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
