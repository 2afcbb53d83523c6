package main

import (
	"github.com/spf13/cobra"

	"github.com/lvillar/pdfexport/mcp"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the export tools over MCP on stdin and stdout",
		Long: `Run a Model Context Protocol server speaking JSON-RPC over stdin and stdout.
Logs go to stderr.

Tools: export_pdf, flatten_pdf, list_fields, add_watermark, merge_pdfs,
rotate_pdf, signatures, pdf_info.
Resources: pdf://text, pdf://metadata, pdf://pages, pdf://form-fields,
each taking ?path=/file.pdf.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := mcp.NewServerWithIO(cmd.InOrStdin(), cmd.OutOrStdout(), a.log)
			mcp.RegisterDefaultTools(s, a.exporterOptions()...)
			mcp.RegisterDefaultResources(s)
			a.log.Info().Msg("mcp server listening on stdio")
			return s.Run()
		},
	}
}
