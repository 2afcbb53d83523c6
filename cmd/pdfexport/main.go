// Command pdfexport fills PDF form templates from data files and rewrites
// the resulting documents.
//
//	pdfexport export --template form.pdf --config styles.yaml --data data.json -o out.pdf
//	pdfexport fields form.pdf
//	pdfexport watermark out.pdf -o draft.pdf --text DRAFT
//	pdfexport serve
//
// Settings may also come from the environment or a .env file in the
// working directory:
//
//	PDFEXPORT_TEMPLATE   default template for export and flatten
//	PDFEXPORT_FONT_DIRS  font directories, separated like PATH
//	PDFEXPORT_LOG_LEVEL  zerolog level name (default: info)
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lvillar/pdfexport"
)

// Build information (set by the linker)
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env holds settings read from the environment.
type env struct {
	Template string
	FontDirs []string
	LogLevel string
}

func loadEnv() env {
	// A missing .env file is fine.
	_ = godotenv.Load()

	e := env{
		Template: os.Getenv("PDFEXPORT_TEMPLATE"),
		LogLevel: os.Getenv("PDFEXPORT_LOG_LEVEL"),
	}
	if dirs := os.Getenv("PDFEXPORT_FONT_DIRS"); dirs != "" {
		e.FontDirs = filepath.SplitList(dirs)
	}
	return e
}

// app is shared by all subcommands.
type app struct {
	env      env
	verbose  bool
	fontDirs []string
	log      zerolog.Logger
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	level := zerolog.InfoLevel
	if a.env.LogLevel != "" {
		l, err := zerolog.ParseLevel(a.env.LogLevel)
		if err != nil {
			return fmt.Errorf("PDFEXPORT_LOG_LEVEL: %w", err)
		}
		level = l
	}
	if a.verbose {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: "15:04:05"}).
		Level(level).With().Timestamp().Logger()
	return nil
}

// exporterOptions returns the options shared by every export.
func (a *app) exporterOptions() []pdfexport.Option {
	return []pdfexport.Option{
		pdfexport.WithLogger(a.log),
		pdfexport.WithFontDirs(slices.Concat(a.env.FontDirs, a.fontDirs)...),
	}
}

func newRootCommand() *cobra.Command {
	a := &app{env: loadEnv()}

	root := &cobra.Command{
		Use:   "pdfexport",
		Short: "Fill PDF form templates and rewrite PDF documents",
		Long: `pdfexport fills the fields of a PDF form template with text, barcodes,
QR codes, images, checkbox and radio values and tables, styled by an XML or
YAML configuration, then flattens the form into static content.

It also watermarks, rotates, merges, splits and protects documents, and can
serve all of this over the Model Context Protocol.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log every export stage")
	root.PersistentFlags().StringSliceVar(&a.fontDirs, "font-dir", nil, "directory searched for TrueType fonts (repeatable)")

	root.AddCommand(
		newExportCommand(a),
		newFlattenCommand(a),
		newFieldsCommand(a),
		newSignaturesCommand(a),
		newInfoCommand(a),
		newWatermarkCommand(a),
		newRotateCommand(a),
		newMergeCommand(a),
		newSplitCommand(a),
		newExtractCommand(a),
		newProtectCommand(a),
		newServeCommand(a),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfexport %s (commit: %s, go: %s)\n", version, commit, runtime.Version())
		},
	}
}
