package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lvillar/pdfexport/draw"
	"github.com/lvillar/pdfexport/pageops"
)

func pagesFlag(f *pflag.FlagSet, p *[]int, what string) {
	f.IntSliceVar(p, "pages", nil, "comma separated 1-based pages to "+what)
}

// rewrite reads input, applies fn and writes the result to output.
func rewrite(input, output string, fn func(buf *bytes.Buffer, data []byte) error) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := fn(&buf, data); err != nil {
		return err
	}
	return os.WriteFile(output, buf.Bytes(), 0o644)
}

func newWatermarkCommand(a *app) *cobra.Command {
	var output, position string
	var under bool
	var style pageops.WatermarkStyle

	cmd := &cobra.Command{
		Use:     "watermark <in.pdf>",
		Short:   "Stamp a text watermark on pages",
		Example: `  pdfexport watermark out.pdf -o draft.pdf --text DRAFT --rotation 45 --opacity 0.3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, ok := pageops.ParsePosition(position)
			if !ok {
				return fmt.Errorf("unknown position %q", position)
			}
			style.Position = pos
			if under {
				style.Layer = draw.Under
			}
			if err := rewrite(args[0], output, func(buf *bytes.Buffer, data []byte) error {
				return pageops.Watermark(buf, data, style)
			}); err != nil {
				return err
			}
			a.log.Info().Str("output", output).Str("text", style.Text).Msg("watermarked")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output PDF")
	f.StringVar(&style.Text, "text", "", "watermark text")
	f.StringVar(&style.FontName, "font", "Helvetica", "core font name")
	f.Float64Var(&style.FontSize, "size", 64, "font size in points")
	f.Float64Var(&style.Opacity, "opacity", 0.7, "opacity from 0 to 1")
	f.Float64Var(&style.Rotation, "rotation", 0, "counter-clockwise rotation in degrees")
	f.Float64Var(&style.Margin, "margin", 30, "distance from the page edge")
	f.StringVar(&position, "position", "center", "center, top-left, top-center, top-right, bottom-left, bottom-center or bottom-right")
	f.BoolVar(&under, "under", false, "paint below the page content")
	pagesFlag(f, &style.Pages, "mark, all when omitted")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func newRotateCommand(a *app) *cobra.Command {
	var output string
	var angle int
	var pages []int

	cmd := &cobra.Command{
		Use:   "rotate <in.pdf>",
		Short: "Rotate pages clockwise by a multiple of 90 degrees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rewrite(args[0], output, func(buf *bytes.Buffer, data []byte) error {
				return pageops.Rotate(buf, data, angle, pages...)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	cmd.Flags().IntVar(&angle, "angle", 90, "clockwise degrees")
	pagesFlag(cmd.Flags(), &pages, "rotate, all when omitted")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newMergeCommand(a *app) *cobra.Command {
	var output string
	var honourRotation bool

	cmd := &cobra.Command{
		Use:   "merge <a.pdf> <b.pdf>...",
		Short: "Concatenate documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				docs = append(docs, data)
			}
			var buf bytes.Buffer
			if err := pageops.Merge(&buf, honourRotation, docs...); err != nil {
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return err
			}
			a.log.Info().Int("inputs", len(args)).Str("output", output).Msg("merged")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	cmd.Flags().BoolVar(&honourRotation, "honour-rotation", false, "lay out rotated pages as a viewer shows them")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newSplitCommand(a *app) *cobra.Command {
	var parts int
	var dir string

	cmd := &cobra.Command{
		Use:   "split <in.pdf>",
		Short: "Split a document into parts of near equal page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := pageops.Split(data, parts)
			if err != nil {
				return err
			}
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			for i, part := range out {
				path := filepath.Join(dir, fmt.Sprintf("%s-%d.pdf", base, i+1))
				if err := os.WriteFile(path, part, 0o644); err != nil {
					return err
				}
				a.log.Debug().Str("output", path).Msg("part written")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "split %s into %d parts\n", args[0], len(out))
			return nil
		},
	}
	cmd.Flags().IntVarP(&parts, "parts", "n", 2, "number of parts")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory for the parts")
	return cmd
}

func newExtractCommand(_ *app) *cobra.Command {
	var output string
	var pages []int

	cmd := &cobra.Command{
		Use:   "extract <in.pdf>",
		Short: "Copy selected pages, in the order given, into a new document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rewrite(args[0], output, func(buf *bytes.Buffer, data []byte) error {
				return pageops.ExtractPages(buf, data, pages...)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	pagesFlag(cmd.Flags(), &pages, "copy")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

var permissionNames = map[string]pageops.Permission{
	"print":       pageops.AllowPrint,
	"modify":      pageops.AllowModify,
	"copy":        pageops.AllowCopy,
	"annotations": pageops.AllowAnnotations,
	"all":         pageops.AllowAll,
}

func parsePermissions(names []string) (pageops.Permission, error) {
	var p pageops.Permission
	for _, n := range names {
		v, ok := permissionNames[strings.ToLower(n)]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", n)
		}
		p |= v
	}
	return p, nil
}

func newProtectCommand(_ *app) *cobra.Command {
	var output, user, owner string
	var allow []string

	cmd := &cobra.Command{
		Use:     "protect <in.pdf>",
		Short:   "Encrypt a document with user and owner passwords",
		Example: `  pdfexport protect out.pdf -o locked.pdf --user secret --allow print,copy`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perms, err := parsePermissions(allow)
			if err != nil {
				return err
			}
			return rewrite(args[0], output, func(buf *bytes.Buffer, data []byte) error {
				return pageops.Protect(buf, data, user, owner, perms)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output PDF")
	cmd.Flags().StringVar(&user, "user", "", "password needed to open the document")
	cmd.Flags().StringVar(&owner, "owner", "", "password lifting the restrictions (default: random)")
	cmd.Flags().StringSliceVar(&allow, "allow", []string{"print"}, "print, modify, copy, annotations or all")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
