package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
)

type combineOptions struct {
	output string
}

func (a *App) newCombineCmd() *cobra.Command {
	opts := &combineOptions{}

	cmd := &cobra.Command{
		Use:   "combine -o OUTPUT FILE.pdf...",
		Short: "Combine whole PDF files in order",
		Long: `Combine every page of each input file, in the order the files are given.

Unreadable inputs are skipped with a notice. When the PDF engine cannot
merge the files and Ghostscript is installed, Ghostscript is used instead.

Examples:
  buckutils combine -o packet.pdf cover.pdf report.pdf appendix.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.combine(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output PDF path (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *App) combine(cmd *cobra.Command, opts *combineOptions, args []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	var paths []string
	for _, p := range args {
		if _, err := pdfdoc.PageCount(p); err != nil {
			_, _ = fmt.Fprintf(a.stderr, "Skipping %s: %v\n", p, err)
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no readable PDF files to combine")
	}

	var fb pdfdoc.Fallback
	if gs := a.renderer(cfg); gs != nil {
		fb = gs
	}
	if err := pdfdoc.CombineFilesTo(cmd.Context(), paths, opts.output, fb); err != nil {
		return fmt.Errorf("combine: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Combined %d file(s) into %s\n", len(paths), opts.output)
	return nil
}
