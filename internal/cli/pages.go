package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
)

type pagesOptions struct {
	output string
}

func (a *App) newPagesCmd() *cobra.Command {
	opts := &pagesOptions{}

	cmd := &cobra.Command{
		Use:   "pages -o OUTPUT FILE.pdf[:PAGES]...",
		Short: "Combine selected pages in a chosen order",
		Long: `Combine individual pages from one or more PDFs. Each argument names a
file and, after a colon, the pages to take from it. Pages are numbered
from 1; ranges use a dash and lists use commas. A file with no page list
contributes every page.

Pages are written in the order given. A page named twice is only used
the first time.

Examples:
  # Page 1 of a.pdf, pages 3 and 4 of b.pdf, then page 2 of a.pdf
  buckutils pages -o out.pdf a.pdf:1 b.pdf:3-4 a.pdf:2

  # All of cover.pdf followed by pages 2, 5, 6 and 7 of scan.pdf
  buckutils pages -o out.pdf cover.pdf scan.pdf:2,5-7`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.pages(opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output PDF path (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *App) pages(opts *pagesOptions, args []string) error {
	var sources []pdfdoc.PageSource
	seen := make(map[pdfdoc.PageSource]bool)

	for _, arg := range args {
		path, pages, err := parsePageSpec(arg)
		if err != nil {
			return err
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		n, err := pdfdoc.PageCount(abs)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if pages == nil {
			pages = allPages(n)
		}

		for _, p := range pages {
			if p >= n {
				return fmt.Errorf("%s: page %d: %w (file has %d)", path, p+1, pdfdoc.ErrPageRange, n)
			}
			src := pdfdoc.PageSource{Path: abs, PageIndex: p}
			if seen[src] {
				_, _ = fmt.Fprintf(a.stderr, "%s - Page %d is already included; skipping\n", filepath.Base(path), p+1)
				continue
			}
			seen[src] = true
			sources = append(sources, src)
		}
	}

	err := pdfdoc.WriteFile(opts.output, func(w io.Writer) error {
		return pdfdoc.CombinePages(sources, w)
	})
	if err != nil {
		return fmt.Errorf("combine pages: %w", err)
	}

	_, _ = fmt.Fprintf(a.stdout, "Wrote %d page(s) to %s\n", len(sources), opts.output)
	return nil
}

var errPageSpec = errors.New("invalid page list")

// parsePageSpec splits "file.pdf:1,3-4" into the path and zero-based page
// indices. A nil slice means every page. The page list is only split off
// when the text after the last colon looks like one, so Windows drive
// letters survive.
func parsePageSpec(arg string) (string, []int, error) {
	i := strings.LastIndex(arg, ":")
	if i < 0 || !looksLikePageList(arg[i+1:]) {
		return arg, nil, nil
	}
	path, list := arg[:i], arg[i+1:]
	if path == "" {
		return "", nil, fmt.Errorf("%q: missing file name", arg)
	}

	var pages []int
	for _, part := range strings.Split(list, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		first, err := strconv.Atoi(lo)
		if err != nil || first < 1 {
			return "", nil, fmt.Errorf("%q: %w", arg, errPageSpec)
		}
		last := first
		if isRange {
			last, err = strconv.Atoi(hi)
			if err != nil || last < first {
				return "", nil, fmt.Errorf("%q: %w", arg, errPageSpec)
			}
		}
		for p := first; p <= last; p++ {
			pages = append(pages, p-1)
		}
	}
	return path, pages, nil
}

func looksLikePageList(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '-' {
			return false
		}
	}
	return true
}

func allPages(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
