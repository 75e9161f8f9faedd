package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageSource identifies one page of a PDF on disk. PageIndex is zero-based.
type PageSource struct {
	Path      string
	PageIndex int
}

// CombineFiles writes every page of every file, files in the given order.
func CombineFiles(paths []string, w io.Writer) error {
	if len(paths) == 0 {
		return ErrNoInput
	}

	readers := make([]io.ReadSeeker, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		readers = append(readers, f)
	}

	if err := api.MergeRaw(readers, w, false, newConfig()); err != nil {
		return fmt.Errorf("merge pdfs: %w", err)
	}
	return nil
}

// CombinePages writes the given pages so that output page N is pages[N].
// Consecutive pages from the same file are collected in a single pass.
func CombinePages(pages []PageSource, w io.Writer) error {
	if len(pages) == 0 {
		return ErrNoInput
	}

	counts := make(map[string]int)
	for _, p := range pages {
		n, ok := counts[p.Path]
		if !ok {
			var err error
			n, err = PageCount(p.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(p.Path), err)
			}
			counts[p.Path] = n
		}
		if p.PageIndex < 0 || p.PageIndex >= n {
			return fmt.Errorf("%s page %d of %d: %w", filepath.Base(p.Path), p.PageIndex+1, n, ErrPageRange)
		}
	}

	runs := groupRuns(pages)
	parts := make([]io.ReadSeeker, 0, len(runs))
	for _, r := range runs {
		var buf bytes.Buffer
		if err := collect(r.path, r.selection, &buf); err != nil {
			return err
		}
		parts = append(parts, bytes.NewReader(buf.Bytes()))
	}

	if len(parts) == 1 {
		_, err := io.Copy(w, parts[0])
		return err
	}
	if err := api.MergeRaw(parts, w, false, newConfig()); err != nil {
		return fmt.Errorf("merge pages: %w", err)
	}
	return nil
}

type run struct {
	path      string
	selection []string
}

// groupRuns splits pages into maximal runs sharing a source file, keeping
// order. Selections are pdfcpu's 1-based page numbers.
func groupRuns(pages []PageSource) []run {
	var runs []run
	for _, p := range pages {
		nr := strconv.Itoa(p.PageIndex + 1)
		if len(runs) > 0 && runs[len(runs)-1].path == p.Path {
			runs[len(runs)-1].selection = append(runs[len(runs)-1].selection, nr)
			continue
		}
		runs = append(runs, run{path: p.Path, selection: []string{nr}})
	}
	return runs
}

func collect(path string, selection []string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := api.Collect(f, w, selection, newConfig()); err != nil {
		return fmt.Errorf("collect pages from %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteFile runs fn against a temporary file next to dest and renames it
// into place only when fn succeeds, so a failed combine leaves no output.
func WriteFile(dest string, fn func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".buckutils-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("move output into place: %w", err)
	}
	return nil
}

// Fallback merges whole files by other means when the engine rejects an
// input.
type Fallback interface {
	CombineFiles(ctx context.Context, inputs []string, outPath string) error
}

// CombineFilesTo writes the whole-file combine of paths to dest. When the
// engine fails and fb is non-nil, fb gets one attempt.
func CombineFilesTo(ctx context.Context, paths []string, dest string, fb Fallback) error {
	if len(paths) == 0 {
		return ErrNoInput
	}
	err := WriteFile(dest, func(w io.Writer) error { return CombineFiles(paths, w) })
	if err == nil || fb == nil {
		return err
	}

	tmp, terr := os.CreateTemp(filepath.Dir(dest), ".buckutils-*.pdf")
	if terr != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	if ferr := fb.CombineFiles(ctx, paths, tmpPath); ferr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w (fallback: %v)", err, ferr)
	}
	if rerr := os.Rename(tmpPath, dest); rerr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("move output into place: %w", rerr)
	}
	return nil
}
