package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/buckutils/internal/pdftest"
)

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "three.pdf",
		pdftest.Page{Width: 100, Height: 150},
		pdftest.Page{Width: 100, Height: 150},
		pdftest.Page{Width: 100, Height: 150},
	)

	n, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPageCount_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "junk.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, err := PageCount(path)
	assert.Error(t, err)
}

func TestExtractText(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "text.pdf",
		pdftest.Page{Width: 300, Height: 400, Text: "Quarterly invoice"},
		pdftest.Page{Width: 300, Height: 400},
	)

	text, err := ExtractText(path, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "invoice")

	blank, err := ExtractText(path, 1)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(blank))
}

func TestExtractText_OutOfRange(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "one.pdf", pdftest.Page{Width: 100, Height: 150})

	_, err := ExtractText(path, 5)
	assert.True(t, errors.Is(err, ErrPageRange), "got %v", err)

	_, err = ExtractText(path, -1)
	assert.True(t, errors.Is(err, ErrPageRange), "got %v", err)
}

func TestCombineFiles_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := CombineFiles(nil, &buf)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Zero(t, buf.Len())
}

func TestCombinePages_Empty(t *testing.T) {
	var buf bytes.Buffer
	err := CombinePages([]PageSource{}, &buf)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Zero(t, buf.Len())
}

func TestCombineFiles_KeepsFileOrder(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.Write(t, dir, "a.pdf",
		pdftest.Page{Width: 100, Height: 150},
		pdftest.Page{Width: 110, Height: 150},
	)
	b := pdftest.Write(t, dir, "b.pdf", pdftest.Page{Width: 200, Height: 250})
	out := filepath.Join(dir, "combined.pdf")

	err := WriteFile(out, func(w io.Writer) error { return CombineFiles([]string{b, a}, w) })
	require.NoError(t, err)

	dims, err := PageDims(out)
	require.NoError(t, err)
	require.Len(t, dims, 3)
	assert.InDelta(t, 200, dims[0].Width, 0.5)
	assert.InDelta(t, 100, dims[1].Width, 0.5)
	assert.InDelta(t, 110, dims[2].Width, 0.5)
}

func TestCombinePages_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.Write(t, dir, "ordered1.pdf",
		pdftest.Page{Width: 100, Height: 300},
		pdftest.Page{Width: 120, Height: 300},
	)
	b := pdftest.Write(t, dir, "ordered2.pdf",
		pdftest.Page{Width: 200, Height: 300},
		pdftest.Page{Width: 220, Height: 300},
	)
	out := filepath.Join(dir, "combined_pages.pdf")

	order := []PageSource{
		{Path: b, PageIndex: 1},
		{Path: a, PageIndex: 0},
		{Path: a, PageIndex: 1},
		{Path: b, PageIndex: 0},
	}
	err := WriteFile(out, func(w io.Writer) error { return CombinePages(order, w) })
	require.NoError(t, err)

	dims, err := PageDims(out)
	require.NoError(t, err)
	require.Len(t, dims, 4)
	want := []float64{220, 100, 120, 200}
	for i, w := range want {
		assert.InDelta(t, w, dims[i].Width, 0.5, "page %d", i+1)
	}
}

func TestCombinePages_SingleRunReversed(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.Write(t, dir, "a.pdf",
		pdftest.Page{Width: 100, Height: 300},
		pdftest.Page{Width: 150, Height: 300},
	)
	out := filepath.Join(dir, "reversed.pdf")

	err := WriteFile(out, func(w io.Writer) error {
		return CombinePages([]PageSource{{Path: a, PageIndex: 1}, {Path: a, PageIndex: 0}}, w)
	})
	require.NoError(t, err)

	dims, err := PageDims(out)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	assert.InDelta(t, 150, dims[0].Width, 0.5)
	assert.InDelta(t, 100, dims[1].Width, 0.5)
}

func TestCombinePages_OutOfRange(t *testing.T) {
	dir := t.TempDir()
	a := pdftest.Write(t, dir, "a.pdf", pdftest.Page{Width: 100, Height: 150})

	var buf bytes.Buffer
	err := CombinePages([]PageSource{{Path: a, PageIndex: 3}}, &buf)
	assert.ErrorIs(t, err, ErrPageRange)
}

func TestWriteFile_FailureLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "combined.pdf")

	err := WriteFile(out, func(w io.Writer) error { return CombineFiles(nil, w) })
	assert.ErrorIs(t, err, ErrNoInput)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "expected no output file, got %v", statErr)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file should be cleaned up")
}

func TestGroupRuns(t *testing.T) {
	runs := groupRuns([]PageSource{
		{Path: "a", PageIndex: 0},
		{Path: "a", PageIndex: 2},
		{Path: "b", PageIndex: 0},
		{Path: "a", PageIndex: 1},
	})
	require.Len(t, runs, 3)
	assert.Equal(t, run{path: "a", selection: []string{"1", "3"}}, runs[0])
	assert.Equal(t, run{path: "b", selection: []string{"1"}}, runs[1])
	assert.Equal(t, run{path: "a", selection: []string{"2"}}, runs[2])
}

type fakeFallback struct {
	calls int
	err   error
}

func (f *fakeFallback) CombineFiles(_ context.Context, _ []string, outPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, []byte("%PDF-fallback"), 0o644)
}

func TestCombineFilesTo_FallbackOnEngineFailure(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	require.NoError(t, os.WriteFile(junk, []byte("not a pdf"), 0o644))
	out := filepath.Join(dir, "out.pdf")

	fb := &fakeFallback{}
	require.NoError(t, CombineFilesTo(context.Background(), []string{junk}, out, fb))
	assert.Equal(t, 1, fb.calls)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fallback", string(data))
}

func TestCombineFilesTo_NoFallback(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	require.NoError(t, os.WriteFile(junk, []byte("not a pdf"), 0o644))
	out := filepath.Join(dir, "out.pdf")

	err := CombineFilesTo(context.Background(), []string{junk}, out, nil)
	require.Error(t, err)
	assert.NoFileExists(t, out)

	fb := &fakeFallback{err: errors.New("gs missing fonts")}
	err = CombineFilesTo(context.Background(), []string{junk}, out, fb)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gs missing fonts")
	assert.NoFileExists(t, out)
}

func TestCombineFilesTo_Empty(t *testing.T) {
	fb := &fakeFallback{}
	err := CombineFilesTo(context.Background(), nil, filepath.Join(t.TempDir(), "x.pdf"), fb)
	assert.ErrorIs(t, err, ErrNoInput)
	assert.Zero(t, fb.calls)
}
