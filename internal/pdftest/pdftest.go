// Package pdftest generates small PDF fixtures for tests.
package pdftest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// Page describes one fixture page. Size is in points; Text may be empty
// for a blank page.
type Page struct {
	Width  float64
	Height float64
	Text   string
}

// Bytes renders pages into an in-memory PDF.
func Bytes(t testing.TB, pages ...Page) []byte {
	t.Helper()
	if len(pages) == 0 {
		t.Fatal("pdftest: at least one page is required")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pages[0].Width, Ht: pages[0].Height},
	})
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.Width, Ht: p.Height})
		if p.Text != "" {
			pdf.Text(10, 20, p.Text)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("pdftest: render: %v", err)
	}
	return buf.Bytes()
}

// Write renders pages to dir/name and returns the full path.
func Write(t testing.TB, dir, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Bytes(t, pages...), 0o644); err != nil {
		t.Fatalf("pdftest: write %s: %v", path, err)
	}
	return path
}
