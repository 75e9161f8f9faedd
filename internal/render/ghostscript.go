// Package render turns PDF pages into PNG thumbnails by running Ghostscript
// as a subprocess. When Ghostscript is missing, callers fall back to
// text-only previews.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Renderer produces a PNG image of one page.
type Renderer interface {
	RenderPage(ctx context.Context, pdfPath string, pageIndex int, outPath string) error
}

// Ghostscript runs the gs executable.
type Ghostscript struct {
	Path string
	DPI  int
}

// NewGhostscript returns a renderer for the executable at path, or nil when
// path is empty.
func NewGhostscript(path string, dpi int) *Ghostscript {
	if path == "" {
		return nil
	}
	if dpi <= 0 {
		dpi = 50
	}
	return &Ghostscript{Path: path, DPI: dpi}
}

// RenderPage writes page pageIndex (zero-based) of pdfPath to outPath.
func (g *Ghostscript) RenderPage(ctx context.Context, pdfPath string, pageIndex int, outPath string) error {
	page := pageIndex + 1
	args := []string{
		"-dBATCH",
		"-dNOPAUSE",
		"-sDEVICE=png16m",
		"-dSAFER",
		fmt.Sprintf("-dFirstPage=%d", page),
		fmt.Sprintf("-dLastPage=%d", page),
		fmt.Sprintf("-r%d", g.DPI),
		"-sOutputFile=" + outPath,
		pdfPath,
	}
	if err := g.run(ctx, args); err != nil {
		return fmt.Errorf("render page %d: %w", page, err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("render page %d: no output: %w", page, err)
	}
	return nil
}

// CombineFiles merges whole files with the pdfwrite device.
func (g *Ghostscript) CombineFiles(ctx context.Context, inputs []string, outPath string) error {
	args := []string{
		"-dBATCH",
		"-dNOPAUSE",
		"-dSAFER",
		"-sDEVICE=pdfwrite",
		"-dPDFSETTINGS=/prepress",
		"-sOutputFile=" + outPath,
	}
	args = append(args, inputs...)
	if err := g.run(ctx, args); err != nil {
		return fmt.Errorf("ghostscript combine: %w", err)
	}
	return nil
}

func (g *Ghostscript) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, g.Path, args...)
	hideWindow(cmd)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

var executableNames = []string{"gswin64c", "gswin32c", "gs"}

// FindGhostscript returns the path of a Ghostscript executable, or "" when
// none is installed. PATH is searched first, then the Windows install
// directories under Program Files.
func FindGhostscript() string {
	for _, name := range executableNames {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}

	programFiles := []string{
		envOr("PROGRAMFILES", `C:\Program Files`),
		envOr("PROGRAMFILES(X86)", `C:\Program Files (x86)`),
	}
	for _, pf := range programFiles {
		if p := findUnder(filepath.Join(pf, "gs")); p != "" {
			return p
		}
	}
	return ""
}

// findUnder looks for gsXX.XX/bin/gswin{64,32}c.exe below gsDir.
func findUnder(gsDir string) string {
	entries, err := os.ReadDir(gsDir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		for _, exe := range []string{"gswin64c.exe", "gswin32c.exe"} {
			p := filepath.Join(gsDir, e.Name(), "bin", exe)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// Resolve returns configured if set, otherwise the discovered executable.
func Resolve(configured string) string {
	if configured != "" {
		return configured
	}
	return FindGhostscript()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
