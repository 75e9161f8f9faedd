package preview

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/render"
)

// Task asks for the preview of one page. Key fields identify the page in
// the caller's list; Path is where the PDF lives on disk.
type Task struct {
	FileID    string
	PageIndex int
	Path      string
	OutDir    string
}

// Result is a generated preview. ImagePath is empty when no renderer is
// configured or rendering failed.
type Result struct {
	FileID    string
	PageIndex int
	Text      string
	ImagePath string
}

// Generator builds previews. A nil Renderer means text-only previews.
type Generator struct {
	Renderer  render.Renderer
	TextLimit int
	Log       *slog.Logger
}

// NewGenerator wires a generator to gs, which may be nil.
func NewGenerator(gs *render.Ghostscript, textLimit int, log *slog.Logger) *Generator {
	g := &Generator{TextLimit: textLimit, Log: log}
	if gs != nil {
		g.Renderer = gs
	}
	return g
}

// Generate never fails; problems degrade the preview instead.
func (g *Generator) Generate(ctx context.Context, t Task) Result {
	res := Result{FileID: t.FileID, PageIndex: t.PageIndex, Text: Placeholder}
	log := g.logger().With("file", filepath.Base(t.Path), "page", t.PageIndex+1)

	raw, err := pdfdoc.ExtractText(t.Path, t.PageIndex)
	if err != nil {
		log.Warn("text extraction failed", "error", err)
	} else {
		res.Text = BuildText(raw, g.TextLimit)
	}

	if g.Renderer == nil || t.OutDir == "" {
		return res
	}
	out := filepath.Join(t.OutDir, ImageName(t.FileID, t.Path, t.PageIndex))
	if err := g.Renderer.RenderPage(ctx, t.Path, t.PageIndex, out); err != nil {
		log.Warn("render failed", "error", err)
		return res
	}
	res.ImagePath = out
	return res
}

// ImageName is the file name used for a rendered page thumbnail. A short
// hash of fileID keeps same-named files from different folders apart.
func ImageName(fileID, pdfPath string, pageIndex int) string {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	sum := sha256.Sum256([]byte(fileID))
	return fmt.Sprintf("buckutils_preview_%s_%x_%d.png", stem, sum[:4], pageIndex)
}

func (g *Generator) logger() *slog.Logger {
	if g.Log != nil {
		return g.Log
	}
	return slog.Default()
}
