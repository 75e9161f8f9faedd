package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/preview"
	"github.com/dgallion1/buckutils/internal/workspace"
)

type previewOptions struct {
	images  string
	workers int
}

func (a *App) newPreviewCmd() *cobra.Command {
	opts := &previewOptions{}

	cmd := &cobra.Command{
		Use:   "preview FILE.pdf...",
		Short: "Show a text preview of every page",
		Long: `Generate the page previews the browser interface shows: a short text
excerpt per page and, when Ghostscript is installed, a PNG image.

Examples:
  buckutils preview report.pdf
  buckutils preview --images ./thumbs a.pdf b.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.preview(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.images, "images", "", "Copy rendered page images into this directory")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Preview workers (default: PREVIEW_WORKERS)")

	return cmd
}

func (a *App) preview(cmd *cobra.Command, opts *previewOptions, args []string) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	log := a.logger()

	ws, err := workspace.New(uuid.NewString(), cfg.WorkDir)
	if err != nil {
		return err
	}
	defer ws.Close()

	var refs []workspace.PageRef
	for _, path := range args {
		_, added, err := ws.AddPath(path)
		if err != nil {
			_, _ = fmt.Fprintf(a.stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		refs = append(refs, added...)
	}
	if len(refs) == 0 {
		return fmt.Errorf("no pages to preview")
	}

	workers := cfg.PreviewWorkers
	if opts.workers > 0 {
		workers = opts.workers
	}
	gen := preview.NewGenerator(a.renderer(cfg), cfg.PreviewTextLimit, log)
	pool := preview.NewPool(gen, workers, len(refs), log)
	pool.Start(ctx)
	defer pool.Stop()

	var (
		mu   sync.Mutex
		done int
	)
	total := len(refs)
	batch := ws.QueuePreviewsNotify(pool, refs, func(res preview.Result) {
		mu.Lock()
		defer mu.Unlock()
		done++
		_, _ = fmt.Fprintf(a.stderr, "Generating previews... %d/%d\n", done, total)
	})
	if err := batch.Wait(ctx); err != nil {
		return err
	}

	if opts.images != "" {
		if err := os.MkdirAll(opts.images, 0o755); err != nil {
			return fmt.Errorf("create image dir: %w", err)
		}
	}

	for _, p := range ws.Pages() {
		_, _ = fmt.Fprintf(a.stdout, "%s\n    %s\n", p.Label, p.PreviewText)
		if opts.images == "" || p.PreviewImage == "" {
			continue
		}
		dest := filepath.Join(opts.images, filepath.Base(p.PreviewImage))
		if err := copyFile(p.PreviewImage, dest); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.stdout, "    image: %s\n", dest)
	}
	return nil
}

func copyFile(src, dest string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read preview image: %w", err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("write preview image: %w", err)
	}
	return nil
}
