package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
)

func (a *App) newBackendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Show the PDF engine and page renderer in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "PDF backend: %s\n", pdfdoc.Backend)
			if gs := a.renderer(cfg); gs != nil {
				_, _ = fmt.Fprintf(a.stdout, "Renderer: %s (image previews at %d dpi)\n", gs.Path, gs.DPI)
			} else {
				_, _ = fmt.Fprintf(a.stdout, "Renderer: none (text-only previews)\n")
			}
			return nil
		},
	}
}
