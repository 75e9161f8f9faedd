package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/api"
	"github.com/dgallion1/buckutils/internal/config"
	"github.com/dgallion1/buckutils/internal/preview"
	"github.com/dgallion1/buckutils/internal/render"
	"github.com/dgallion1/buckutils/internal/workspace"
)

func (a *App) newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the browser interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := slog.New(slog.NewJSONHandler(a.stdout, nil))
			return Serve(cmd.Context(), cfg, log, !a.noRenderer)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Listen port (default: PORT)")

	return cmd
}

// Serve wires the preview pool, workspace store and HTTP API and blocks
// until ctx is cancelled or the listener fails. useRenderer=false forces
// text-only previews.
func Serve(ctx context.Context, cfg config.Config, log *slog.Logger, useRenderer bool) error {
	var gs *render.Ghostscript
	if useRenderer {
		gs = render.NewGhostscript(render.Resolve(cfg.GhostscriptPath), cfg.PreviewDPI)
	}
	if gs == nil {
		log.Warn("ghostscript not found; previews will be text only")
	} else {
		log.Info("ghostscript found", "path", gs.Path)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := preview.NewGenerator(gs, cfg.PreviewTextLimit, log)
	pool := preview.NewPool(gen, cfg.PreviewWorkers, cfg.PreviewQueueSize, log)
	pool.Start(ctx)

	store := workspace.NewStore(cfg.WorkspaceTTL, log)
	store.StartCleanup(ctx, time.Minute)

	srv, err := api.NewServer(store, pool, gs, log, cfg)
	if err != nil {
		pool.Stop()
		return err
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		pool.Stop()
		store.CloseAll()
	}()

	log.Info("starting buckutils", "port", cfg.Port, "pid", os.Getpid())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cancel()
		<-shutdownDone
		return err
	}
	<-shutdownDone
	return nil
}
