// Package cli provides the buckutils command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/buckutils/internal/config"
	"github.com/dgallion1/buckutils/internal/render"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	ghostscript string
	noRenderer  bool
}

// New creates a new CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "buckutils",
		Short: "Combine PDF files and pages",
		Long: `buckutils combines whole PDF files, or individual pages picked from
several files, into one PDF in exactly the order you give.

Run "buckutils serve" for the browser interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	app.root.PersistentFlags().StringVar(&app.ghostscript, "ghostscript", "", "Path to the Ghostscript executable (default: search PATH)")
	app.root.PersistentFlags().BoolVar(&app.noRenderer, "no-renderer", false, "Never use Ghostscript")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newCombineCmd(),
		app.newPagesCmd(),
		app.newPreviewCmd(),
		app.newBackendCmd(),
		app.newServeCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments.
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(a.stdout, "buckutils version %s (%s)\n", Version, GitCommit)
		},
	}
}

// loadConfig reads the environment and applies the persistent flags.
func (a *App) loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if a.ghostscript != "" {
		cfg.GhostscriptPath = a.ghostscript
	}
	return cfg, nil
}

// renderer returns the Ghostscript renderer, or nil when none is available
// or it was turned off.
func (a *App) renderer(cfg config.Config) *render.Ghostscript {
	if a.noRenderer {
		return nil
	}
	return render.NewGhostscript(render.Resolve(cfg.GhostscriptPath), cfg.PreviewDPI)
}

// logger writes warnings and errors to stderr so stdout stays clean for
// command output.
func (a *App) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
