package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dgallion1/buckutils/internal/config"
	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/preview"
	"github.com/dgallion1/buckutils/internal/render"
	"github.com/dgallion1/buckutils/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP front end: an HTML page plus a JSON API over
// per-browser workspaces.
type Server struct {
	router chi.Router
	store  *workspace.Store
	pool   *preview.Pool
	gs     *render.Ghostscript
	page   *indexPage
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. gs may be nil when
// Ghostscript is not installed.
func NewServer(store *workspace.Store, pool *preview.Pool, gs *render.Ghostscript, log *slog.Logger, cfg config.Config) (*Server, error) {
	page, err := newIndexPage()
	if err != nil {
		return nil, err
	}
	s := &Server{
		store: store,
		pool:  pool,
		gs:    gs,
		page:  page,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.log))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

		r.Post("/combine", s.handleCombineFiles)

		r.Post("/workspaces", s.handleCreateWorkspace)
		r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
			r.Get("/", s.handleGetWorkspace)
			r.Delete("/", s.handleClearWorkspace)
			r.Post("/files", s.handleUploadFiles)
			r.Post("/pages/remove", s.handleRemovePages)
			r.Post("/pages/move", s.handleMovePage)
			r.Post("/pages/{index}/up", s.handleMoveUp)
			r.Post("/pages/{index}/down", s.handleMoveDown)
			r.Get("/pages/{index}/image", s.handlePageImage)
			r.Get("/combined.pdf", s.handleCombinePages)
		})
	})

	s.router = r
}

func (s *Server) rendererName() string {
	if s.gs == nil {
		return "none"
	}
	return s.gs.Path
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"pdf_backend":   pdfdoc.Backend,
		"renderer":      s.rendererName(),
		"workspaces":    s.store.Len(),
		"preview_queue": s.pool.QueueDepth(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
