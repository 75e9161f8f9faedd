package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := workspace.New(uuid.NewString(), s.cfg.WorkDir)
	if err != nil {
		s.log.Error("create workspace failed", "error", err)
		jsonError(w, "failed to create workspace", http.StatusInternalServerError)
		return
	}
	s.store.Put(ws)
	s.log.Info("workspace created", "workspace_id", ws.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"workspace_id": ws.ID})
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) handleClearWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	ws.Clear()
	s.log.Info("workspace cleared", "workspace_id", ws.ID)
	writeJSON(w, http.StatusOK, ws.Snapshot())
}

func (s *Server) handleRemovePages(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var req removePagesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	removed := ws.Remove(req.Indices)
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":   removed,
		"workspace": ws.Snapshot(),
	})
}

func (s *Server) handleMovePage(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var req movePageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if n := ws.Len(); *req.From >= n || *req.To >= n {
		jsonError(w, "page position out of range", http.StatusBadRequest)
		return
	}
	ws.Move(*req.From, *req.To)
	writeJSON(w, http.StatusOK, map[string]any{
		"selected":  *req.To,
		"workspace": ws.Snapshot(),
	})
}

func (s *Server) handleMoveUp(w http.ResponseWriter, r *http.Request) {
	s.handleNudge(w, r, (*workspace.Workspace).MoveUp)
}

func (s *Server) handleMoveDown(w http.ResponseWriter, r *http.Request) {
	s.handleNudge(w, r, (*workspace.Workspace).MoveDown)
}

// handleNudge applies a neighbour swap. Moving past either end is not an
// error; the selection simply stays put.
func (s *Server) handleNudge(w http.ResponseWriter, r *http.Request, move func(*workspace.Workspace, int) (int, bool)) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	idx, ok := pageIndex(w, r, ws)
	if !ok {
		return
	}
	selected, moved := move(ws, idx)
	writeJSON(w, http.StatusOK, map[string]any{
		"moved":     moved,
		"selected":  selected,
		"workspace": ws.Snapshot(),
	})
}

func (s *Server) handlePageImage(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	idx, ok := pageIndex(w, r, ws)
	if !ok {
		return
	}
	page, _ := ws.Page(idx)
	if page.PreviewImage == "" {
		jsonError(w, "no image preview for this page", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, page.PreviewImage)
}

func (s *Server) handleCombinePages(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := ws.Combine(&buf); err != nil {
		if errors.Is(err, pdfdoc.ErrNoInput) {
			jsonError(w, "no pages to combine; add PDF files first", http.StatusBadRequest)
			return
		}
		s.log.Error("combine pages failed", "workspace_id", ws.ID, "error", err)
		jsonError(w, "failed to combine pages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("pages combined", "workspace_id", ws.ID, "pages", ws.Len(), "bytes", buf.Len())
	writePDF(w, "combined.pdf", buf.Bytes())
}

// workspace resolves the {workspaceID} URL parameter, writing a 404 when
// it is unknown.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	id := chi.URLParam(r, "workspaceID")
	ws, err := s.store.Get(id)
	if err != nil {
		jsonError(w, "workspace not found", http.StatusNotFound)
		return nil, false
	}
	return ws, true
}

func pageIndex(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "page index must be a number", http.StatusBadRequest)
		return 0, false
	}
	if idx < 0 || idx >= ws.Len() {
		jsonError(w, "page position out of range", http.StatusNotFound)
		return 0, false
	}
	return idx, true
}

func writePDF(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
