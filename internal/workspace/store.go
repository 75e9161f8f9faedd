package workspace

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/buckutils/internal/preview"
)

// ErrNotFound is returned for an unknown workspace ID.
var ErrNotFound = errors.New("workspace not found")

// Store is a thread-safe in-memory workspace registry with TTL eviction.
type Store struct {
	mu         sync.Mutex
	workspaces map[string]*Workspace
	ttl        time.Duration
	log        *slog.Logger
}

func NewStore(ttl time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		workspaces: make(map[string]*Workspace),
		ttl:        ttl,
		log:        log,
	}
}

func (s *Store) Put(ws *Workspace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspaces[ws.ID] = ws
}

// Get returns the workspace and marks it as recently used.
func (s *Store) Get(id string) (*Workspace, error) {
	s.mu.Lock()
	ws := s.workspaces[id]
	s.mu.Unlock()
	if ws == nil {
		return nil, ErrNotFound
	}
	ws.touch()
	return ws, nil
}

// Delete removes a workspace and its files.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	ws := s.workspaces[id]
	delete(s.workspaces, id)
	s.mu.Unlock()
	if ws == nil {
		return ErrNotFound
	}
	return ws.Close()
}

// Len returns the number of live workspaces.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}

// Cleanup removes workspaces idle for longer than the TTL.
func (s *Store) Cleanup() {
	now := time.Now()
	var expired []*Workspace

	s.mu.Lock()
	for id, ws := range s.workspaces {
		if now.Sub(ws.lastUsed()) > s.ttl {
			delete(s.workspaces, id)
			expired = append(expired, ws)
		}
	}
	s.mu.Unlock()

	for _, ws := range expired {
		if err := ws.Close(); err != nil {
			s.log.Warn("workspace cleanup failed", "workspace_id", ws.ID, "error", err)
			continue
		}
		s.log.Info("workspace expired", "workspace_id", ws.ID)
	}
}

// CloseAll removes every workspace; used on shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	all := s.workspaces
	s.workspaces = make(map[string]*Workspace)
	s.mu.Unlock()

	for _, ws := range all {
		ws.Close()
	}
}

func (w *Workspace) touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.UpdatedAt = time.Now()
}

func (w *Workspace) lastUsed() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.UpdatedAt
}

// PageView is a JSON-safe copy of one list entry.
type PageView struct {
	Position     int     `json:"position"`
	Ref          PageRef `json:"ref"`
	Label        string  `json:"label"`
	PreviewText  string  `json:"preview_text"`
	HasImage     bool    `json:"has_image"`
	PreviewReady bool    `json:"preview_ready"`
}

// Snapshot is a read-only, JSON-safe copy of workspace state.
type Snapshot struct {
	ID       string           `json:"workspace_id"`
	Files    []SourceFile     `json:"files"`
	Pages    []PageView       `json:"pages"`
	Progress preview.Progress `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the workspace state.
func (w *Workspace) Snapshot() Snapshot {
	progress := w.Progress()

	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		ID:       w.ID,
		Files:    make([]SourceFile, 0, len(w.files)),
		Pages:    make([]PageView, 0, len(w.pages)),
		Progress: progress,
	}
	seen := make(map[string]bool)
	for i, p := range w.pages {
		snap.Pages = append(snap.Pages, PageView{
			Position:     i,
			Ref:          p.Ref,
			Label:        p.Label,
			PreviewText:  p.PreviewText,
			HasImage:     p.PreviewImage != "",
			PreviewReady: p.PreviewReady,
		})
		if !seen[p.Ref.FileID] {
			seen[p.Ref.FileID] = true
			if f, ok := w.files[p.Ref.FileID]; ok {
				snap.Files = append(snap.Files, *f)
			}
		}
	}
	return snap
}

// StartCleanup evicts expired workspaces every interval until ctx ends.
func (s *Store) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}
