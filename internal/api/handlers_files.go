package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/buckutils/internal/pdfdoc"
	"github.com/dgallion1/buckutils/internal/workspace"
)

// fileResult reports what happened to one uploaded file.
type fileResult struct {
	Filename   string `json:"filename"`
	FileID     string `json:"file_id,omitempty"`
	Pages      int    `json:"pages,omitempty"`
	PagesAdded int    `json:"pages_added"`
	Error      string `json:"error,omitempty"`
}

// handleUploadFiles imports every page of each uploaded PDF into the
// workspace and starts preview generation for the new pages.
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	files, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	log := s.log.With("workspace_id", ws.ID)
	results := make([]fileResult, 0, len(files))
	var added []workspace.PageRef
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		data, err := s.readUpload(fh, filename)
		if err != nil {
			results = append(results, fileResult{Filename: filename, Error: err.Error()})
			continue
		}

		src, refs, err := ws.AddFile(filename, data)
		if errors.Is(err, workspace.ErrUnreadable) {
			log.Warn("file skipped", "filename", filename, "error", err)
			results = append(results, fileResult{
				Filename: filename,
				Error:    "unable to open this file as a PDF",
			})
			continue
		}
		if err != nil {
			log.Error("store upload failed", "filename", filename, "error", err)
			results = append(results, fileResult{
				Filename: filename,
				Error:    "failed to store file on the server",
			})
			continue
		}
		added = append(added, refs...)
		results = append(results, fileResult{
			Filename:   filename,
			FileID:     src.ID,
			Pages:      src.PageCount,
			PagesAdded: len(refs),
		})
	}

	if len(added) > 0 {
		ws.QueuePreviews(s.pool, added)
		log.Info("pages imported", "pages", len(added))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files":     results,
		"workspace": ws.Snapshot(),
	})
}

// handleCombineFiles merges whole uploaded files in upload order without
// creating a workspace.
func (s *Server) handleCombineFiles(w http.ResponseWriter, r *http.Request) {
	files, ok := s.parseUpload(w, r)
	if !ok {
		return
	}
	defer r.MultipartForm.RemoveAll()

	tmpDir, err := os.MkdirTemp(s.cfg.WorkDir, "buckutils-combine-")
	if err != nil {
		jsonError(w, "cannot create temp dir", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(tmpDir)

	var paths []string
	var skipped []string
	for i, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		data, err := s.readUpload(fh, filename)
		if err != nil {
			skipped = append(skipped, filename)
			continue
		}
		p := filepath.Join(tmpDir, fmt.Sprintf("f_%03d.pdf", i))
		if err := os.WriteFile(p, data, 0o600); err != nil {
			jsonError(w, "failed to store upload", http.StatusInternalServerError)
			return
		}
		if _, err := pdfdoc.PageCount(p); err != nil {
			s.log.Warn("file skipped", "filename", filename, "error", err)
			skipped = append(skipped, filename)
			continue
		}
		paths = append(paths, p)
	}

	if len(paths) == 0 {
		jsonError(w, "no readable PDF files to combine", http.StatusBadRequest)
		return
	}

	out := filepath.Join(tmpDir, "combined.pdf")
	var fb pdfdoc.Fallback
	if s.gs != nil {
		fb = s.gs
	}
	if err := pdfdoc.CombineFilesTo(r.Context(), paths, out, fb); err != nil {
		s.log.Error("combine files failed", "files", len(paths), "error", err)
		jsonError(w, "failed to combine PDFs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := os.ReadFile(out)
	if err != nil {
		jsonError(w, "failed to read combined PDF", http.StatusInternalServerError)
		return
	}

	if len(skipped) > 0 {
		w.Header().Set("X-Skipped-Files", strings.Join(skipped, ","))
	}
	s.log.Info("files combined", "files", len(paths), "skipped", len(skipped), "bytes", len(data))
	writePDF(w, "combined.pdf", data)
}

// parseUpload parses a multipart body and returns its "files" parts.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]*multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		r.MultipartForm.RemoveAll()
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return nil, false
	}
	return files, true
}

func (s *Server) readUpload(fh *multipart.FileHeader, filename string) ([]byte, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("file too large or read error")
	}
	return data, nil
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
