package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
)

//go:embed web/index.html web/instructions.md
var webFS embed.FS

const appTitle = "BuckUtils PDF Helper"

type indexPage struct {
	tmpl *template.Template
	data indexData
}

type indexData struct {
	Title        string
	Instructions template.HTML
	MaxUploadMB  int64
}

func newIndexPage() (*indexPage, error) {
	tmpl, err := template.ParseFS(webFS, "web/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}
	src, err := webFS.ReadFile("web/instructions.md")
	if err != nil {
		return nil, fmt.Errorf("read instructions: %w", err)
	}
	var buf bytes.Buffer
	if err := goldmark.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}
	return &indexPage{
		tmpl: tmpl,
		// The markdown is embedded at build time, never user input.
		data: indexData{Title: appTitle, Instructions: template.HTML(buf.String())},
	}, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := s.page.data
	data.MaxUploadMB = s.cfg.MaxUploadBytes >> 20

	var buf bytes.Buffer
	if err := s.page.tmpl.Execute(&buf, data); err != nil {
		s.log.Error("render index failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
