package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BUCKUTILS_CONFIG", "")
	t.Setenv("PORT", "")
	t.Setenv("PREVIEW_WORKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port %q, got %q", "8090", cfg.Port)
	}
	if cfg.PreviewWorkers != 4 {
		t.Errorf("expected 4 preview workers, got %d", cfg.PreviewWorkers)
	}
	if cfg.PreviewDPI != 50 {
		t.Errorf("expected 50 dpi, got %d", cfg.PreviewDPI)
	}
	if cfg.PreviewTextLimit != 240 {
		t.Errorf("expected text limit 240, got %d", cfg.PreviewTextLimit)
	}
	if cfg.WorkspaceTTL != time.Hour {
		t.Errorf("expected 1h ttl, got %s", cfg.WorkspaceTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BUCKUTILS_CONFIG", "")
	t.Setenv("PORT", "9000")
	t.Setenv("PREVIEW_WORKERS", "8")
	t.Setenv("WORKSPACE_TTL", "15m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("expected port %q, got %q", "9000", cfg.Port)
	}
	if cfg.PreviewWorkers != 8 {
		t.Errorf("expected 8 workers, got %d", cfg.PreviewWorkers)
	}
	if cfg.WorkspaceTTL != 15*time.Minute {
		t.Errorf("expected 15m ttl, got %s", cfg.WorkspaceTTL)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("expected rps 2.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoad_InvalidValuesClamped(t *testing.T) {
	t.Setenv("BUCKUTILS_CONFIG", "")
	t.Setenv("PREVIEW_WORKERS", "-3")
	t.Setenv("PREVIEW_DPI", "0")
	t.Setenv("MAX_UPLOAD_BYTES", "garbage")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PreviewWorkers != 4 {
		t.Errorf("expected clamped workers 4, got %d", cfg.PreviewWorkers)
	}
	if cfg.PreviewDPI != 50 {
		t.Errorf("expected clamped dpi 50, got %d", cfg.PreviewDPI)
	}
	if cfg.MaxUploadBytes != 52428800 {
		t.Errorf("expected default upload limit, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "buckutils.yaml")
	body := "port: \"7000\"\npreview_workers: 2\nworkspace_ttl: 30m\nghostscript_path: /opt/gs/bin/gs\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUCKUTILS_CONFIG", path)
	t.Setenv("PORT", "")
	t.Setenv("PREVIEW_WORKERS", "6")
	t.Setenv("WORKSPACE_TTL", "")
	t.Setenv("GHOSTSCRIPT_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("expected port from file, got %q", cfg.Port)
	}
	// Environment wins over the file.
	if cfg.PreviewWorkers != 6 {
		t.Errorf("expected env workers 6, got %d", cfg.PreviewWorkers)
	}
	if cfg.WorkspaceTTL != 30*time.Minute {
		t.Errorf("expected 30m ttl, got %s", cfg.WorkspaceTTL)
	}
	if cfg.GhostscriptPath != "/opt/gs/bin/gs" {
		t.Errorf("expected gs path from file, got %q", cfg.GhostscriptPath)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BUCKUTILS_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "not-a-dir")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"non-numeric port", func(c *Config) { c.Port = "http" }, true},
		{"missing work dir", func(c *Config) { c.WorkDir = filepath.Join(dir, "missing") }, true},
		{"work dir is a file", func(c *Config) { c.WorkDir = file }, true},
		{"dpi too high", func(c *Config) { c.PreviewDPI = 1200 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.WorkDir = dir
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
