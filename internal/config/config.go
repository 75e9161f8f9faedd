package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Workspace storage
	WorkDir      string
	WorkspaceTTL time.Duration

	// Preview pool
	PreviewWorkers   int
	PreviewQueueSize int
	PreviewDPI       int
	PreviewTextLimit int

	// Renderer; empty means search PATH and the usual install locations.
	GhostscriptPath string

	// Upload limits
	MaxUploadBytes int64

	// Per-client rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

// fileConfig mirrors Config for the optional YAML overlay. Pointers
// distinguish "absent" from zero values.
type fileConfig struct {
	Port             *string  `yaml:"port"`
	WorkDir          *string  `yaml:"work_dir"`
	WorkspaceTTL     *string  `yaml:"workspace_ttl"`
	PreviewWorkers   *int     `yaml:"preview_workers"`
	PreviewQueueSize *int     `yaml:"preview_queue_size"`
	PreviewDPI       *int     `yaml:"preview_dpi"`
	PreviewTextLimit *int     `yaml:"preview_text_limit"`
	GhostscriptPath  *string  `yaml:"ghostscript_path"`
	MaxUploadBytes   *int64   `yaml:"max_upload_bytes"`
	RateLimitRPS     *float64 `yaml:"rate_limit_rps"`
	RateLimitBurst   *int     `yaml:"rate_limit_burst"`
}

// Load reads configuration from the environment. When BUCKUTILS_CONFIG
// names a YAML file, its values are applied first and environment
// variables override them.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("BUCKUTILS_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.WorkDir = envOr("WORK_DIR", cfg.WorkDir)
	cfg.WorkspaceTTL = envDuration("WORKSPACE_TTL", cfg.WorkspaceTTL)
	cfg.PreviewWorkers = envInt("PREVIEW_WORKERS", cfg.PreviewWorkers)
	cfg.PreviewQueueSize = envInt("PREVIEW_QUEUE_SIZE", cfg.PreviewQueueSize)
	cfg.PreviewDPI = envInt("PREVIEW_DPI", cfg.PreviewDPI)
	cfg.PreviewTextLimit = envInt("PREVIEW_TEXT_LIMIT", cfg.PreviewTextLimit)
	cfg.GhostscriptPath = envOr("GHOSTSCRIPT_PATH", cfg.GhostscriptPath)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.RateLimitRPS = envFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)

	cfg.clamp()
	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:             "8090",
		WorkDir:          os.TempDir(),
		WorkspaceTTL:     1 * time.Hour,
		PreviewWorkers:   4,
		PreviewQueueSize: 512,
		PreviewDPI:       50,
		PreviewTextLimit: 240,
		MaxUploadBytes:   52428800, // 50MB
		RateLimitRPS:     10,
		RateLimitBurst:   20,
	}
}

func (c *Config) clamp() {
	d := defaults()
	if c.WorkDir == "" {
		c.WorkDir = d.WorkDir
	}
	if c.WorkspaceTTL <= 0 {
		c.WorkspaceTTL = d.WorkspaceTTL
	}
	if c.PreviewWorkers <= 0 {
		c.PreviewWorkers = d.PreviewWorkers
	}
	if c.PreviewQueueSize <= 0 {
		c.PreviewQueueSize = d.PreviewQueueSize
	}
	if c.PreviewDPI <= 0 {
		c.PreviewDPI = d.PreviewDPI
	}
	if c.PreviewTextLimit <= 0 {
		c.PreviewTextLimit = d.PreviewTextLimit
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.RateLimitRPS <= 0 {
		c.RateLimitRPS = d.RateLimitRPS
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = d.RateLimitBurst
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.WorkDir != nil {
		c.WorkDir = *fc.WorkDir
	}
	if fc.WorkspaceTTL != nil {
		d, err := time.ParseDuration(*fc.WorkspaceTTL)
		if err != nil {
			return fmt.Errorf("config file workspace_ttl: %w", err)
		}
		c.WorkspaceTTL = d
	}
	if fc.PreviewWorkers != nil {
		c.PreviewWorkers = *fc.PreviewWorkers
	}
	if fc.PreviewQueueSize != nil {
		c.PreviewQueueSize = *fc.PreviewQueueSize
	}
	if fc.PreviewDPI != nil {
		c.PreviewDPI = *fc.PreviewDPI
	}
	if fc.PreviewTextLimit != nil {
		c.PreviewTextLimit = *fc.PreviewTextLimit
	}
	if fc.GhostscriptPath != nil {
		c.GhostscriptPath = *fc.GhostscriptPath
	}
	if fc.MaxUploadBytes != nil {
		c.MaxUploadBytes = *fc.MaxUploadBytes
	}
	if fc.RateLimitRPS != nil {
		c.RateLimitRPS = *fc.RateLimitRPS
	}
	if fc.RateLimitBurst != nil {
		c.RateLimitBurst = *fc.RateLimitBurst
	}
	return nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	info, err := os.Stat(c.WorkDir)
	if err != nil {
		return fmt.Errorf("WORK_DIR: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("WORK_DIR %s is not a directory", c.WorkDir)
	}
	if c.PreviewDPI > 600 {
		return fmt.Errorf("PREVIEW_DPI must be at most 600, got %d", c.PreviewDPI)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
