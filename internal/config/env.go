package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedOrigins is used when ALLOWED_ORIGINS is unset.
var DefaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://podofo.vercel.app",
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP surface and request limits.
type ServerConfig struct {
	Port            string
	Environment     string
	AllowedOrigins  []string
	MaxFileSize     int64
	MaxFiles        int
	ShutdownTimeout time.Duration
}

// Production reports whether the service runs with production CORS rules.
func (s ServerConfig) Production() bool {
	return strings.EqualFold(s.Environment, "production") || strings.EqualFold(s.Environment, "prod")
}

// WorkspaceConfig controls where request scratch space lives and how
// leftovers from crashed requests are swept.
type WorkspaceConfig struct {
	Root          string
	StaleAfter    time.Duration
	SweepInterval time.Duration
}

// ToolsConfig selects and bounds the rendering backends.
type ToolsConfig struct {
	GhostscriptBin string
	RasterBackend  string // "ghostscript"|"mupdf"
	Timeout        time.Duration
	DefaultDPI     int
	MaxDPI         int
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Server    ServerConfig
	Workspace WorkspaceConfig
	Tools     ToolsConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", ""),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_podofo",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Port:            getEnv("PORT", "5000"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		AllowedOrigins:  parseList(getEnv("ALLOWED_ORIGINS", ""), DefaultAllowedOrigins),
		MaxFileSize:     int64(parseInt(getEnv("MAX_FILE_SIZE_MB", "100"), 100)) << 20,
		MaxFiles:        parseInt(getEnv("MAX_FILES", "50"), 50),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Workspace = WorkspaceConfig{
		Root:          getEnv("WORK_DIR", filepath.Join(os.TempDir(), "podofo")),
		StaleAfter:    parseDuration(getEnv("WORKSPACE_STALE_AFTER", "1h"), time.Hour),
		SweepInterval: parseDuration(getEnv("WORKSPACE_SWEEP_INTERVAL", "10m"), 10*time.Minute),
	}

	cfg.Tools = ToolsConfig{
		GhostscriptBin: getEnv("GS_BINARY", ""),
		RasterBackend:  strings.ToLower(getEnv("RASTER_BACKEND", "ghostscript")),
		Timeout:        parseDuration(getEnv("TOOL_TIMEOUT", "5m"), 5*time.Minute),
		DefaultDPI:     parseInt(getEnv("PDF_DEFAULT_DPI", "150"), 150),
		MaxDPI:         parseInt(getEnv("PDF_MAX_DPI", "600"), 600),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// parseList splits a comma separated value, dropping blanks.
func parseList(s string, def []string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
