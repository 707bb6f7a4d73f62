package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Backend selects which worldstate.Store persistence path LoadConfig
// points the caller at: worldstate.ImportTextdump/ExportTextdump, or
// worldstate.OpenSQLiteStore/SaveToSQLite.
type Backend string

const (
	BackendTextdump Backend = "textdump"
	BackendSQLite   Backend = "sqlite"
)

// Config is the server's vmoo.yaml shape, per SPEC_FULL.md §6.7: listen
// port, storage backend selection and path, log level. Parsed with
// gopkg.in/yaml.v3, the teacher's existing config-parsing dependency
// (conformance/loader.go in the teacher tree, now this file).
type Config struct {
	Port         int      `yaml:"port"`
	Backend      Backend  `yaml:"backend"`
	DatabasePath string   `yaml:"database_path"`
	LogLevel     string   `yaml:"log_level"`
	TraceFilters []string `yaml:"trace_filters"`
}

// DefaultConfig is what a brand-new vmoo.yaml should resemble.
func DefaultConfig() Config {
	return Config{
		Port:         7777,
		Backend:      BackendTextdump,
		DatabasePath: "vmoo.db",
		LogLevel:     "info",
	}
}

// LoadConfig reads and validates a vmoo.yaml at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Backend != BackendTextdump && cfg.Backend != BackendSQLite {
		return Config{}, fmt.Errorf("config %s: unknown backend %q (want %q or %q)", path, cfg.Backend, BackendTextdump, BackendSQLite)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config %s: invalid port %d", path, cfg.Port)
	}
	return cfg, nil
}
