package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmoo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 8888\nbackend: sqlite\ndatabase_path: world.sqlite\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "world.sqlite", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel) // default, not overridden
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmoo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: flatfile\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsBadPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmoo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
