package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "corestore.yaml")
	require.NoError(t, os.WriteFile(p, []byte("pool_capacity: 64\nreplacer_k: 3\n"), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.PoolCapacity)
	require.Equal(t, 3, cfg.ReplacerK)
	require.Equal(t, "corestore.db", cfg.DataPath)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
