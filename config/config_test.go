package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/govm-net/clicker/clicker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "db", cfg.Context)
	assert.Equal(t, "./clicker.db", cfg.DBPath)
	assert.Equal(t, clicker.Guarded, cfg.GameVariant())
	assert.Equal(t, int64(200000), cfg.ComputeLimit)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)

	ec := cfg.EngineConfig()
	assert.Equal(t, "db", ec.ContextType)
	assert.Equal(t, "./clicker.db", ec.ContextParams["db_path"])
}

func TestLoadFromFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "CLICKER_CONTEXT=memory\nCLICKER_VARIANT=unguarded\nCLICKER_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("CLICKER_COMPUTE_LIMIT", "5000")
	// already set variables win over the file
	t.Setenv("CLICKER_LOG_LEVEL", "warn")
	t.Cleanup(func() {
		os.Unsetenv("CLICKER_CONTEXT")
		os.Unsetenv("CLICKER_VARIANT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Context)
	assert.Equal(t, clicker.Unguarded, cfg.GameVariant())
	assert.Equal(t, int64(5000), cfg.ComputeLimit)
	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad limit", "CLICKER_COMPUTE_LIMIT", "lots", "parse env:"},
		{"zero limit", "CLICKER_COMPUTE_LIMIT", "0", "compute limit"},
		{"bad context", "CLICKER_CONTEXT", "redis", "unknown context"},
		{"bad variant", "CLICKER_VARIANT", "loose", "unknown variant"},
		{"bad level", "CLICKER_LOG_LEVEL", "loud", "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(missing)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
