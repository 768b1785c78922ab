package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asyncscope.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, NewDefault().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
symbol_file = "rootfs/riscv64/zcore-async-fn.sym"
binary = "target/riscv64/release/zcore"
format = "text"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "rootfs/riscv64/zcore-async-fn.sym", cfg.SymbolFile)
	require.Equal(t, "target/riscv64/release/zcore", cfg.Binary)
	require.Equal(t, FormatText, cfg.OutputFormat)
	require.Equal(t, "addr2line", cfg.FallbackTool)
	require.Equal(t, 4096, cfg.FallbackCacheSize)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `sample_rate = 400`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown keys")
}

func TestValidate(t *testing.T) {
	cfg := NewDefault()
	cfg.OutputFormat = "svg"
	require.Error(t, cfg.Validate())

	cfg = NewDefault()
	cfg.FallbackCacheSize = 0
	require.Error(t, cfg.Validate())

	cfg = NewDefault()
	cfg.LogMarker = ""
	require.Error(t, cfg.Validate())
}
