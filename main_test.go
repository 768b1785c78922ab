package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"asyncScope/converter"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestResolveCommand(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	symPath := writeFile(t, dir, "zcore.sym", "ffffffc0802a1000 T zcore::task::poll\nnot a symbol\n")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"resolve", "--symbols", symPath, "0xffffffc0802a1000", "10"})
	require.NoError(t, rootCmd.Execute())

	require.Equal(t, "0xffffffc0802a1000 zcore::task::poll\n0x10 unknown\n", out.String())
}

func TestResolveCommandBadAddress(t *testing.T) {
	rootCmd.SetArgs([]string{"resolve", "xyz"})
	require.Error(t, rootCmd.Execute())
}

func TestConvertCommand(t *testing.T) {
	color.NoColor = true
	dir := t.TempDir()
	symPath := writeFile(t, dir, "zcore.sym", "1000 T zcore::fs::read\n")
	logPath := writeFile(t, dir, "async.log", "[ 0.1] MARKER 100 7 entry 4096 0\n[ 0.2] MARKER 150 7 exit 4096 1\n")
	outPath := filepath.Join(dir, "trace.json")

	rootCmd.SetArgs([]string{
		"convert",
		"--log", logPath,
		"--symbols", symPath,
		"--marker", "MARKER",
		"--output", outPath,
	})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var doc converter.TraceDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.TraceEvents, 2)
	require.Equal(t, "zcore::fs::read", doc.TraceEvents[0].Name)
	require.Equal(t, converter.PhaseEnd, doc.TraceEvents[1].Phase)
}
