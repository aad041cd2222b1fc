package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/funnel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvDeviceStore, config.DeviceFile)
	t.Setenv(config.EnvSessionStore, config.SessionNone)
	t.Setenv(config.EnvCatalog, "")
	t.Setenv(config.EnvStateDir, dir)
	return dir
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "funnel version "), out)
}

func TestCatalogValidateCmd(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - id: pricing\n    kind: pricing\n  - id: end\n    kind: info\n"), 0o600))

	_, err := execute(t, "catalog", "validate", path)
	assert.ErrorContains(t, err, "pricing must be the last step")
}

func TestCatalogLsCmd(t *testing.T) {
	isolate(t)

	out, err := execute(t, "catalog", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "weight-loss-goal")
	assert.Contains(t, out, "pricing")
}

func TestSessionCmds(t *testing.T) {
	dir := isolate(t)
	devices := filepath.Join(dir, "devices")
	require.NoError(t, os.MkdirAll(devices, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(devices, "kiosk.json"), []byte(`{"quiz_current_step":"4"}`), 0o600))

	out, err := execute(t, "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "- kiosk")

	out, err = execute(t, "session", "inspect", "kiosk")
	require.NoError(t, err)
	assert.Contains(t, out, `"quiz_current_step": "4"`)

	out, err = execute(t, "session", "rm", "kiosk")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed device 'kiosk'")

	out, err = execute(t, "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved progress found.")
}
