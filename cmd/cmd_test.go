package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := NewApp()
	app.Writer = &out
	err := app.Run(append([]string{"vengine"}, args...))
	return out.String(), err
}

func TestPrintConfigDefaults(t *testing.T) {
	out, err := runApp(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "config")
	require.NoError(t, err)

	cfg, err := core.ParseConfig(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultConfig(), cfg)
}

func TestPrintConfigVerbosityOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n[camera]\nmovement_speed = 4.0\n"), 0o644))
	defer core.SetLogLevel(core.InfoLevel)

	out, err := runApp(t, "-vv", "--config", path, "config")
	require.NoError(t, err)

	cfg, err := core.ParseConfig(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, float32(4), cfg.Camera.MovementSpeed)
}

func TestPrintConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\nwidth = 0\n"), 0o644))

	_, err := runApp(t, "--config", path, "config")
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
