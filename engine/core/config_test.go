package core

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(`
log_level = "debug"

[window]
width = 800
height = 600

[camera]
fov = 45.0
position = [1.0, 2.0, 3.0]
`))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(600), cfg.Window.Height)
	assert.Equal(t, "VEngine", cfg.Window.Name)
	assert.Equal(t, float32(45), cfg.Camera.FOV)
	assert.Equal(t, [3]float32{1, 2, 3}, cfg.Camera.Position)
	assert.Equal(t, float32(1024), cfg.Camera.Far)
}

func TestParseConfigRejectsUnknownKeys(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("[window]\nwidht = 10\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestParseConfigValidates(t *testing.T) {
	_, err := ParseConfig(strings.NewReader("log_level = \"loud\"\n"))
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = ParseConfig(strings.NewReader("[camera]\nnear = 2.0\nfar = 1.0\n"))
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = ParseConfig(strings.NewReader("[shaders]\nraygen = \"\"\n"))
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestEncodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, DefaultConfig().Encode(&buf))
	cfg, err := ParseConfig(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o644))

	changes := make(chan Config, 16)
	cw, err := WatchConfig(path, func(cfg Config) {
		select {
		case changes <- cfg:
		default:
		}
	})
	require.NoError(t, err)
	defer cw.Close()

	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n[animation]\nrotation_speed = 2.5\n"), 0o644))

	// A truncating write can be observed before the new content lands.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.LogLevel != "warn" {
				continue
			}
			assert.Equal(t, float32(2.5), cfg.Animation.RotationSpeed)
		case <-deadline:
			t.Fatal("config change not observed")
		}
		break
	}
	require.NoError(t, cw.Close())
	require.NoError(t, cw.Close())
}
