package core

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Name   string `toml:"name"`
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

// ShaderConfig holds SPIR-V paths relative to the assets directory.
type ShaderConfig struct {
	Raygen     string `toml:"raygen"`
	Miss       string `toml:"miss"`
	ShadowMiss string `toml:"shadow_miss"`
	ClosestHit string `toml:"closest_hit"`
}

type CameraConfig struct {
	FOV           float32    `toml:"fov"`
	Near          float32    `toml:"near"`
	Far           float32    `toml:"far"`
	Position      [3]float32 `toml:"position"`
	Rotation      [3]float32 `toml:"rotation"`
	MovementSpeed float32    `toml:"movement_speed"`
}

type AnimationConfig struct {
	// RotationSpeed is the per-tick rotation, in degrees, applied by the demo scene.
	RotationSpeed float32 `toml:"rotation_speed"`
}

type Config struct {
	LogLevel  string          `toml:"log_level"`
	AssetsDir string          `toml:"assets_dir"`
	Window    WindowConfig    `toml:"window"`
	Shaders   ShaderConfig    `toml:"shaders"`
	Camera    CameraConfig    `toml:"camera"`
	Animation AnimationConfig `toml:"animation"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:  "info",
		AssetsDir: "assets",
		Window: WindowConfig{
			Name:   "VEngine",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Shaders: ShaderConfig{
			Raygen:     "shaders/raygen.rgen.spv",
			Miss:       "shaders/miss.rmiss.spv",
			ShadowMiss: "shaders/shadow.rmiss.spv",
			ClosestHit: "shaders/closesthit.rchit.spv",
		},
		Camera: CameraConfig{
			FOV:           60,
			Near:          0.1,
			Far:           1024,
			Position:      [3]float32{0, 6, -6},
			Rotation:      [3]float32{-10, 0, 0},
			MovementSpeed: 1,
		},
		Animation: AnimationConfig{
			RotationSpeed: 0.1,
		},
	}
}

// ParseConfig decodes TOML on top of the defaults. Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, errors.Mark(errors.Wrap(err, strict.String()), ErrConfiguration)
		}
		return cfg, errors.Mark(errors.Wrap(err, "decoding config"), ErrConfiguration)
	}
	return cfg, cfg.Validate()
}

// LoadConfig reads path, falling back to the defaults when it does not exist.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LogInfo("config file %s not found, using defaults", path)
		return DefaultConfig(), nil
	}
	if err != nil {
		return DefaultConfig(), errors.Mark(errors.Wrapf(err, "reading config %s", path), ErrConfiguration)
	}
	return ParseConfig(bytes.NewReader(data))
}

func (c Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return NewConfigurationError("window size %dx%d is empty", c.Window.Width, c.Window.Height)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return NewConfigurationError("camera clip range [%g, %g] is invalid", c.Camera.Near, c.Camera.Far)
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		return NewConfigurationError("camera fov %g out of range", c.Camera.FOV)
	}
	for name, p := range map[string]string{
		"raygen":      c.Shaders.Raygen,
		"miss":        c.Shaders.Miss,
		"shadow_miss": c.Shaders.ShadowMiss,
		"closest_hit": c.Shaders.ClosestHit,
	} {
		if p == "" {
			return NewConfigurationError("shader %s has no path", name)
		}
	}
	return nil
}

func (c Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

// ConfigWatcher re-reads a config file whenever it is written and hands the
// result to a callback. Invalid files are logged and ignored.
type ConfigWatcher struct {
	path     string
	onChange func(Config)

	fsnotify *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

func WatchConfig(path string, onChange func(Config)) (*ConfigWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating config watcher")
	}
	// Editors replace files on save, so watch the directory.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, errors.Wrapf(err, "watching %s", path)
	}

	cw := &ConfigWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.start()
	return cw, nil
}

func (cw *ConfigWatcher) start() {
	defer cw.wg.Done()
	for {
		select {
		case e, ok := <-cw.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != cw.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			cfg, err := LoadConfig(cw.path)
			if err != nil {
				LogWarn("ignoring config change: %s", err.Error())
				continue
			}
			LogInfo("config %s reloaded", cw.path)
			cw.onChange(cfg)

		case err, ok := <-cw.fsnotify.Errors:
			if !ok {
				return
			}
			LogError(err.Error())

		case <-cw.done:
			return
		}
	}
}

func (cw *ConfigWatcher) Close() error {
	var err error
	cw.once.Do(func() {
		close(cw.done)
		cw.wg.Wait()
		err = cw.fsnotify.Close()
	})
	return err
}
