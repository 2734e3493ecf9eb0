package engine

import (
	"encoding/binary"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/assets"
	"github.com/spaghettifunk/vengine/engine/assets/loaders"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/vengine/engine/scene"
)

func assetFS(cfg core.Config) fstest.MapFS {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code, loaders.SPIRVMagic)
	fsys := fstest.MapFS{}
	for _, p := range []string{cfg.Shaders.Raygen, cfg.Shaders.Miss, cfg.Shaders.ShadowMiss, cfg.Shaders.ClosestHit} {
		fsys[p] = &fstest.MapFile{Data: code}
	}
	return fsys
}

type testGame struct {
	updates int
	cube    *scene.Object
}

func (g *testGame) game() *Game {
	return &Game{
		Name: "test",
		FnInitialize: func(e *Engine) error {
			g.cube = scene.NewObject("cube", scene.NewCubeMesh(1, 1, 1))
			_, err := e.Renderer().AddObject(g.cube)
			return err
		},
		FnUpdate: func(e *Engine, deltaTime float64) error {
			g.updates++
			g.cube.Rotate(math.NewVec3(0, 0, e.Config().Animation.RotationSpeed))
			return nil
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *testGame, *gputest.Device) {
	t.Helper()
	cfg := core.DefaultConfig()
	g := &testGame{}
	e := New(g.game(), &ApplicationConfig{Config: cfg})

	am, err := assets.NewAssetManagerFS(assetFS(cfg))
	require.NoError(t, err)
	device := gputest.NewDevice(64, 48)
	require.NoError(t, e.setup(device, am))
	return e, g, device
}

func TestEngineSetupBuildsScene(t *testing.T) {
	e, _, device := newTestEngine(t)

	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Len(t, e.Renderer().Registry.Objects(), 1)
	assert.False(t, e.Camera().Updated)

	require.NoError(t, e.Shutdown())
	assert.Zero(t, device.Live())
	assert.Empty(t, device.Violations())
}

func TestEngineTickUpdatesAndDraws(t *testing.T) {
	e, g, device := newTestEngine(t)
	defer e.Shutdown()

	start := e.Renderer().Time()
	for i := 0; i < 3; i++ {
		require.NoError(t, e.tick(0.01))
	}
	assert.Equal(t, 3, g.updates)
	assert.NotEqual(t, start, e.Renderer().Time())
	assert.Empty(t, device.Violations())
}

func TestEngineTickMovesCamera(t *testing.T) {
	e, _, _ := newTestEngine(t)
	defer e.Shutdown()

	before := e.Camera().Position
	e.Input().ProcessKey(core.KEY_W, true)
	require.NoError(t, e.tick(0.5))

	assert.NotEqual(t, before, e.Camera().Position)
	assert.False(t, e.Camera().Updated, "uniform uploaded during the tick")
}

func TestEngineEscapeStops(t *testing.T) {
	e, _, _ := newTestEngine(t)
	defer e.Shutdown()

	e.isRunning = true
	e.Input().ProcessKey(core.KEY_ESCAPE, true)
	require.NoError(t, e.tick(0.01))
	assert.False(t, e.running())
}

func TestEngineAppliesReloadedConfig(t *testing.T) {
	e, _, _ := newTestEngine(t)
	defer e.Shutdown()

	stale := core.DefaultConfig()
	stale.Camera.MovementSpeed = 2
	fresh := core.DefaultConfig()
	fresh.Camera.MovementSpeed = 5
	fresh.Animation.RotationSpeed = 3

	e.queueReload(stale)
	e.queueReload(fresh)
	require.NoError(t, e.tick(0.01))

	assert.Equal(t, float32(5), e.Camera().MovementSpeed)
	assert.Equal(t, float32(3), e.Config().Animation.RotationSpeed)
	assert.Equal(t, e.Config().Window, core.DefaultConfig().Window)
}

func TestEngineSetupFailsWithoutShaders(t *testing.T) {
	cfg := core.DefaultConfig()
	g := &testGame{}
	e := New(g.game(), &ApplicationConfig{Config: cfg})

	am, err := assets.NewAssetManagerFS(fstest.MapFS{})
	require.NoError(t, err)
	device := gputest.NewDevice(64, 48)

	assert.Error(t, e.setup(device, am))
	require.NoError(t, e.Shutdown())
	assert.Zero(t, device.Live())
}
