package engine

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/assets"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/platform"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/renderer/raytracing"
	"github.com/spaghettifunk/vengine/engine/renderer/vulkan"
	"github.com/spaghettifunk/vengine/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage Stage
	gameInstance *Game
	appConfig    *ApplicationConfig

	platform *platform.Platform
	context  *vulkan.VulkanContext
	device   gpu.Device
	input    *core.InputState

	assetManager *assets.AssetManager
	renderer     *raytracing.Renderer
	camera       *scene.Camera

	clock    *core.Clock
	metrics  *core.FrameMetrics
	lastTime float64

	config        core.Config
	configWatcher *core.ConfigWatcher
	reloads       chan core.Config

	mu        sync.Mutex
	isRunning bool
}

func New(g *Game, appConfig *ApplicationConfig) *Engine {
	p := platform.New()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		appConfig:    appConfig,
		platform:     p,
		input:        p.Input,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		config:       appConfig.Config,
		reloads:      make(chan core.Config, 1),
	}
}

// Initialize opens the window, creates the device and builds the scene the
// game describes. Any error leaves the engine unusable.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageBooting
	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(e.appConfig); err != nil {
			return errors.Wrap(err, "booting game")
		}
	}
	e.config = e.appConfig.Config
	e.currentStage = EngineStageBootComplete

	w := e.config.Window
	if err := e.platform.Startup(w.Name, uint32(w.X), uint32(w.Y), w.Width, w.Height); err != nil {
		return err
	}

	context, err := vulkan.New(e.platform, w.Name, w.Width, w.Height, e.appConfig.Validation)
	if err != nil {
		return err
	}
	e.context = context

	am, err := assets.NewAssetManager(e.config.AssetsDir)
	if err != nil {
		return err
	}
	if err := am.Watch(onAssetChanged); err != nil {
		core.LogWarn("assets will not be watched: %s", err)
	}

	if err := e.setup(context, am); err != nil {
		return err
	}

	if e.appConfig.ConfigPath != "" {
		cw, err := core.WatchConfig(e.appConfig.ConfigPath, e.queueReload)
		if err != nil {
			core.LogWarn("config will not be reloaded: %s", err)
		} else {
			e.configWatcher = cw
		}
	}
	return nil
}

// setup builds the renderer and the scene on an already created device.
func (e *Engine) setup(device gpu.Device, am *assets.AssetManager) error {
	e.currentStage = EngineStageInitializing
	e.device = device
	e.assetManager = am

	extent := device.SwapchainExtent()
	e.camera = scene.NewCamera(e.config.Camera, float32(extent.Width)/float32(extent.Height))
	e.renderer = raytracing.NewRenderer(device, assets.NewShaderModuleLoader(am, device), e.config.Shaders)

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return errors.Wrap(err, "initializing game")
		}
	}

	if err := e.renderer.Setup(e.camera.Uniform()); err != nil {
		return err
	}
	e.camera.Updated = false

	e.currentStage = EngineStageInitialized
	core.LogInfo("Engine initialized with %d objects.", len(e.renderer.Registry.Objects()))
	return nil
}

func (e *Engine) Run() error {
	e.mu.Lock()
	e.isRunning = true
	e.mu.Unlock()
	e.currentStage = EngineStageRunning

	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.running() {
		if !e.platform.PumpMessages() {
			break
		}

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStartTime := e.platform.AbsoluteTime()

		if err := e.tick(delta); err != nil {
			return err
		}

		e.metrics.Update(e.platform.AbsoluteTime() - frameStartTime)
		e.lastTime = currentTime
	}
	core.LogInfo("Main loop left after %.1fs (%.0f fps, %.2f ms/frame).", e.clock.Elapsed(), e.metrics.FPS(), e.metrics.FrameTime())
	return nil
}

// tick advances the game and the camera by deltaTime seconds and draws one
// frame.
func (e *Engine) tick(deltaTime float64) error {
	e.applyReloads()

	if e.input.Pressed(core.KEY_ESCAPE) {
		e.Stop()
	}

	e.camera.Update(deltaTime, e.input)
	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(e, deltaTime); err != nil {
			return errors.Wrap(err, "updating game")
		}
	}

	if e.camera.Updated {
		if err := e.renderer.UpdateCamera(e.camera.Uniform()); err != nil {
			return err
		}
		e.camera.Updated = false
	}
	if err := e.renderer.UpdateTime(float32(deltaTime)); err != nil {
		return err
	}
	if err := e.renderer.DrawFrame(); err != nil {
		return err
	}

	// Input is the last thing to be updated before this frame ends.
	e.input.Update()
	return nil
}

func (e *Engine) running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isRunning
}

// Stop makes Run return after the current tick. Safe from any goroutine.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.isRunning = false
	e.mu.Unlock()
}

func (e *Engine) queueReload(cfg core.Config) {
	// Keep only the newest pending config.
	select {
	case <-e.reloads:
	default:
	}
	e.reloads <- cfg
}

func (e *Engine) applyReloads() {
	select {
	case cfg := <-e.reloads:
		e.applyConfig(cfg)
	default:
	}
}

// applyConfig takes over the settings that can change while running.
func (e *Engine) applyConfig(cfg core.Config) {
	if level, err := core.ParseLogLevel(cfg.LogLevel); err == nil {
		core.SetLogLevel(level)
	}
	if e.camera != nil {
		e.camera.MovementSpeed = cfg.Camera.MovementSpeed
	}
	e.config.LogLevel = cfg.LogLevel
	e.config.Camera.MovementSpeed = cfg.Camera.MovementSpeed
	e.config.Animation = cfg.Animation
	core.LogDebug("applied config: log level %s, camera speed %g, rotation speed %g",
		cfg.LogLevel, cfg.Camera.MovementSpeed, cfg.Animation.RotationSpeed)
}

func onAssetChanged(info assets.AssetInfo) {
	core.LogInfo("%s %s changed on disk, restart to use it", info.Type, info.Path)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.Stop()

	var errs error
	if e.configWatcher != nil {
		errs = errors.CombineErrors(errs, e.configWatcher.Close())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = errors.CombineErrors(errs, e.gameInstance.FnShutdown())
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.assetManager != nil {
		errs = errors.CombineErrors(errs, e.assetManager.Close())
	}
	if e.context != nil {
		e.context.Shutdown()
	}
	e.platform.Shutdown()
	e.currentStage = EngineStageUninitialized
	return errs
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Config() core.Config {
	return e.config
}

func (e *Engine) Assets() *assets.AssetManager {
	return e.assetManager
}

func (e *Engine) Renderer() *raytracing.Renderer {
	return e.renderer
}

func (e *Engine) Camera() *scene.Camera {
	return e.camera
}

func (e *Engine) Input() *core.InputState {
	return e.input
}
