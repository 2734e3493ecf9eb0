package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/vengine/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// keyMap translates the GLFW keys the engine reacts to into engine key codes.
var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyLeft:   core.KEY_LEFT,
	glfw.KeyUp:     core.KEY_UP,
	glfw.KeyRight:  core.KEY_RIGHT,
	glfw.KeyDown:   core.KEY_DOWN,
	glfw.KeyA:      core.KEY_A,
	glfw.KeyD:      core.KEY_D,
	glfw.KeyE:      core.KEY_E,
	glfw.KeyQ:      core.KEY_Q,
	glfw.KeyS:      core.KEY_S,
	glfw.KeyW:      core.KEY_W,
}

type Platform struct {
	Window *glfw.Window
	Input  *core.InputState

	initialized bool
	startTime   float64
}

func New() *Platform {
	return &Platform{
		Window: nil,
		Input:  core.NewInputState(),
	}
}

// Init loads GLFW without opening a window. It is enough to reach the
// Vulkan loader.
func (p *Platform) Init() error {
	if p.initialized {
		return nil
	}
	if err := glfw.Init(); err != nil {
		return core.WrapConfigurationError(err, "initializing glfw")
	}
	if !glfw.VulkanSupported() {
		glfw.Terminate()
		return core.NewConfigurationError("glfw reports no Vulkan loader")
	}
	p.initialized = true
	return nil
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := p.Init(); err != nil {
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		return core.WrapDriverError(err, "creating window %dx%d", width, height)
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(framebufferSizeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.startTime = glfw.GetTime()
	core.LogInfo("Window %q created (%dx%d).", applicationName, width, height)
	return nil
}

func (p *Platform) Shutdown() {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	if p.initialized {
		glfw.Terminate()
		p.initialized = false
	}
}

// PumpMessages processes pending window events. It returns false once the
// window was asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return p.Window != nil && !p.Window.ShouldClose()
}

// RequestClose flags the window for closing; the next PumpMessages reports it.
func (p *Platform) RequestClose() {
	if p.Window != nil {
		p.Window.SetShouldClose(true)
	}
}

// AbsoluteTime returns seconds since Startup.
func (p *Platform) AbsoluteTime() float64 {
	return glfw.GetTime() - p.startTime
}

// GetRequiredExtensionNames returns the instance extensions needed to create
// a surface for the window. Without a window none are needed.
func (p *Platform) GetRequiredExtensionNames() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := keyMap[key]
	if !ok || action == glfw.Repeat {
		return
	}
	p.Input.ProcessKey(code, action == glfw.Press)
}

func framebufferSizeCallback(w *glfw.Window, width, height int) {
	// The swapchain is never recreated; presentation reports it stale.
	core.LogWarn("framebuffer resized to %dx%d, the swapchain keeps its extent", width, height)
}
