package engine

// Game hooks into the engine. Boot runs before any window or device
// exists, Initialize after the renderer is created but before the scene is
// built, Update once per tick before the frame is drawn.
type Game struct {
	Name         string
	State        interface{}
	FnBoot       Boot
	FnInitialize Initialize
	FnUpdate     Update
	FnShutdown   Shutdown
}

type Boot func(config *ApplicationConfig) error
type Initialize func(e *Engine) error
type Update func(e *Engine, deltaTime float64) error
type Shutdown func() error
