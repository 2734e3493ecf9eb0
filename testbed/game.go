package testbed

import (
	"github.com/spaghettifunk/vengine/engine"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
	"github.com/spaghettifunk/vengine/engine/scene"
)

// ModelPath is the mesh shown in the middle of the scene, relative to the
// assets directory.
const ModelPath = "models/bunny.obj"

type gameState struct {
	wuson *scene.Object
	floor *scene.Object

	frames uint64
}

type TestGame struct {
	*engine.Game
	state *gameState
}

func NewTestGame() *TestGame {
	tg := &TestGame{
		Game:  &engine.Game{Name: "vengine testbed"},
		state: &gameState{},
	}
	tg.State = tg.state

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Boot(config *engine.ApplicationConfig) error {
	core.LogInfo("booting testbed...")
	if config.Config.Window.Name == "" {
		config.Config.Window.Name = g.Name
	}
	return nil
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	var mesh *scene.Mesh
	if meshes, err := e.Assets().LoadMeshes([]string{ModelPath}, true); err != nil {
		core.LogWarn("loading %s failed, showing a cube instead: %s", ModelPath, err)
		mesh = scene.NewCubeMesh(10, 10, 10)
	} else {
		mesh = meshes[0]
	}

	wuson := scene.NewObject("wuson", mesh)
	wuson.SetColor(0.5, 0.5, 1)
	wuson.SetPosition(math.NewVec3(0, -2, -5))
	wuson.Rotate(math.NewVec3(90, 0, 0))
	wuson.SetScale(0.1)

	floor := scene.NewObject("floor", scene.NewPlaneMesh(10, 10, 1, 1))
	floor.SetColor(0, 1, 1)
	floor.SetPosition(math.NewVec3(0, -1, -5))

	for _, o := range []*scene.Object{wuson, floor} {
		if _, err := e.Renderer().AddObject(o); err != nil {
			return err
		}
	}
	g.state.wuson = wuson
	g.state.floor = floor
	return nil
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	g.state.wuson.Rotate(math.NewVec3(0, 0, e.Config().Animation.RotationSpeed))
	g.state.frames++
	return nil
}

func (g *TestGame) Shutdown() error {
	core.LogInfo("testbed ran for %d frames", g.state.frames)
	return nil
}
