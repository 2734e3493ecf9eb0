package raytracing

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/vengine/engine/scene"
)

var testShaders = core.ShaderConfig{
	Raygen:     "shaders/raygen.rgen.spv",
	Miss:       "shaders/miss.rmiss.spv",
	ShadowMiss: "shaders/shadow.rmiss.spv",
	ClosestHit: "shaders/closesthit.rchit.spv",
}

// shaderLoader creates a one-word module per path and remembers the order.
type shaderLoader struct {
	device *gputest.Device
	loaded []string
}

func (l *shaderLoader) LoadPrecompiledShader(path string) (gpu.ShaderModuleID, error) {
	l.loaded = append(l.loaded, path)
	return l.device.CreateShaderModule([]uint32{0x07230203})
}

func newTestDevice(t *testing.T) *gputest.Device {
	t.Helper()
	return gputest.NewDevice(64, 48)
}

func assertNoViolations(t *testing.T, d *gputest.Device) {
	t.Helper()
	require.Empty(t, d.Violations())
}

func float32At(b []byte, offset int) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func newSpinningCube() *scene.Object {
	o := scene.NewObject("cube", scene.NewCubeMesh(1, 1, 1))
	o.SetColor(1, 0, 0)
	return o
}
