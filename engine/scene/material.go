package scene

import "github.com/spaghettifunk/vengine/engine/math"

// MaterialType is stored in the w component of the colour and selects the
// closest-hit shading path.
type MaterialType int32

const (
	MaterialDiffuse    MaterialType = 1
	MaterialReflective MaterialType = 2
)

// MaterialStride is the size in bytes of one packed material.
const MaterialStride = 32

// Material is the per-object shading record: colour with the material type
// in w, and a parameter vector whose x is reflectivity for reflective materials.
type Material struct {
	ColorAndType math.Vec4
	IOR          math.Vec4
}

func DefaultMaterial() Material {
	return Material{
		ColorAndType: math.NewVec4(1, 1, 1, float32(MaterialDiffuse)),
		IOR:          math.NewVec4(0, 0, 0, 0),
	}
}

func (m *Material) SetColor(r, g, b float32) {
	m.ColorAndType = math.NewVec4(r, g, b, m.ColorAndType.W)
}

func (m *Material) SetType(t MaterialType) {
	m.ColorAndType.W = float32(t)
}

func (m Material) Type() MaterialType {
	return MaterialType(m.ColorAndType.W)
}

// SetReflectivity only affects MaterialReflective shading.
func (m *Material) SetReflectivity(factor float32) {
	m.IOR.X = factor
}

// Floats returns the eight packed components.
func (m Material) Floats() [8]float32 {
	return [8]float32{
		m.ColorAndType.X, m.ColorAndType.Y, m.ColorAndType.Z, m.ColorAndType.W,
		m.IOR.X, m.IOR.Y, m.IOR.Z, m.IOR.W,
	}
}
