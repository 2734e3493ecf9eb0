package scene

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
)

// Object is a named mesh placed in the world with a material.
type Object struct {
	ID        core.Identifier
	Name      string
	Mesh      *Mesh
	Material  Material
	Transform *math.Transform
}

func NewObject(name string, mesh *Mesh) *Object {
	return &Object{
		ID:        core.NewIdentifier(),
		Name:      name,
		Mesh:      mesh,
		Material:  DefaultMaterial(),
		Transform: math.TransformCreate(),
	}
}

// SetPosition places the object at an absolute position.
func (o *Object) SetPosition(position math.Vec3) {
	o.Transform.SetPosition(position)
}

// Translate moves the object relative to its current position.
func (o *Object) Translate(delta math.Vec3) {
	o.Transform.Translate(delta)
}

// Rotate composes rotations of the given degrees about X, Y then Z onto the
// current orientation. Calls accumulate and are order sensitive.
func (o *Object) Rotate(degrees math.Vec3) {
	o.Transform.RotateEuler(degrees)
}

// SetScale replaces the uniform scale factor.
func (o *Object) SetScale(factor float32) {
	o.Transform.SetScale(math.NewVec3(factor, factor, factor))
}

func (o *Object) SetColor(r, g, b float32) {
	o.Material.SetColor(r, g, b)
}

// Model returns the current model matrix.
func (o *Object) Model() math.Mat4 {
	return o.Transform.GetLocal()
}
