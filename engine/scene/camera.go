package scene

import (
	"bytes"
	"encoding/binary"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
)

// CameraUniformSize is the size in bytes of the packed CameraUniform.
const CameraUniformSize = 144

// CameraUniform is the camera block read by the ray generation and closest
// hit shaders.
type CameraUniform struct {
	ViewInverse math.Mat4
	ProjInverse math.Mat4
	Data        math.Vec4
}

func (u CameraUniform) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(CameraUniformSize)
	_ = binary.Write(&buf, binary.LittleEndian, u)
	return buf.Bytes()
}

// KeyState is the part of the input state the camera reads.
type KeyState interface {
	IsKeyDown(key core.KeyCode) bool
}

/**
 * @brief A look-at camera: the view is a translation by Position followed
 * by rotations about X, Y and Z (degrees). Every change that moves the view
 * sets Updated; the renderer clears it once the uniform is uploaded.
 */
type Camera struct {
	Position math.Vec3
	/** @brief Euler rotation in degrees. X (pitch) is clamped to +-89. */
	Rotation math.Vec3

	FOV           float32
	Near          float32
	Far           float32
	Aspect        float32
	MovementSpeed float32

	/** @brief Set whenever the view or projection changed since the last upload. */
	Updated bool

	Data math.Vec4

	view        math.Mat4
	perspective math.Mat4
}

func NewCamera(config core.CameraConfig, aspect float32) *Camera {
	c := &Camera{
		MovementSpeed: config.MovementSpeed,
	}
	c.SetPerspective(config.FOV, aspect, config.Near, config.Far)
	c.Position = math.NewVec3(config.Position[0], config.Position[1], config.Position[2])
	c.SetRotation(math.NewVec3(config.Rotation[0], config.Rotation[1], config.Rotation[2]))
	return c
}

func (c *Camera) SetPerspective(fov, aspect, near, far float32) {
	c.FOV = fov
	c.Aspect = aspect
	c.Near = near
	c.Far = far
	c.perspective = math.NewMat4Perspective(math.DegToRad(fov), aspect, near, far)
	c.Updated = true
}

func (c *Camera) UpdateAspectRatio(aspect float32) {
	c.SetPerspective(c.FOV, aspect, c.Near, c.Far)
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.updateViewMatrix()
}

func (c *Camera) Translate(delta math.Vec3) {
	c.Position = c.Position.Add(delta)
	c.updateViewMatrix()
}

func (c *Camera) SetRotation(rotation math.Vec3) {
	c.Rotation = rotation
	c.updateViewMatrix()
}

func (c *Camera) Rotate(delta math.Vec3) {
	c.Rotation = c.Rotation.Add(delta)
	c.updateViewMatrix()
}

func (c *Camera) updateViewMatrix() {
	// Clamp to avoid Gimbal lock.
	c.Rotation.X = math.Clamp(c.Rotation.X, -89, 89)

	c.view = math.NewMat4EulerZ(math.DegToRad(c.Rotation.Z)).
		Mul(math.NewMat4EulerY(math.DegToRad(c.Rotation.Y))).
		Mul(math.NewMat4EulerX(math.DegToRad(c.Rotation.X))).
		Mul(math.NewMat4Translation(c.Position))
	c.Updated = true
}

func (c *Camera) View() math.Mat4 {
	return c.view
}

func (c *Camera) Perspective() math.Mat4 {
	return c.perspective
}

// Front is the unit movement direction derived from pitch and yaw.
func (c *Camera) Front() math.Vec3 {
	rx := math.DegToRad(c.Rotation.X)
	ry := math.DegToRad(c.Rotation.Y)
	front := math.NewVec3(
		-math.Cos(rx)*math.Sin(ry),
		math.Sin(rx),
		math.Cos(rx)*math.Cos(ry),
	)
	return front.Normalized()
}

// Update moves the camera with W/A/S/D (or the arrow keys) scaled by deltaTime.
func (c *Camera) Update(deltaTime float64, keys KeyState) {
	up := keys.IsKeyDown(core.KEY_W) || keys.IsKeyDown(core.KEY_UP)
	down := keys.IsKeyDown(core.KEY_S) || keys.IsKeyDown(core.KEY_DOWN)
	left := keys.IsKeyDown(core.KEY_A) || keys.IsKeyDown(core.KEY_LEFT)
	right := keys.IsKeyDown(core.KEY_D) || keys.IsKeyDown(core.KEY_RIGHT)
	if !(up || down || left || right) {
		return
	}

	front := c.Front()
	side := front.Cross(math.NewVec3Up()).Normalized()
	moveSpeed := float32(deltaTime) * c.MovementSpeed

	position := c.Position
	if up {
		position = position.Add(front.MulScalar(moveSpeed))
	}
	if down {
		position = position.Sub(front.MulScalar(moveSpeed))
	}
	if left {
		position = position.Sub(side.MulScalar(moveSpeed))
	}
	if right {
		position = position.Add(side.MulScalar(moveSpeed))
	}
	c.SetPosition(position)
}

// Uniform returns the inverse view and projection for ray generation.
func (c *Camera) Uniform() CameraUniform {
	return CameraUniform{
		ViewInverse: c.view.Inverse(),
		ProjInverse: c.perspective.Inverse(),
		Data:        c.Data,
	}
}
