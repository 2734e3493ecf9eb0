package math

func TransformCreate() *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(NewVec3Zero(), NewMat4Identity(), NewVec3One())
	return t
}

func TransformFromPosition(position Vec3) *Transform {
	t := &Transform{}
	t.SetPositionRotationScale(position, NewMat4Identity(), NewVec3One())
	return t
}

// SetPosition replaces the position.
func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

// Translate moves the position by translation.
func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

// SetRotation replaces the accumulated rotation.
func (t *Transform) SetRotation(rotation Mat4) {
	t.Rotation = rotation
	t.IsDirty = true
}

// RotateAxis composes a rotation about axis after the current orientation.
// Successive calls are order sensitive and never reset.
func (t *Transform) RotateAxis(axis Vec3, angle_radians float32) {
	t.Rotation = NewMat4AxisAngle(axis, angle_radians).Mul(t.Rotation)
	t.IsDirty = true
}

// RotateEuler composes rotations about X, then Y, then Z, each given in
// degrees, onto the current orientation.
func (t *Transform) RotateEuler(degrees Vec3) {
	t.RotateAxis(Vec3{1, 0, 0}, DegToRad(degrees.X))
	t.RotateAxis(Vec3{0, 1, 0}, DegToRad(degrees.Y))
	t.RotateAxis(Vec3{0, 0, 1}, DegToRad(degrees.Z))
}

// SetScale replaces the scale.
func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Mat4, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// GetLocal returns the model matrix: scale, then rotation, then translation.
func (t *Transform) GetLocal() Mat4 {
	if t != nil {
		if t.IsDirty {
			tr := t.Rotation.Mul(NewMat4Translation(t.Position))
			s := NewMat4Scale(t.Scale)
			t.Local = s.Mul(tr)
			t.IsDirty = false
		}
		return t.Local
	}
	return NewMat4Identity()
}
