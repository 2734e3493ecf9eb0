package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalIsScaleRotateTranslate(t *testing.T) {
	tr := TransformCreate()
	tr.SetScale(Vec3{0.1, 0.1, 0.1})
	tr.RotateEuler(Vec3{90, 0, 0})
	tr.SetPosition(Vec3{0, -2, -5})

	p := Vec3{0, 10, 0}.Transform(tr.GetLocal())
	// scaled to (0,1,0), rotated +90 about X to (0,0,1), translated.
	assert.True(t, p.Compare(Vec3{0, -2, -4}, tolerance), "%v", p)
}

func TestRowMajor3x4OfLocalIsTransposedModel(t *testing.T) {
	tr := TransformCreate()
	tr.SetScale(Vec3{2, 2, 2})
	tr.RotateEuler(Vec3{0, 0, 30})
	tr.SetPosition(Vec3{1, 2, 3})

	local := tr.GetLocal()
	rows := local.RowMajor3x4()
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			assert.Equal(t, local.Data[c*4+r], rows[r*4+c])
		}
	}
	assert.Equal(t, float32(1), rows[3])
	assert.Equal(t, float32(2), rows[7])
	assert.Equal(t, float32(3), rows[11])
}

func TestIncrementalRotationAccumulates(t *testing.T) {
	const epsilon float32 = 0.37
	incremental := TransformCreate()
	for i := 0; i < 100; i++ {
		incremental.RotateEuler(Vec3{0, 0, epsilon})
	}

	single := TransformCreate()
	single.RotateEuler(Vec3{0, 0, 100 * epsilon})

	assert.True(t, incremental.GetLocal().Compare(single.GetLocal(), 1e-4))
}

func TestRotationOrderMatters(t *testing.T) {
	xy := TransformCreate()
	xy.RotateAxis(Vec3{1, 0, 0}, K_PI/2)
	xy.RotateAxis(Vec3{0, 1, 0}, K_PI/2)

	yx := TransformCreate()
	yx.RotateAxis(Vec3{0, 1, 0}, K_PI/2)
	yx.RotateAxis(Vec3{1, 0, 0}, K_PI/2)

	assert.False(t, xy.GetLocal().Compare(yx.GetLocal(), 1e-3))
}

func TestTranslateIsRelativeSetPositionAbsolute(t *testing.T) {
	tr := TransformFromPosition(Vec3{1, 1, 1})
	tr.Translate(Vec3{1, 0, 0})
	assert.Equal(t, Vec3{2, 1, 1}, tr.Position)
	tr.SetPosition(Vec3{0, 0, 0})
	assert.Equal(t, Vec3{}, tr.Position)
	assert.True(t, tr.IsDirty)
	tr.GetLocal()
	assert.False(t, tr.IsDirty)
}
