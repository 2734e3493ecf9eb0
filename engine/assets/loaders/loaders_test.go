package loaders

import (
	"encoding/binary"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
)

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[i*4:], w)
	}
	return b
}

func TestDecodeSPIRV(t *testing.T) {
	code, err := DecodeSPIRV(spirv(SPIRVMagic, 0x00010500, 7))
	require.NoError(t, err)
	assert.Equal(t, []uint32{SPIRVMagic, 0x00010500, 7}, code)
}

func TestDecodeSPIRVRejectsBadInput(t *testing.T) {
	_, err := DecodeSPIRV(nil)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = DecodeSPIRV([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = DecodeSPIRV(spirv(0xdeadbeef, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
	assert.Contains(t, err.Error(), "magic")
}

func TestShaderLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/raygen.rgen.spv": {Data: spirv(SPIRVMagic, 1, 2)},
		"shaders/broken.spv":      {Data: []byte("not spirv")},
	}
	sl := &ShaderLoader{FS: fsys}

	code, err := sl.Load("shaders/raygen.rgen.spv")
	require.NoError(t, err)
	assert.Len(t, code, 3)

	_, err = sl.Load("shaders/broken.spv")
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = sl.Load("shaders/missing.spv")
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

const quadOBJ = `# a unit quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 2
f 1//1 2//1 3//1 4//1
`

func TestParseOBJFanTriangulates(t *testing.T) {
	mesh, err := ParseOBJ("quad", strings.NewReader(quadOBJ))
	require.NoError(t, err)

	assert.Equal(t, "quad", mesh.Name)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, uint32(2), mesh.TriangleCount())
	for _, v := range mesh.Vertices {
		assert.Equal(t, math.NewVec3(0, 0, 1), v.Normal)
	}
}

func TestParseOBJGeneratesSmoothNormals(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
f 1 2 3
`
	mesh, err := ParseOBJ("tri", strings.NewReader(src))
	require.NoError(t, err)
	for _, v := range mesh.Vertices {
		assert.True(t, v.Normal.Compare(math.NewVec3(0, 0, 1), 1e-6), "normal %v", v.Normal)
	}
}

func TestParseOBJNegativeAndTexturedReferences(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 0 1 0
vt 0 0
vn 0 0 1
f -3/1/1 -2/1/1 -1/1/1
`
	mesh, err := ParseOBJ("tri", strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1, 2}, mesh.Indices)
}

func TestParseOBJErrors(t *testing.T) {
	tests := map[string]string{
		"out of range": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 9\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad float":    "v 0 zero 0\n",
		"empty":        "# nothing\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseOBJ("broken", strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestModelLoaderFlipsNormals(t *testing.T) {
	fsys := fstest.MapFS{"models/quad.obj": {Data: []byte(quadOBJ)}}
	ml := &ModelLoader{FS: fsys}

	mesh, err := ml.Load("models/quad.obj", true)
	require.NoError(t, err)
	assert.Equal(t, "quad", mesh.Name)
	for _, v := range mesh.Vertices {
		assert.Equal(t, math.NewVec3(0, 0, -1), v.Normal)
	}

	_, err = ml.Load("models/missing.obj", false)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
