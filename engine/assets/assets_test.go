package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/assets/loaders"
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu/gputest"
)

func spirv() []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, loaders.SPIRVMagic)
	binary.LittleEndian.PutUint32(b[4:], 0x00010500)
	return b
}

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"shaders/raygen.rgen":     {Data: []byte("#version 460\n")},
		"shaders/raygen.rgen.spv": {Data: spirv()},
		"models/tri.obj":          {Data: []byte(triangleOBJ)},
		"README":                  {Data: []byte("ignored")},
	}
}

func TestAssetIndex(t *testing.T) {
	am, err := NewAssetManagerFS(testFS())
	require.NoError(t, err)

	info, ok := am.Lookup("shaders/raygen.rgen.spv")
	require.True(t, ok)
	assert.Equal(t, AssetTypeShader, info.Type)
	assert.True(t, info.LastLoaded.IsZero())

	info, ok = am.Lookup("shaders/raygen.rgen")
	require.True(t, ok)
	assert.Equal(t, AssetTypeShaderSource, info.Type)

	_, ok = am.Lookup("README")
	assert.False(t, ok)
}

func TestLoadShaderAndMesh(t *testing.T) {
	am, err := NewAssetManagerFS(testFS())
	require.NoError(t, err)

	code, err := am.LoadShader("shaders/raygen.rgen.spv")
	require.NoError(t, err)
	assert.Equal(t, loaders.SPIRVMagic, code[0])

	info, _ := am.Lookup("shaders/raygen.rgen.spv")
	assert.False(t, info.LastLoaded.IsZero())

	mesh, err := am.LoadMesh("models/tri.obj", false)
	require.NoError(t, err)
	assert.Equal(t, "tri", mesh.Name)
	assert.Equal(t, uint32(1), mesh.TriangleCount())
}

func TestLoadMeshesKeepsOrder(t *testing.T) {
	fsys := testFS()
	fsys["models/quad.obj"] = &fstest.MapFile{Data: []byte("v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n")}
	am, err := NewAssetManagerFS(fsys)
	require.NoError(t, err)

	meshes, err := am.LoadMeshes([]string{"models/quad.obj", "models/tri.obj", "models/quad.obj"}, false)
	require.NoError(t, err)
	require.Len(t, meshes, 3)
	assert.Equal(t, "quad", meshes[0].Name)
	assert.Equal(t, uint32(2), meshes[0].TriangleCount())
	assert.Equal(t, "tri", meshes[1].Name)
	assert.NotSame(t, meshes[0], meshes[2])

	_, err = am.LoadMeshes([]string{"models/tri.obj", "models/missing.obj"}, false)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestLoadRejectsUnknownOrMistypedAssets(t *testing.T) {
	am, err := NewAssetManagerFS(testFS())
	require.NoError(t, err)

	_, err = am.LoadShader("shaders/missing.spv")
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = am.LoadShader("models/tri.obj")
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = am.LoadMesh("shaders/raygen.rgen.spv", false)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestShaderModuleLoader(t *testing.T) {
	am, err := NewAssetManagerFS(testFS())
	require.NoError(t, err)
	device := gputest.NewDevice(64, 64)
	loader := NewShaderModuleLoader(am, device)

	before := device.Live()
	id, err := loader.LoadPrecompiledShader("shaders/raygen.rgen.spv")
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, before+1, device.Live())

	device.DestroyShaderModule(id)
	assert.Empty(t, device.Violations())

	_, err = loader.LoadPrecompiledShader("shaders/missing.spv")
	assert.Error(t, err)
	assert.Equal(t, before, device.Live())
}

func TestWatchRequiresDirectory(t *testing.T) {
	am, err := NewAssetManagerFS(testFS())
	require.NoError(t, err)
	assert.Error(t, am.Watch(func(AssetInfo) {}))
	assert.NoError(t, am.Close())
}

func TestWatchReportsWrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))

	am, err := NewAssetManager(dir)
	require.NoError(t, err)

	changes := make(chan AssetInfo, 8)
	require.NoError(t, am.Watch(func(info AssetInfo) { changes <- info }))
	defer am.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "miss.rmiss.spv"), spirv(), 0o644))

	select {
	case info := <-changes:
		assert.Equal(t, "shaders/miss.rmiss.spv", info.Path)
		assert.Equal(t, AssetTypeShader, info.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	_, ok := am.Lookup("shaders/miss.rmiss.spv")
	assert.True(t, ok)
}

func TestNewAssetManagerMissingDirectory(t *testing.T) {
	_, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
