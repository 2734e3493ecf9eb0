package raytracing

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/math"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu/gputest"
	"github.com/spaghettifunk/vengine/engine/scene"
)

func newTestRegistry(t *testing.T) (*gputest.Device, *SceneInstanceRegistry) {
	t.Helper()
	d := newTestDevice(t)
	return d, NewSceneInstanceRegistry(d, NewAccelerationStructureBuilder(d))
}

func TestAddObjectAssignsSequentialIDs(t *testing.T) {
	_, r := newTestRegistry(t)
	mesh := scene.NewTriangleMesh()
	for i := 0; i < 4; i++ {
		id, err := r.AddObject(scene.NewObject("tri", mesh))
		require.NoError(t, err)
		assert.Equal(t, uint32(i), id)
	}
	assert.Len(t, r.Objects(), 4)
	assert.True(t, r.Dirty())

	_, err := r.AddObject(nil)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
	_, err = r.AddObject(scene.NewObject("broken", &scene.Mesh{Name: "broken", Indices: []uint32{0, 1, 2}}))
	assert.True(t, errors.Is(err, core.ErrConfiguration))
	assert.Len(t, r.Objects(), 4)
}

func TestRebuildWritesRecordsInRegistrationOrder(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	triangle := scene.NewTriangleMesh()
	cube := scene.NewCubeMesh(1, 1, 1)
	var objects []*scene.Object
	for i, mesh := range []*scene.Mesh{triangle, cube, triangle} {
		o := scene.NewObject("object", mesh)
		o.SetPosition(math.NewVec3(float32(i), 0, float32(-i)))
		o.Rotate(math.NewVec3(0, 0, float32(30*i)))
		objects = append(objects, o)
		_, err := r.AddObject(o)
		require.NoError(t, err)
	}

	require.NoError(t, r.Rebuild())
	assert.False(t, r.Dirty())

	contents := d.BufferContents(r.Instances.Handle)
	require.Len(t, contents, len(objects)*InstanceRecordSize)
	for i, o := range objects {
		record := DecodeInstanceRecord(contents[i*InstanceRecordSize:])
		assert.Equal(t, uint32(i), record.InstanceID)
		assert.Equal(t, uint8(DefaultInstanceMask), record.Mask)
		assert.Equal(t, o.Model().RowMajor3x4(), record.Transform)
		assert.Equal(t, r.BottomLevel(o.Mesh).DeviceHandle, record.AccelerationStructureHandle)
	}

	assert.Equal(t, r.BottomLevel(triangle).DeviceHandle, r.Records()[2].AccelerationStructureHandle, "shared meshes share one bottom level")
	assert.NotEqual(t, r.BottomLevel(triangle).DeviceHandle, r.BottomLevel(cube).DeviceHandle)

	counts := d.BufferContents(r.TriangleCounts.Handle)
	require.Len(t, counts, 3*4)
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(counts[0:]))
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(counts[4:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(counts[8:]))

	assert.Len(t, d.BufferContents(r.Materials.Handle), 3*scene.MaterialStride)

	vertices := d.BufferContents(r.Vertices.Handle)
	require.Len(t, vertices, (3+36+3)*CornerStride)
	assert.Equal(t, float32(0), float32At(vertices, 3*4), "first corner carries instance id 0")
	assert.Equal(t, float32(2), float32At(vertices, (3+36)*CornerStride+3*4), "last object's corners carry id 2")

	built, _ := d.Built(r.TLAS.Handle)
	assert.True(t, built)
	assertNoViolations(t, d)
}

func TestUpdatePerFrameIsDeterministic(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	o := scene.NewObject("spinner", scene.NewCubeMesh(1, 1, 1))
	_, err := r.AddObject(o)
	require.NoError(t, err)
	_, err = r.AddObject(scene.NewObject("floor", scene.NewPlaneMesh(10, 10, 1, 1)))
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())

	o.Rotate(math.NewVec3(0, 0, 5))
	require.NoError(t, r.UpdatePerFrame())
	firstInstances := d.BufferContents(r.Instances.Handle)
	firstMaterials := d.BufferContents(r.Materials.Handle)

	require.NoError(t, r.UpdatePerFrame())
	assert.Equal(t, firstInstances, d.BufferContents(r.Instances.Handle))
	assert.Equal(t, firstMaterials, d.BufferContents(r.Materials.Handle))
	assertNoViolations(t, d)
}

func TestUpdatePerFrameRefitsInPlace(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	o := scene.NewObject("spinner", scene.NewTriangleMesh())
	_, err := r.AddObject(o)
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())

	tlas := r.TLAS
	instances := r.Instances.Handle
	generation := r.Generation()

	o.Translate(math.NewVec3(0, 1, 0))
	require.NoError(t, r.UpdatePerFrame())
	assert.Same(t, tlas, r.TLAS)
	assert.Equal(t, instances, r.Instances.Handle, "per-frame updates reuse the instance buffer")
	assert.Equal(t, generation, r.Generation())
	assert.True(t, r.TLAS.Update)

	record := DecodeInstanceRecord(d.BufferContents(instances))
	assert.Equal(t, float32(1), record.Transform[7])

	_, builds := d.Built(tlas.Handle)
	assert.Equal(t, 2, builds)
	assertNoViolations(t, d)
}

func TestAddingObjectsTriggersRebuild(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	_, err := r.AddObject(scene.NewObject("a", scene.NewTriangleMesh()))
	require.NoError(t, err)
	require.NoError(t, r.UpdatePerFrame(), "first update builds the scene")
	first := r.TLAS
	instances := r.Instances.Handle
	generation := r.Generation()

	_, err = r.AddObject(scene.NewObject("b", scene.NewTriangleMesh()))
	require.NoError(t, err)
	require.NoError(t, r.UpdatePerFrame())

	assert.NotSame(t, first, r.TLAS)
	assert.False(t, r.TLAS.Update)
	assert.NotEqual(t, instances, r.Instances.Handle, "rebuilds use a fresh instance buffer")
	assert.Greater(t, r.Generation(), generation)
	assert.Len(t, r.Records(), 2)

	r.ReleaseRetired()
	assertNoViolations(t, d)
}

func TestRebuildOfEmptySceneFails(t *testing.T) {
	_, r := newTestRegistry(t)
	assert.True(t, errors.Is(r.Rebuild(), core.ErrConfiguration))
}

func TestRegistryDestroyReleasesEverything(t *testing.T) {
	d, r := newTestRegistry(t)
	_, err := r.AddObject(scene.NewObject("a", scene.NewCubeMesh(1, 1, 1)))
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())
	require.NoError(t, r.UpdatePerFrame())

	r.Destroy()
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}

func TestInstanceBufferUsage(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()
	_, err := r.AddObject(scene.NewObject("a", scene.NewTriangleMesh()))
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())

	assert.Equal(t, gpu.BufferUsageRayTracing, d.BufferUsage(r.Instances.Handle))
	assert.Equal(t, gpu.BufferUsageStorage, d.BufferUsage(r.Materials.Handle))
}

func TestPerFrameRotationMatchesSingleRotation(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	const epsilon float32 = 0.37
	spinner := scene.NewObject("spinner", scene.NewCubeMesh(1, 1, 1))
	spinner.SetPosition(math.NewVec3(1, 2, -3))
	_, err := r.AddObject(spinner)
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())

	for i := 0; i < 100; i++ {
		spinner.Rotate(math.NewVec3(0, 0, epsilon))
		require.NoError(t, r.UpdatePerFrame())
	}

	single := scene.NewObject("single", scene.NewCubeMesh(1, 1, 1))
	single.SetPosition(math.NewVec3(1, 2, -3))
	single.Rotate(math.NewVec3(0, 0, 100*epsilon))
	want := single.Model().RowMajor3x4()

	record := DecodeInstanceRecord(d.BufferContents(r.Instances.Handle))
	for i := range want {
		assert.InDelta(t, want[i], record.Transform[i], 1e-4, "transform element %d", i)
	}
	assertNoViolations(t, d)
}

func TestFailedRebuildKeepsNewMeshesPending(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()

	mesh := scene.NewCubeMesh(1, 1, 1)
	_, err := r.AddObject(scene.NewObject("cube", mesh))
	require.NoError(t, err)

	d.FailNext("QueueSubmit", errors.New("submit lost"))
	require.Error(t, r.Rebuild())
	assert.Nil(t, r.BottomLevel(mesh), "an unbuilt bottom level is not cached")
	assert.True(t, r.Dirty())

	require.NoError(t, r.Rebuild())
	blas := r.BottomLevel(mesh)
	require.NotNil(t, blas)
	assert.True(t, blas.Built())
	assert.Equal(t, blas.DeviceHandle, r.Records()[0].AccelerationStructureHandle)
	assert.False(t, r.Dirty())
	assertNoViolations(t, d)
}
