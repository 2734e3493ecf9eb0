package raytracing

import (
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

func triangleGeometry(t *testing.T, d gpu.Device, mesh *scene.Mesh) (gpu.Geometry, func()) {
	t.Helper()
	vertices, err := NewBuffer(d, gpu.BufferUsageRayTracing|gpu.BufferUsageVertex, hostMemory, uint64(len(mesh.VertexBytes())), mesh.VertexBytes())
	require.NoError(t, err)
	indices, err := NewBuffer(d, gpu.BufferUsageRayTracing|gpu.BufferUsageIndex, hostMemory, uint64(len(mesh.IndexBytes())), mesh.IndexBytes())
	require.NoError(t, err)
	geometry := TriangleGeometry(vertices, uint32(len(mesh.Vertices)), indices, uint32(len(mesh.Indices)))
	return geometry, func() {
		vertices.Destroy()
		indices.Destroy()
	}
}

func TestBLASHandlesAreNonZeroAndDistinct(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)

	seen := make(map[uint64]bool)
	for _, mesh := range []*scene.Mesh{scene.NewTriangleMesh(), scene.NewCubeMesh(1, 1, 1), scene.NewPlaneMesh(2, 2, 1, 1)} {
		geometry, release := triangleGeometry(t, d, mesh)
		defer release()

		blas, err := builder.BuildBLAS(geometry)
		require.NoError(t, err)
		defer builder.Destroy(&blas.AccelerationStructure)

		assert.NotZero(t, blas.DeviceHandle)
		assert.False(t, seen[blas.DeviceHandle], "handle %#x repeated", blas.DeviceHandle)
		seen[blas.DeviceHandle] = true
		assert.Equal(t, gpu.AccelerationStructureTypeBottomLevel, blas.Info.Type)
		assert.Equal(t, gpu.GeometryOpaque, blas.Geometry.Flags)
		assert.Equal(t, uint64(scene.VertexStride), blas.Geometry.Triangles.VertexStride)
		assert.False(t, blas.Built())
	}
	assertNoViolations(t, d)
}

func TestNullDeviceHandleIsDriverError(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	geometry, release := triangleGeometry(t, d, scene.NewTriangleMesh())
	defer release()

	d.FailNext("AccelerationStructureHandle", errors.New("no handle"))
	_, err := builder.BuildBLAS(geometry)
	assert.True(t, errors.Is(err, core.ErrDriver))

	d.FailNext("CreateAccelerationStructure", errors.New("VK_ERROR_OUT_OF_HOST_MEMORY"))
	_, err = builder.BuildBLAS(geometry)
	assert.True(t, errors.Is(err, core.ErrResourceExhausted))

	release()
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}

func TestScratchSizeIsTheMaximum(t *testing.T) {
	blases := []*BottomLevelAS{
		{AccelerationStructure: AccelerationStructure{ScratchSize: 512}},
		{AccelerationStructure: AccelerationStructure{ScratchSize: 4096}},
		{AccelerationStructure: AccelerationStructure{ScratchSize: 1024}},
	}
	assert.Equal(t, uint64(4096), ScratchSize(blases, &TopLevelAS{AccelerationStructure: AccelerationStructure{ScratchSize: 2048}}))
	assert.Equal(t, uint64(8192), ScratchSize(blases, &TopLevelAS{AccelerationStructure: AccelerationStructure{ScratchSize: 8192}}))
	assert.Equal(t, uint64(4096), ScratchSize(blases, nil))
	assert.Zero(t, ScratchSize(nil, nil))
}

func TestScratchSizeCoversQueriedRequirements(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	geometry, release := triangleGeometry(t, d, scene.NewCubeMesh(1, 1, 1))
	defer release()

	blas, err := builder.BuildBLAS(geometry)
	require.NoError(t, err)
	tlas, err := builder.BuildOrUpdateTLAS([]InstanceRecord{NewInstanceRecord(0, math.NewMat4Identity(), blas.DeviceHandle)}, false)
	require.NoError(t, err)

	want := gputest.DefaultRequirements(blas.Info, gpu.MemoryRequirementsBuildScratch).Size
	if tl := gputest.DefaultRequirements(tlas.Info, gpu.MemoryRequirementsBuildScratch).Size; tl > want {
		want = tl
	}
	assert.Equal(t, want, ScratchSize([]*BottomLevelAS{blas}, tlas))

	builder.Destroy(&blas.AccelerationStructure)
	builder.Shutdown()
}

func TestRecordBuildIsFollowedByBarrier(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	geometry, release := triangleGeometry(t, d, scene.NewTriangleMesh())
	defer release()

	blas, err := builder.BuildBLAS(geometry)
	require.NoError(t, err)
	defer builder.Destroy(&blas.AccelerationStructure)

	scratch, err := NewBuffer(d, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, blas.ScratchSize, nil)
	require.NoError(t, err)
	defer scratch.Destroy()

	cmd, err := AllocateAndBeginSingleUse(d)
	require.NoError(t, err)
	require.NoError(t, builder.RecordBLAS(cmd.Handle, blas, scratch))

	cmds := d.Commands(cmd.Handle)
	require.Equal(t, []gputest.CommandKind{gputest.CommandBuildAccelerationStructure, gputest.CommandPipelineBarrier}, gputest.Kinds(cmds))
	assert.Equal(t, blas.Handle, cmds[0].Build.Dst)
	assert.False(t, cmds[0].Build.Update)

	barrier := cmds[1].Barrier
	assert.Equal(t, gpu.PipelineStageAccelerationStructureBuild, barrier.SrcStage)
	assert.Equal(t, gpu.PipelineStageAccelerationStructureBuild, barrier.DstStage)
	require.Len(t, barrier.MemoryBarriers, 1)
	rw := gpu.AccessAccelerationStructureRead | gpu.AccessAccelerationStructureWrite
	assert.Equal(t, rw, barrier.MemoryBarriers[0].SrcAccess)
	assert.Equal(t, rw, barrier.MemoryBarriers[0].DstAccess)

	require.NoError(t, cmd.EndSingleUse(d))
	built, builds := d.Built(blas.Handle)
	assert.True(t, built)
	assert.Equal(t, 1, builds)
	assertNoViolations(t, d)
}

func TestRecordBuildRejectsMisuse(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	geometry, release := triangleGeometry(t, d, scene.NewTriangleMesh())
	defer release()

	blas, err := builder.BuildBLAS(geometry)
	require.NoError(t, err)
	defer builder.Destroy(&blas.AccelerationStructure)

	small, err := NewBuffer(d, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, 16, nil)
	require.NoError(t, err)
	defer small.Destroy()

	cmd, err := AllocateAndBeginSingleUse(d)
	require.NoError(t, err)
	defer cmd.Free(d)

	assert.Error(t, builder.RecordBLAS(cmd.Handle, blas, small), "scratch too small")
	assert.Error(t, builder.RecordBuild(cmd.Handle, &blas.AccelerationStructure, nil, nil, false), "no scratch")

	records := []InstanceRecord{NewInstanceRecord(0, math.NewMat4Identity(), blas.DeviceHandle)}
	tlas, err := builder.BuildOrUpdateTLAS(records, false)
	require.NoError(t, err)
	scratch, err := NewBuffer(d, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, ScratchSize([]*BottomLevelAS{blas}, tlas), nil)
	require.NoError(t, err)
	defer scratch.Destroy()
	instances, err := NewBuffer(d, gpu.BufferUsageRayTracing, hostMemory, InstanceRecordSize, EncodeInstanceRecords(records))
	require.NoError(t, err)
	defer instances.Destroy()

	assert.Error(t, builder.RecordTLAS(cmd.Handle, tlas, nil, scratch), "top level without instances")
	assert.Error(t, builder.RecordTLAS(cmd.Handle, tlas, instances, scratch), "bottom level not built yet")
	assert.Error(t, builder.RecordBuild(cmd.Handle, &tlas.AccelerationStructure, instances, scratch, true), "update before build")

	assert.Empty(t, d.Commands(cmd.Handle))
	builder.Shutdown()
}

func TestOneTriangleSceneBuildsBottomThenTop(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	geometry, release := triangleGeometry(t, d, scene.NewTriangleMesh())
	defer release()

	blas, err := builder.BuildBLAS(geometry)
	require.NoError(t, err)
	records := []InstanceRecord{NewInstanceRecord(0, math.NewMat4Identity(), blas.DeviceHandle)}
	tlas, err := builder.BuildOrUpdateTLAS(records, false)
	require.NoError(t, err)
	assert.False(t, tlas.Update)
	assert.Equal(t, []uint64{blas.DeviceHandle}, tlas.References)

	instances, err := NewBuffer(d, gpu.BufferUsageRayTracing, hostMemory, InstanceRecordSize, EncodeInstanceRecords(records))
	require.NoError(t, err)
	defer instances.Destroy()
	scratch, err := NewBuffer(d, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, ScratchSize([]*BottomLevelAS{blas}, tlas), nil)
	require.NoError(t, err)
	defer scratch.Destroy()

	cmd, err := AllocateAndBeginSingleUse(d)
	require.NoError(t, err)
	require.NoError(t, builder.RecordBLAS(cmd.Handle, blas, scratch))
	require.NoError(t, builder.RecordTLAS(cmd.Handle, tlas, instances, scratch))

	cmds := d.Commands(cmd.Handle)
	assert.Equal(t, []gputest.CommandKind{
		gputest.CommandBuildAccelerationStructure, gputest.CommandPipelineBarrier,
		gputest.CommandBuildAccelerationStructure, gputest.CommandPipelineBarrier,
	}, gputest.Kinds(cmds))
	assert.Equal(t, blas.Handle, cmds[0].Build.Dst)
	assert.Equal(t, tlas.Handle, cmds[2].Build.Dst)
	assert.Equal(t, instances.Handle, cmds[2].Build.InstanceData)

	require.NoError(t, cmd.EndSingleUse(d))
	built, _ := d.Built(tlas.Handle)
	assert.True(t, built)

	builder.Destroy(&blas.AccelerationStructure)
	builder.Shutdown()
	assertNoViolations(t, d)
}

func TestTLASIsUpdatedInPlaceWhileInstanceCountHolds(t *testing.T) {
	d := newTestDevice(t)
	builder := NewAccelerationStructureBuilder(d)
	defer builder.Shutdown()

	one := []InstanceRecord{NewInstanceRecord(0, math.NewMat4Identity(), 0x100)}
	first, err := builder.BuildOrUpdateTLAS(one, true)
	require.NoError(t, err)
	assert.False(t, first.Update, "nothing to update before the first build")
	assert.Equal(t, first.BuildScratchSize, first.ScratchSize)

	first.built = true
	again, err := builder.BuildOrUpdateTLAS(one, true)
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.True(t, again.Update)
	assert.Equal(t, again.UpdateScratchSize, again.ScratchSize)

	rebuild, err := builder.BuildOrUpdateTLAS(one, false)
	require.NoError(t, err)
	assert.Same(t, first, rebuild)
	assert.False(t, rebuild.Update)

	two := append(one, NewInstanceRecord(1, math.NewMat4Identity(), 0x100))
	grown, err := builder.BuildOrUpdateTLAS(two, true)
	require.NoError(t, err)
	assert.NotSame(t, first, grown)
	assert.False(t, grown.Update)
	assert.Equal(t, uint32(2), grown.Info.InstanceCount)
	assert.Same(t, grown, builder.TopLevel())

	builder.ReleaseRetired()
	assert.Zero(t, first.Handle, "replaced structure released")

	_, err = builder.BuildOrUpdateTLAS(nil, false)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}
