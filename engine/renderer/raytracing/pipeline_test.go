package raytracing

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu/gputest"
)

func newTestPipeline(t *testing.T, d *gputest.Device) (*DescriptorSet, *RayTracingPipeline, *shaderLoader) {
	t.Helper()
	set, err := NewDescriptorSet(d)
	require.NoError(t, err)
	loader := &shaderLoader{device: d}
	p, err := NewRayTracingPipeline(d, loader, testShaders, set.Layout)
	require.NoError(t, err)
	return set, p, loader
}

func TestShaderGroupsReuseShadowMissForShadowHit(t *testing.T) {
	groups := ShaderGroups()
	require.Len(t, groups, int(ShaderGroupCount))

	for _, g := range []uint32{GroupRaygen, GroupMiss, GroupShadowMiss} {
		assert.Equal(t, gpu.ShaderGroupTypeGeneral, groups[g].Type)
		assert.Equal(t, gpu.ShaderUnused, groups[g].ClosestHit)
	}
	assert.Equal(t, StageRaygen, groups[GroupRaygen].General)
	assert.Equal(t, StageMiss, groups[GroupMiss].General)
	assert.Equal(t, StageShadowMiss, groups[GroupShadowMiss].General)

	assert.Equal(t, gpu.ShaderGroupTypeTrianglesHitGroup, groups[GroupClosestHit].Type)
	assert.Equal(t, StageClosestHit, groups[GroupClosestHit].ClosestHit)
	assert.Equal(t, gpu.ShaderGroupTypeTrianglesHitGroup, groups[GroupShadowHit].Type)
	assert.Equal(t, StageShadowMiss, groups[GroupShadowHit].ClosestHit)
	assert.Equal(t, gpu.ShaderUnused, groups[GroupShadowHit].General)
}

func TestPipelineLoadsShadersInStageOrder(t *testing.T) {
	d := newTestDevice(t)
	set, p, loader := newTestPipeline(t, d)

	assert.Equal(t, []string{testShaders.Raygen, testShaders.Miss, testShaders.ShadowMiss, testShaders.ClosestHit}, loader.loaded)

	info := d.PipelineInfo(p.Handle)
	assert.Equal(t, uint32(MaxRecursionDepth), info.MaxRecursionDepth)
	assert.Equal(t, p.Layout, info.Layout)
	require.Len(t, info.Stages, 4)
	assert.Equal(t, gpu.ShaderStageRaygen, info.Stages[StageRaygen].Stage)
	assert.Equal(t, gpu.ShaderStageMiss, info.Stages[StageShadowMiss].Stage)
	assert.Equal(t, gpu.ShaderStageClosestHit, info.Stages[StageClosestHit].Stage)
	assert.Equal(t, "main", info.Stages[StageMiss].EntryPoint)

	p.Destroy(d)
	set.Destroy(d)
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}

func TestPipelineFailureReleasesModules(t *testing.T) {
	d := newTestDevice(t)
	set, err := NewDescriptorSet(d)
	require.NoError(t, err)
	defer set.Destroy(d)

	d.FailNext("CreateRayTracingPipeline", errors.New("VK_ERROR_INITIALIZATION_FAILED"))
	_, err = NewRayTracingPipeline(d, &shaderLoader{device: d}, testShaders, set.Layout)
	assert.True(t, errors.Is(err, core.ErrDriver))

	set.Destroy(d)
	assert.Zero(t, d.Live())
}

func TestShaderBindingTableLayout(t *testing.T) {
	d := newTestDevice(t)
	set, p, _ := newTestPipeline(t, d)
	defer set.Destroy(d)
	defer p.Destroy(d)

	sbt, err := NewShaderBindingTable(d, p)
	require.NoError(t, err)
	defer sbt.Destroy()

	hs := uint64(gputest.DefaultGroupHandleSize)
	assert.Equal(t, hs, sbt.HandleSize)
	assert.Equal(t, ShaderGroupCount, sbt.GroupCount)

	contents := d.BufferContents(sbt.Buffer.Handle)
	require.Len(t, contents, int(ShaderGroupCount)*int(hs))
	for g := uint32(0); g < ShaderGroupCount; g++ {
		assert.Equal(t, g*uint32(hs), uint32(sbt.Offset(g)))
		assert.Equal(t, d.GroupHandle(p.Handle, g), contents[sbt.Offset(g):sbt.Offset(g)+hs], "group %d", g)
	}

	trace := sbt.TraceRays(gpu.Extent2D{Width: 64, Height: 48})
	assert.Equal(t, uint64(0), trace.Raygen.Offset)
	assert.Equal(t, hs, trace.Miss.Offset)
	assert.Equal(t, hs, trace.Miss.Stride)
	assert.Equal(t, 3*hs, trace.Hit.Offset)
	assert.Equal(t, hs, trace.Hit.Stride)
	assert.Equal(t, uint32(64), trace.Width)
	assert.Equal(t, uint32(48), trace.Height)
	assert.Equal(t, uint32(1), trace.Depth)
	assertNoViolations(t, d)
}

func TestShaderBindingTableRejectsOddHandleSize(t *testing.T) {
	d := newTestDevice(t)
	set, p, _ := newTestPipeline(t, d)
	defer set.Destroy(d)
	defer p.Destroy(d)

	limits := d.Limits()
	limits.ShaderGroupHandleSize = 24
	d.SetLimits(limits)
	_, err := NewShaderBindingTable(d, p)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	limits.ShaderGroupHandleSize = 0
	d.SetLimits(limits)
	_, err = NewShaderBindingTable(d, p)
	assert.True(t, errors.Is(err, core.ErrConfiguration))
}

func TestDescriptorSetHasSevenBindings(t *testing.T) {
	bindings := DescriptorSetLayoutBindings()
	require.Len(t, bindings, int(DescriptorBindingCount))
	want := []gpu.DescriptorType{
		gpu.DescriptorTypeAccelerationStructure,
		gpu.DescriptorTypeStorageImage,
		gpu.DescriptorTypeUniformBuffer,
		gpu.DescriptorTypeStorageBuffer,
		gpu.DescriptorTypeStorageBuffer,
		gpu.DescriptorTypeUniformBuffer,
		gpu.DescriptorTypeStorageBuffer,
	}
	for i, b := range bindings {
		assert.Equal(t, uint32(i), b.Binding)
		assert.Equal(t, want[i], b.Type, "binding %d", i)
		assert.Equal(t, uint32(1), b.Count)
	}

	var total uint32
	for _, s := range descriptorPoolSizes(bindings) {
		total += s.Count
	}
	assert.Equal(t, DescriptorBindingCount, total)
}

func TestDescriptorSetWritesEveryBinding(t *testing.T) {
	d, r := newTestRegistry(t)
	defer r.Destroy()
	_, err := r.AddObject(newSpinningCube())
	require.NoError(t, err)
	require.NoError(t, r.Rebuild())

	image, err := NewStorageImage(d, d.SwapchainFormat(), d.SwapchainExtent())
	require.NoError(t, err)
	defer image.Destroy(d)
	camera, err := NewBuffer(d, gpu.BufferUsageUniform, hostMemory, 144, nil)
	require.NoError(t, err)
	defer camera.Destroy()
	clock, err := NewBuffer(d, gpu.BufferUsageUniform, hostMemory, 4, nil)
	require.NoError(t, err)
	defer clock.Destroy()

	set, err := NewDescriptorSet(d)
	require.NoError(t, err)
	defer set.Destroy(d)
	assert.Equal(t, uint32(DescriptorBindingCount), uint32(len(d.SetLayoutBindings(set.Layout))))

	set.Write(d, DescriptorResources{
		TopLevelAS:     r.TLAS,
		StorageImage:   image,
		Camera:         camera,
		Materials:      r.Materials,
		Vertices:       r.Vertices,
		Time:           clock,
		TriangleCounts: r.TriangleCounts,
	})
	writes := d.DescriptorWrites(set.Handle)
	require.Len(t, writes, int(DescriptorBindingCount))
	assert.Equal(t, r.TLAS.Handle, writes[BindingTopLevelAS].AccelerationStructure)
	assert.Equal(t, image.View, writes[BindingStorageImage].Image.View)
	assert.Equal(t, gpu.ImageLayoutGeneral, writes[BindingStorageImage].Image.Layout)
	assert.Equal(t, camera.Handle, writes[BindingCamera].Buffer.Buffer)
	assert.Equal(t, clock.Handle, writes[BindingTime].Buffer.Buffer)
	assert.Equal(t, r.TriangleCounts.Handle, writes[BindingTriangleCounts].Buffer.Buffer)
	assertNoViolations(t, d)
}
