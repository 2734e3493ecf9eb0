package vulkan

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

func TestNVStructLayoutMatchesVulkanABI(t *testing.T) {
	// Sizes of the 64-bit vulkan_core.h structs.
	want := map[string]uintptr{
		"VkGeometryTrianglesNV":                       96,
		"VkGeometryAABBNV":                            40,
		"VkGeometryNV":                                168,
		"VkAccelerationStructureInfoNV":               40,
		"VkAccelerationStructureCreateInfoNV":         64,
		"VkBindAccelerationStructureMemoryInfoNV":     56,
		"VkWriteDescriptorSetAccelerationStructureNV": 32,
		"VkPhysicalDeviceRayTracingPropertiesNV":      64,
		"VkRayTracingShaderGroupCreateInfoNV":         40,
		"VkRayTracingPipelineCreateInfoNV":            80,
	}
	assert.Equal(t, want, nvStructSizes())
}

func TestNVEnumMapping(t *testing.T) {
	assert.EqualValues(t, accelerationStructureTypeBottomLevelNV, nvAccelerationStructureType(gpu.AccelerationStructureTypeBottomLevel))
	assert.EqualValues(t, accelerationStructureTypeTopLevelNV, nvAccelerationStructureType(gpu.AccelerationStructureTypeTopLevel))

	kinds := map[gpu.AccelerationStructureMemoryRequirementsType]int{
		gpu.MemoryRequirementsObject:        memoryRequirementsObjectNV,
		gpu.MemoryRequirementsBuildScratch:  memoryRequirementsBuildScratchNV,
		gpu.MemoryRequirementsUpdateScratch: memoryRequirementsUpdateScratchNV,
	}
	for kind, nv := range kinds {
		got, err := nvMemoryRequirementsType(kind)
		require.NoError(t, err)
		assert.EqualValues(t, nv, got)
	}
	_, err := nvMemoryRequirementsType(7)
	assert.Error(t, err)

	groups := map[gpu.ShaderGroupType]int{
		gpu.ShaderGroupTypeGeneral:            shaderGroupTypeGeneralNV,
		gpu.ShaderGroupTypeTrianglesHitGroup:  shaderGroupTypeTrianglesHitGroupNV,
		gpu.ShaderGroupTypeProceduralHitGroup: shaderGroupTypeProceduralHitGroupNV,
	}
	for group, nv := range groups {
		got, err := nvShaderGroupType(group)
		require.NoError(t, err)
		assert.EqualValues(t, nv, got)
	}
	_, err = nvShaderGroupType(9)
	assert.Error(t, err)
}

func TestCArenaAllocatesZeroedMemory(t *testing.T) {
	var arena cArena
	defer arena.free()

	words := cArray[uint64](&arena, 4)
	require.Len(t, words, 4)
	assert.Equal(t, []uint64{0, 0, 0, 0}, words)
	words[3] = 7
	assert.Equal(t, uint64(7), words[3])

	name := arena.cString("main")
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(name)), 5)
	assert.Equal(t, []byte{'m', 'a', 'i', 'n', 0}, bytes)

	assert.Nil(t, cArray[uint32](&arena, 0))
	assert.Len(t, arena.ptrs, 2)
}

func TestNVCallsRequireLoadedEntryPoints(t *testing.T) {
	vc := newVulkanContext(0, 0)

	_, err := vc.CreateAccelerationStructure(gpu.AccelerationStructureInfo{Type: gpu.AccelerationStructureTypeTopLevel, InstanceCount: 1})
	assert.True(t, errors.Is(err, core.ErrConfiguration), "got %v", err)

	_, err = vc.CreateRayTracingPipeline(gpu.RayTracingPipelineInfo{})
	assert.True(t, errors.Is(err, core.ErrConfiguration), "got %v", err)

	err = vc.ShaderGroupHandles(1, 0, 1, make([]byte, 32))
	assert.True(t, errors.Is(err, core.ErrConfiguration), "got %v", err)

	// Destroying without entry points leaks the handle but still forgets it.
	id := vc.accelerationStructs.add(vulkanAccelerationStructure{Type: gpu.AccelerationStructureTypeBottomLevel})
	vc.DestroyAccelerationStructure(gpu.AccelerationStructureID(id))
	_, ok := vc.accelerationStructs.get(id)
	assert.False(t, ok)
}

func TestAccelerationStructureInfoRejectsUnknownBuffers(t *testing.T) {
	vc := newVulkanContext(0, 0)
	var arena cArena
	defer arena.free()

	_, err := vc.accelerationStructureInfo(&arena, gpu.AccelerationStructureInfo{
		Type: gpu.AccelerationStructureTypeBottomLevel,
		Geometries: []gpu.Geometry{{
			Triangles: gpu.GeometryTriangles{VertexData: 42, IndexType: gpu.IndexTypeNone},
		}},
	})
	assert.Error(t, err)
}
