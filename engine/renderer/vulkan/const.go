package vulkan

import vk "github.com/goki/vulkan"

// VK_NV_ray_tracing enum values. goki/vulkan does not export the extension,
// so these are assigned straight into the C structs of raytracing_nv.h.
const (
	structureTypeRayTracingPipelineCreateInfoNV            = 1000165000
	structureTypeAccelerationStructureCreateInfoNV         = 1000165001
	structureTypeGeometryNV                                = 1000165003
	structureTypeGeometryTrianglesNV                       = 1000165004
	structureTypeGeometryAABBNV                            = 1000165005
	structureTypeBindAccelerationStructureMemoryInfoNV     = 1000165006
	structureTypeWriteDescriptorSetAccelerationStructureNV = 1000165007
	structureTypeAccelerationStructureMemoryRequirementsNV = 1000165008
	structureTypePhysicalDeviceRayTracingPropertiesNV      = 1000165009
	structureTypeRayTracingShaderGroupCreateInfoNV         = 1000165011
	structureTypeAccelerationStructureInfoNV               = 1000165012

	structureTypeMemoryRequirements2 = 1000146003
)

// The bind point is a core enum value, so goki's own calls accept it.
const pipelineBindPointRayTracingNV vk.PipelineBindPoint = 1000165000

const (
	accelerationStructureTypeTopLevelNV    = 0
	accelerationStructureTypeBottomLevelNV = 1

	geometryTypeTrianglesNV = 0

	shaderGroupTypeGeneralNV            = 0
	shaderGroupTypeTrianglesHitGroupNV  = 1
	shaderGroupTypeProceduralHitGroupNV = 2

	memoryRequirementsObjectNV        = 0
	memoryRequirementsBuildScratchNV  = 1
	memoryRequirementsUpdateScratchNV = 2
)
