package vulkan

/*
#include <stdlib.h>
#include "raytracing_nv.h"
*/
import "C"

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// All VK_NV_ray_tracing entry points are called from this file. goki/vulkan
// does not export the extension, so the entry points are resolved through
// vkGetDeviceProcAddr and called with C structs filled here. goki handles
// are pointers on 64-bit targets and convert through unsafe.Pointer.

type accelerationStructureNV C.VkAccelerationStructureNV

// instanceProcAddr is the loader's vkGetInstanceProcAddr, set by loadVulkan.
var instanceProcAddr unsafe.Pointer

type nvProcs struct {
	procs  C.NvRayTracingProcs
	loaded bool
}

func cInstance(h vk.Instance) C.VkInstance { return C.VkInstance(unsafe.Pointer(h)) }
func cPhysicalDevice(h vk.PhysicalDevice) C.VkPhysicalDevice {
	return C.VkPhysicalDevice(unsafe.Pointer(h))
}
func cDevice(h vk.Device) C.VkDevice { return C.VkDevice(unsafe.Pointer(h)) }
func cCommandBuffer(h vk.CommandBuffer) C.VkCommandBuffer {
	return C.VkCommandBuffer(unsafe.Pointer(h))
}
func cBuffer(h vk.Buffer) C.VkBuffer                   { return C.VkBuffer(unsafe.Pointer(h)) }
func cDeviceMemory(h vk.DeviceMemory) C.VkDeviceMemory { return C.VkDeviceMemory(unsafe.Pointer(h)) }
func cShaderModule(h vk.ShaderModule) C.VkShaderModule { return C.VkShaderModule(unsafe.Pointer(h)) }
func cPipeline(h vk.Pipeline) C.VkPipeline             { return C.VkPipeline(unsafe.Pointer(h)) }
func cPipelineLayout(h vk.PipelineLayout) C.VkPipelineLayout {
	return C.VkPipelineLayout(unsafe.Pointer(h))
}

// cArena owns C allocations that must outlive a single driver call. Structs
// that hold pointers are placed here so no Go pointer is stored in them.
type cArena struct {
	ptrs []unsafe.Pointer
}

func (a *cArena) alloc(size uintptr) unsafe.Pointer {
	p := C.calloc(1, C.size_t(size))
	a.ptrs = append(a.ptrs, p)
	return p
}

func (a *cArena) cString(s string) *C.char {
	p := C.CString(s)
	a.ptrs = append(a.ptrs, unsafe.Pointer(p))
	return p
}

func (a *cArena) free() {
	for _, p := range a.ptrs {
		C.free(p)
	}
	a.ptrs = nil
}

func cArray[T any](a *cArena, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	p := a.alloc(unsafe.Sizeof(zero) * uintptr(n))
	return unsafe.Slice((*T)(p), n)
}

func loadRayTracingNV(instance vk.Instance, device vk.Device) (nvProcs, error) {
	var p nvProcs
	if instanceProcAddr == nil {
		return p, core.NewConfigurationError("vkGetInstanceProcAddr is not loaded")
	}
	if missing := C.nvLoadProcs(instanceProcAddr, cInstance(instance), cDevice(device), &p.procs); missing != 0 {
		return p, core.NewConfigurationError("%d %s entry points are missing", int(missing), nvRayTracingExtensionName)
	}
	p.loaded = true
	return p, nil
}

type rayTracingProperties struct {
	ShaderGroupHandleSize uint32
	MaxRecursionDepth     uint32
	MaxGeometryCount      uint64
	MaxInstanceCount      uint64
}

func queryRayTracingProperties(instance vk.Instance, physicalDevice vk.PhysicalDevice) rayTracingProperties {
	rt := (*C.VkPhysicalDeviceRayTracingPropertiesNV)(C.calloc(1, C.size_t(unsafe.Sizeof(C.VkPhysicalDeviceRayTracingPropertiesNV{}))))
	defer C.free(unsafe.Pointer(rt))
	rt.sType = structureTypePhysicalDeviceRayTracingPropertiesNV

	if instanceProcAddr == nil || C.nvQueryProperties(instanceProcAddr, cInstance(instance), cPhysicalDevice(physicalDevice), rt) == 0 {
		core.LogWarn("vkGetPhysicalDeviceProperties2 unavailable, ray tracing limits left at zero")
		return rayTracingProperties{}
	}
	return rayTracingProperties{
		ShaderGroupHandleSize: uint32(rt.shaderGroupHandleSize),
		MaxRecursionDepth:     uint32(rt.maxRecursionDepth),
		MaxGeometryCount:      uint64(rt.maxGeometryCount),
		MaxInstanceCount:      uint64(rt.maxInstanceCount),
	}
}

func (vc *VulkanContext) nv() (*C.NvRayTracingProcs, error) {
	if vc.Device == nil || !vc.Device.nv.loaded {
		return nil, core.NewConfigurationError("%s entry points are not loaded", nvRayTracingExtensionName)
	}
	return &vc.Device.nv.procs, nil
}

func nvAccelerationStructureType(t gpu.AccelerationStructureType) C.VkAccelerationStructureTypeNV {
	if t == gpu.AccelerationStructureTypeBottomLevel {
		return accelerationStructureTypeBottomLevelNV
	}
	return accelerationStructureTypeTopLevelNV
}

func nvMemoryRequirementsType(kind gpu.AccelerationStructureMemoryRequirementsType) (C.VkAccelerationStructureMemoryRequirementsTypeNV, error) {
	switch kind {
	case gpu.MemoryRequirementsObject:
		return memoryRequirementsObjectNV, nil
	case gpu.MemoryRequirementsBuildScratch:
		return memoryRequirementsBuildScratchNV, nil
	case gpu.MemoryRequirementsUpdateScratch:
		return memoryRequirementsUpdateScratchNV, nil
	}
	return 0, errors.AssertionFailedf("unknown memory requirements type %d", kind)
}

func nvShaderGroupType(t gpu.ShaderGroupType) (C.VkRayTracingShaderGroupTypeNV, error) {
	switch t {
	case gpu.ShaderGroupTypeGeneral:
		return shaderGroupTypeGeneralNV, nil
	case gpu.ShaderGroupTypeTrianglesHitGroup:
		return shaderGroupTypeTrianglesHitGroupNV, nil
	case gpu.ShaderGroupTypeProceduralHitGroup:
		return shaderGroupTypeProceduralHitGroupNV, nil
	}
	return 0, errors.AssertionFailedf("unknown shader group type %d", t)
}

// accelerationStructureInfo fills the NV build description. The geometry
// array lives in the arena.
func (vc *VulkanContext) accelerationStructureInfo(a *cArena, info gpu.AccelerationStructureInfo) (C.VkAccelerationStructureInfoNV, error) {
	out := C.VkAccelerationStructureInfoNV{
		sType:         structureTypeAccelerationStructureInfoNV,
		_type:         nvAccelerationStructureType(info.Type),
		flags:         C.VkBuildAccelerationStructureFlagsNV(info.Flags),
		instanceCount: C.uint32_t(info.InstanceCount),
		geometryCount: C.uint32_t(len(info.Geometries)),
	}

	geometries := cArray[C.VkGeometryNV](a, len(info.Geometries))
	for i, g := range info.Geometries {
		vertices, ok := vc.buffers.get(uint64(g.Triangles.VertexData))
		if !ok {
			return out, errors.AssertionFailedf("unknown vertex buffer %d", g.Triangles.VertexData)
		}
		var indexBuffer vk.Buffer
		if g.Triangles.IndexType != gpu.IndexTypeNone {
			indices, ok := vc.buffers.get(uint64(g.Triangles.IndexData))
			if !ok {
				return out, errors.AssertionFailedf("unknown index buffer %d", g.Triangles.IndexData)
			}
			indexBuffer = indices.Handle
		}

		geometries[i] = C.VkGeometryNV{
			sType:        structureTypeGeometryNV,
			geometryType: geometryTypeTrianglesNV,
			flags:        C.VkGeometryFlagsNV(g.Flags),
			geometry: C.VkGeometryDataNV{
				triangles: C.VkGeometryTrianglesNV{
					sType:        structureTypeGeometryTrianglesNV,
					vertexData:   cBuffer(vertices.Handle),
					vertexOffset: C.VkDeviceSize(g.Triangles.VertexOffset),
					vertexCount:  C.uint32_t(g.Triangles.VertexCount),
					vertexStride: C.VkDeviceSize(g.Triangles.VertexStride),
					vertexFormat: C.VkFormat(g.Triangles.VertexFormat),
					indexData:    cBuffer(indexBuffer),
					indexOffset:  C.VkDeviceSize(g.Triangles.IndexOffset),
					indexCount:   C.uint32_t(g.Triangles.IndexCount),
					indexType:    C.VkIndexType(g.Triangles.IndexType),
				},
				aabbs: C.VkGeometryAABBNV{
					sType: structureTypeGeometryAABBNV,
				},
			},
		}
	}
	if len(geometries) > 0 {
		out.pGeometries = &geometries[0]
	}
	return out, nil
}

func (vc *VulkanContext) CreateAccelerationStructure(info gpu.AccelerationStructureInfo) (gpu.AccelerationStructureID, error) {
	procs, err := vc.nv()
	if err != nil {
		return 0, err
	}
	var arena cArena
	defer arena.free()

	asInfo, err := vc.accelerationStructureInfo(&arena, info)
	if err != nil {
		return 0, err
	}
	createInfo := (*C.VkAccelerationStructureCreateInfoNV)(arena.alloc(unsafe.Sizeof(C.VkAccelerationStructureCreateInfoNV{})))
	createInfo.sType = structureTypeAccelerationStructureCreateInfoNV
	createInfo.info = asInfo

	var handle C.VkAccelerationStructureNV
	if res := vk.Result(C.nvCreateAccelerationStructure(procs, cDevice(vc.Device.LogicalDevice), createInfo, &handle)); res != vk.Success {
		return 0, vulkanError(res, "creating %s acceleration structure", info.Type)
	}
	id := vc.accelerationStructs.add(vulkanAccelerationStructure{Handle: accelerationStructureNV(handle), Type: info.Type})
	return gpu.AccelerationStructureID(id), nil
}

func (vc *VulkanContext) destroyAccelerationStructureNV(as vulkanAccelerationStructure) {
	procs, err := vc.nv()
	if err != nil {
		core.LogError("leaking %s acceleration structure: %s", as.Type, err)
		return
	}
	C.nvDestroyAccelerationStructure(procs, cDevice(vc.Device.LogicalDevice), C.VkAccelerationStructureNV(as.Handle))
}

func (vc *VulkanContext) DestroyAccelerationStructure(id gpu.AccelerationStructureID) {
	as, ok := vc.accelerationStructs.remove(uint64(id))
	if !ok {
		return
	}
	vc.destroyAccelerationStructureNV(as)
}

func (vc *VulkanContext) AccelerationStructureMemoryRequirements(id gpu.AccelerationStructureID, kind gpu.AccelerationStructureMemoryRequirementsType) (gpu.MemoryRequirements, error) {
	procs, err := vc.nv()
	if err != nil {
		return gpu.MemoryRequirements{}, err
	}
	as, ok := vc.accelerationStructs.get(uint64(id))
	if !ok {
		return gpu.MemoryRequirements{}, errors.AssertionFailedf("unknown acceleration structure %d", id)
	}
	reqType, err := nvMemoryRequirementsType(kind)
	if err != nil {
		return gpu.MemoryRequirements{}, err
	}

	info := C.VkAccelerationStructureMemoryRequirementsInfoNV{
		sType:                 structureTypeAccelerationStructureMemoryRequirementsNV,
		_type:                 reqType,
		accelerationStructure: C.VkAccelerationStructureNV(as.Handle),
	}
	requirements := C.VkMemoryRequirements2{sType: structureTypeMemoryRequirements2}
	C.nvMemoryRequirements(procs, cDevice(vc.Device.LogicalDevice), &info, &requirements)

	return gpu.MemoryRequirements{
		Size:           uint64(requirements.memoryRequirements.size),
		Alignment:      uint64(requirements.memoryRequirements.alignment),
		MemoryTypeBits: uint32(requirements.memoryRequirements.memoryTypeBits),
	}, nil
}

func (vc *VulkanContext) BindAccelerationStructureMemory(id gpu.AccelerationStructureID, memory gpu.MemoryID, offset uint64) error {
	procs, err := vc.nv()
	if err != nil {
		return err
	}
	as, ok := vc.accelerationStructs.get(uint64(id))
	if !ok {
		return errors.AssertionFailedf("unknown acceleration structure %d", id)
	}
	mem, ok := vc.memories.get(uint64(memory))
	if !ok {
		return errors.AssertionFailedf("unknown memory %d", memory)
	}

	bindInfo := C.VkBindAccelerationStructureMemoryInfoNV{
		sType:                 structureTypeBindAccelerationStructureMemoryInfoNV,
		accelerationStructure: C.VkAccelerationStructureNV(as.Handle),
		memory:                cDeviceMemory(mem.Handle),
		memoryOffset:          C.VkDeviceSize(offset),
	}
	res := vk.Result(C.nvBindMemory(procs, cDevice(vc.Device.LogicalDevice), &bindInfo))
	return vulkanError(res, "binding %s acceleration structure memory", as.Type)
}

func (vc *VulkanContext) AccelerationStructureHandle(id gpu.AccelerationStructureID) (uint64, error) {
	procs, err := vc.nv()
	if err != nil {
		return 0, err
	}
	as, ok := vc.accelerationStructs.get(uint64(id))
	if !ok {
		return 0, errors.AssertionFailedf("unknown acceleration structure %d", id)
	}
	var handle C.uint64_t
	res := vk.Result(C.nvHandle(procs, cDevice(vc.Device.LogicalDevice), C.VkAccelerationStructureNV(as.Handle), &handle))
	if res != vk.Success {
		return 0, vulkanError(res, "reading acceleration structure handle")
	}
	return uint64(handle), nil
}

func (vc *VulkanContext) CreateRayTracingPipeline(info gpu.RayTracingPipelineInfo) (gpu.PipelineID, error) {
	procs, err := vc.nv()
	if err != nil {
		return 0, err
	}
	layout, ok := vc.pipelineLayouts.get(uint64(info.Layout))
	if !ok {
		return 0, errors.AssertionFailedf("unknown pipeline layout %d", info.Layout)
	}

	var arena cArena
	defer arena.free()

	stages := cArray[C.VkPipelineShaderStageCreateInfo](&arena, len(info.Stages))
	for i, s := range info.Stages {
		module, ok := vc.shaderModules.get(uint64(s.Module))
		if !ok {
			return 0, errors.AssertionFailedf("unknown shader module %d", s.Module)
		}
		stages[i] = C.VkPipelineShaderStageCreateInfo{
			sType:  C.VkStructureType(vk.StructureTypePipelineShaderStageCreateInfo),
			stage:  C.VkShaderStageFlagBits(s.Stage),
			module: cShaderModule(module),
			pName:  arena.cString(s.EntryPoint),
		}
	}

	groups := cArray[C.VkRayTracingShaderGroupCreateInfoNV](&arena, len(info.Groups))
	for i, g := range info.Groups {
		groupType, err := nvShaderGroupType(g.Type)
		if err != nil {
			return 0, err
		}
		groups[i] = C.VkRayTracingShaderGroupCreateInfoNV{
			sType:              structureTypeRayTracingShaderGroupCreateInfoNV,
			_type:              groupType,
			generalShader:      C.uint32_t(g.General),
			closestHitShader:   C.uint32_t(g.ClosestHit),
			anyHitShader:       C.uint32_t(g.AnyHit),
			intersectionShader: C.uint32_t(g.Intersection),
		}
	}

	createInfo := (*C.VkRayTracingPipelineCreateInfoNV)(arena.alloc(unsafe.Sizeof(C.VkRayTracingPipelineCreateInfoNV{})))
	createInfo.sType = structureTypeRayTracingPipelineCreateInfoNV
	createInfo.stageCount = C.uint32_t(len(stages))
	createInfo.groupCount = C.uint32_t(len(groups))
	createInfo.maxRecursionDepth = C.uint32_t(info.MaxRecursionDepth)
	createInfo.layout = cPipelineLayout(layout)
	createInfo.basePipelineIndex = -1
	if len(stages) > 0 {
		createInfo.pStages = &stages[0]
	}
	if len(groups) > 0 {
		createInfo.pGroups = &groups[0]
	}

	var pipeline C.VkPipeline
	if res := vk.Result(C.nvCreatePipeline(procs, cDevice(vc.Device.LogicalDevice), createInfo, &pipeline)); res != vk.Success {
		return 0, vulkanError(res, "creating ray tracing pipeline")
	}
	core.LogDebug("ray tracing pipeline created with %d stages and %d groups", len(stages), len(groups))

	id := vc.pipelines.add(vulkanPipeline{
		Handle:      vk.Pipeline(unsafe.Pointer(pipeline)),
		GroupCount:  uint32(len(groups)),
		ShaderCount: uint32(len(stages)),
	})
	return gpu.PipelineID(id), nil
}

func (vc *VulkanContext) ShaderGroupHandles(pipeline gpu.PipelineID, firstGroup, groupCount uint32, dst []byte) error {
	procs, err := vc.nv()
	if err != nil {
		return err
	}
	p, ok := vc.pipelines.get(uint64(pipeline))
	if !ok {
		return errors.AssertionFailedf("unknown pipeline %d", pipeline)
	}
	if firstGroup+groupCount > p.GroupCount {
		return errors.AssertionFailedf("groups [%d, %d) out of range, pipeline has %d", firstGroup, firstGroup+groupCount, p.GroupCount)
	}
	want := int(groupCount) * int(vc.Device.Limits.ShaderGroupHandleSize)
	if len(dst) < want || want == 0 {
		return errors.AssertionFailedf("handle buffer holds %d bytes, %d needed", len(dst), want)
	}

	res := vk.Result(C.nvShaderGroupHandles(procs, cDevice(vc.Device.LogicalDevice), cPipeline(p.Handle),
		C.uint32_t(firstGroup), C.uint32_t(groupCount), C.size_t(want), unsafe.Pointer(&dst[0])))
	return vulkanError(res, "reading shader group handles")
}

func (vc *VulkanContext) CmdBuildAccelerationStructure(cmd gpu.CommandBufferID, info gpu.BuildAccelerationStructureInfo) {
	procs, err := vc.nv()
	if err != nil {
		core.LogError("build not recorded: %s", err)
		return
	}
	cb, ok := vc.commandBuffers.get(uint64(cmd))
	if !ok {
		core.LogError("build recorded into unknown command buffer %d", cmd)
		return
	}
	var arena cArena
	defer arena.free()

	asInfo, err := vc.accelerationStructureInfo(&arena, info.Info)
	if err != nil {
		core.LogError("invalid acceleration structure build: %s", err)
		return
	}
	cInfo := (*C.VkAccelerationStructureInfoNV)(arena.alloc(unsafe.Sizeof(C.VkAccelerationStructureInfoNV{})))
	*cInfo = asInfo

	dst, _ := vc.accelerationStructs.get(uint64(info.Dst))
	var src accelerationStructureNV
	if info.Update {
		s, _ := vc.accelerationStructs.get(uint64(info.Src))
		src = s.Handle
	}
	var instances vk.Buffer
	if info.InstanceData != 0 {
		b, _ := vc.buffers.get(uint64(info.InstanceData))
		instances = b.Handle
	}
	scratch, _ := vc.buffers.get(uint64(info.Scratch))

	update := C.VkBool32(vk.False)
	if info.Update {
		update = C.VkBool32(vk.True)
	}
	C.nvCmdBuild(procs,
		cCommandBuffer(cb.Handle),
		cInfo,
		cBuffer(instances),
		C.VkDeviceSize(info.InstanceOffset),
		update,
		C.VkAccelerationStructureNV(dst.Handle),
		C.VkAccelerationStructureNV(src),
		cBuffer(scratch.Handle),
		C.VkDeviceSize(info.ScratchOffset))
}

func (vc *VulkanContext) CmdTraceRays(cmd gpu.CommandBufferID, info gpu.TraceRaysInfo) {
	procs, err := vc.nv()
	if err != nil {
		core.LogError("trace not recorded: %s", err)
		return
	}
	cb, ok := vc.commandBuffers.get(uint64(cmd))
	if !ok {
		core.LogError("trace recorded into unknown command buffer %d", cmd)
		return
	}
	buffer := func(id gpu.BufferID) C.VkBuffer {
		b, _ := vc.buffers.get(uint64(id))
		return cBuffer(b.Handle)
	}

	C.nvCmdTraceRays(procs,
		cCommandBuffer(cb.Handle),
		buffer(info.Raygen.Buffer), C.VkDeviceSize(info.Raygen.Offset),
		buffer(info.Miss.Buffer), C.VkDeviceSize(info.Miss.Offset), C.VkDeviceSize(info.Miss.Stride),
		buffer(info.Hit.Buffer), C.VkDeviceSize(info.Hit.Offset), C.VkDeviceSize(info.Hit.Stride),
		buffer(info.Callable.Buffer), C.VkDeviceSize(info.Callable.Offset), C.VkDeviceSize(info.Callable.Stride),
		C.uint32_t(info.Width), C.uint32_t(info.Height), C.uint32_t(info.Depth))
}

func (vc *VulkanContext) CmdBindRayTracingPipeline(cmd gpu.CommandBufferID, pipeline gpu.PipelineID) {
	cb, ok := vc.commandBuffers.get(uint64(cmd))
	if !ok {
		core.LogError("bind recorded into unknown command buffer %d", cmd)
		return
	}
	p, _ := vc.pipelines.get(uint64(pipeline))
	vk.CmdBindPipeline(cb.Handle, pipelineBindPointRayTracingNV, p.Handle)
}

func (vc *VulkanContext) CmdBindRayTracingDescriptorSet(cmd gpu.CommandBufferID, layout gpu.PipelineLayoutID, set gpu.DescriptorSetID) {
	cb, ok := vc.commandBuffers.get(uint64(cmd))
	if !ok {
		core.LogError("bind recorded into unknown command buffer %d", cmd)
		return
	}
	l, _ := vc.pipelineLayouts.get(uint64(layout))
	s, _ := vc.descriptorSets.get(uint64(set))
	vk.CmdBindDescriptorSets(cb.Handle, pipelineBindPointRayTracingNV, l, 0, 1, []vk.DescriptorSet{s.Handle}, 0, nil)
}

// accelerationStructureWrite chains the NV descriptor payload onto a write.
// The payload lives in the arena until the caller has issued the update.
func (vc *VulkanContext) accelerationStructureWrite(a *cArena, write *vk.WriteDescriptorSet, id gpu.AccelerationStructureID) error {
	as, ok := vc.accelerationStructs.get(uint64(id))
	if !ok {
		return errors.AssertionFailedf("unknown acceleration structure %d", id)
	}
	handles := cArray[C.VkAccelerationStructureNV](a, 1)
	handles[0] = C.VkAccelerationStructureNV(as.Handle)

	payload := (*C.VkWriteDescriptorSetAccelerationStructureNV)(a.alloc(unsafe.Sizeof(C.VkWriteDescriptorSetAccelerationStructureNV{})))
	payload.sType = structureTypeWriteDescriptorSetAccelerationStructureNV
	payload.accelerationStructureCount = 1
	payload.pAccelerationStructures = &handles[0]

	write.PNext = unsafe.Pointer(payload)
	write.DescriptorCount = 1
	return nil
}

// nvStructSizes reports the C layout of the structs handed to the driver.
func nvStructSizes() map[string]uintptr {
	return map[string]uintptr{
		"VkGeometryTrianglesNV":                       unsafe.Sizeof(C.VkGeometryTrianglesNV{}),
		"VkGeometryAABBNV":                            unsafe.Sizeof(C.VkGeometryAABBNV{}),
		"VkGeometryNV":                                unsafe.Sizeof(C.VkGeometryNV{}),
		"VkAccelerationStructureInfoNV":               unsafe.Sizeof(C.VkAccelerationStructureInfoNV{}),
		"VkAccelerationStructureCreateInfoNV":         unsafe.Sizeof(C.VkAccelerationStructureCreateInfoNV{}),
		"VkBindAccelerationStructureMemoryInfoNV":     unsafe.Sizeof(C.VkBindAccelerationStructureMemoryInfoNV{}),
		"VkWriteDescriptorSetAccelerationStructureNV": unsafe.Sizeof(C.VkWriteDescriptorSetAccelerationStructureNV{}),
		"VkPhysicalDeviceRayTracingPropertiesNV":      unsafe.Sizeof(C.VkPhysicalDeviceRayTracingPropertiesNV{}),
		"VkRayTracingShaderGroupCreateInfoNV":         unsafe.Sizeof(C.VkRayTracingShaderGroupCreateInfoNV{}),
		"VkRayTracingPipelineCreateInfoNV":            unsafe.Sizeof(C.VkRayTracingPipelineCreateInfoNV{}),
	}
}
