package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type vulkanBuffer struct {
	Handle vk.Buffer
	Size   uint64
}

type vulkanMemory struct {
	Handle     vk.DeviceMemory
	Size       uint64
	Properties gpu.MemoryPropertyFlags
	Mapped     bool
}

type vulkanAccelerationStructure struct {
	Handle accelerationStructureNV
	Type   gpu.AccelerationStructureType
}

type vulkanPipeline struct {
	Handle      vk.Pipeline
	GroupCount  uint32
	ShaderCount uint32
}

type vulkanDescriptorSet struct {
	Handle vk.DescriptorSet
	Pool   gpu.DescriptorPoolID
}

// VulkanContext owns the instance, the logical device and the swapchain, and
// implements gpu.Device on top of them. Every driver object handed out is
// tracked in a handle table keyed by the opaque gpu ID.
type VulkanContext struct {
	// The framebuffer's current width.
	FramebufferWidth uint32
	// The framebuffer's current height.
	FramebufferHeight uint32

	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	debugMessenger vk.DebugReportCallback

	Device    *VulkanDevice
	Swapchain *VulkanSwapchain

	locks *VulkanLockPool

	buffers              *handleTable[vulkanBuffer]
	memories             *handleTable[*vulkanMemory]
	accelerationStructs  *handleTable[vulkanAccelerationStructure]
	images               *handleTable[*VulkanImage]
	imageViews           *handleTable[vk.ImageView]
	shaderModules        *handleTable[vk.ShaderModule]
	descriptorSetLayouts *handleTable[vk.DescriptorSetLayout]
	pipelineLayouts      *handleTable[vk.PipelineLayout]
	pipelines            *handleTable[vulkanPipeline]
	descriptorPools      *handleTable[vk.DescriptorPool]
	descriptorSets       *handleTable[vulkanDescriptorSet]
	commandBuffers       *handleTable[*VulkanCommandBuffer]
	semaphores           *handleTable[vk.Semaphore]
	fences               *handleTable[*VulkanFence]
}

var _ gpu.Device = (*VulkanContext)(nil)

func newVulkanContext(width, height uint32) *VulkanContext {
	return &VulkanContext{
		FramebufferWidth:     width,
		FramebufferHeight:    height,
		Allocator:            nil,
		Device:               &VulkanDevice{},
		locks:                NewVulkanLockPool(),
		buffers:              newHandleTable[vulkanBuffer](),
		memories:             newHandleTable[*vulkanMemory](),
		accelerationStructs:  newHandleTable[vulkanAccelerationStructure](),
		images:               newHandleTable[*VulkanImage](),
		imageViews:           newHandleTable[vk.ImageView](),
		shaderModules:        newHandleTable[vk.ShaderModule](),
		descriptorSetLayouts: newHandleTable[vk.DescriptorSetLayout](),
		pipelineLayouts:      newHandleTable[vk.PipelineLayout](),
		pipelines:            newHandleTable[vulkanPipeline](),
		descriptorPools:      newHandleTable[vk.DescriptorPool](),
		descriptorSets:       newHandleTable[vulkanDescriptorSet](),
		commandBuffers:       newHandleTable[*VulkanCommandBuffer](),
		semaphores:           newHandleTable[vk.Semaphore](),
		fences:               newHandleTable[*VulkanFence](),
	}
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	memoryProperties := vc.Device.Memory

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

func (vc *VulkanContext) Limits() gpu.Limits {
	return vc.Device.Limits
}

// releaseAll destroys whatever the renderer leaked, newest first, so that
// the device can be destroyed cleanly.
func (vc *VulkanContext) releaseAll() {
	device := vc.Device.LogicalDevice
	leaked := vc.pipelines.len() + vc.accelerationStructs.len() + vc.buffers.len() +
		vc.images.len() + vc.memories.len() + vc.fences.len() + vc.semaphores.len()
	if leaked > 0 {
		core.LogWarn("releasing %d GPU objects still alive at shutdown", leaked)
	}

	for _, cb := range vc.commandBuffers.drain() {
		cb.Free(vc, vc.Device.GraphicsCommandPool)
	}
	for _, p := range vc.pipelines.drain() {
		vk.DestroyPipeline(device, p.Handle, vc.Allocator)
	}
	for _, l := range vc.pipelineLayouts.drain() {
		vk.DestroyPipelineLayout(device, l, vc.Allocator)
	}
	for _, m := range vc.shaderModules.drain() {
		vk.DestroyShaderModule(device, m, vc.Allocator)
	}
	vc.descriptorSets.drain()
	for _, p := range vc.descriptorPools.drain() {
		vk.DestroyDescriptorPool(device, p, vc.Allocator)
	}
	for _, l := range vc.descriptorSetLayouts.drain() {
		vk.DestroyDescriptorSetLayout(device, l, vc.Allocator)
	}
	for _, as := range vc.accelerationStructs.drain() {
		vc.destroyAccelerationStructureNV(as)
	}
	for _, v := range vc.imageViews.drain() {
		vk.DestroyImageView(device, v, vc.Allocator)
	}
	for _, img := range vc.images.drain() {
		if img.Owned {
			vk.DestroyImage(device, img.Handle, vc.Allocator)
		}
	}
	for _, b := range vc.buffers.drain() {
		vk.DestroyBuffer(device, b.Handle, vc.Allocator)
	}
	for _, m := range vc.memories.drain() {
		if m.Mapped {
			vk.UnmapMemory(device, m.Handle)
		}
		vk.FreeMemory(device, m.Handle, vc.Allocator)
	}
	for _, f := range vc.fences.drain() {
		f.FenceDestroy(vc)
	}
	for _, s := range vc.semaphores.drain() {
		vk.DestroySemaphore(device, s, vc.Allocator)
	}
}
