package gpu

// Device abstracts the logical device, its graphics queue and the swapchain
// the renderer presents to. The production implementation lives in the
// vulkan package; gputest provides an in-memory one.
//
// Resource lifecycle:
//   - Resources are created via Create*/Allocate* methods
//   - Resources must be explicitly released via Destroy*/Free* methods
//   - Releasing a resource still referenced by pending GPU work is undefined behavior
//   - IDs become invalid after release and are never reused
type Device interface {
	MemoryAllocator
	AccelerationStructures
	Images
	Pipelines
	Descriptors
	CommandRecorder
	Sync
	Queue
	Presenter
}

// MemoryAllocator creates buffers and the memory backing them.
type MemoryAllocator interface {
	// Limits returns the device properties the renderer depends on.
	Limits() Limits

	// CreateBuffer creates an unbound buffer and reports what memory it needs.
	CreateBuffer(size uint64, usage BufferUsageFlags) (BufferID, MemoryRequirements, error)
	DestroyBuffer(id BufferID)

	// AllocateMemory allocates memory satisfying req with the given properties.
	// It fails with a resource-exhausted error when no memory type matches or
	// the heap is full.
	AllocateMemory(req MemoryRequirements, props MemoryPropertyFlags) (MemoryID, error)
	FreeMemory(id MemoryID)

	BindBufferMemory(buffer BufferID, memory MemoryID, offset uint64) error

	// MapMemory maps a range of host visible memory. size may be WholeSize.
	MapMemory(memory MemoryID, offset, size uint64) ([]byte, error)
	UnmapMemory(memory MemoryID)

	// FlushMappedMemory makes host writes in the range visible to the device.
	// offset and size must be multiples of Limits().NonCoherentAtomSize unless
	// the range reaches the end of the allocation.
	FlushMappedMemory(memory MemoryID, offset, size uint64) error
}

// AccelerationStructures manages ray tracing acceleration structures.
type AccelerationStructures interface {
	CreateAccelerationStructure(info AccelerationStructureInfo) (AccelerationStructureID, error)
	DestroyAccelerationStructure(id AccelerationStructureID)

	// AccelerationStructureMemoryRequirements reports the object size or the
	// scratch size a build or update of the structure needs.
	AccelerationStructureMemoryRequirements(id AccelerationStructureID, kind AccelerationStructureMemoryRequirementsType) (MemoryRequirements, error)
	BindAccelerationStructureMemory(id AccelerationStructureID, memory MemoryID, offset uint64) error

	// AccelerationStructureHandle returns the opaque 64-bit device handle
	// referenced by top-level instance records. Only valid once bound.
	AccelerationStructureHandle(id AccelerationStructureID) (uint64, error)
}

type Images interface {
	CreateImage(info ImageInfo) (ImageID, MemoryRequirements, error)
	DestroyImage(id ImageID)
	BindImageMemory(image ImageID, memory MemoryID, offset uint64) error
	CreateImageView(image ImageID, format Format) (ImageViewID, error)
	DestroyImageView(id ImageViewID)
}

type Pipelines interface {
	// CreateShaderModule wraps SPIR-V bytecode given as 32-bit words.
	CreateShaderModule(code []uint32) (ShaderModuleID, error)
	DestroyShaderModule(id ShaderModuleID)

	CreateDescriptorSetLayout(bindings []DescriptorSetLayoutBinding) (DescriptorSetLayoutID, error)
	DestroyDescriptorSetLayout(id DescriptorSetLayoutID)

	CreatePipelineLayout(setLayouts []DescriptorSetLayoutID) (PipelineLayoutID, error)
	DestroyPipelineLayout(id PipelineLayoutID)

	CreateRayTracingPipeline(info RayTracingPipelineInfo) (PipelineID, error)
	DestroyPipeline(id PipelineID)

	// ShaderGroupHandles copies groupCount opaque group handles, each
	// Limits().ShaderGroupHandleSize bytes, into dst.
	ShaderGroupHandles(pipeline PipelineID, firstGroup, groupCount uint32, dst []byte) error
}

type Descriptors interface {
	CreateDescriptorPool(sizes []DescriptorPoolSize, maxSets uint32) (DescriptorPoolID, error)
	DestroyDescriptorPool(id DescriptorPoolID)
	AllocateDescriptorSet(pool DescriptorPoolID, layout DescriptorSetLayoutID) (DescriptorSetID, error)
	UpdateDescriptorSet(set DescriptorSetID, writes []DescriptorWrite)
}

// CommandRecorder allocates primary command buffers from the graphics queue
// family pool and records commands into them.
type CommandRecorder interface {
	AllocateCommandBuffers(count uint32) ([]CommandBufferID, error)
	FreeCommandBuffers(ids ...CommandBufferID)
	BeginCommandBuffer(id CommandBufferID, oneTimeSubmit bool) error
	EndCommandBuffer(id CommandBufferID) error
	ResetCommandBuffer(id CommandBufferID) error

	CmdBuildAccelerationStructure(cmd CommandBufferID, info BuildAccelerationStructureInfo)
	CmdPipelineBarrier(cmd CommandBufferID, barrier PipelineBarrier)
	CmdBindRayTracingPipeline(cmd CommandBufferID, pipeline PipelineID)
	CmdBindRayTracingDescriptorSet(cmd CommandBufferID, layout PipelineLayoutID, set DescriptorSetID)
	CmdTraceRays(cmd CommandBufferID, info TraceRaysInfo)
	CmdCopyImage(cmd CommandBufferID, copy ImageCopy)
}

type Sync interface {
	CreateSemaphore() (SemaphoreID, error)
	DestroySemaphore(id SemaphoreID)

	CreateFence(signaled bool) (FenceID, error)
	DestroyFence(id FenceID)

	// WaitForFence blocks until the fence signals or timeout nanoseconds
	// elapse, in which case ErrTimeout is returned.
	WaitForFence(id FenceID, timeout uint64) error
	ResetFence(id FenceID) error
}

type Queue interface {
	QueueSubmit(submit SubmitInfo, fence FenceID) error
	QueueWaitIdle() error
	DeviceWaitIdle() error
}

// Presenter exposes the swapchain.
type Presenter interface {
	SwapchainImages() []ImageID
	SwapchainFormat() Format
	SwapchainExtent() Extent2D

	// AcquireNextImage returns the index of the next presentable image and
	// arranges for signal to be signaled once it is ready. A suboptimal
	// swapchain yields a valid index together with ErrSuboptimal.
	AcquireNextImage(timeout uint64, signal SemaphoreID) (uint32, error)

	// QueuePresent queues the image for presentation once wait is signaled.
	QueuePresent(imageIndex uint32, wait SemaphoreID) error
}
