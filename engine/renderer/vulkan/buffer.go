package vulkan

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

func (vc *VulkanContext) CreateBuffer(size uint64, usage gpu.BufferUsageFlags) (gpu.BufferID, gpu.MemoryRequirements, error) {
	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive, // NOTE: Only used in one queue.
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(vc.Device.LogicalDevice, &bufferInfo, vc.Allocator, &handle); res != vk.Success {
		return 0, gpu.MemoryRequirements{}, vulkanError(res, "creating buffer of %d bytes", size)
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vc.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	id := vc.buffers.add(vulkanBuffer{Handle: handle, Size: size})
	return gpu.BufferID(id), gpu.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}, nil
}

func (vc *VulkanContext) DestroyBuffer(id gpu.BufferID) {
	b, ok := vc.buffers.remove(uint64(id))
	if !ok {
		return
	}
	vk.DestroyBuffer(vc.Device.LogicalDevice, b.Handle, vc.Allocator)
}

func (vc *VulkanContext) AllocateMemory(req gpu.MemoryRequirements, props gpu.MemoryPropertyFlags) (gpu.MemoryID, error) {
	memoryIndex := vc.FindMemoryIndex(req.MemoryTypeBits, uint32(props))
	if memoryIndex == -1 {
		return 0, core.NewResourceExhausted("no memory type matches bits %#x with properties %#x", req.MemoryTypeBits, uint32(props))
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(req.Size),
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(vc.Device.LogicalDevice, &allocateInfo, vc.Allocator, &memory); res != vk.Success {
		return 0, vulkanError(res, "allocating %d bytes of device memory", req.Size)
	}

	id := vc.memories.add(&vulkanMemory{Handle: memory, Size: req.Size, Properties: props})
	return gpu.MemoryID(id), nil
}

func (vc *VulkanContext) FreeMemory(id gpu.MemoryID) {
	m, ok := vc.memories.remove(uint64(id))
	if !ok {
		return
	}
	if m.Mapped {
		vk.UnmapMemory(vc.Device.LogicalDevice, m.Handle)
	}
	vk.FreeMemory(vc.Device.LogicalDevice, m.Handle, vc.Allocator)
}

func (vc *VulkanContext) BindBufferMemory(buffer gpu.BufferID, memory gpu.MemoryID, offset uint64) error {
	b, ok := vc.buffers.get(uint64(buffer))
	if !ok {
		return errors.AssertionFailedf("unknown buffer %d", buffer)
	}
	m, ok := vc.memories.get(uint64(memory))
	if !ok {
		return errors.AssertionFailedf("unknown memory %d", memory)
	}
	res := vk.BindBufferMemory(vc.Device.LogicalDevice, b.Handle, m.Handle, vk.DeviceSize(offset))
	return vulkanError(res, "binding buffer memory")
}

// MapMemory returns a slice aliasing the driver mapping. It stays valid
// until UnmapMemory.
func (vc *VulkanContext) MapMemory(memory gpu.MemoryID, offset, size uint64) ([]byte, error) {
	m, ok := vc.memories.get(uint64(memory))
	if !ok {
		return nil, errors.AssertionFailedf("unknown memory %d", memory)
	}
	if m.Properties&gpu.MemoryPropertyHostVisible == 0 {
		return nil, core.NewConfigurationError("memory %d is not host visible", memory)
	}
	if m.Mapped {
		return nil, core.NewConfigurationError("memory %d is already mapped", memory)
	}
	if offset >= m.Size {
		return nil, core.NewConfigurationError("map offset %d outside %d byte allocation", offset, m.Size)
	}
	if size == gpu.WholeSize || offset+size > m.Size {
		size = m.Size - offset
	}

	var data unsafe.Pointer
	if res := vk.MapMemory(vc.Device.LogicalDevice, m.Handle, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &data); res != vk.Success {
		return nil, vulkanError(res, "mapping %d bytes", size)
	}
	m.Mapped = true
	return unsafe.Slice((*byte)(data), int(size)), nil
}

func (vc *VulkanContext) UnmapMemory(memory gpu.MemoryID) {
	m, ok := vc.memories.get(uint64(memory))
	if !ok || !m.Mapped {
		return
	}
	vk.UnmapMemory(vc.Device.LogicalDevice, m.Handle)
	m.Mapped = false
}

func (vc *VulkanContext) FlushMappedMemory(memory gpu.MemoryID, offset, size uint64) error {
	m, ok := vc.memories.get(uint64(memory))
	if !ok {
		return errors.AssertionFailedf("unknown memory %d", memory)
	}
	if !m.Mapped {
		return core.NewConfigurationError("memory %d is not mapped", memory)
	}

	memoryRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: m.Handle,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}
	res := vk.FlushMappedMemoryRanges(vc.Device.LogicalDevice, 1, []vk.MappedMemoryRange{memoryRange})
	return vulkanError(res, "flushing mapped memory")
}
