package raytracing

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/arsenal/memutils"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// Buffer is a GPU buffer together with the single allocation backing it.
type Buffer struct {
	device gpu.Device

	Handle gpu.BufferID
	Memory gpu.MemoryID
	// Requested size in bytes.
	Size uint64
	// Size of the backing allocation, at least Size.
	AllocationSize   uint64
	Alignment        uint64
	Usage            gpu.BufferUsageFlags
	MemoryProperties gpu.MemoryPropertyFlags
	// Host view of the mapped range, nil while unmapped.
	Mapped []byte
	// Descriptor covers the whole buffer and is ready for descriptor writes.
	Descriptor gpu.DescriptorBufferInfo

	bound bool
}

/**
 * Creates a buffer, allocates memory with the requested properties, uploads the
 * optional initial data and binds the memory. Anything created before a
 * failure is released again.
 */
func NewBuffer(device gpu.Device, usage gpu.BufferUsageFlags, properties gpu.MemoryPropertyFlags, size uint64, data []byte) (*Buffer, error) {
	if size == 0 {
		return nil, core.NewConfigurationError("buffer size must be greater than zero")
	}
	if uint64(len(data)) > size {
		return nil, core.NewConfigurationError("initial data of %d bytes exceeds buffer size %d", len(data), size)
	}

	b := &Buffer{
		device:           device,
		Size:             size,
		Usage:            usage,
		MemoryProperties: properties,
	}

	handle, req, err := device.CreateBuffer(size, usage)
	if err != nil {
		return nil, core.WrapDriverError(err, "failed to create buffer of %d bytes", size)
	}
	b.Handle = handle
	b.AllocationSize = req.Size
	b.Alignment = req.Alignment

	memory, err := device.AllocateMemory(req, properties)
	if err != nil {
		b.Destroy()
		return nil, core.WrapResourceExhausted(err, "failed to allocate %d bytes of buffer memory", req.Size)
	}
	b.Memory = memory

	if data != nil {
		mapped, err := b.Map(0, gpu.WholeSize)
		if err != nil {
			b.Destroy()
			return nil, err
		}
		copy(mapped, data)
		if err := b.Flush(0, gpu.WholeSize); err != nil {
			b.Destroy()
			return nil, err
		}
		b.Unmap()
	}

	b.Descriptor = gpu.DescriptorBufferInfo{Buffer: b.Handle, Offset: 0, Range: gpu.WholeSize}

	if err := b.Bind(0); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *Buffer) coherent() bool {
	return b.MemoryProperties&gpu.MemoryPropertyHostCoherent != 0
}

// Map maps size bytes of the allocation starting at offset. size may be
// gpu.WholeSize. A buffer is never mapped twice.
func (b *Buffer) Map(offset, size uint64) ([]byte, error) {
	if b.Mapped != nil {
		return nil, errors.AssertionFailedf("buffer %d is already mapped", b.Handle)
	}
	if size == 0 {
		return nil, errors.AssertionFailedf("cannot map zero bytes of buffer %d", b.Handle)
	}
	if b.MemoryProperties&gpu.MemoryPropertyHostVisible == 0 {
		return nil, errors.AssertionFailedf("buffer %d memory is not host visible", b.Handle)
	}
	mapped, err := b.device.MapMemory(b.Memory, offset, size)
	if err != nil {
		return nil, core.WrapDriverError(err, "failed to map buffer %d", b.Handle)
	}
	b.Mapped = mapped
	return mapped, nil
}

// Unmap releases the host mapping. It does nothing when not mapped.
func (b *Buffer) Unmap() {
	if b.Mapped == nil {
		return
	}
	b.device.UnmapMemory(b.Memory)
	b.Mapped = nil
}

// Flush makes host writes visible to the device. The range is widened to the
// device's non-coherent atom size and clamped to the allocation. Host
// coherent memory needs no flush.
func (b *Buffer) Flush(offset, size uint64) error {
	if b.coherent() {
		return nil
	}
	if b.Mapped == nil {
		return errors.AssertionFailedf("flush of unmapped buffer %d", b.Handle)
	}
	atom := b.device.Limits().NonCoherentAtomSize
	if atom == 0 {
		atom = 1
	}
	start := uint64(memutils.AlignDown(int(offset), uint(atom)))
	length := gpu.WholeSize
	if size != gpu.WholeSize {
		end := uint64(memutils.AlignUp(int(offset+size), uint(atom)))
		if end > b.AllocationSize {
			end = b.AllocationSize
		}
		length = end - start
	}
	if err := b.device.FlushMappedMemory(b.Memory, start, length); err != nil {
		return core.WrapDriverError(err, "failed to flush buffer %d", b.Handle)
	}
	return nil
}

// Bind attaches the memory to the buffer at offset. Allowed exactly once.
func (b *Buffer) Bind(offset uint64) error {
	if b.bound {
		return errors.AssertionFailedf("buffer %d memory is already bound", b.Handle)
	}
	if err := b.device.BindBufferMemory(b.Handle, b.Memory, offset); err != nil {
		return core.WrapDriverError(err, "failed to bind buffer %d memory", b.Handle)
	}
	b.bound = true
	return nil
}

// Upload maps the buffer, copies data to its start, flushes and unmaps.
func (b *Buffer) Upload(data []byte) error {
	if uint64(len(data)) > b.Size {
		return errors.AssertionFailedf("upload of %d bytes exceeds buffer size %d", len(data), b.Size)
	}
	if len(data) == 0 {
		return nil
	}
	mapped, err := b.Map(0, gpu.WholeSize)
	if err != nil {
		return err
	}
	defer b.Unmap()
	copy(mapped, data)
	return b.Flush(0, uint64(len(data)))
}

// Destroy unmaps the buffer and releases the buffer and its memory. Calling it
// again does nothing.
func (b *Buffer) Destroy() {
	b.Unmap()
	if b.Handle != 0 {
		b.device.DestroyBuffer(b.Handle)
		b.Handle = 0
	}
	if b.Memory != 0 {
		b.device.FreeMemory(b.Memory)
		b.Memory = 0
	}
	b.bound = false
	b.Descriptor = gpu.DescriptorBufferInfo{}
}
