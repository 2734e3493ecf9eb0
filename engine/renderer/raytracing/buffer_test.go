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

func TestNewBufferUploadsFlushesAndBinds(t *testing.T) {
	d := newTestDevice(t)
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	b, err := NewBuffer(d, gpu.BufferUsageStorage, gpu.MemoryPropertyHostVisible, uint64(len(data)), data)
	require.NoError(t, err)

	assert.Equal(t, data, d.BufferContents(b.Handle))
	assert.Equal(t, []gputest.FlushRange{{Offset: 0, Size: gpu.WholeSize}}, d.Flushes(b.Memory))
	assert.False(t, d.IsMapped(b.Memory))
	assert.Nil(t, b.Mapped)
	assert.Equal(t, gpu.DescriptorBufferInfo{Buffer: b.Handle, Offset: 0, Range: gpu.WholeSize}, b.Descriptor)
	assert.Equal(t, uint64(gputest.DefaultBufferAlignment), b.AllocationSize)

	b.Destroy()
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}

func TestCoherentBufferIsNeverFlushed(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageUniform, hostMemory, 16, make([]byte, 16))
	require.NoError(t, err)
	defer b.Destroy()

	require.NoError(t, b.Upload([]byte{9, 9, 9, 9}))
	assert.Empty(t, d.Flushes(b.Memory))
	assert.Equal(t, []byte{9, 9, 9, 9}, d.BufferContents(b.Handle)[:4])
	assertNoViolations(t, d)
}

func TestBufferWithoutDataIsNotMapped(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, 4096, nil)
	require.NoError(t, err)
	defer b.Destroy()

	assert.Empty(t, d.Flushes(b.Memory))
	_, err = b.Map(0, gpu.WholeSize)
	assert.Error(t, err, "device local memory is not host visible")
}

func TestBufferMapRules(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 128, nil)
	require.NoError(t, err)
	defer b.Destroy()

	_, err = b.Map(0, 0)
	assert.Error(t, err, "mapping zero bytes")

	mapped, err := b.Map(0, 64)
	require.NoError(t, err)
	assert.Len(t, mapped, 64)
	assert.True(t, d.IsMapped(b.Memory))

	_, err = b.Map(0, 64)
	assert.Error(t, err, "mapping twice")

	b.Unmap()
	b.Unmap()
	assert.False(t, d.IsMapped(b.Memory))
	assertNoViolations(t, d)
}

func TestFlushWidensToAtomSize(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, gpu.MemoryPropertyHostVisible, 1000, nil)
	require.NoError(t, err)
	defer b.Destroy()
	require.Equal(t, uint64(1024), b.AllocationSize)

	_, err = b.Map(0, gpu.WholeSize)
	require.NoError(t, err)
	require.NoError(t, b.Flush(70, 10))
	require.NoError(t, b.Flush(1000, 20))
	b.Unmap()

	assert.Equal(t, []gputest.FlushRange{
		{Offset: 64, Size: 64},
		{Offset: 960, Size: 64},
	}, d.Flushes(b.Memory))
	assertNoViolations(t, d)
}

func TestFlushOfUnmappedBufferFails(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, gpu.MemoryPropertyHostVisible, 64, nil)
	require.NoError(t, err)
	defer b.Destroy()

	assert.Error(t, b.Flush(0, gpu.WholeSize))
}

func TestBufferBindsOnce(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 64, nil)
	require.NoError(t, err)
	defer b.Destroy()

	assert.Error(t, b.Bind(0))
	assertNoViolations(t, d)
}

func TestBufferCreationErrors(t *testing.T) {
	d := newTestDevice(t)

	_, err := NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 0, nil)
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	_, err = NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 4, make([]byte, 8))
	assert.True(t, errors.Is(err, core.ErrConfiguration))

	d.MemoryBudget = 128
	_, err = NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 4096, nil)
	assert.True(t, errors.Is(err, core.ErrResourceExhausted))

	d.MemoryBudget = 0
	d.FailNext("BindBufferMemory", errors.New("VK_ERROR_OUT_OF_DEVICE_MEMORY"))
	_, err = NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 64, nil)
	assert.True(t, errors.Is(err, core.ErrDriver))

	assert.Zero(t, d.Live(), "failed creations release what they made")
	assertNoViolations(t, d)
}

func TestUploadRejectsOversizedData(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 8, nil)
	require.NoError(t, err)
	defer b.Destroy()

	assert.Error(t, b.Upload(make([]byte, 9)))
	assert.NoError(t, b.Upload(nil))
	assert.False(t, d.IsMapped(b.Memory))
}

func TestDestroyIsIdempotent(t *testing.T) {
	d := newTestDevice(t)
	b, err := NewBuffer(d, gpu.BufferUsageStorage, hostMemory, 8, nil)
	require.NoError(t, err)

	_, err = b.Map(0, gpu.WholeSize)
	require.NoError(t, err)
	b.Destroy()
	b.Destroy()
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}
