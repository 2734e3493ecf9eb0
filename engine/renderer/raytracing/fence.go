package raytracing

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type Fence struct {
	Handle     gpu.FenceID
	IsSignaled bool
}

func NewFence(device gpu.Device, createSignaled bool) (*Fence, error) {
	handle, err := device.CreateFence(createSignaled)
	if err != nil {
		return nil, core.WrapResourceExhausted(err, "failed to create fence")
	}
	return &Fence{
		Handle: handle,
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}, nil
}

func (f *Fence) Destroy(device gpu.Device) {
	if f.Handle != 0 {
		device.DestroyFence(f.Handle)
		f.Handle = 0
	}
	f.IsSignaled = false
}

// Wait blocks until the fence is signaled. A fence already known to be
// signaled returns at once.
func (f *Fence) Wait(device gpu.Device, timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	err := device.WaitForFence(f.Handle, timeoutNs)
	switch {
	case err == nil:
		f.IsSignaled = true
		return nil
	case errors.Is(err, gpu.ErrTimeout):
		core.LogWarn("fence wait timed out after %dns", timeoutNs)
		return err
	default:
		return core.WrapDriverError(err, "fence wait failed")
	}
}

func (f *Fence) Reset(device gpu.Device) error {
	if !f.IsSignaled {
		return nil
	}
	if err := device.ResetFence(f.Handle); err != nil {
		return core.WrapDriverError(err, "failed to reset fence")
	}
	f.IsSignaled = false
	return nil
}
