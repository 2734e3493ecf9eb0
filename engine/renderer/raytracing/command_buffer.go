package raytracing

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type CommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY CommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

func (s CommandBufferState) String() string {
	switch s {
	case COMMAND_BUFFER_STATE_READY:
		return "ready"
	case COMMAND_BUFFER_STATE_RECORDING:
		return "recording"
	case COMMAND_BUFFER_STATE_RECORDING_ENDED:
		return "recording-ended"
	case COMMAND_BUFFER_STATE_SUBMITTED:
		return "submitted"
	}
	return "not-allocated"
}

type CommandBuffer struct {
	Handle gpu.CommandBufferID
	// Command buffer state.
	State CommandBufferState
}

// NewCommandBuffer allocates one primary command buffer.
func NewCommandBuffer(device gpu.Device) (*CommandBuffer, error) {
	handles, err := device.AllocateCommandBuffers(1)
	if err != nil {
		return nil, core.WrapResourceExhausted(err, "failed to allocate command buffer")
	}
	return &CommandBuffer{Handle: handles[0], State: COMMAND_BUFFER_STATE_READY}, nil
}

// NewCommandBuffers allocates count primary command buffers, one per
// swapchain image.
func NewCommandBuffers(device gpu.Device, count uint32) ([]*CommandBuffer, error) {
	handles, err := device.AllocateCommandBuffers(count)
	if err != nil {
		return nil, core.WrapResourceExhausted(err, "failed to allocate %d command buffers", count)
	}
	out := make([]*CommandBuffer, len(handles))
	for i, h := range handles {
		out[i] = &CommandBuffer{Handle: h, State: COMMAND_BUFFER_STATE_READY}
	}
	return out, nil
}

func (c *CommandBuffer) Free(device gpu.Device) {
	if c.State == COMMAND_BUFFER_STATE_NOT_ALLOCATED {
		return
	}
	device.FreeCommandBuffers(c.Handle)
	c.Handle = 0
	c.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (c *CommandBuffer) Begin(device gpu.Device, isSingleUse bool) error {
	if c.State != COMMAND_BUFFER_STATE_READY && c.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
		return errors.AssertionFailedf("cannot begin command buffer in state %s", c.State)
	}
	if err := device.BeginCommandBuffer(c.Handle, isSingleUse); err != nil {
		return core.WrapDriverError(err, "failed to begin command buffer")
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (c *CommandBuffer) End(device gpu.Device) error {
	if c.State != COMMAND_BUFFER_STATE_RECORDING {
		return errors.AssertionFailedf("cannot end command buffer in state %s", c.State)
	}
	if err := device.EndCommandBuffer(c.Handle); err != nil {
		return core.WrapDriverError(err, "failed to end command buffer")
	}
	c.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (c *CommandBuffer) UpdateSubmitted() {
	c.State = COMMAND_BUFFER_STATE_SUBMITTED
}

func (c *CommandBuffer) Reset() {
	c.State = COMMAND_BUFFER_STATE_READY
}

/**
 * Allocates a command buffer and begins recording to it for one-time submission.
 */
func AllocateAndBeginSingleUse(device gpu.Device) (*CommandBuffer, error) {
	cb, err := NewCommandBuffer(device)
	if err != nil {
		return nil, err
	}
	if err := cb.Begin(device, true); err != nil {
		cb.Free(device)
		return nil, err
	}
	return cb, nil
}

/**
 * Ends recording, submits to the queue, waits on a fence for completion and
 * frees the command buffer.
 */
func (c *CommandBuffer) EndSingleUse(device gpu.Device) error {
	defer c.Free(device)

	if err := c.End(device); err != nil {
		return err
	}

	fence, err := NewFence(device, false)
	if err != nil {
		return err
	}
	defer fence.Destroy(device)

	if err := device.QueueSubmit(gpu.SubmitInfo{CommandBuffers: []gpu.CommandBufferID{c.Handle}}, fence.Handle); err != nil {
		return core.WrapDriverError(err, "failed to submit single use command buffer")
	}
	c.UpdateSubmitted()

	if err := fence.Wait(device, gpu.InfiniteTimeout); err != nil {
		return err
	}
	return nil
}
