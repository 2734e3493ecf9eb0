package raytracing

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRING
	FRAME_STATE_SUBMITTED
	FRAME_STATE_PRESENTING
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_ACQUIRING:
		return "acquiring"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_PRESENTING:
		return "presenting"
	}
	return "unknown"
}

// FramePresentationLoop acquires a swapchain image, submits the command
// buffer prerecorded for it and presents the result, one frame per Step.
type FramePresentationLoop struct {
	device gpu.Device

	// One per swapchain image.
	CommandBuffers []*CommandBuffer
	Fences         []*Fence

	ImageAcquired  gpu.SemaphoreID
	RenderComplete gpu.SemaphoreID

	ImageIndex uint32
	State      FrameState

	// OnStateChange, when set, observes every state transition.
	OnStateChange func(from, to FrameState)
}

// NewFramePresentationLoop allocates a command buffer and a signaled fence
// per swapchain image, plus the acquire and render semaphores.
func NewFramePresentationLoop(device gpu.Device) (*FramePresentationLoop, error) {
	images := device.SwapchainImages()
	if len(images) == 0 {
		return nil, core.NewConfigurationError("swapchain has no images")
	}
	f := &FramePresentationLoop{device: device, State: FRAME_STATE_IDLE}

	buffers, err := NewCommandBuffers(device, uint32(len(images)))
	if err != nil {
		return nil, err
	}
	f.CommandBuffers = buffers

	for range images {
		fence, err := NewFence(device, true)
		if err != nil {
			f.Destroy()
			return nil, err
		}
		f.Fences = append(f.Fences, fence)
	}

	if f.ImageAcquired, err = device.CreateSemaphore(); err != nil {
		f.Destroy()
		return nil, core.WrapResourceExhausted(err, "failed to create image acquired semaphore")
	}
	if f.RenderComplete, err = device.CreateSemaphore(); err != nil {
		f.Destroy()
		return nil, core.WrapResourceExhausted(err, "failed to create render complete semaphore")
	}
	return f, nil
}

func (f *FramePresentationLoop) setState(next FrameState) {
	prev := f.State
	f.State = next
	if f.OnStateChange != nil {
		f.OnStateChange(prev, next)
	}
}

// Step renders one frame. A suboptimal swapchain is reported as a warning and
// the frame proceeds. An out-of-date swapchain skips submission and
// presentation; recreating it is not supported.
func (f *FramePresentationLoop) Step() error {
	if f.State != FRAME_STATE_IDLE {
		return errors.AssertionFailedf("frame step started in state %s", f.State)
	}

	f.setState(FRAME_STATE_ACQUIRING)
	index, err := f.device.AcquireNextImage(gpu.InfiniteTimeout, f.ImageAcquired)
	switch {
	case err == nil:
	case gpu.IsOutOfDate(err):
		core.LogWarn("swapchain is out of date, skipping frame")
		return f.finish()
	case gpu.IsSuboptimal(err):
		core.LogWarn("swapchain is suboptimal, continuing with image %d", index)
	default:
		f.setState(FRAME_STATE_IDLE)
		return core.WrapDriverError(err, "failed to acquire swapchain image")
	}
	if int(index) >= len(f.CommandBuffers) {
		f.setState(FRAME_STATE_IDLE)
		return core.NewDriverError("acquired image index %d out of range", index)
	}
	f.ImageIndex = index

	fence := f.Fences[index]
	if err := fence.Wait(f.device, gpu.InfiniteTimeout); err != nil {
		f.setState(FRAME_STATE_IDLE)
		return err
	}
	if err := fence.Reset(f.device); err != nil {
		f.setState(FRAME_STATE_IDLE)
		return err
	}

	cmd := f.CommandBuffers[index]
	submit := gpu.SubmitInfo{
		WaitSemaphores:   []gpu.SemaphoreID{f.ImageAcquired},
		WaitStages:       []gpu.PipelineStageFlags{gpu.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []gpu.CommandBufferID{cmd.Handle},
		SignalSemaphores: []gpu.SemaphoreID{f.RenderComplete},
	}
	if err := f.device.QueueSubmit(submit, fence.Handle); err != nil {
		f.setState(FRAME_STATE_IDLE)
		return core.WrapDriverError(err, "failed to submit frame command buffer")
	}
	cmd.UpdateSubmitted()
	f.setState(FRAME_STATE_SUBMITTED)

	f.setState(FRAME_STATE_PRESENTING)
	if err := f.device.QueuePresent(index, f.RenderComplete); err != nil {
		if !gpu.IsStale(err) {
			f.setState(FRAME_STATE_IDLE)
			return core.WrapDriverError(err, "failed to present swapchain image")
		}
		core.LogWarn("present reported a stale swapchain: %v", err)
	}
	return f.finish()
}

func (f *FramePresentationLoop) finish() error {
	if err := f.device.QueueWaitIdle(); err != nil {
		f.setState(FRAME_STATE_IDLE)
		return core.WrapDriverError(err, "failed to wait for queue idle")
	}
	f.setState(FRAME_STATE_IDLE)
	return nil
}

func (f *FramePresentationLoop) Destroy() {
	for _, cb := range f.CommandBuffers {
		cb.Free(f.device)
	}
	f.CommandBuffers = nil
	for _, fence := range f.Fences {
		fence.Destroy(f.device)
	}
	f.Fences = nil
	if f.ImageAcquired != 0 {
		f.device.DestroySemaphore(f.ImageAcquired)
		f.ImageAcquired = 0
	}
	if f.RenderComplete != 0 {
		f.device.DestroySemaphore(f.RenderComplete)
		f.RenderComplete = 0
	}
}
