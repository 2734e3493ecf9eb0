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

type transition struct{ from, to FrameState }

func newTestFrames(t *testing.T) (*gputest.Device, *FramePresentationLoop, *[]transition) {
	t.Helper()
	d := newTestDevice(t)
	f, err := NewFramePresentationLoop(d)
	require.NoError(t, err)
	var seen []transition
	f.OnStateChange = func(from, to FrameState) {
		seen = append(seen, transition{from, to})
	}
	return d, f, &seen
}

var fullFrame = []transition{
	{FRAME_STATE_IDLE, FRAME_STATE_ACQUIRING},
	{FRAME_STATE_ACQUIRING, FRAME_STATE_SUBMITTED},
	{FRAME_STATE_SUBMITTED, FRAME_STATE_PRESENTING},
	{FRAME_STATE_PRESENTING, FRAME_STATE_IDLE},
}

func TestFrameStepWalksEveryState(t *testing.T) {
	d, f, seen := newTestFrames(t)
	defer f.Destroy()

	require.NoError(t, f.Step())
	assert.Equal(t, fullFrame, *seen)
	assert.Equal(t, FRAME_STATE_IDLE, f.State)

	submits := d.Submits()
	require.Len(t, submits, 1)
	assert.Equal(t, []gpu.SemaphoreID{f.ImageAcquired}, submits[0].WaitSemaphores)
	assert.Equal(t, []gpu.PipelineStageFlags{gpu.PipelineStageColorAttachmentOutput}, submits[0].WaitStages)
	assert.Equal(t, []gpu.SemaphoreID{f.RenderComplete}, submits[0].SignalSemaphores)
	assert.Equal(t, []gpu.CommandBufferID{f.CommandBuffers[0].Handle}, submits[0].CommandBuffers)

	assert.Equal(t, []uint32{0}, d.Presents())
	assert.Equal(t, 1, d.QueueIdleWaits())
	assertNoViolations(t, d)
}

func TestFrameStepCyclesSwapchainImages(t *testing.T) {
	d, f, _ := newTestFrames(t)
	defer f.Destroy()

	for i := 0; i < 2*gputest.DefaultSwapchainImages; i++ {
		require.NoError(t, f.Step())
		assert.Equal(t, uint32(i%gputest.DefaultSwapchainImages), f.ImageIndex)
	}
	assert.Equal(t, []uint32{0, 1, 2, 0, 1, 2}, d.Presents())
	assertNoViolations(t, d)
}

func TestSuboptimalAcquireDoesNotAbortFrame(t *testing.T) {
	d, f, seen := newTestFrames(t)
	defer f.Destroy()

	d.AcquireResults = []error{gpu.ErrSuboptimal}
	require.NoError(t, f.Step())
	assert.Equal(t, fullFrame, *seen)
	assert.Len(t, d.Submits(), 1)
	assert.Len(t, d.Presents(), 1)
	assertNoViolations(t, d)
}

func TestStalePresentIsSwallowed(t *testing.T) {
	d, f, seen := newTestFrames(t)
	defer f.Destroy()

	d.PresentResults = []error{gpu.ErrSuboptimal, gpu.ErrOutOfDate}
	require.NoError(t, f.Step())
	require.NoError(t, f.Step())
	assert.Equal(t, append(append([]transition{}, fullFrame...), fullFrame...), *seen)
	assert.Equal(t, 2, d.QueueIdleWaits())
}

func TestOutOfDateAcquireSkipsSubmitAndPresent(t *testing.T) {
	d, f, seen := newTestFrames(t)
	defer f.Destroy()

	d.AcquireResults = []error{gpu.ErrOutOfDate}
	require.NoError(t, f.Step())
	assert.Equal(t, []transition{
		{FRAME_STATE_IDLE, FRAME_STATE_ACQUIRING},
		{FRAME_STATE_ACQUIRING, FRAME_STATE_IDLE},
	}, *seen)
	assert.Empty(t, d.Submits())
	assert.Empty(t, d.Presents())
	assert.Equal(t, 1, d.QueueIdleWaits())

	require.NoError(t, f.Step(), "the next frame proceeds normally")
	assert.Len(t, d.Presents(), 1)
	assertNoViolations(t, d)
}

func TestMarkedOutOfDateAcquireIsNotTreatedAsSuboptimal(t *testing.T) {
	d, f, _ := newTestFrames(t)
	defer f.Destroy()

	d.AcquireResults = []error{gpu.WrapStale(gpu.ErrOutOfDate, "acquiring swapchain image")}
	require.NoError(t, f.Step())
	assert.Empty(t, d.Submits())
	assert.Empty(t, d.Presents())
	assert.Equal(t, FRAME_STATE_IDLE, f.State)
	assertNoViolations(t, d)
}

func TestFrameErrorsAreDriverErrors(t *testing.T) {
	d, f, _ := newTestFrames(t)
	defer f.Destroy()

	d.AcquireResults = []error{errors.New("VK_ERROR_DEVICE_LOST")}
	err := f.Step()
	assert.True(t, errors.Is(err, core.ErrDriver))
	assert.Equal(t, FRAME_STATE_IDLE, f.State)

	d.FailNext("QueueSubmit", errors.New("VK_ERROR_DEVICE_LOST"))
	err = f.Step()
	assert.True(t, errors.Is(err, core.ErrDriver))
	assert.Equal(t, FRAME_STATE_IDLE, f.State)

	d.PresentResults = []error{errors.New("VK_ERROR_SURFACE_LOST_KHR")}
	err = f.Step()
	assert.True(t, errors.Is(err, core.ErrDriver))
	assert.Equal(t, FRAME_STATE_IDLE, f.State)
}

func TestFrameLoopNeedsSwapchainImages(t *testing.T) {
	d := newTestDevice(t)
	f, err := NewFramePresentationLoop(d)
	require.NoError(t, err)
	assert.Len(t, f.CommandBuffers, gputest.DefaultSwapchainImages)
	assert.Len(t, f.Fences, gputest.DefaultSwapchainImages)
	for _, fence := range f.Fences {
		assert.True(t, fence.IsSignaled)
	}
	f.Destroy()
	f.Destroy()
	assert.Zero(t, d.Live())
	assertNoViolations(t, d)
}
