package gputest

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type CommandKind int

const (
	CommandBuildAccelerationStructure CommandKind = iota
	CommandPipelineBarrier
	CommandBindPipeline
	CommandBindDescriptorSet
	CommandTraceRays
	CommandCopyImage
)

func (k CommandKind) String() string {
	switch k {
	case CommandBuildAccelerationStructure:
		return "build-acceleration-structure"
	case CommandPipelineBarrier:
		return "pipeline-barrier"
	case CommandBindPipeline:
		return "bind-pipeline"
	case CommandBindDescriptorSet:
		return "bind-descriptor-set"
	case CommandTraceRays:
		return "trace-rays"
	case CommandCopyImage:
		return "copy-image"
	}
	return "unknown"
}

// Command is one recorded command. Only the field matching Kind is set.
type Command struct {
	Kind     CommandKind
	Build    gpu.BuildAccelerationStructureInfo
	Barrier  gpu.PipelineBarrier
	Pipeline gpu.PipelineID
	Layout   gpu.PipelineLayoutID
	Set      gpu.DescriptorSetID
	Trace    gpu.TraceRaysInfo
	Copy     gpu.ImageCopy
}

// Kinds lists the kinds of a command sequence, for compact assertions.
func Kinds(cmds []Command) []CommandKind {
	out := make([]CommandKind, len(cmds))
	for i, c := range cmds {
		out[i] = c.Kind
	}
	return out
}

func (d *Device) AllocateCommandBuffers(count uint32) ([]gpu.CommandBufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AllocateCommandBuffers"); err != nil {
		return nil, err
	}
	out := make([]gpu.CommandBufferID, count)
	for i := range out {
		out[i] = gpu.CommandBufferID(d.id())
		d.commandBuffers[out[i]] = &commandBuffer{}
	}
	return out, nil
}

func (d *Device) FreeCommandBuffers(ids ...gpu.CommandBufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		if _, ok := d.commandBuffers[id]; !ok {
			d.violate("free of unknown command buffer %d", id)
			continue
		}
		delete(d.commandBuffers, id)
	}
}

func (d *Device) BeginCommandBuffer(id gpu.CommandBufferID, oneTimeSubmit bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("BeginCommandBuffer"); err != nil {
		return err
	}
	cb, ok := d.commandBuffers[id]
	if !ok {
		return core.NewDriverError("begin of unknown command buffer %d", id)
	}
	if cb.recording {
		d.violate("command buffer %d begun while recording", id)
	}
	cb.recording = true
	cb.begins++
	cb.commands = nil
	return nil
}

func (d *Device) EndCommandBuffer(id gpu.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.commandBuffers[id]
	if !ok {
		return core.NewDriverError("end of unknown command buffer %d", id)
	}
	if !cb.recording {
		d.violate("command buffer %d ended while not recording", id)
	}
	cb.recording = false
	return nil
}

func (d *Device) ResetCommandBuffer(id gpu.CommandBufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.commandBuffers[id]
	if !ok {
		return core.NewDriverError("reset of unknown command buffer %d", id)
	}
	cb.recording = false
	cb.commands = nil
	return nil
}

// Commands returns what was recorded into a command buffer.
func (d *Device) Commands(id gpu.CommandBufferID) []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.commandBuffers[id]
	if !ok {
		return nil
	}
	return append([]Command(nil), cb.commands...)
}

// Begins counts how often a command buffer was begun.
func (d *Device) Begins(id gpu.CommandBufferID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb, ok := d.commandBuffers[id]; ok {
		return cb.begins
	}
	return 0
}

func (d *Device) record(cmd gpu.CommandBufferID, c Command) {
	cb, ok := d.commandBuffers[cmd]
	if !ok {
		d.violate("%s recorded into unknown command buffer %d", c.Kind, cmd)
		return
	}
	if !cb.recording {
		d.violate("%s recorded into command buffer %d outside begin/end", c.Kind, cmd)
	}
	cb.commands = append(cb.commands, c)
}

func (d *Device) CmdBuildAccelerationStructure(cmd gpu.CommandBufferID, info gpu.BuildAccelerationStructureInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	dst, ok := d.structures[info.Dst]
	switch {
	case !ok:
		d.violate("build of unknown acceleration structure %d", info.Dst)
	case !dst.bound:
		d.violate("build of unbound acceleration structure %d", info.Dst)
	case dst.info.Type != info.Info.Type:
		d.violate("build of %s structure %d as %s", dst.info.Type, info.Dst, info.Info.Type)
	}
	if info.Update {
		src, ok := d.structures[info.Src]
		if !ok || !src.built {
			d.violate("update from acceleration structure %d that was never built", info.Src)
		}
		if ok && src.info.Flags&gpu.BuildAccelerationStructureAllowUpdate == 0 {
			d.violate("update of acceleration structure %d created without allow-update", info.Src)
		}
	}
	if info.Info.Type == gpu.AccelerationStructureTypeTopLevel {
		if _, ok := d.buffers[info.InstanceData]; !ok {
			d.violate("top-level build without instance buffer")
		}
	}
	scratch, ok := d.buffers[info.Scratch]
	if !ok || !scratch.bound {
		d.violate("build with unbound scratch buffer %d", info.Scratch)
	} else if dst != nil {
		kind := gpu.MemoryRequirementsBuildScratch
		if info.Update {
			kind = gpu.MemoryRequirementsUpdateScratch
		}
		if need := d.requirements(dst.info, kind).Size; scratch.size-info.ScratchOffset < need {
			d.violate("scratch buffer of %d bytes smaller than required %d", scratch.size, need)
		}
	}
	d.record(cmd, Command{Kind: CommandBuildAccelerationStructure, Build: info})
}

func (d *Device) CmdPipelineBarrier(cmd gpu.CommandBufferID, barrier gpu.PipelineBarrier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(cmd, Command{Kind: CommandPipelineBarrier, Barrier: barrier})
}

func (d *Device) CmdBindRayTracingPipeline(cmd gpu.CommandBufferID, pipeline gpu.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[pipeline]; !ok {
		d.violate("bind of unknown pipeline %d", pipeline)
	}
	d.record(cmd, Command{Kind: CommandBindPipeline, Pipeline: pipeline})
}

func (d *Device) CmdBindRayTracingDescriptorSet(cmd gpu.CommandBufferID, layout gpu.PipelineLayoutID, set gpu.DescriptorSetID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sets[set]; !ok {
		d.violate("bind of unknown descriptor set %d", set)
	}
	d.record(cmd, Command{Kind: CommandBindDescriptorSet, Layout: layout, Set: set})
}

func (d *Device) CmdTraceRays(cmd gpu.CommandBufferID, info gpu.TraceRaysInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[info.Raygen.Buffer]; !ok {
		d.violate("trace rays without shader binding table")
	}
	d.record(cmd, Command{Kind: CommandTraceRays, Trace: info})
}

func (d *Device) CmdCopyImage(cmd gpu.CommandBufferID, copy gpu.ImageCopy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if copy.SrcLayout != gpu.ImageLayoutTransferSrcOptimal && copy.SrcLayout != gpu.ImageLayoutGeneral {
		d.violate("copy source in layout %d", copy.SrcLayout)
	}
	if copy.DstLayout != gpu.ImageLayoutTransferDstOptimal && copy.DstLayout != gpu.ImageLayoutGeneral {
		d.violate("copy destination in layout %d", copy.DstLayout)
	}
	d.record(cmd, Command{Kind: CommandCopyImage, Copy: copy})
}

// Sync

func (d *Device) CreateSemaphore() (gpu.SemaphoreID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateSemaphore"); err != nil {
		return 0, err
	}
	id := gpu.SemaphoreID(d.id())
	d.semaphores[id] = false
	return id, nil
}

func (d *Device) DestroySemaphore(id gpu.SemaphoreID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.semaphores[id]; !ok {
		d.violate("destroy of unknown semaphore %d", id)
		return
	}
	delete(d.semaphores, id)
}

func (d *Device) CreateFence(signaled bool) (gpu.FenceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateFence"); err != nil {
		return 0, err
	}
	id := gpu.FenceID(d.id())
	d.fences[id] = signaled
	return id, nil
}

func (d *Device) DestroyFence(id gpu.FenceID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.fences[id]; !ok {
		d.violate("destroy of unknown fence %d", id)
		return
	}
	delete(d.fences, id)
}

func (d *Device) WaitForFence(id gpu.FenceID, timeout uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("WaitForFence"); err != nil {
		return err
	}
	signaled, ok := d.fences[id]
	if !ok {
		return core.NewDriverError("wait on unknown fence %d", id)
	}
	if !signaled {
		return gpu.ErrTimeout
	}
	return nil
}

func (d *Device) ResetFence(id gpu.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.fences[id]; !ok {
		return core.NewDriverError("reset of unknown fence %d", id)
	}
	d.fences[id] = false
	return nil
}

// Queue

func (d *Device) QueueSubmit(submit gpu.SubmitInfo, fence gpu.FenceID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("QueueSubmit"); err != nil {
		return err
	}
	if len(submit.WaitSemaphores) != len(submit.WaitStages) {
		d.violate("submit with %d wait semaphores and %d wait stages", len(submit.WaitSemaphores), len(submit.WaitStages))
	}
	for _, s := range submit.WaitSemaphores {
		signaled, ok := d.semaphores[s]
		if !ok {
			return core.NewDriverError("submit waits on unknown semaphore %d", s)
		}
		if !signaled {
			d.violate("submit waits on semaphore %d that nothing signals", s)
		}
		d.semaphores[s] = false
	}
	for _, id := range submit.CommandBuffers {
		cb, ok := d.commandBuffers[id]
		if !ok {
			return core.NewDriverError("submit of unknown command buffer %d", id)
		}
		if cb.recording {
			d.violate("command buffer %d submitted while recording", id)
		}
		for _, c := range cb.commands {
			if c.Kind != CommandBuildAccelerationStructure {
				continue
			}
			if s, ok := d.structures[c.Build.Dst]; ok {
				s.built = true
				s.builds++
			}
		}
	}
	for _, s := range submit.SignalSemaphores {
		if _, ok := d.semaphores[s]; !ok {
			return core.NewDriverError("submit signals unknown semaphore %d", s)
		}
		d.semaphores[s] = true
	}
	if fence != 0 {
		signaled, ok := d.fences[fence]
		if !ok {
			return core.NewDriverError("submit with unknown fence %d", fence)
		}
		if signaled {
			d.violate("submit with fence %d that is already signaled", fence)
		}
		d.fences[fence] = true
	}
	d.submits = append(d.submits, submit)
	return nil
}

func (d *Device) QueueWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("QueueWaitIdle"); err != nil {
		return err
	}
	d.queueIdleWaits++
	return nil
}

func (d *Device) DeviceWaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.injected("DeviceWaitIdle")
}

// Submits returns every successful queue submission.
func (d *Device) Submits() []gpu.SubmitInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.SubmitInfo(nil), d.submits...)
}

// QueueIdleWaits counts QueueWaitIdle calls.
func (d *Device) QueueIdleWaits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queueIdleWaits
}

// Presenter

func (d *Device) SwapchainImages() []gpu.ImageID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]gpu.ImageID(nil), d.swapchain...)
}

func (d *Device) SwapchainFormat() gpu.Format {
	return d.format
}

func (d *Device) SwapchainExtent() gpu.Extent2D {
	return d.extent
}

func (d *Device) AcquireNextImage(timeout uint64, signal gpu.SemaphoreID) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result error
	if len(d.AcquireResults) > 0 {
		result = d.AcquireResults[0]
		d.AcquireResults = d.AcquireResults[1:]
	}
	if result != nil && !gpu.IsSuboptimal(result) {
		return 0, result
	}
	if _, ok := d.semaphores[signal]; !ok {
		return 0, core.NewDriverError("acquire signals unknown semaphore %d", signal)
	}
	d.semaphores[signal] = true
	index := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(len(d.swapchain))
	return index, result
}

func (d *Device) QueuePresent(imageIndex uint32, wait gpu.SemaphoreID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if imageIndex >= uint32(len(d.swapchain)) {
		d.violate("present of image index %d out of range", imageIndex)
	}
	if signaled, ok := d.semaphores[wait]; !ok || !signaled {
		d.violate("present waits on semaphore %d that nothing signals", wait)
	} else {
		d.semaphores[wait] = false
	}
	d.presents = append(d.presents, imageIndex)
	if len(d.PresentResults) > 0 {
		result := d.PresentResults[0]
		d.PresentResults = d.PresentResults[1:]
		return result
	}
	return nil
}

// Presents returns the image index of every QueuePresent call.
func (d *Device) Presents() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.presents...)
}
