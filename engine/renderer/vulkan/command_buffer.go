package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	// Command buffer state.
	State VulkanCommandBufferState
}

func (v *VulkanCommandBuffer) Free(context *VulkanContext, pool vk.CommandPool) {
	_ = context.locks.SafeCall(CommandBufferManagement, func() error {
		vk.FreeCommandBuffers(context.Device.LogicalDevice, pool, 1, []vk.CommandBuffer{v.Handle})
		return nil
	})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(isSingleUse bool) error {
	beginInfo := &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	if isSingleUse {
		beginInfo.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}

	if res := vk.BeginCommandBuffer(v.Handle, beginInfo); res != vk.Success {
		return vulkanError(res, "beginning command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if res := vk.EndCommandBuffer(v.Handle); res != vk.Success {
		return vulkanError(res, "ending command buffer")
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (vc *VulkanContext) AllocateCommandBuffers(count uint32) ([]gpu.CommandBufferID, error) {
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        vc.Device.GraphicsCommandPool,
		CommandBufferCount: count,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, count)
	err := vc.locks.SafeCall(CommandBufferManagement, func() error {
		res := vk.AllocateCommandBuffers(vc.Device.LogicalDevice, &allocateInfo, handles)
		return vulkanError(res, "allocating %d command buffers", count)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]gpu.CommandBufferID, count)
	for i, h := range handles {
		ids[i] = gpu.CommandBufferID(vc.commandBuffers.add(&VulkanCommandBuffer{
			Handle: h,
			State:  COMMAND_BUFFER_STATE_READY,
		}))
	}
	return ids, nil
}

func (vc *VulkanContext) FreeCommandBuffers(ids ...gpu.CommandBufferID) {
	for _, id := range ids {
		if cb, ok := vc.commandBuffers.remove(uint64(id)); ok {
			cb.Free(vc, vc.Device.GraphicsCommandPool)
		}
	}
}

func (vc *VulkanContext) commandBuffer(id gpu.CommandBufferID) (*VulkanCommandBuffer, error) {
	cb, ok := vc.commandBuffers.get(uint64(id))
	if !ok {
		return nil, errors.AssertionFailedf("unknown command buffer %d", id)
	}
	return cb, nil
}

func (vc *VulkanContext) BeginCommandBuffer(id gpu.CommandBufferID, oneTimeSubmit bool) error {
	cb, err := vc.commandBuffer(id)
	if err != nil {
		return err
	}
	return cb.Begin(oneTimeSubmit)
}

func (vc *VulkanContext) EndCommandBuffer(id gpu.CommandBufferID) error {
	cb, err := vc.commandBuffer(id)
	if err != nil {
		return err
	}
	return cb.End()
}

func (vc *VulkanContext) ResetCommandBuffer(id gpu.CommandBufferID) error {
	cb, err := vc.commandBuffer(id)
	if err != nil {
		return err
	}
	if res := vk.ResetCommandBuffer(cb.Handle, 0); res != vk.Success {
		return vulkanError(res, "resetting command buffer")
	}
	cb.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (vc *VulkanContext) CmdPipelineBarrier(cmd gpu.CommandBufferID, barrier gpu.PipelineBarrier) {
	cb, err := vc.commandBuffer(cmd)
	if err != nil {
		core.LogError(err.Error())
		return
	}

	memoryBarriers := make([]vk.MemoryBarrier, len(barrier.MemoryBarriers))
	for i, b := range barrier.MemoryBarriers {
		memoryBarriers[i] = vk.MemoryBarrier{
			SType:         vk.StructureTypeMemoryBarrier,
			SrcAccessMask: vk.AccessFlags(b.SrcAccess),
			DstAccessMask: vk.AccessFlags(b.DstAccess),
		}
	}

	imageBarriers := make([]vk.ImageMemoryBarrier, 0, len(barrier.ImageBarriers))
	for _, b := range barrier.ImageBarriers {
		img, ok := vc.images.get(uint64(b.Image))
		if !ok {
			core.LogError("barrier on unknown image %d", b.Image)
			continue
		}
		imageBarriers = append(imageBarriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       vk.AccessFlags(b.SrcAccess),
			DstAccessMask:       vk.AccessFlags(b.DstAccess),
			OldLayout:           vk.ImageLayout(b.OldLayout),
			NewLayout:           vk.ImageLayout(b.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               img.Handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		})
	}

	vk.CmdPipelineBarrier(
		cb.Handle,
		vk.PipelineStageFlags(barrier.SrcStage),
		vk.PipelineStageFlags(barrier.DstStage),
		0,
		uint32(len(memoryBarriers)), memoryBarriers,
		0, nil,
		uint32(len(imageBarriers)), imageBarriers)
}

func (vc *VulkanContext) CmdCopyImage(cmd gpu.CommandBufferID, imageCopy gpu.ImageCopy) {
	cb, err := vc.commandBuffer(cmd)
	if err != nil {
		core.LogError(err.Error())
		return
	}
	src, srcOK := vc.images.get(uint64(imageCopy.Src))
	dst, dstOK := vc.images.get(uint64(imageCopy.Dst))
	if !srcOK || !dstOK {
		core.LogError("copy between unknown images %d and %d", imageCopy.Src, imageCopy.Dst)
		return
	}

	subresource := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	region := vk.ImageCopy{
		SrcSubresource: subresource,
		DstSubresource: subresource,
		Extent:         vk.Extent3D{Width: imageCopy.Extent.Width, Height: imageCopy.Extent.Height, Depth: 1},
	}
	vk.CmdCopyImage(cb.Handle,
		src.Handle, vk.ImageLayout(imageCopy.SrcLayout),
		dst.Handle, vk.ImageLayout(imageCopy.DstLayout),
		1, []vk.ImageCopy{region})
}

func (vc *VulkanContext) QueueSubmit(submit gpu.SubmitInfo, fence gpu.FenceID) error {
	info := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(submit.WaitSemaphores)),
		CommandBufferCount:   uint32(len(submit.CommandBuffers)),
		SignalSemaphoreCount: uint32(len(submit.SignalSemaphores)),
	}
	for i, id := range submit.WaitSemaphores {
		s, ok := vc.semaphores.get(uint64(id))
		if !ok {
			return errors.AssertionFailedf("unknown wait semaphore %d", id)
		}
		info.PWaitSemaphores = append(info.PWaitSemaphores, s)
		info.PWaitDstStageMask = append(info.PWaitDstStageMask, vk.PipelineStageFlags(submit.WaitStages[i]))
	}
	for _, id := range submit.SignalSemaphores {
		s, ok := vc.semaphores.get(uint64(id))
		if !ok {
			return errors.AssertionFailedf("unknown signal semaphore %d", id)
		}
		info.PSignalSemaphores = append(info.PSignalSemaphores, s)
	}
	var buffers []*VulkanCommandBuffer
	for _, id := range submit.CommandBuffers {
		cb, err := vc.commandBuffer(id)
		if err != nil {
			return err
		}
		buffers = append(buffers, cb)
		info.PCommandBuffers = append(info.PCommandBuffers, cb.Handle)
	}

	var vkFence vk.Fence
	if fence != 0 {
		f, ok := vc.fences.get(uint64(fence))
		if !ok {
			return errors.AssertionFailedf("unknown fence %d", fence)
		}
		vkFence = f.Handle
	}

	err := vc.locks.SafeQueueCall(uint32(vc.Device.GraphicsQueueIndex), func() error {
		res := vk.QueueSubmit(vc.Device.GraphicsQueue, 1, []vk.SubmitInfo{info}, vkFence)
		return vulkanError(res, "submitting %d command buffers", len(buffers))
	})
	if err != nil {
		return err
	}
	for _, cb := range buffers {
		cb.State = COMMAND_BUFFER_STATE_SUBMITTED
	}
	if fence != 0 {
		vc.markSubmitted(fence)
	}
	return nil
}

func (vc *VulkanContext) QueueWaitIdle() error {
	return vc.locks.SafeQueueCall(uint32(vc.Device.GraphicsQueueIndex), func() error {
		return vulkanError(vk.QueueWaitIdle(vc.Device.GraphicsQueue), "waiting for graphics queue")
	})
}

func (vc *VulkanContext) DeviceWaitIdle() error {
	return vulkanError(vk.DeviceWaitIdle(vc.Device.LogicalDevice), "waiting for device")
}
