package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if res := vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence); res != vk.Success {
		return nil, vulkanError(res, "creating fence")
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) error {
	if vf.IsSignaled {
		// If already signaled, do not wait.
		return nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("vk_fence_wait - Timed out")
	}
	return vulkanError(result, "waiting for fence")
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if !vf.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}); res != vk.Success {
		return vulkanError(res, "resetting fence")
	}
	vf.IsSignaled = false
	return nil
}

func (vc *VulkanContext) CreateFence(signaled bool) (gpu.FenceID, error) {
	fence, err := NewFence(vc, signaled)
	if err != nil {
		return 0, err
	}
	return gpu.FenceID(vc.fences.add(fence)), nil
}

func (vc *VulkanContext) DestroyFence(id gpu.FenceID) {
	if fence, ok := vc.fences.remove(uint64(id)); ok {
		fence.FenceDestroy(vc)
	}
}

func (vc *VulkanContext) WaitForFence(id gpu.FenceID, timeout uint64) error {
	fence, ok := vc.fences.get(uint64(id))
	if !ok {
		return errors.AssertionFailedf("unknown fence %d", id)
	}
	return fence.FenceWait(vc, timeout)
}

func (vc *VulkanContext) ResetFence(id gpu.FenceID) error {
	fence, ok := vc.fences.get(uint64(id))
	if !ok {
		return errors.AssertionFailedf("unknown fence %d", id)
	}
	return fence.FenceReset(vc)
}

func (vc *VulkanContext) CreateSemaphore() (gpu.SemaphoreID, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var semaphore vk.Semaphore
	if res := vk.CreateSemaphore(vc.Device.LogicalDevice, &semaphoreCreateInfo, vc.Allocator, &semaphore); res != vk.Success {
		return 0, vulkanError(res, "creating semaphore")
	}
	return gpu.SemaphoreID(vc.semaphores.add(semaphore)), nil
}

func (vc *VulkanContext) DestroySemaphore(id gpu.SemaphoreID) {
	if semaphore, ok := vc.semaphores.remove(uint64(id)); ok {
		vk.DestroySemaphore(vc.Device.LogicalDevice, semaphore, vc.Allocator)
	}
}

// markSubmitted records that a fence handed to a submission is pending.
func (vc *VulkanContext) markSubmitted(id gpu.FenceID) {
	if fence, ok := vc.fences.get(uint64(id)); ok {
		fence.IsSignaled = false
	}
}
