package vulkan

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	emath "github.com/spaghettifunk/vengine/engine/math"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image

	// IDs of Images in the context's image table.
	ImageIDs []gpu.ImageID
}

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

func SwapchainCreate(context *VulkanContext, width uint32, height uint32) (*VulkanSwapchain, error) {
	return createSwapchain(context, width, height)
}

func (vs *VulkanSwapchain) SwapchainDestroy(context *VulkanContext) {
	vs.destroySwapchain(context)
}

func (vc *VulkanContext) SwapchainImages() []gpu.ImageID {
	return vc.Swapchain.ImageIDs
}

func (vc *VulkanContext) SwapchainFormat() gpu.Format {
	return gpu.Format(vc.Swapchain.ImageFormat.Format)
}

func (vc *VulkanContext) SwapchainExtent() gpu.Extent2D {
	return gpu.Extent2D{Width: vc.Swapchain.Extent.Width, Height: vc.Swapchain.Extent.Height}
}

// AcquireNextImage does not recreate a stale swapchain; the caller decides.
func (vc *VulkanContext) AcquireNextImage(timeout uint64, signal gpu.SemaphoreID) (uint32, error) {
	semaphore, ok := vc.semaphores.get(uint64(signal))
	if !ok {
		return 0, errors.AssertionFailedf("unknown semaphore %d", signal)
	}

	var imageIndex uint32
	var fence vk.Fence
	var result vk.Result
	_ = vc.locks.SafeCall(SwapchainManagement, func() error {
		result = vk.AcquireNextImage(vc.Device.LogicalDevice, vc.Swapchain.Handle, timeout, semaphore, fence, &imageIndex)
		return nil
	})

	switch result {
	case vk.Success:
		return imageIndex, nil
	case vk.Suboptimal:
		// The index is usable.
		return imageIndex, gpu.WrapStale(gpu.ErrSuboptimal, "acquiring swapchain image")
	default:
		return 0, vulkanError(result, "acquiring swapchain image")
	}
}

func (vc *VulkanContext) QueuePresent(imageIndex uint32, wait gpu.SemaphoreID) error {
	semaphore, ok := vc.semaphores.get(uint64(wait))
	if !ok {
		return errors.AssertionFailedf("unknown semaphore %d", wait)
	}

	// Return the image to the swapchain for presentation.
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vc.Swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
		PResults:           nil,
	}

	var result vk.Result
	_ = vc.locks.SafeQueueCall(uint32(vc.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(vc.Device.PresentQueue, &presentInfo)
		return nil
	})
	return vulkanError(result, "presenting swapchain image %d", imageIndex)
}

func createSwapchain(context *VulkanContext, width, height uint32) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{}
	support := &context.Device.SwapchainSupport
	if len(support.Formats) == 0 {
		return nil, core.NewConfigurationError("surface reports no formats")
	}

	// Choose a swap surface format.
	swapchain.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		// Preferred formats
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			swapchain.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	for _, mode := range support.PresentModes {
		if mode == vk.PresentModeMailbox {
			presentMode = mode
			break
		}
	}

	// Swapchain extent
	swapchainExtent := vk.Extent2D{Width: width, Height: height}
	if support.Capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchainExtent = support.Capabilities.CurrentExtent
	}

	// Clamp to the value allowed by the GPU.
	min := support.Capabilities.MinImageExtent
	max := support.Capabilities.MaxImageExtent
	swapchainExtent.Width = emath.Clamp(swapchainExtent.Width, min.Width, max.Width)
	swapchainExtent.Height = emath.Clamp(swapchainExtent.Height, min.Height, max.Height)
	swapchain.Extent = swapchainExtent

	imageCount := support.Capabilities.MinImageCount + 1
	if support.Capabilities.MaxImageCount > 0 && imageCount > support.Capabilities.MaxImageCount {
		imageCount = support.Capabilities.MaxImageCount
	}

	// The traced image is copied into the swapchain images.
	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchainExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
	}

	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchainHandle vk.Swapchain
	if res := vk.CreateSwapchain(context.Device.LogicalDevice, &swapchainCreateInfo, context.Allocator, &swapchainHandle); res != vk.Success {
		return nil, vulkanError(res, "creating swapchain")
	}
	swapchain.Handle = swapchainHandle

	// Images
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, nil); res != vk.Success {
		return nil, vulkanError(res, "getting swapchain images")
	}
	swapchain.Images = make([]vk.Image, swapchain.ImageCount)
	if res := vk.GetSwapchainImages(context.Device.LogicalDevice, swapchain.Handle, &swapchain.ImageCount, swapchain.Images); res != vk.Success {
		return nil, vulkanError(res, "getting swapchain images")
	}

	for _, image := range swapchain.Images {
		id := context.images.add(&VulkanImage{
			Handle: image,
			Format: swapchain.ImageFormat.Format,
			Width:  swapchainExtent.Width,
			Height: swapchainExtent.Height,
		})
		swapchain.ImageIDs = append(swapchain.ImageIDs, gpu.ImageID(id))
	}

	core.LogInfo("Swapchain created successfully: %d images of %dx%d.", swapchain.ImageCount, swapchainExtent.Width, swapchainExtent.Height)
	return swapchain, nil
}

func (vs *VulkanSwapchain) destroySwapchain(context *VulkanContext) {
	vk.DeviceWaitIdle(context.Device.LogicalDevice)

	// The images are owned by the swapchain and go with it.
	for _, id := range vs.ImageIDs {
		context.images.remove(uint64(id))
	}
	vs.ImageIDs = nil
	vk.DestroySwapchain(context.Device.LogicalDevice, vs.Handle, context.Allocator)
}
