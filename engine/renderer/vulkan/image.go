package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

type VulkanImage struct {
	Handle vk.Image
	Format vk.Format
	Width  uint32
	Height uint32
	// Swapchain images belong to the swapchain and are never destroyed here.
	Owned bool
}

func (vc *VulkanContext) CreateImage(info gpu.ImageInfo) (gpu.ImageID, gpu.MemoryRequirements, error) {
	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    vk.Format(info.Format),
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(info.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(vc.Device.LogicalDevice, &imageCreateInfo, vc.Allocator, &handle); res != vk.Success {
		return 0, gpu.MemoryRequirements{}, vulkanError(res, "creating %dx%d image", info.Width, info.Height)
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(vc.Device.LogicalDevice, handle, &requirements)
	requirements.Deref()

	id := vc.images.add(&VulkanImage{
		Handle: handle,
		Format: vk.Format(info.Format),
		Width:  info.Width,
		Height: info.Height,
		Owned:  true,
	})
	return gpu.ImageID(id), gpu.MemoryRequirements{
		Size:           uint64(requirements.Size),
		Alignment:      uint64(requirements.Alignment),
		MemoryTypeBits: requirements.MemoryTypeBits,
	}, nil
}

func (vc *VulkanContext) DestroyImage(id gpu.ImageID) {
	image, ok := vc.images.get(uint64(id))
	if !ok || !image.Owned {
		return
	}
	vc.images.remove(uint64(id))
	vk.DestroyImage(vc.Device.LogicalDevice, image.Handle, vc.Allocator)
}

func (vc *VulkanContext) BindImageMemory(image gpu.ImageID, memory gpu.MemoryID, offset uint64) error {
	img, ok := vc.images.get(uint64(image))
	if !ok {
		return errors.AssertionFailedf("unknown image %d", image)
	}
	m, ok := vc.memories.get(uint64(memory))
	if !ok {
		return errors.AssertionFailedf("unknown memory %d", memory)
	}
	res := vk.BindImageMemory(vc.Device.LogicalDevice, img.Handle, m.Handle, vk.DeviceSize(offset))
	return vulkanError(res, "binding image memory")
}

func (vc *VulkanContext) CreateImageView(image gpu.ImageID, format gpu.Format) (gpu.ImageViewID, error) {
	img, ok := vc.images.get(uint64(image))
	if !ok {
		return 0, errors.AssertionFailedf("unknown image %d", image)
	}
	view, err := vc.createImageView(img.Handle, vk.Format(format))
	if err != nil {
		return 0, err
	}
	return gpu.ImageViewID(vc.imageViews.add(view)), nil
}

func (vc *VulkanContext) createImageView(image vk.Image, format vk.Format) (vk.ImageView, error) {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(vc.Device.LogicalDevice, &viewCreateInfo, vc.Allocator, &view); res != vk.Success {
		return nil, vulkanError(res, "creating image view")
	}
	return view, nil
}

func (vc *VulkanContext) DestroyImageView(id gpu.ImageViewID) {
	view, ok := vc.imageViews.remove(uint64(id))
	if !ok {
		return
	}
	vk.DestroyImageView(vc.Device.LogicalDevice, view, vc.Allocator)
}
