package raytracing

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// StorageImage is the image the raygen shader writes into before it is
// copied to the swapchain.
type StorageImage struct {
	Handle gpu.ImageID
	Memory gpu.MemoryID
	View   gpu.ImageViewID
	Format gpu.Format
	Width  uint32
	Height uint32
}

// NewStorageImage creates a device-local image matching the swapchain and
// transitions it to the GENERAL layout.
func NewStorageImage(device gpu.Device, format gpu.Format, extent gpu.Extent2D) (*StorageImage, error) {
	img := &StorageImage{Format: format, Width: extent.Width, Height: extent.Height}

	handle, req, err := device.CreateImage(gpu.ImageInfo{
		Format: format,
		Width:  extent.Width,
		Height: extent.Height,
		Usage:  gpu.ImageUsageTransferSrc | gpu.ImageUsageStorage,
	})
	if err != nil {
		return nil, core.WrapResourceExhausted(err, "failed to create storage image")
	}
	img.Handle = handle

	memory, err := device.AllocateMemory(req, gpu.MemoryPropertyDeviceLocal)
	if err != nil {
		img.Destroy(device)
		return nil, core.WrapResourceExhausted(err, "failed to allocate %d bytes for storage image", req.Size)
	}
	img.Memory = memory

	if err := device.BindImageMemory(handle, memory, 0); err != nil {
		img.Destroy(device)
		return nil, core.WrapDriverError(err, "failed to bind storage image memory")
	}

	view, err := device.CreateImageView(handle, format)
	if err != nil {
		img.Destroy(device)
		return nil, core.WrapResourceExhausted(err, "failed to create storage image view")
	}
	img.View = view

	cmd, err := AllocateAndBeginSingleUse(device)
	if err != nil {
		img.Destroy(device)
		return nil, err
	}
	device.CmdPipelineBarrier(cmd.Handle, gpu.PipelineBarrier{
		SrcStage: gpu.PipelineStageAllCommands,
		DstStage: gpu.PipelineStageAllCommands,
		ImageBarriers: []gpu.ImageBarrier{{
			Image:     handle,
			OldLayout: gpu.ImageLayoutUndefined,
			NewLayout: gpu.ImageLayoutGeneral,
		}},
	})
	if err := cmd.EndSingleUse(device); err != nil {
		img.Destroy(device)
		return nil, err
	}
	return img, nil
}

func (i *StorageImage) Extent() gpu.Extent2D {
	return gpu.Extent2D{Width: i.Width, Height: i.Height}
}

func (i *StorageImage) Destroy(device gpu.Device) {
	if i.View != 0 {
		device.DestroyImageView(i.View)
		i.View = 0
	}
	if i.Handle != 0 {
		device.DestroyImage(i.Handle)
		i.Handle = 0
	}
	if i.Memory != 0 {
		device.FreeMemory(i.Memory)
		i.Memory = 0
	}
}
