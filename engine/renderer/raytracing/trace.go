package raytracing

import (
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// TraceTarget is everything one swapchain image's command buffer draws with.
type TraceTarget struct {
	Pipeline       *RayTracingPipeline
	Descriptors    *DescriptorSet
	SBT            *ShaderBindingTable
	StorageImage   *StorageImage
	SwapchainImage gpu.ImageID
}

// RecordTraceCommands records a full frame into cmd: trace rays into the
// storage image, copy it to the swapchain image and leave the swapchain image
// ready for presentation.
func RecordTraceCommands(device gpu.Device, cmd *CommandBuffer, target TraceTarget) error {
	if err := cmd.Begin(device, false); err != nil {
		return err
	}

	extent := target.StorageImage.Extent()
	device.CmdBindRayTracingPipeline(cmd.Handle, target.Pipeline.Handle)
	device.CmdBindRayTracingDescriptorSet(cmd.Handle, target.Pipeline.Layout, target.Descriptors.Handle)
	device.CmdTraceRays(cmd.Handle, target.SBT.TraceRays(extent))

	device.CmdPipelineBarrier(cmd.Handle, gpu.PipelineBarrier{
		SrcStage: gpu.PipelineStageAllCommands,
		DstStage: gpu.PipelineStageAllCommands,
		ImageBarriers: []gpu.ImageBarrier{
			{
				Image:     target.SwapchainImage,
				OldLayout: gpu.ImageLayoutUndefined,
				NewLayout: gpu.ImageLayoutTransferDstOptimal,
				DstAccess: gpu.AccessTransferWrite,
			},
			{
				Image:     target.StorageImage.Handle,
				OldLayout: gpu.ImageLayoutGeneral,
				NewLayout: gpu.ImageLayoutTransferSrcOptimal,
				SrcAccess: gpu.AccessShaderWrite,
				DstAccess: gpu.AccessTransferRead,
			},
		},
	})

	device.CmdCopyImage(cmd.Handle, gpu.ImageCopy{
		Src:       target.StorageImage.Handle,
		SrcLayout: gpu.ImageLayoutTransferSrcOptimal,
		Dst:       target.SwapchainImage,
		DstLayout: gpu.ImageLayoutTransferDstOptimal,
		Extent:    extent,
	})

	device.CmdPipelineBarrier(cmd.Handle, gpu.PipelineBarrier{
		SrcStage: gpu.PipelineStageAllCommands,
		DstStage: gpu.PipelineStageAllCommands,
		ImageBarriers: []gpu.ImageBarrier{
			{
				Image:     target.SwapchainImage,
				OldLayout: gpu.ImageLayoutTransferDstOptimal,
				NewLayout: gpu.ImageLayoutPresentSrc,
				SrcAccess: gpu.AccessTransferWrite,
			},
			{
				Image:     target.StorageImage.Handle,
				OldLayout: gpu.ImageLayoutTransferSrcOptimal,
				NewLayout: gpu.ImageLayoutGeneral,
				SrcAccess: gpu.AccessTransferRead,
				DstAccess: gpu.AccessShaderWrite,
			},
		},
	})

	return cmd.End(device)
}
