package raytracing

import (
	"github.com/vkngwrapper/arsenal/memutils"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// ShaderBindingTable holds one group handle per shader group, handle i at
// offset i*HandleSize.
type ShaderBindingTable struct {
	Buffer     *Buffer
	HandleSize uint64
	GroupCount uint32
}

func NewShaderBindingTable(device gpu.Device, pipeline *RayTracingPipeline) (*ShaderBindingTable, error) {
	handleSize := device.Limits().ShaderGroupHandleSize
	if handleSize == 0 {
		return nil, core.NewConfigurationError("device reports a zero shader group handle size")
	}
	if err := memutils.CheckPow2(uint(handleSize), "shader group handle size"); err != nil {
		return nil, core.WrapConfigurationError(err, "unsupported shader binding table layout")
	}

	groupCount := uint32(len(pipeline.Groups))
	size := uint64(handleSize) * uint64(groupCount)
	handles := make([]byte, size)
	if err := device.ShaderGroupHandles(pipeline.Handle, 0, groupCount, handles); err != nil {
		return nil, core.WrapDriverError(err, "failed to get shader group handles")
	}

	buffer, err := NewBuffer(device, gpu.BufferUsageRayTracing, hostMemory, size, handles)
	if err != nil {
		return nil, err
	}
	return &ShaderBindingTable{Buffer: buffer, HandleSize: uint64(handleSize), GroupCount: groupCount}, nil
}

// Offset returns the byte offset of a group's handle.
func (s *ShaderBindingTable) Offset(group uint32) uint64 {
	return uint64(group) * s.HandleSize
}

// TraceRays describes a full-screen dispatch: raygen at group 0, misses from
// group 1 and hit groups from group 3, all strided by the handle size.
func (s *ShaderBindingTable) TraceRays(extent gpu.Extent2D) gpu.TraceRaysInfo {
	return gpu.TraceRaysInfo{
		Raygen: gpu.StridedRegion{Buffer: s.Buffer.Handle, Offset: s.Offset(GroupRaygen)},
		Miss:   gpu.StridedRegion{Buffer: s.Buffer.Handle, Offset: s.Offset(GroupMiss), Stride: s.HandleSize},
		Hit:    gpu.StridedRegion{Buffer: s.Buffer.Handle, Offset: s.Offset(GroupClosestHit), Stride: s.HandleSize},
		Width:  extent.Width,
		Height: extent.Height,
		Depth:  1,
	}
}

func (s *ShaderBindingTable) Destroy() {
	if s.Buffer != nil {
		s.Buffer.Destroy()
		s.Buffer = nil
	}
}
