package raytracing

import (
	"github.com/cockroachdb/errors"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/scene"
)

// AccelerationStructure is a device acceleration structure bound to its own
// device-local allocation.
type AccelerationStructure struct {
	Handle gpu.AccelerationStructureID
	Memory gpu.MemoryID
	// Opaque 64-bit device handle, never zero once created.
	DeviceHandle uint64
	Info         gpu.AccelerationStructureInfo
	// OBJECT requirement, the size of the structure itself.
	ObjectSize        uint64
	BuildScratchSize  uint64
	UpdateScratchSize uint64
	// Scratch needed by the next recorded build in its current mode.
	ScratchSize uint64

	built bool
}

// Built reports whether a build of the structure has been recorded.
func (as *AccelerationStructure) Built() bool {
	return as.built
}

type BottomLevelAS struct {
	AccelerationStructure
	Geometry gpu.Geometry
}

type TopLevelAS struct {
	AccelerationStructure
	// Update selects an in-place refit of the previous build.
	Update bool
	// Device handles of the bottom-level structures the instances reference.
	References []uint64
}

// TriangleGeometry describes an opaque indexed triangle mesh laid out as
// scene.Vertex records.
func TriangleGeometry(vertices *Buffer, vertexCount uint32, indices *Buffer, indexCount uint32) gpu.Geometry {
	return gpu.Geometry{
		Triangles: gpu.GeometryTriangles{
			VertexData:   vertices.Handle,
			VertexOffset: 0,
			VertexCount:  vertexCount,
			VertexStride: scene.VertexStride,
			VertexFormat: gpu.FormatR32G32B32Sfloat,
			IndexData:    indices.Handle,
			IndexOffset:  0,
			IndexCount:   indexCount,
			IndexType:    gpu.IndexTypeUint32,
		},
		Flags: gpu.GeometryOpaque,
	}
}

// AccelerationStructureBuilder creates acceleration structures and records
// their builds. It keeps the current top-level structure so it can be reused
// for in-place updates.
type AccelerationStructureBuilder struct {
	device gpu.Device

	tlas     *TopLevelAS
	retired  []*TopLevelAS
	recorded map[uint64]bool
}

func NewAccelerationStructureBuilder(device gpu.Device) *AccelerationStructureBuilder {
	return &AccelerationStructureBuilder{
		device:   device,
		recorded: make(map[uint64]bool),
	}
}

func (b *AccelerationStructureBuilder) create(info gpu.AccelerationStructureInfo) (AccelerationStructure, error) {
	as := AccelerationStructure{Info: info}

	handle, err := b.device.CreateAccelerationStructure(info)
	if err != nil {
		return as, core.WrapResourceExhausted(err, "failed to create %s acceleration structure", info.Type)
	}
	as.Handle = handle

	req, err := b.device.AccelerationStructureMemoryRequirements(handle, gpu.MemoryRequirementsObject)
	if err != nil {
		b.Destroy(&as)
		return as, core.WrapDriverError(err, "failed to query acceleration structure memory requirements")
	}
	as.ObjectSize = req.Size

	memory, err := b.device.AllocateMemory(req, gpu.MemoryPropertyDeviceLocal)
	if err != nil {
		b.Destroy(&as)
		return as, core.WrapResourceExhausted(err, "failed to allocate %d bytes for acceleration structure", req.Size)
	}
	as.Memory = memory

	if err := b.device.BindAccelerationStructureMemory(handle, memory, 0); err != nil {
		b.Destroy(&as)
		return as, core.WrapDriverError(err, "failed to bind acceleration structure memory")
	}

	deviceHandle, err := b.device.AccelerationStructureHandle(handle)
	if err != nil {
		b.Destroy(&as)
		return as, core.WrapDriverError(err, "failed to get acceleration structure handle")
	}
	if deviceHandle == 0 {
		b.Destroy(&as)
		return as, core.NewDriverError("driver returned a null acceleration structure handle")
	}
	as.DeviceHandle = deviceHandle

	scratch, err := b.device.AccelerationStructureMemoryRequirements(handle, gpu.MemoryRequirementsBuildScratch)
	if err != nil {
		b.Destroy(&as)
		return as, core.WrapDriverError(err, "failed to query build scratch requirements")
	}
	as.BuildScratchSize = scratch.Size
	as.ScratchSize = scratch.Size

	if info.Flags&gpu.BuildAccelerationStructureAllowUpdate != 0 {
		update, err := b.device.AccelerationStructureMemoryRequirements(handle, gpu.MemoryRequirementsUpdateScratch)
		if err != nil {
			b.Destroy(&as)
			return as, core.WrapDriverError(err, "failed to query update scratch requirements")
		}
		as.UpdateScratchSize = update.Size
	}
	return as, nil
}

// BuildBLAS creates a bottom-level structure for one triangle geometry. Its
// build still has to be recorded with RecordBuild.
func (b *AccelerationStructureBuilder) BuildBLAS(geometry gpu.Geometry) (*BottomLevelAS, error) {
	as, err := b.create(gpu.AccelerationStructureInfo{
		Type:       gpu.AccelerationStructureTypeBottomLevel,
		Geometries: []gpu.Geometry{geometry},
	})
	if err != nil {
		return nil, err
	}
	core.LogDebug("bottom-level acceleration structure created (handle %#x, %d bytes)", as.DeviceHandle, as.ObjectSize)
	return &BottomLevelAS{AccelerationStructure: as, Geometry: geometry}, nil
}

// BuildOrUpdateTLAS returns the top-level structure for instances. The
// existing structure is reused while the instance count is unchanged, and is
// refitted in place when allowUpdate is set and it was built before. A
// replaced structure is retired until ReleaseRetired.
func (b *AccelerationStructureBuilder) BuildOrUpdateTLAS(instances []InstanceRecord, allowUpdate bool) (*TopLevelAS, error) {
	if len(instances) == 0 {
		return nil, core.NewConfigurationError("top-level acceleration structure needs at least one instance")
	}
	reused := b.tlas != nil && b.tlas.Info.InstanceCount == uint32(len(instances))
	if !reused {
		as, err := b.create(gpu.AccelerationStructureInfo{
			Type:          gpu.AccelerationStructureTypeTopLevel,
			Flags:         gpu.BuildAccelerationStructureAllowUpdate,
			InstanceCount: uint32(len(instances)),
		})
		if err != nil {
			return nil, err
		}
		if b.tlas != nil {
			b.retired = append(b.retired, b.tlas)
		}
		b.tlas = &TopLevelAS{AccelerationStructure: as}
		core.LogDebug("top-level acceleration structure created for %d instances (%d bytes)", len(instances), as.ObjectSize)
	}

	tlas := b.tlas
	tlas.Update = allowUpdate && reused && tlas.built
	if tlas.Update {
		tlas.ScratchSize = tlas.UpdateScratchSize
	} else {
		tlas.ScratchSize = tlas.BuildScratchSize
	}
	tlas.References = tlas.References[:0]
	for _, instance := range instances {
		tlas.References = append(tlas.References, instance.AccelerationStructureHandle)
	}
	return tlas, nil
}

// TopLevel returns the current top-level structure, or nil.
func (b *AccelerationStructureBuilder) TopLevel() *TopLevelAS {
	return b.tlas
}

// RecordBuild records the build of target followed by a barrier that orders
// it before any later build. instances is required for top-level builds and
// ignored otherwise.
func (b *AccelerationStructureBuilder) RecordBuild(cmd gpu.CommandBufferID, target *AccelerationStructure, instances *Buffer, scratch *Buffer, update bool, references ...uint64) error {
	if target == nil || target.Handle == 0 {
		return errors.AssertionFailedf("build of a destroyed acceleration structure")
	}
	need := target.BuildScratchSize
	if update {
		need = target.UpdateScratchSize
	}
	if scratch == nil || scratch.Size < need {
		var have uint64
		if scratch != nil {
			have = scratch.Size
		}
		return errors.AssertionFailedf("scratch buffer of %d bytes is smaller than the required %d", have, need)
	}
	if update && !target.built {
		return errors.AssertionFailedf("update of acceleration structure %d that was never built", target.Handle)
	}

	info := gpu.BuildAccelerationStructureInfo{
		Info:    target.Info,
		Update:  update,
		Dst:     target.Handle,
		Scratch: scratch.Handle,
	}
	if update {
		info.Src = target.Handle
	}
	if target.Info.Type == gpu.AccelerationStructureTypeTopLevel {
		if instances == nil {
			return errors.AssertionFailedf("top-level build without an instance buffer")
		}
		for _, handle := range references {
			if !b.recorded[handle] {
				return errors.AssertionFailedf("top-level build references bottom-level structure %#x that was never built", handle)
			}
		}
		info.InstanceData = instances.Handle
	}

	b.device.CmdBuildAccelerationStructure(cmd, info)
	b.device.CmdPipelineBarrier(cmd, gpu.PipelineBarrier{
		SrcStage: gpu.PipelineStageAccelerationStructureBuild,
		DstStage: gpu.PipelineStageAccelerationStructureBuild,
		MemoryBarriers: []gpu.MemoryBarrier{{
			SrcAccess: gpu.AccessAccelerationStructureRead | gpu.AccessAccelerationStructureWrite,
			DstAccess: gpu.AccessAccelerationStructureRead | gpu.AccessAccelerationStructureWrite,
		}},
	})

	target.built = true
	if target.Info.Type == gpu.AccelerationStructureTypeBottomLevel {
		b.recorded[target.DeviceHandle] = true
	}
	return nil
}

// RecordBLAS records the full build of a bottom-level structure.
func (b *AccelerationStructureBuilder) RecordBLAS(cmd gpu.CommandBufferID, blas *BottomLevelAS, scratch *Buffer) error {
	return b.RecordBuild(cmd, &blas.AccelerationStructure, nil, scratch, false)
}

// RecordTLAS records the build or update of a top-level structure, in the
// mode chosen by BuildOrUpdateTLAS.
func (b *AccelerationStructureBuilder) RecordTLAS(cmd gpu.CommandBufferID, tlas *TopLevelAS, instances *Buffer, scratch *Buffer) error {
	return b.RecordBuild(cmd, &tlas.AccelerationStructure, instances, scratch, tlas.Update, tlas.References...)
}

// ScratchSize returns the largest scratch requirement among the structures,
// so one scratch buffer serves all of their builds.
func ScratchSize(blases []*BottomLevelAS, tlas *TopLevelAS) uint64 {
	var size uint64
	for _, blas := range blases {
		if blas.ScratchSize > size {
			size = blas.ScratchSize
		}
	}
	if tlas != nil && tlas.ScratchSize > size {
		size = tlas.ScratchSize
	}
	return size
}

// Destroy releases the structure and its memory.
func (b *AccelerationStructureBuilder) Destroy(as *AccelerationStructure) {
	if as.Handle != 0 {
		b.device.DestroyAccelerationStructure(as.Handle)
		delete(b.recorded, as.DeviceHandle)
		as.Handle = 0
	}
	if as.Memory != 0 {
		b.device.FreeMemory(as.Memory)
		as.Memory = 0
	}
	as.DeviceHandle = 0
	as.built = false
}

// ReleaseRetired destroys top-level structures replaced by a rebuild. The
// caller must make sure the device no longer uses them.
func (b *AccelerationStructureBuilder) ReleaseRetired() {
	for _, tlas := range b.retired {
		b.Destroy(&tlas.AccelerationStructure)
	}
	b.retired = nil
}

// Shutdown destroys the current and all retired top-level structures.
func (b *AccelerationStructureBuilder) Shutdown() {
	b.ReleaseRetired()
	if b.tlas != nil {
		b.Destroy(&b.tlas.AccelerationStructure)
		b.tlas = nil
	}
}
