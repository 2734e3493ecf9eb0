package gpu

// Opaque handles returned by a Device. A zero value is never a live object.
type (
	BufferID                uint64
	MemoryID                uint64
	AccelerationStructureID uint64
	ImageID                 uint64
	ImageViewID             uint64
	ShaderModuleID          uint64
	DescriptorSetLayoutID   uint64
	PipelineLayoutID        uint64
	PipelineID              uint64
	DescriptorPoolID        uint64
	DescriptorSetID         uint64
	CommandBufferID         uint64
	SemaphoreID             uint64
	FenceID                 uint64
)

// WholeSize selects the remainder of a buffer or allocation from the given offset.
const WholeSize = ^uint64(0)

// ShaderUnused marks an empty slot in a shader group.
const ShaderUnused = ^uint32(0)

// InfiniteTimeout waits forever on fences and swapchain acquisition.
const InfiniteTimeout = ^uint64(0)

// The flag and enum values below mirror their Vulkan counterparts so the
// production device can pass them through without translation tables.

type BufferUsageFlags uint32

const (
	BufferUsageTransferSrc BufferUsageFlags = 0x00000001
	BufferUsageTransferDst BufferUsageFlags = 0x00000002
	BufferUsageUniform     BufferUsageFlags = 0x00000010
	BufferUsageStorage     BufferUsageFlags = 0x00000020
	BufferUsageIndex       BufferUsageFlags = 0x00000040
	BufferUsageVertex      BufferUsageFlags = 0x00000080
	BufferUsageRayTracing  BufferUsageFlags = 0x00000400
)

type MemoryPropertyFlags uint32

const (
	MemoryPropertyDeviceLocal  MemoryPropertyFlags = 0x00000001
	MemoryPropertyHostVisible  MemoryPropertyFlags = 0x00000002
	MemoryPropertyHostCoherent MemoryPropertyFlags = 0x00000004
	MemoryPropertyHostCached   MemoryPropertyFlags = 0x00000008
)

type ShaderStageFlags uint32

const (
	ShaderStageRaygen       ShaderStageFlags = 0x00000100
	ShaderStageAnyHit       ShaderStageFlags = 0x00000200
	ShaderStageClosestHit   ShaderStageFlags = 0x00000400
	ShaderStageMiss         ShaderStageFlags = 0x00000800
	ShaderStageIntersection ShaderStageFlags = 0x00001000
	ShaderStageCallable     ShaderStageFlags = 0x00002000
)

type PipelineStageFlags uint32

const (
	PipelineStageTopOfPipe                  PipelineStageFlags = 0x00000001
	PipelineStageColorAttachmentOutput      PipelineStageFlags = 0x00000400
	PipelineStageTransfer                   PipelineStageFlags = 0x00001000
	PipelineStageBottomOfPipe               PipelineStageFlags = 0x00002000
	PipelineStageAllCommands                PipelineStageFlags = 0x00010000
	PipelineStageRayTracingShader           PipelineStageFlags = 0x00200000
	PipelineStageAccelerationStructureBuild PipelineStageFlags = 0x02000000
)

type AccessFlags uint32

const (
	AccessShaderRead                 AccessFlags = 0x00000020
	AccessShaderWrite                AccessFlags = 0x00000040
	AccessTransferRead               AccessFlags = 0x00000800
	AccessTransferWrite              AccessFlags = 0x00001000
	AccessAccelerationStructureRead  AccessFlags = 0x00200000
	AccessAccelerationStructureWrite AccessFlags = 0x00400000
)

type ImageLayout int32

const (
	ImageLayoutUndefined          ImageLayout = 0
	ImageLayoutGeneral            ImageLayout = 1
	ImageLayoutTransferSrcOptimal ImageLayout = 6
	ImageLayoutTransferDstOptimal ImageLayout = 7
	ImageLayoutPresentSrc         ImageLayout = 1000001002
)

type ImageUsageFlags uint32

const (
	ImageUsageTransferSrc ImageUsageFlags = 0x00000001
	ImageUsageTransferDst ImageUsageFlags = 0x00000002
	ImageUsageStorage     ImageUsageFlags = 0x00000008
)

type Format int32

const (
	FormatUndefined          Format = 0
	FormatR8G8B8A8Unorm      Format = 37
	FormatB8G8R8A8Unorm      Format = 44
	FormatB8G8R8A8Srgb       Format = 50
	FormatR32G32B32Sfloat    Format = 106
	FormatR32G32B32A32Sfloat Format = 109
)

type IndexType int32

const (
	IndexTypeUint16 IndexType = 0
	IndexTypeUint32 IndexType = 1
	IndexTypeNone   IndexType = 1000165000
)

type DescriptorType int32

const (
	DescriptorTypeStorageImage          DescriptorType = 3
	DescriptorTypeUniformBuffer         DescriptorType = 6
	DescriptorTypeStorageBuffer         DescriptorType = 7
	DescriptorTypeAccelerationStructure DescriptorType = 1000165000
)

type AccelerationStructureType int32

const (
	AccelerationStructureTypeTopLevel    AccelerationStructureType = 0
	AccelerationStructureTypeBottomLevel AccelerationStructureType = 1
)

func (t AccelerationStructureType) String() string {
	if t == AccelerationStructureTypeTopLevel {
		return "top-level"
	}
	return "bottom-level"
}

type BuildAccelerationStructureFlags uint32

const (
	BuildAccelerationStructureAllowUpdate     BuildAccelerationStructureFlags = 0x00000001
	BuildAccelerationStructureAllowCompaction BuildAccelerationStructureFlags = 0x00000002
	BuildAccelerationStructurePreferFastTrace BuildAccelerationStructureFlags = 0x00000004
	BuildAccelerationStructurePreferFastBuild BuildAccelerationStructureFlags = 0x00000008
)

type GeometryFlags uint32

const (
	GeometryOpaque                      GeometryFlags = 0x00000001
	GeometryNoDuplicateAnyHitInvocation GeometryFlags = 0x00000002
)

// AccelerationStructureMemoryRequirementsType selects which requirement a
// query reports: the object itself, or scratch space for a build or update.
type AccelerationStructureMemoryRequirementsType int32

const (
	MemoryRequirementsObject        AccelerationStructureMemoryRequirementsType = 0
	MemoryRequirementsBuildScratch  AccelerationStructureMemoryRequirementsType = 1
	MemoryRequirementsUpdateScratch AccelerationStructureMemoryRequirementsType = 2
)

type ShaderGroupType int32

const (
	ShaderGroupTypeGeneral            ShaderGroupType = 0
	ShaderGroupTypeTrianglesHitGroup  ShaderGroupType = 1
	ShaderGroupTypeProceduralHitGroup ShaderGroupType = 2
)

type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// Limits holds the device properties the renderer depends on.
type Limits struct {
	NonCoherentAtomSize   uint64
	ShaderGroupHandleSize uint32
	MaxRecursionDepth     uint32
	MaxGeometryCount      uint64
	MaxInstanceCount      uint64
}

type Extent2D struct {
	Width  uint32
	Height uint32
}

type GeometryTriangles struct {
	VertexData   BufferID
	VertexOffset uint64
	VertexCount  uint32
	VertexStride uint64
	VertexFormat Format
	IndexData    BufferID
	IndexOffset  uint64
	IndexCount   uint32
	IndexType    IndexType
}

type Geometry struct {
	Triangles GeometryTriangles
	Flags     GeometryFlags
}

// AccelerationStructureInfo describes the shape of an acceleration structure.
// Bottom-level structures carry geometries, top-level ones an instance count.
type AccelerationStructureInfo struct {
	Type          AccelerationStructureType
	Flags         BuildAccelerationStructureFlags
	InstanceCount uint32
	Geometries    []Geometry
}

// BuildAccelerationStructureInfo is the argument of a recorded build. When
// Update is set, Src names the structure being refitted and is normally Dst.
type BuildAccelerationStructureInfo struct {
	Info           AccelerationStructureInfo
	InstanceData   BufferID
	InstanceOffset uint64
	Update         bool
	Dst            AccelerationStructureID
	Src            AccelerationStructureID
	Scratch        BufferID
	ScratchOffset  uint64
}

type MemoryBarrier struct {
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

type ImageBarrier struct {
	Image     ImageID
	OldLayout ImageLayout
	NewLayout ImageLayout
	SrcAccess AccessFlags
	DstAccess AccessFlags
}

type PipelineBarrier struct {
	SrcStage       PipelineStageFlags
	DstStage       PipelineStageFlags
	MemoryBarriers []MemoryBarrier
	ImageBarriers  []ImageBarrier
}

type ImageInfo struct {
	Format Format
	Width  uint32
	Height uint32
	Usage  ImageUsageFlags
}

type ShaderStage struct {
	Stage      ShaderStageFlags
	Module     ShaderModuleID
	EntryPoint string
}

// ShaderGroup references stages by their index in the pipeline stage list.
type ShaderGroup struct {
	Type         ShaderGroupType
	General      uint32
	ClosestHit   uint32
	AnyHit       uint32
	Intersection uint32
}

type RayTracingPipelineInfo struct {
	Stages            []ShaderStage
	Groups            []ShaderGroup
	MaxRecursionDepth uint32
	Layout            PipelineLayoutID
}

type DescriptorSetLayoutBinding struct {
	Binding uint32
	Type    DescriptorType
	Count   uint32
	Stages  ShaderStageFlags
}

type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

type DescriptorBufferInfo struct {
	Buffer BufferID
	Offset uint64
	Range  uint64
}

type DescriptorImageInfo struct {
	View   ImageViewID
	Layout ImageLayout
}

// DescriptorWrite updates one binding. Exactly one of Buffer, Image and
// AccelerationStructure is meaningful, depending on Type.
type DescriptorWrite struct {
	Binding               uint32
	Type                  DescriptorType
	Buffer                *DescriptorBufferInfo
	Image                 *DescriptorImageInfo
	AccelerationStructure AccelerationStructureID
}

type StridedRegion struct {
	Buffer BufferID
	Offset uint64
	Stride uint64
}

type TraceRaysInfo struct {
	Raygen   StridedRegion
	Miss     StridedRegion
	Hit      StridedRegion
	Callable StridedRegion
	Width    uint32
	Height   uint32
	Depth    uint32
}

type ImageCopy struct {
	Src       ImageID
	SrcLayout ImageLayout
	Dst       ImageID
	DstLayout ImageLayout
	Extent    Extent2D
}

type SubmitInfo struct {
	WaitSemaphores   []SemaphoreID
	WaitStages       []PipelineStageFlags
	CommandBuffers   []CommandBufferID
	SignalSemaphores []SemaphoreID
}
