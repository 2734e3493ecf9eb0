// Package gputest provides an in-memory gpu.Device that records commands and
// checks the usage rules a validation layer would enforce.
package gputest

import (
	"fmt"
	"sync"

	"github.com/vkngwrapper/arsenal/memutils"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

const (
	DefaultAtomSize         = 64
	DefaultGroupHandleSize  = 16
	DefaultBufferAlignment  = 256
	DefaultSwapchainImages  = 3
	defaultMemoryTypeBits   = 0xF
	structureAlignment      = 256
	handleBase              = 0x00A5_0000_0000_0000
	defaultMaxInstanceCount = 1 << 24
)

type buffer struct {
	size   uint64
	usage  gpu.BufferUsageFlags
	memory gpu.MemoryID
	offset uint64
	bound  bool
}

type memory struct {
	data   []byte
	props  gpu.MemoryPropertyFlags
	mapped bool
}

// FlushRange is one FlushMappedMemory call.
type FlushRange struct {
	Offset uint64
	Size   uint64
}

type structure struct {
	info   gpu.AccelerationStructureInfo
	memory gpu.MemoryID
	bound  bool
	built  bool
	builds int
}

type image struct {
	info      gpu.ImageInfo
	bound     bool
	swapchain bool
}

type commandBuffer struct {
	recording bool
	begins    int
	commands  []Command
}

type descriptorSet struct {
	pool   gpu.DescriptorPoolID
	layout gpu.DescriptorSetLayoutID
	writes map[uint32]gpu.DescriptorWrite
}

// Device is a fake gpu.Device. The exported knobs may be set before use.
type Device struct {
	mu sync.Mutex

	limits gpu.Limits
	nextID uint64

	buffers         map[gpu.BufferID]*buffer
	memory          map[gpu.MemoryID]*memory
	flushes         map[gpu.MemoryID][]FlushRange
	structures      map[gpu.AccelerationStructureID]*structure
	images          map[gpu.ImageID]*image
	views           map[gpu.ImageViewID]gpu.ImageID
	shaders         map[gpu.ShaderModuleID][]uint32
	setLayouts      map[gpu.DescriptorSetLayoutID][]gpu.DescriptorSetLayoutBinding
	pipelineLayouts map[gpu.PipelineLayoutID][]gpu.DescriptorSetLayoutID
	pipelines       map[gpu.PipelineID]gpu.RayTracingPipelineInfo
	pools           map[gpu.DescriptorPoolID]uint32
	sets            map[gpu.DescriptorSetID]*descriptorSet
	commandBuffers  map[gpu.CommandBufferID]*commandBuffer
	semaphores      map[gpu.SemaphoreID]bool
	fences          map[gpu.FenceID]bool

	swapchain []gpu.ImageID
	extent    gpu.Extent2D
	format    gpu.Format
	nextImage uint32

	failures   map[string][]error
	violations []string

	submits        []gpu.SubmitInfo
	presents       []uint32
	queueIdleWaits int
	allocated      uint64

	// AcquireResults is consumed one entry per AcquireNextImage call. A nil
	// entry, or an exhausted slice, means success.
	AcquireResults []error
	// PresentResults is consumed one entry per QueuePresent call.
	PresentResults []error
	// MemoryBudget caps the total bytes AllocateMemory hands out. Zero means unlimited.
	MemoryBudget uint64
	// Requirements overrides the acceleration structure size model.
	Requirements func(info gpu.AccelerationStructureInfo, kind gpu.AccelerationStructureMemoryRequirementsType) gpu.MemoryRequirements
}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns a fake device with a swapchain of the given extent.
func NewDevice(width, height uint32) *Device {
	d := &Device{
		limits: gpu.Limits{
			NonCoherentAtomSize:   DefaultAtomSize,
			ShaderGroupHandleSize: DefaultGroupHandleSize,
			MaxRecursionDepth:     31,
			MaxGeometryCount:      1 << 24,
			MaxInstanceCount:      defaultMaxInstanceCount,
		},
		buffers:         make(map[gpu.BufferID]*buffer),
		memory:          make(map[gpu.MemoryID]*memory),
		flushes:         make(map[gpu.MemoryID][]FlushRange),
		structures:      make(map[gpu.AccelerationStructureID]*structure),
		images:          make(map[gpu.ImageID]*image),
		views:           make(map[gpu.ImageViewID]gpu.ImageID),
		shaders:         make(map[gpu.ShaderModuleID][]uint32),
		setLayouts:      make(map[gpu.DescriptorSetLayoutID][]gpu.DescriptorSetLayoutBinding),
		pipelineLayouts: make(map[gpu.PipelineLayoutID][]gpu.DescriptorSetLayoutID),
		pipelines:       make(map[gpu.PipelineID]gpu.RayTracingPipelineInfo),
		pools:           make(map[gpu.DescriptorPoolID]uint32),
		sets:            make(map[gpu.DescriptorSetID]*descriptorSet),
		commandBuffers:  make(map[gpu.CommandBufferID]*commandBuffer),
		semaphores:      make(map[gpu.SemaphoreID]bool),
		fences:          make(map[gpu.FenceID]bool),
		failures:        make(map[string][]error),
		extent:          gpu.Extent2D{Width: width, Height: height},
		format:          gpu.FormatB8G8R8A8Unorm,
	}
	for i := 0; i < DefaultSwapchainImages; i++ {
		id := gpu.ImageID(d.id())
		d.images[id] = &image{
			info:      gpu.ImageInfo{Format: d.format, Width: width, Height: height, Usage: gpu.ImageUsageTransferDst},
			bound:     true,
			swapchain: true,
		}
		d.swapchain = append(d.swapchain, id)
	}
	return d
}

func alignUp(value, alignment uint64) uint64 {
	return uint64(memutils.AlignUp(int(value), uint(alignment)))
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) violate(format string, args ...interface{}) {
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// SetLimits replaces the reported device limits.
func (d *Device) SetLimits(limits gpu.Limits) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.limits = limits
}

// FailNext makes the next call to method return err.
func (d *Device) FailNext(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[method] = append(d.failures[method], err)
}

func (d *Device) injected(method string) error {
	queue := d.failures[method]
	if len(queue) == 0 {
		return nil
	}
	d.failures[method] = queue[1:]
	return queue[0]
}

// Violations returns every misuse observed so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Live counts objects that were created and not yet released, swapchain
// images excluded.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers) + len(d.memory) + len(d.structures) + len(d.images) - len(d.swapchain) +
		len(d.views) + len(d.shaders) + len(d.setLayouts) + len(d.pipelineLayouts) +
		len(d.pipelines) + len(d.pools) + len(d.sets) + len(d.commandBuffers) +
		len(d.semaphores) + len(d.fences)
}

func (d *Device) Limits() gpu.Limits {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.limits
}

// Memory

func (d *Device) CreateBuffer(size uint64, usage gpu.BufferUsageFlags) (gpu.BufferID, gpu.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateBuffer"); err != nil {
		return 0, gpu.MemoryRequirements{}, err
	}
	if size == 0 {
		d.violate("buffer created with size 0")
	}
	id := gpu.BufferID(d.id())
	d.buffers[id] = &buffer{size: size, usage: usage}
	return id, gpu.MemoryRequirements{
		Size:           alignUp(size, DefaultBufferAlignment),
		Alignment:      DefaultBufferAlignment,
		MemoryTypeBits: defaultMemoryTypeBits,
	}, nil
}

func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[id]; !ok {
		d.violate("destroy of unknown buffer %d", id)
		return
	}
	delete(d.buffers, id)
}

func (d *Device) AllocateMemory(req gpu.MemoryRequirements, props gpu.MemoryPropertyFlags) (gpu.MemoryID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AllocateMemory"); err != nil {
		return 0, err
	}
	if req.MemoryTypeBits == 0 {
		return 0, core.NewResourceExhausted("no memory type satisfies properties %#x", props)
	}
	if d.MemoryBudget != 0 && d.allocated+req.Size > d.MemoryBudget {
		return 0, core.NewResourceExhausted("out of device memory allocating %d bytes", req.Size)
	}
	d.allocated += req.Size
	id := gpu.MemoryID(d.id())
	d.memory[id] = &memory{data: make([]byte, req.Size), props: props}
	return id, nil
}

func (d *Device) FreeMemory(id gpu.MemoryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memory[id]
	if !ok {
		d.violate("free of unknown memory %d", id)
		return
	}
	if m.mapped {
		d.violate("memory %d freed while mapped", id)
	}
	d.allocated -= uint64(len(m.data))
	delete(d.memory, id)
}

func (d *Device) BindBufferMemory(id gpu.BufferID, mem gpu.MemoryID, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("BindBufferMemory"); err != nil {
		return err
	}
	b, ok := d.buffers[id]
	if !ok {
		return core.NewDriverError("bind of unknown buffer %d", id)
	}
	m, ok := d.memory[mem]
	if !ok {
		return core.NewDriverError("bind to unknown memory %d", mem)
	}
	if b.bound {
		d.violate("buffer %d bound twice", id)
	}
	if offset%DefaultBufferAlignment != 0 || offset+b.size > uint64(len(m.data)) {
		d.violate("buffer %d bound at invalid offset %d", id, offset)
	}
	b.memory, b.offset, b.bound = mem, offset, true
	return nil
}

func (d *Device) MapMemory(id gpu.MemoryID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("MapMemory"); err != nil {
		return nil, err
	}
	m, ok := d.memory[id]
	if !ok {
		return nil, core.NewDriverError("map of unknown memory %d", id)
	}
	if m.props&gpu.MemoryPropertyHostVisible == 0 {
		return nil, core.NewDriverError("memory %d is not host visible", id)
	}
	if m.mapped {
		return nil, core.NewDriverError("memory %d is already mapped", id)
	}
	end := uint64(len(m.data))
	if size != gpu.WholeSize {
		end = offset + size
	}
	if offset > end || end > uint64(len(m.data)) {
		return nil, core.NewDriverError("map range [%d, %d) out of bounds", offset, end)
	}
	m.mapped = true
	return m.data[offset:end:end], nil
}

func (d *Device) UnmapMemory(id gpu.MemoryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memory[id]
	if !ok || !m.mapped {
		d.violate("unmap of memory %d that is not mapped", id)
		return
	}
	m.mapped = false
}

func (d *Device) FlushMappedMemory(id gpu.MemoryID, offset, size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("FlushMappedMemory"); err != nil {
		return err
	}
	m, ok := d.memory[id]
	if !ok || !m.mapped {
		return core.NewDriverError("flush of memory %d that is not mapped", id)
	}
	atom := d.limits.NonCoherentAtomSize
	total := uint64(len(m.data))
	if offset%atom != 0 {
		d.violate("flush offset %d not a multiple of %d", offset, atom)
	}
	if size != gpu.WholeSize && size%atom != 0 && offset+size != total {
		d.violate("flush size %d not a multiple of %d", size, atom)
	}
	if size != gpu.WholeSize && offset+size > total {
		d.violate("flush range [%d, %d) exceeds allocation of %d", offset, offset+size, total)
	}
	d.flushes[id] = append(d.flushes[id], FlushRange{Offset: offset, Size: size})
	return nil
}

// Flushes returns the flushes issued against a memory object.
func (d *Device) Flushes(id gpu.MemoryID) []FlushRange {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]FlushRange(nil), d.flushes[id]...)
}

// IsMapped reports whether the memory is currently mapped.
func (d *Device) IsMapped(id gpu.MemoryID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.memory[id]
	return ok && m.mapped
}

// BufferContents returns a copy of the memory a buffer is bound to.
func (d *Device) BufferContents(id gpu.BufferID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok || !b.bound {
		return nil
	}
	m := d.memory[b.memory]
	return append([]byte(nil), m.data[b.offset:b.offset+b.size]...)
}

// BufferUsage reports the usage flags a buffer was created with.
func (d *Device) BufferUsage(id gpu.BufferID) gpu.BufferUsageFlags {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.buffers[id]; ok {
		return b.usage
	}
	return 0
}

// Acceleration structures

func triangleCount(info gpu.AccelerationStructureInfo) uint64 {
	var n uint64
	for _, g := range info.Geometries {
		if g.Triangles.IndexType != gpu.IndexTypeNone && g.Triangles.IndexCount > 0 {
			n += uint64(g.Triangles.IndexCount / 3)
		} else {
			n += uint64(g.Triangles.VertexCount / 3)
		}
	}
	return n
}

// DefaultRequirements is the size model used when Device.Requirements is nil.
func DefaultRequirements(info gpu.AccelerationStructureInfo, kind gpu.AccelerationStructureMemoryRequirementsType) gpu.MemoryRequirements {
	var size uint64
	if info.Type == gpu.AccelerationStructureTypeBottomLevel {
		tris := triangleCount(info)
		switch kind {
		case gpu.MemoryRequirementsObject:
			size = 4096 + 128*tris
		case gpu.MemoryRequirementsBuildScratch:
			size = 2048 + 64*tris
		default:
			size = 1024 + 32*tris
		}
	} else {
		n := uint64(info.InstanceCount)
		switch kind {
		case gpu.MemoryRequirementsObject:
			size = 4096 + 64*n
		case gpu.MemoryRequirementsBuildScratch:
			size = 8192 + 128*n
		default:
			size = 4096 + 64*n
		}
	}
	return gpu.MemoryRequirements{
		Size:           alignUp(size, structureAlignment),
		Alignment:      structureAlignment,
		MemoryTypeBits: defaultMemoryTypeBits,
	}
}

func (d *Device) CreateAccelerationStructure(info gpu.AccelerationStructureInfo) (gpu.AccelerationStructureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateAccelerationStructure"); err != nil {
		return 0, err
	}
	if info.Type == gpu.AccelerationStructureTypeBottomLevel && len(info.Geometries) == 0 {
		d.violate("bottom-level structure created without geometry")
	}
	if uint64(info.InstanceCount) > d.limits.MaxInstanceCount {
		return 0, core.NewResourceExhausted("instance count %d exceeds device limit", info.InstanceCount)
	}
	id := gpu.AccelerationStructureID(d.id())
	d.structures[id] = &structure{info: info}
	return id, nil
}

func (d *Device) DestroyAccelerationStructure(id gpu.AccelerationStructureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.structures[id]; !ok {
		d.violate("destroy of unknown acceleration structure %d", id)
		return
	}
	delete(d.structures, id)
}

func (d *Device) requirements(info gpu.AccelerationStructureInfo, kind gpu.AccelerationStructureMemoryRequirementsType) gpu.MemoryRequirements {
	if d.Requirements != nil {
		return d.Requirements(info, kind)
	}
	return DefaultRequirements(info, kind)
}

func (d *Device) AccelerationStructureMemoryRequirements(id gpu.AccelerationStructureID, kind gpu.AccelerationStructureMemoryRequirementsType) (gpu.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.structures[id]
	if !ok {
		return gpu.MemoryRequirements{}, core.NewDriverError("requirements of unknown acceleration structure %d", id)
	}
	return d.requirements(s.info, kind), nil
}

func (d *Device) BindAccelerationStructureMemory(id gpu.AccelerationStructureID, mem gpu.MemoryID, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("BindAccelerationStructureMemory"); err != nil {
		return err
	}
	s, ok := d.structures[id]
	if !ok {
		return core.NewDriverError("bind of unknown acceleration structure %d", id)
	}
	m, ok := d.memory[mem]
	if !ok {
		return core.NewDriverError("bind to unknown memory %d", mem)
	}
	req := d.requirements(s.info, gpu.MemoryRequirementsObject)
	if offset+req.Size > uint64(len(m.data)) {
		d.violate("acceleration structure %d bound to memory smaller than %d bytes", id, req.Size)
	}
	s.memory, s.bound = mem, true
	return nil
}

func (d *Device) AccelerationStructureHandle(id gpu.AccelerationStructureID) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("AccelerationStructureHandle"); err != nil {
		return 0, err
	}
	s, ok := d.structures[id]
	if !ok || !s.bound {
		return 0, core.NewDriverError("handle of unbound acceleration structure %d", id)
	}
	return handleBase | uint64(id)<<8, nil
}

// Built reports whether a submitted build has completed for the structure,
// and how many builds or updates it has seen.
func (d *Device) Built(id gpu.AccelerationStructureID) (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.structures[id]
	if !ok {
		return false, 0
	}
	return s.built, s.builds
}

// Images

func (d *Device) CreateImage(info gpu.ImageInfo) (gpu.ImageID, gpu.MemoryRequirements, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateImage"); err != nil {
		return 0, gpu.MemoryRequirements{}, err
	}
	texel := uint64(4)
	if info.Format == gpu.FormatR32G32B32A32Sfloat {
		texel = 16
	}
	id := gpu.ImageID(d.id())
	d.images[id] = &image{info: info}
	return id, gpu.MemoryRequirements{
		Size:           alignUp(uint64(info.Width)*uint64(info.Height)*texel, DefaultBufferAlignment),
		Alignment:      DefaultBufferAlignment,
		MemoryTypeBits: defaultMemoryTypeBits,
	}, nil
}

func (d *Device) DestroyImage(id gpu.ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok || img.swapchain {
		d.violate("destroy of unknown or swapchain image %d", id)
		return
	}
	delete(d.images, id)
}

func (d *Device) BindImageMemory(id gpu.ImageID, mem gpu.MemoryID, offset uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok {
		return core.NewDriverError("bind of unknown image %d", id)
	}
	if _, ok := d.memory[mem]; !ok {
		return core.NewDriverError("bind to unknown memory %d", mem)
	}
	img.bound = true
	return nil
}

func (d *Device) CreateImageView(id gpu.ImageID, format gpu.Format) (gpu.ImageViewID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	img, ok := d.images[id]
	if !ok {
		return 0, core.NewDriverError("view of unknown image %d", id)
	}
	if !img.bound {
		d.violate("view created for unbound image %d", id)
	}
	if format != img.info.Format {
		d.violate("view format %d differs from image format %d", format, img.info.Format)
	}
	view := gpu.ImageViewID(d.id())
	d.views[view] = id
	return view, nil
}

func (d *Device) DestroyImageView(id gpu.ImageViewID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.views[id]; !ok {
		d.violate("destroy of unknown image view %d", id)
		return
	}
	delete(d.views, id)
}

// Pipelines

func (d *Device) CreateShaderModule(code []uint32) (gpu.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateShaderModule"); err != nil {
		return 0, err
	}
	if len(code) == 0 {
		return 0, core.NewDriverError("empty shader module")
	}
	id := gpu.ShaderModuleID(d.id())
	d.shaders[id] = code
	return id, nil
}

func (d *Device) DestroyShaderModule(id gpu.ShaderModuleID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.shaders[id]; !ok {
		d.violate("destroy of unknown shader module %d", id)
		return
	}
	delete(d.shaders, id)
}

func (d *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateDescriptorSetLayout"); err != nil {
		return 0, err
	}
	seen := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if seen[b.Binding] {
			d.violate("binding %d declared twice", b.Binding)
		}
		seen[b.Binding] = true
	}
	id := gpu.DescriptorSetLayoutID(d.id())
	d.setLayouts[id] = append([]gpu.DescriptorSetLayoutBinding(nil), bindings...)
	return id, nil
}

func (d *Device) DestroyDescriptorSetLayout(id gpu.DescriptorSetLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.setLayouts[id]; !ok {
		d.violate("destroy of unknown descriptor set layout %d", id)
		return
	}
	delete(d.setLayouts, id)
}

// SetLayoutBindings returns the bindings a layout was created with.
func (d *Device) SetLayoutBindings(id gpu.DescriptorSetLayoutID) []gpu.DescriptorSetLayoutBinding {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setLayouts[id]
}

func (d *Device) CreatePipelineLayout(setLayouts []gpu.DescriptorSetLayoutID) (gpu.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, l := range setLayouts {
		if _, ok := d.setLayouts[l]; !ok {
			return 0, core.NewDriverError("pipeline layout references unknown set layout %d", l)
		}
	}
	id := gpu.PipelineLayoutID(d.id())
	d.pipelineLayouts[id] = append([]gpu.DescriptorSetLayoutID(nil), setLayouts...)
	return id, nil
}

func (d *Device) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelineLayouts[id]; !ok {
		d.violate("destroy of unknown pipeline layout %d", id)
		return
	}
	delete(d.pipelineLayouts, id)
}

func (d *Device) CreateRayTracingPipeline(info gpu.RayTracingPipelineInfo) (gpu.PipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateRayTracingPipeline"); err != nil {
		return 0, err
	}
	if _, ok := d.pipelineLayouts[info.Layout]; !ok {
		return 0, core.NewDriverError("pipeline uses unknown layout %d", info.Layout)
	}
	if info.MaxRecursionDepth > d.limits.MaxRecursionDepth {
		d.violate("recursion depth %d exceeds limit %d", info.MaxRecursionDepth, d.limits.MaxRecursionDepth)
	}
	for i, s := range info.Stages {
		if _, ok := d.shaders[s.Module]; !ok {
			d.violate("stage %d references unknown shader module %d", i, s.Module)
		}
	}
	count := uint32(len(info.Stages))
	check := func(g int, slot string, idx uint32) {
		if idx != gpu.ShaderUnused && idx >= count {
			d.violate("group %d %s references stage %d of %d", g, slot, idx, count)
		}
	}
	for i, g := range info.Groups {
		check(i, "general", g.General)
		check(i, "closest hit", g.ClosestHit)
		check(i, "any hit", g.AnyHit)
		check(i, "intersection", g.Intersection)
	}
	id := gpu.PipelineID(d.id())
	d.pipelines[id] = info
	return id, nil
}

func (d *Device) DestroyPipeline(id gpu.PipelineID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pipelines[id]; !ok {
		d.violate("destroy of unknown pipeline %d", id)
		return
	}
	delete(d.pipelines, id)
}

// PipelineInfo returns the description a pipeline was created from.
func (d *Device) PipelineInfo(id gpu.PipelineID) gpu.RayTracingPipelineInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pipelines[id]
}

// GroupHandle returns the handle the fake reports for a pipeline group.
func (d *Device) GroupHandle(pipeline gpu.PipelineID, group uint32) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return groupHandle(pipeline, group, d.limits.ShaderGroupHandleSize)
}

func groupHandle(pipeline gpu.PipelineID, group, size uint32) []byte {
	h := make([]byte, size)
	for i := range h {
		h[i] = byte(pipeline)
	}
	h[0] = byte(group + 1)
	return h
}

func (d *Device) ShaderGroupHandles(pipeline gpu.PipelineID, firstGroup, groupCount uint32, dst []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	info, ok := d.pipelines[pipeline]
	if !ok {
		return core.NewDriverError("group handles of unknown pipeline %d", pipeline)
	}
	if firstGroup+groupCount > uint32(len(info.Groups)) {
		return core.NewDriverError("group range %d+%d exceeds %d groups", firstGroup, groupCount, len(info.Groups))
	}
	size := d.limits.ShaderGroupHandleSize
	if uint64(len(dst)) < uint64(groupCount)*uint64(size) {
		return core.NewDriverError("destination of %d bytes too small for %d handles", len(dst), groupCount)
	}
	for i := uint32(0); i < groupCount; i++ {
		copy(dst[i*size:], groupHandle(pipeline, firstGroup+i, size))
	}
	return nil
}

// Descriptors

func (d *Device) CreateDescriptorPool(sizes []gpu.DescriptorPoolSize, maxSets uint32) (gpu.DescriptorPoolID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("CreateDescriptorPool"); err != nil {
		return 0, err
	}
	id := gpu.DescriptorPoolID(d.id())
	d.pools[id] = maxSets
	return id, nil
}

func (d *Device) DestroyDescriptorPool(id gpu.DescriptorPoolID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pools[id]; !ok {
		d.violate("destroy of unknown descriptor pool %d", id)
		return
	}
	delete(d.pools, id)
	for sid, set := range d.sets {
		if set.pool == id {
			delete(d.sets, sid)
		}
	}
}

func (d *Device) AllocateDescriptorSet(pool gpu.DescriptorPoolID, layout gpu.DescriptorSetLayoutID) (gpu.DescriptorSetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	remaining, ok := d.pools[pool]
	if !ok {
		return 0, core.NewDriverError("allocation from unknown descriptor pool %d", pool)
	}
	if remaining == 0 {
		return 0, core.NewResourceExhausted("descriptor pool %d is exhausted", pool)
	}
	if _, ok := d.setLayouts[layout]; !ok {
		return 0, core.NewDriverError("allocation with unknown set layout %d", layout)
	}
	d.pools[pool] = remaining - 1
	id := gpu.DescriptorSetID(d.id())
	d.sets[id] = &descriptorSet{pool: pool, layout: layout, writes: make(map[uint32]gpu.DescriptorWrite)}
	return id, nil
}

func (d *Device) UpdateDescriptorSet(id gpu.DescriptorSetID, writes []gpu.DescriptorWrite) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.sets[id]
	if !ok {
		d.violate("update of unknown descriptor set %d", id)
		return
	}
	declared := make(map[uint32]gpu.DescriptorType)
	for _, b := range d.setLayouts[set.layout] {
		declared[b.Binding] = b.Type
	}
	for _, w := range writes {
		t, ok := declared[w.Binding]
		if !ok || t != w.Type {
			d.violate("write to binding %d does not match the set layout", w.Binding)
		}
		set.writes[w.Binding] = w
	}
}

// DescriptorWrites returns the latest write for every binding of a set.
func (d *Device) DescriptorWrites(id gpu.DescriptorSetID) map[uint32]gpu.DescriptorWrite {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[uint32]gpu.DescriptorWrite)
	if set, ok := d.sets[id]; ok {
		for k, v := range set.writes {
			out[k] = v
		}
	}
	return out
}
