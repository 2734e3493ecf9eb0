package raytracing

import (
	"bytes"
	"encoding/binary"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/scene"
)

const (
	// Floats per flattened triangle corner: position, instance id, normal, padding.
	cornerFloats = 8
	CornerStride = cornerFloats * 4

	hostMemory = gpu.MemoryPropertyHostVisible | gpu.MemoryPropertyHostCoherent
)

type meshEntry struct {
	vertices *Buffer
	indices  *Buffer
	blas     *BottomLevelAS
}

func (m *meshEntry) destroy(builder *AccelerationStructureBuilder) {
	if m.blas != nil {
		builder.Destroy(&m.blas.AccelerationStructure)
	}
	m.vertices.Destroy()
	m.indices.Destroy()
}

// SceneInstanceRegistry owns the scene objects and the device buffers that
// mirror them. Every buffer is index-aligned with the object list: entry i
// belongs to the object with id i.
type SceneInstanceRegistry struct {
	device  gpu.Device
	builder *AccelerationStructureBuilder

	objects []*scene.Object
	records []InstanceRecord
	meshes  map[*scene.Mesh]*meshEntry
	// Meshes in the order their BLAS was created.
	meshOrder []*scene.Mesh

	Instances      *Buffer
	Materials      *Buffer
	TriangleCounts *Buffer
	Vertices       *Buffer
	TLAS           *TopLevelAS

	updateScratch *Buffer
	retired       []*Buffer
	dirty         bool
	generation    uint64
}

func NewSceneInstanceRegistry(device gpu.Device, builder *AccelerationStructureBuilder) *SceneInstanceRegistry {
	return &SceneInstanceRegistry{
		device:  device,
		builder: builder,
		meshes:  make(map[*scene.Mesh]*meshEntry),
	}
}

// AddObject registers object and returns its id, which is the number of
// objects registered before it. The device state is refreshed on the next
// Rebuild or UpdatePerFrame.
func (r *SceneInstanceRegistry) AddObject(object *scene.Object) (uint32, error) {
	if object == nil || object.Mesh == nil {
		return 0, core.NewConfigurationError("scene object has no mesh")
	}
	if err := object.Mesh.Validate(); err != nil {
		return 0, core.WrapConfigurationError(err, "invalid mesh for object %q", object.Name)
	}
	id := len(r.objects)
	if id > MaxInstanceID {
		return 0, core.NewResourceExhausted("instance id %d does not fit in 24 bits", id)
	}
	r.objects = append(r.objects, object)
	r.dirty = true
	core.LogDebug("object %q registered with id %d", object.Name, id)
	return uint32(id), nil
}

// Objects returns the registered objects in id order.
func (r *SceneInstanceRegistry) Objects() []*scene.Object {
	return r.objects
}

// FindObject returns the first object with the given name.
func (r *SceneInstanceRegistry) FindObject(name string) (*scene.Object, bool) {
	for _, o := range r.objects {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Records returns the instance records last written to the device.
func (r *SceneInstanceRegistry) Records() []InstanceRecord {
	return append([]InstanceRecord(nil), r.records...)
}

// Generation changes whenever a buffer or the top-level structure is
// replaced, so descriptor sets referencing them must be rewritten.
func (r *SceneInstanceRegistry) Generation() uint64 {
	return r.generation
}

// Dirty reports whether objects were added since the last rebuild.
func (r *SceneInstanceRegistry) Dirty() bool {
	return r.dirty
}

// BottomLevel returns the bottom-level structure built for mesh, or nil.
func (r *SceneInstanceRegistry) BottomLevel(mesh *scene.Mesh) *BottomLevelAS {
	if entry, ok := r.meshes[mesh]; ok {
		return entry.blas
	}
	return nil
}

// computeRecords resolves each object's bottom level from the committed
// meshes, or from pending when the mesh is still being built.
func (r *SceneInstanceRegistry) computeRecords(pending map[*scene.Mesh]*meshEntry) []InstanceRecord {
	records := make([]InstanceRecord, len(r.objects))
	for i, o := range r.objects {
		entry, ok := r.meshes[o.Mesh]
		if !ok {
			entry = pending[o.Mesh]
		}
		records[i] = NewInstanceRecord(uint32(i), o.Model(), entry.blas.DeviceHandle)
	}
	return records
}

func (r *SceneInstanceRegistry) materialBytes() []byte {
	floats := make([]float32, 0, len(r.objects)*8)
	for _, o := range r.objects {
		m := o.Material.Floats()
		floats = append(floats, m[:]...)
	}
	return littleEndian(floats)
}

func (r *SceneInstanceRegistry) triangleCountBytes() []byte {
	counts := make([]int32, len(r.objects))
	for i, o := range r.objects {
		counts[i] = int32(o.Mesh.TriangleCount())
	}
	return littleEndian(counts)
}

func (r *SceneInstanceRegistry) vertexBytes() []byte {
	var floats []float32
	for id, o := range r.objects {
		for _, v := range o.Mesh.Corners() {
			floats = append(floats,
				v.Position.X, v.Position.Y, v.Position.Z, float32(id),
				v.Normal.X, v.Normal.Y, v.Normal.Z, 0,
			)
		}
	}
	return littleEndian(floats)
}

func littleEndian(data interface{}) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, data)
	return buf.Bytes()
}

func (r *SceneInstanceRegistry) newMeshEntry(mesh *scene.Mesh) (*meshEntry, error) {
	vertices, err := NewBuffer(r.device, gpu.BufferUsageRayTracing|gpu.BufferUsageVertex, hostMemory, uint64(len(mesh.Vertices)*scene.VertexStride), mesh.VertexBytes())
	if err != nil {
		return nil, err
	}
	indices, err := NewBuffer(r.device, gpu.BufferUsageRayTracing|gpu.BufferUsageIndex, hostMemory, uint64(len(mesh.Indices)*4), mesh.IndexBytes())
	if err != nil {
		vertices.Destroy()
		return nil, err
	}
	blas, err := r.builder.BuildBLAS(TriangleGeometry(vertices, uint32(len(mesh.Vertices)), indices, uint32(len(mesh.Indices))))
	if err != nil {
		vertices.Destroy()
		indices.Destroy()
		return nil, err
	}
	return &meshEntry{vertices: vertices, indices: indices, blas: blas}, nil
}

func (r *SceneInstanceRegistry) replace(target **Buffer, usage gpu.BufferUsageFlags, data []byte) error {
	next, err := NewBuffer(r.device, usage, hostMemory, uint64(len(data)), data)
	if err != nil {
		return err
	}
	if *target != nil {
		r.retired = append(r.retired, *target)
	}
	*target = next
	return nil
}

// Rebuild creates the bottom-level structures of new meshes, writes every
// instance record into a fresh instance buffer, rebuilds the material,
// triangle count and vertex buffers, and fully builds the top-level
// structure. The recorded work is submitted and waited on before returning.
func (r *SceneInstanceRegistry) Rebuild() error {
	if len(r.objects) == 0 {
		return core.NewConfigurationError("cannot build an empty scene")
	}

	// New meshes join r.meshes only once their build has completed.
	pending := make(map[*scene.Mesh]*meshEntry)
	var pendingOrder []*scene.Mesh
	committed := false
	defer func() {
		if committed {
			return
		}
		for _, mesh := range pendingOrder {
			pending[mesh].destroy(r.builder)
		}
	}()

	var blases []*BottomLevelAS
	for _, o := range r.objects {
		if _, ok := r.meshes[o.Mesh]; ok {
			continue
		}
		if _, ok := pending[o.Mesh]; ok {
			continue
		}
		entry, err := r.newMeshEntry(o.Mesh)
		if err != nil {
			return err
		}
		pending[o.Mesh] = entry
		pendingOrder = append(pendingOrder, o.Mesh)
		blases = append(blases, entry.blas)
	}

	records := r.computeRecords(pending)
	if err := r.replace(&r.Instances, gpu.BufferUsageRayTracing, EncodeInstanceRecords(records)); err != nil {
		return err
	}
	if err := r.replace(&r.Materials, gpu.BufferUsageStorage, r.materialBytes()); err != nil {
		return err
	}
	if err := r.replace(&r.TriangleCounts, gpu.BufferUsageStorage, r.triangleCountBytes()); err != nil {
		return err
	}
	if err := r.replace(&r.Vertices, gpu.BufferUsageStorage, r.vertexBytes()); err != nil {
		return err
	}

	tlas, err := r.builder.BuildOrUpdateTLAS(records, false)
	if err != nil {
		return err
	}

	scratch, err := NewBuffer(r.device, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, ScratchSize(blases, tlas), nil)
	if err != nil {
		return err
	}
	defer scratch.Destroy()

	cmd, err := AllocateAndBeginSingleUse(r.device)
	if err != nil {
		return err
	}
	for _, blas := range blases {
		if err := r.builder.RecordBLAS(cmd.Handle, blas, scratch); err != nil {
			cmd.Free(r.device)
			return err
		}
	}
	if err := r.builder.RecordTLAS(cmd.Handle, tlas, r.Instances, scratch); err != nil {
		cmd.Free(r.device)
		return err
	}
	if err := cmd.EndSingleUse(r.device); err != nil {
		return err
	}

	for _, mesh := range pendingOrder {
		r.meshes[mesh] = pending[mesh]
	}
	r.meshOrder = append(r.meshOrder, pendingOrder...)
	committed = true

	r.records = records
	r.TLAS = tlas
	r.dirty = false
	r.generation++
	core.LogInfo("scene rebuilt: %d objects, %d meshes", len(r.objects), len(r.meshOrder))
	return nil
}

// UpdatePerFrame rewrites every instance record from the current object
// transforms and refits the top-level structure in place. Pending topology
// changes trigger a full Rebuild instead.
func (r *SceneInstanceRegistry) UpdatePerFrame() error {
	if r.dirty || r.TLAS == nil {
		return r.Rebuild()
	}

	records := r.computeRecords(nil)
	if err := r.Instances.Upload(EncodeInstanceRecords(records)); err != nil {
		return err
	}
	if err := r.Materials.Upload(r.materialBytes()); err != nil {
		return err
	}

	tlas, err := r.builder.BuildOrUpdateTLAS(records, true)
	if err != nil {
		return err
	}
	if tlas != r.TLAS {
		r.TLAS = tlas
		r.generation++
	}

	if r.updateScratch == nil || r.updateScratch.Size < tlas.ScratchSize {
		if r.updateScratch != nil {
			r.retired = append(r.retired, r.updateScratch)
		}
		r.updateScratch, err = NewBuffer(r.device, gpu.BufferUsageRayTracing, gpu.MemoryPropertyDeviceLocal, tlas.ScratchSize, nil)
		if err != nil {
			return err
		}
	}

	cmd, err := AllocateAndBeginSingleUse(r.device)
	if err != nil {
		return err
	}
	if err := r.builder.RecordTLAS(cmd.Handle, tlas, r.Instances, r.updateScratch); err != nil {
		cmd.Free(r.device)
		return err
	}
	if err := cmd.EndSingleUse(r.device); err != nil {
		return err
	}
	r.records = records
	return nil
}

// ReleaseRetired destroys buffers and top-level structures replaced by
// earlier rebuilds. The device must be idle with respect to them.
func (r *SceneInstanceRegistry) ReleaseRetired() {
	for _, b := range r.retired {
		b.Destroy()
	}
	r.retired = nil
	r.builder.ReleaseRetired()
}

// Destroy releases everything the registry created.
func (r *SceneInstanceRegistry) Destroy() {
	r.ReleaseRetired()
	for _, b := range []*Buffer{r.Instances, r.Materials, r.TriangleCounts, r.Vertices, r.updateScratch} {
		if b != nil {
			b.Destroy()
		}
	}
	r.Instances, r.Materials, r.TriangleCounts, r.Vertices, r.updateScratch = nil, nil, nil, nil, nil
	r.builder.Shutdown()
	r.TLAS = nil
	for _, mesh := range r.meshOrder {
		r.meshes[mesh].destroy(r.builder)
	}
	r.meshes = make(map[*scene.Mesh]*meshEntry)
	r.meshOrder = nil
	r.records = nil
}
