package raytracing

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// Descriptor bindings of the single ray tracing set.
const (
	BindingTopLevelAS uint32 = iota
	BindingStorageImage
	BindingCamera
	BindingMaterials
	BindingVertices
	BindingTime
	BindingTriangleCounts
	DescriptorBindingCount
)

// DescriptorSetLayoutBindings returns the layout of the ray tracing set.
func DescriptorSetLayoutBindings() []gpu.DescriptorSetLayoutBinding {
	return []gpu.DescriptorSetLayoutBinding{
		{Binding: BindingTopLevelAS, Type: gpu.DescriptorTypeAccelerationStructure, Count: 1, Stages: gpu.ShaderStageRaygen | gpu.ShaderStageClosestHit},
		{Binding: BindingStorageImage, Type: gpu.DescriptorTypeStorageImage, Count: 1, Stages: gpu.ShaderStageRaygen},
		{Binding: BindingCamera, Type: gpu.DescriptorTypeUniformBuffer, Count: 1, Stages: gpu.ShaderStageRaygen | gpu.ShaderStageClosestHit},
		{Binding: BindingMaterials, Type: gpu.DescriptorTypeStorageBuffer, Count: 1, Stages: gpu.ShaderStageClosestHit},
		{Binding: BindingVertices, Type: gpu.DescriptorTypeStorageBuffer, Count: 1, Stages: gpu.ShaderStageClosestHit},
		{Binding: BindingTime, Type: gpu.DescriptorTypeUniformBuffer, Count: 1, Stages: gpu.ShaderStageRaygen},
		{Binding: BindingTriangleCounts, Type: gpu.DescriptorTypeStorageBuffer, Count: 1, Stages: gpu.ShaderStageClosestHit},
	}
}

// descriptorPoolSizes counts the bindings of each type.
func descriptorPoolSizes(bindings []gpu.DescriptorSetLayoutBinding) []gpu.DescriptorPoolSize {
	var sizes []gpu.DescriptorPoolSize
	index := make(map[gpu.DescriptorType]int)
	for _, b := range bindings {
		i, ok := index[b.Type]
		if !ok {
			i = len(sizes)
			index[b.Type] = i
			sizes = append(sizes, gpu.DescriptorPoolSize{Type: b.Type})
		}
		sizes[i].Count += b.Count
	}
	return sizes
}

/**
 * @brief The descriptor set layout, its pool and the one set allocated from it.
 */
type DescriptorSet struct {
	Layout gpu.DescriptorSetLayoutID
	Pool   gpu.DescriptorPoolID
	Handle gpu.DescriptorSetID
}

// DescriptorResources are the objects bound to the ray tracing set.
type DescriptorResources struct {
	TopLevelAS     *TopLevelAS
	StorageImage   *StorageImage
	Camera         *Buffer
	Materials      *Buffer
	Vertices       *Buffer
	Time           *Buffer
	TriangleCounts *Buffer
}

func NewDescriptorSet(device gpu.Device) (*DescriptorSet, error) {
	bindings := DescriptorSetLayoutBindings()
	d := &DescriptorSet{}

	layout, err := device.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, core.WrapResourceExhausted(err, "failed to create descriptor set layout")
	}
	d.Layout = layout

	pool, err := device.CreateDescriptorPool(descriptorPoolSizes(bindings), 1)
	if err != nil {
		d.Destroy(device)
		return nil, core.WrapResourceExhausted(err, "failed to create descriptor pool")
	}
	d.Pool = pool

	set, err := device.AllocateDescriptorSet(pool, layout)
	if err != nil {
		d.Destroy(device)
		return nil, core.WrapResourceExhausted(err, "failed to allocate descriptor set")
	}
	d.Handle = set
	return d, nil
}

func bufferWrite(binding uint32, t gpu.DescriptorType, b *Buffer) gpu.DescriptorWrite {
	info := b.Descriptor
	return gpu.DescriptorWrite{Binding: binding, Type: t, Buffer: &info}
}

// Write points every binding at res.
func (d *DescriptorSet) Write(device gpu.Device, res DescriptorResources) {
	device.UpdateDescriptorSet(d.Handle, []gpu.DescriptorWrite{
		{Binding: BindingTopLevelAS, Type: gpu.DescriptorTypeAccelerationStructure, AccelerationStructure: res.TopLevelAS.Handle},
		{Binding: BindingStorageImage, Type: gpu.DescriptorTypeStorageImage, Image: &gpu.DescriptorImageInfo{View: res.StorageImage.View, Layout: gpu.ImageLayoutGeneral}},
		bufferWrite(BindingCamera, gpu.DescriptorTypeUniformBuffer, res.Camera),
		bufferWrite(BindingMaterials, gpu.DescriptorTypeStorageBuffer, res.Materials),
		bufferWrite(BindingVertices, gpu.DescriptorTypeStorageBuffer, res.Vertices),
		bufferWrite(BindingTime, gpu.DescriptorTypeUniformBuffer, res.Time),
		bufferWrite(BindingTriangleCounts, gpu.DescriptorTypeStorageBuffer, res.TriangleCounts),
	})
}

// WriteScene rebinds only the scene-derived bindings after a rebuild.
func (d *DescriptorSet) WriteScene(device gpu.Device, registry *SceneInstanceRegistry) {
	device.UpdateDescriptorSet(d.Handle, []gpu.DescriptorWrite{
		{Binding: BindingTopLevelAS, Type: gpu.DescriptorTypeAccelerationStructure, AccelerationStructure: registry.TLAS.Handle},
		bufferWrite(BindingMaterials, gpu.DescriptorTypeStorageBuffer, registry.Materials),
		bufferWrite(BindingVertices, gpu.DescriptorTypeStorageBuffer, registry.Vertices),
		bufferWrite(BindingTriangleCounts, gpu.DescriptorTypeStorageBuffer, registry.TriangleCounts),
	})
}

func (d *DescriptorSet) Destroy(device gpu.Device) {
	if d.Pool != 0 {
		device.DestroyDescriptorPool(d.Pool)
		d.Pool = 0
		d.Handle = 0
	}
	if d.Layout != 0 {
		device.DestroyDescriptorSetLayout(d.Layout)
		d.Layout = 0
	}
}
