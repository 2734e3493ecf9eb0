package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

func (vc *VulkanContext) CreateDescriptorPool(sizes []gpu.DescriptorPoolSize, maxSets uint32) (gpu.DescriptorPoolID, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vk.DescriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}

	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if res := vk.CreateDescriptorPool(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &pool); res != vk.Success {
		return 0, vulkanError(res, "creating descriptor pool")
	}
	return gpu.DescriptorPoolID(vc.descriptorPools.add(pool)), nil
}

// DestroyDescriptorPool also invalidates every set allocated from the pool.
func (vc *VulkanContext) DestroyDescriptorPool(id gpu.DescriptorPoolID) {
	pool, ok := vc.descriptorPools.remove(uint64(id))
	if !ok {
		return
	}
	for _, setID := range vc.descriptorSets.keys() {
		if set, ok := vc.descriptorSets.get(setID); ok && set.Pool == id {
			vc.descriptorSets.remove(setID)
		}
	}
	vk.DestroyDescriptorPool(vc.Device.LogicalDevice, pool, vc.Allocator)
}

func (vc *VulkanContext) AllocateDescriptorSet(pool gpu.DescriptorPoolID, layout gpu.DescriptorSetLayoutID) (gpu.DescriptorSetID, error) {
	p, ok := vc.descriptorPools.get(uint64(pool))
	if !ok {
		return 0, errors.AssertionFailedf("unknown descriptor pool %d", pool)
	}
	l, ok := vc.descriptorSetLayouts.get(uint64(layout))
	if !ok {
		return 0, errors.AssertionFailedf("unknown descriptor set layout %d", layout)
	}

	allocateInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{l},
	}
	var set vk.DescriptorSet
	err := vc.locks.SafeCall(DescriptorManagement, func() error {
		return vulkanError(vk.AllocateDescriptorSets(vc.Device.LogicalDevice, &allocateInfo, &set), "allocating descriptor set")
	})
	if err != nil {
		return 0, err
	}
	return gpu.DescriptorSetID(vc.descriptorSets.add(vulkanDescriptorSet{Handle: set, Pool: pool})), nil
}

func (vc *VulkanContext) UpdateDescriptorSet(set gpu.DescriptorSetID, writes []gpu.DescriptorWrite) {
	s, ok := vc.descriptorSets.get(uint64(set))
	if !ok {
		core.LogError("update of unknown descriptor set %d", set)
		return
	}

	var arena cArena
	defer arena.free()

	descriptorWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.Handle,
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorType(w.Type),
		}

		switch {
		case w.Type == gpu.DescriptorTypeAccelerationStructure:
			if err := vc.accelerationStructureWrite(&arena, &write, w.AccelerationStructure); err != nil {
				core.LogError("binding %d: %s", w.Binding, err)
				continue
			}
		case w.Image != nil:
			view, ok := vc.imageViews.get(uint64(w.Image.View))
			if !ok {
				core.LogError("binding %d: unknown image view %d", w.Binding, w.Image.View)
				continue
			}
			write.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   view,
				ImageLayout: vk.ImageLayout(w.Image.Layout),
			}}
		case w.Buffer != nil:
			b, ok := vc.buffers.get(uint64(w.Buffer.Buffer))
			if !ok {
				core.LogError("binding %d: unknown buffer %d", w.Binding, w.Buffer.Buffer)
				continue
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.Handle,
				Offset: vk.DeviceSize(w.Buffer.Offset),
				Range:  vk.DeviceSize(w.Buffer.Range),
			}}
		default:
			core.LogError("binding %d: write carries no resource", w.Binding)
			continue
		}
		descriptorWrites = append(descriptorWrites, write)
	}

	if len(descriptorWrites) > 0 {
		vk.UpdateDescriptorSets(vc.Device.LogicalDevice, uint32(len(descriptorWrites)), descriptorWrites, 0, nil)
	}
}
