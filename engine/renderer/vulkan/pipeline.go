package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

func (vc *VulkanContext) CreateShaderModule(code []uint32) (gpu.ShaderModuleID, error) {
	if len(code) == 0 {
		return 0, core.NewConfigurationError("shader module has no code")
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if res := vk.CreateShaderModule(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &module); res != vk.Success {
		return 0, vulkanError(res, "creating shader module")
	}
	return gpu.ShaderModuleID(vc.shaderModules.add(module)), nil
}

func (vc *VulkanContext) DestroyShaderModule(id gpu.ShaderModuleID) {
	if module, ok := vc.shaderModules.remove(uint64(id)); ok {
		vk.DestroyShaderModule(vc.Device.LogicalDevice, module, vc.Allocator)
	}
}

func (vc *VulkanContext) CreateDescriptorSetLayout(bindings []gpu.DescriptorSetLayoutBinding) (gpu.DescriptorSetLayoutID, error) {
	layoutBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		layoutBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vk.DescriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(b.Stages),
		}
	}

	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(layoutBindings)),
		PBindings:    layoutBindings,
	}
	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &layout); res != vk.Success {
		return 0, vulkanError(res, "creating descriptor set layout with %d bindings", len(bindings))
	}
	return gpu.DescriptorSetLayoutID(vc.descriptorSetLayouts.add(layout)), nil
}

func (vc *VulkanContext) DestroyDescriptorSetLayout(id gpu.DescriptorSetLayoutID) {
	if layout, ok := vc.descriptorSetLayouts.remove(uint64(id)); ok {
		vk.DestroyDescriptorSetLayout(vc.Device.LogicalDevice, layout, vc.Allocator)
	}
}

func (vc *VulkanContext) CreatePipelineLayout(setLayouts []gpu.DescriptorSetLayoutID) (gpu.PipelineLayoutID, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, id := range setLayouts {
		l, ok := vc.descriptorSetLayouts.get(uint64(id))
		if !ok {
			return 0, errors.AssertionFailedf("unknown descriptor set layout %d", id)
		}
		layouts[i] = l
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(layouts)),
		PSetLayouts:    layouts,
	}
	var layout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(vc.Device.LogicalDevice, &createInfo, vc.Allocator, &layout); res != vk.Success {
		return 0, vulkanError(res, "creating pipeline layout")
	}
	return gpu.PipelineLayoutID(vc.pipelineLayouts.add(layout)), nil
}

func (vc *VulkanContext) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	if layout, ok := vc.pipelineLayouts.remove(uint64(id)); ok {
		vk.DestroyPipelineLayout(vc.Device.LogicalDevice, layout, vc.Allocator)
	}
}

func (vc *VulkanContext) DestroyPipeline(id gpu.PipelineID) {
	if p, ok := vc.pipelines.remove(uint64(id)); ok {
		vk.DestroyPipeline(vc.Device.LogicalDevice, p.Handle, vc.Allocator)
	}
}
