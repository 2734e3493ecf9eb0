package raytracing

import (
	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// Shader group indices in pipeline order.
const (
	GroupRaygen uint32 = iota
	GroupMiss
	GroupShadowMiss
	GroupClosestHit
	GroupShadowHit
	ShaderGroupCount
)

// Shader stage indices in pipeline order.
const (
	StageRaygen uint32 = iota
	StageMiss
	StageShadowMiss
	StageClosestHit
	shaderStageCount
)

const MaxRecursionDepth = 1

// ShaderLoader turns a precompiled SPIR-V file into a shader module.
type ShaderLoader interface {
	LoadPrecompiledShader(path string) (gpu.ShaderModuleID, error)
}

/**
 * @brief Holds the ray tracing pipeline, its layout and the shader modules it was built from.
 */
type RayTracingPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle gpu.PipelineID
	/** @brief The pipeline layout. */
	Layout gpu.PipelineLayoutID
	/** @brief Stages in pipeline order. */
	Stages []gpu.ShaderStage
	/** @brief Groups in pipeline order. */
	Groups []gpu.ShaderGroup
}

// ShaderGroups returns the five groups: raygen, miss, shadow miss, the
// closest-hit group and the shadow hit group. The shadow hit group has no
// closest-hit shader of its own and reuses the shadow miss stage there.
func ShaderGroups() []gpu.ShaderGroup {
	general := func(stage uint32) gpu.ShaderGroup {
		return gpu.ShaderGroup{
			Type:         gpu.ShaderGroupTypeGeneral,
			General:      stage,
			ClosestHit:   gpu.ShaderUnused,
			AnyHit:       gpu.ShaderUnused,
			Intersection: gpu.ShaderUnused,
		}
	}
	hit := func(stage uint32) gpu.ShaderGroup {
		return gpu.ShaderGroup{
			Type:         gpu.ShaderGroupTypeTrianglesHitGroup,
			General:      gpu.ShaderUnused,
			ClosestHit:   stage,
			AnyHit:       gpu.ShaderUnused,
			Intersection: gpu.ShaderUnused,
		}
	}
	return []gpu.ShaderGroup{
		GroupRaygen:     general(StageRaygen),
		GroupMiss:       general(StageMiss),
		GroupShadowMiss: general(StageShadowMiss),
		GroupClosestHit: hit(StageClosestHit),
		GroupShadowHit:  hit(StageShadowMiss),
	}
}

/**
 * @brief Loads the four ray tracing shaders and creates the pipeline with the given set layout.
 */
func NewRayTracingPipeline(device gpu.Device, loader ShaderLoader, shaders core.ShaderConfig, setLayout gpu.DescriptorSetLayoutID) (*RayTracingPipeline, error) {
	sources := [shaderStageCount]struct {
		path  string
		stage gpu.ShaderStageFlags
	}{
		StageRaygen:     {shaders.Raygen, gpu.ShaderStageRaygen},
		StageMiss:       {shaders.Miss, gpu.ShaderStageMiss},
		StageShadowMiss: {shaders.ShadowMiss, gpu.ShaderStageMiss},
		StageClosestHit: {shaders.ClosestHit, gpu.ShaderStageClosestHit},
	}

	p := &RayTracingPipeline{Groups: ShaderGroups()}
	for _, src := range sources {
		module, err := loader.LoadPrecompiledShader(src.path)
		if err != nil {
			p.Destroy(device)
			return nil, err
		}
		p.Stages = append(p.Stages, gpu.ShaderStage{Stage: src.stage, Module: module, EntryPoint: "main"})
	}

	layout, err := device.CreatePipelineLayout([]gpu.DescriptorSetLayoutID{setLayout})
	if err != nil {
		p.Destroy(device)
		return nil, core.WrapResourceExhausted(err, "failed to create ray tracing pipeline layout")
	}
	p.Layout = layout

	handle, err := device.CreateRayTracingPipeline(gpu.RayTracingPipelineInfo{
		Stages:            p.Stages,
		Groups:            p.Groups,
		MaxRecursionDepth: MaxRecursionDepth,
		Layout:            layout,
	})
	if err != nil {
		p.Destroy(device)
		return nil, core.WrapDriverError(err, "failed to create ray tracing pipeline")
	}
	p.Handle = handle
	core.LogDebug("ray tracing pipeline created with %d stages and %d groups", len(p.Stages), len(p.Groups))
	return p, nil
}

func (p *RayTracingPipeline) Destroy(device gpu.Device) {
	if p.Handle != 0 {
		device.DestroyPipeline(p.Handle)
		p.Handle = 0
	}
	if p.Layout != 0 {
		device.DestroyPipelineLayout(p.Layout)
		p.Layout = 0
	}
	for _, s := range p.Stages {
		device.DestroyShaderModule(s.Module)
	}
	p.Stages = nil
}
