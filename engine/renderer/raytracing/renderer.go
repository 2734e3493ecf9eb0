package raytracing

import (
	"encoding/binary"
	gomath "math"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
	"github.com/spaghettifunk/vengine/engine/scene"
)

// TimeUniformSize is the size of the time uniform: a single float.
const TimeUniformSize = 4

/**
 * @brief Owns every GPU object of the ray traced scene and drives one frame
 * per DrawFrame call.
 */
type Renderer struct {
	device  gpu.Device
	loader  ShaderLoader
	shaders core.ShaderConfig

	Builder      *AccelerationStructureBuilder
	Registry     *SceneInstanceRegistry
	StorageImage *StorageImage
	Descriptors  *DescriptorSet
	Pipeline     *RayTracingPipeline
	SBT          *ShaderBindingTable
	Frames       *FramePresentationLoop

	CameraBuffer *Buffer
	TimeBuffer   *Buffer

	time       float32
	generation uint64
	ready      bool
}

func NewRenderer(device gpu.Device, loader ShaderLoader, shaders core.ShaderConfig) *Renderer {
	builder := NewAccelerationStructureBuilder(device)
	return &Renderer{
		device:   device,
		loader:   loader,
		shaders:  shaders,
		Builder:  builder,
		Registry: NewSceneInstanceRegistry(device, builder),
		time:     1,
	}
}

// AddObject registers an object with the scene. Objects added after Setup are
// picked up by the next DrawFrame.
func (r *Renderer) AddObject(object *scene.Object) (uint32, error) {
	return r.Registry.AddObject(object)
}

// Time returns the value last written to the time uniform.
func (r *Renderer) Time() float32 {
	return r.time
}

// Setup builds the scene, creates the pipeline and records one trace command
// buffer per swapchain image.
func (r *Renderer) Setup(camera scene.CameraUniform) error {
	if r.ready {
		return core.NewConfigurationError("renderer is already set up")
	}
	if err := r.Registry.Rebuild(); err != nil {
		return err
	}
	r.generation = r.Registry.Generation()

	var err error
	if r.StorageImage, err = NewStorageImage(r.device, r.device.SwapchainFormat(), r.device.SwapchainExtent()); err != nil {
		return err
	}
	if r.CameraBuffer, err = NewBuffer(r.device, gpu.BufferUsageUniform, hostMemory, scene.CameraUniformSize, camera.Bytes()); err != nil {
		return err
	}
	if r.TimeBuffer, err = NewBuffer(r.device, gpu.BufferUsageUniform, hostMemory, TimeUniformSize, timeBytes(r.time)); err != nil {
		return err
	}

	if r.Descriptors, err = NewDescriptorSet(r.device); err != nil {
		return err
	}
	r.Descriptors.Write(r.device, DescriptorResources{
		TopLevelAS:     r.Registry.TLAS,
		StorageImage:   r.StorageImage,
		Camera:         r.CameraBuffer,
		Materials:      r.Registry.Materials,
		Vertices:       r.Registry.Vertices,
		Time:           r.TimeBuffer,
		TriangleCounts: r.Registry.TriangleCounts,
	})

	if r.Pipeline, err = NewRayTracingPipeline(r.device, r.loader, r.shaders, r.Descriptors.Layout); err != nil {
		return err
	}
	if r.SBT, err = NewShaderBindingTable(r.device, r.Pipeline); err != nil {
		return err
	}
	if r.Frames, err = NewFramePresentationLoop(r.device); err != nil {
		return err
	}
	if err := r.recordCommandBuffers(); err != nil {
		return err
	}

	r.ready = true
	core.LogInfo("ray tracing renderer ready: %d swapchain images", len(r.Frames.CommandBuffers))
	return nil
}

func (r *Renderer) recordCommandBuffers() error {
	for i, image := range r.device.SwapchainImages() {
		cmd := r.Frames.CommandBuffers[i]
		if cmd.State != COMMAND_BUFFER_STATE_READY {
			if err := r.device.ResetCommandBuffer(cmd.Handle); err != nil {
				return core.WrapDriverError(err, "failed to reset frame command buffer")
			}
			cmd.Reset()
		}
		err := RecordTraceCommands(r.device, cmd, TraceTarget{
			Pipeline:       r.Pipeline,
			Descriptors:    r.Descriptors,
			SBT:            r.SBT,
			StorageImage:   r.StorageImage,
			SwapchainImage: image,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// DrawFrame refits the scene from the current object transforms and renders
// one frame.
func (r *Renderer) DrawFrame() error {
	if !r.ready {
		return core.NewConfigurationError("renderer is not set up")
	}
	if err := r.Registry.UpdatePerFrame(); err != nil {
		return err
	}
	if g := r.Registry.Generation(); g != r.generation {
		r.Descriptors.WriteScene(r.device, r.Registry)
		// The recorded frames bound the set before it was rewritten.
		if err := r.recordCommandBuffers(); err != nil {
			return err
		}
		r.generation = g
	}
	if err := r.Frames.Step(); err != nil {
		return err
	}
	// Step waits for the queue to drain.
	r.Registry.ReleaseRetired()
	return nil
}

func (r *Renderer) UpdateCamera(uniform scene.CameraUniform) error {
	if r.CameraBuffer == nil {
		return core.NewConfigurationError("camera buffer is not created")
	}
	return r.CameraBuffer.Upload(uniform.Bytes())
}

// UpdateTime advances the time uniform by delta, wrapping back to 0.001 once
// it passes 1.
func (r *Renderer) UpdateTime(delta float32) error {
	r.time += delta
	if r.time > 1 {
		r.time = 0.001
	}
	if r.TimeBuffer == nil {
		return nil
	}
	return r.TimeBuffer.Upload(timeBytes(r.time))
}

func timeBytes(t float32) []byte {
	b := make([]byte, TimeUniformSize)
	binary.LittleEndian.PutUint32(b, gomath.Float32bits(t))
	return b
}

// Shutdown waits for the device and destroys everything in reverse creation
// order. It is safe to call on a partially set up renderer.
func (r *Renderer) Shutdown() {
	if err := r.device.DeviceWaitIdle(); err != nil {
		core.LogError("failed to wait for device idle: %v", err)
	}
	if r.Frames != nil {
		r.Frames.Destroy()
		r.Frames = nil
	}
	if r.SBT != nil {
		r.SBT.Destroy()
		r.SBT = nil
	}
	if r.Pipeline != nil {
		r.Pipeline.Destroy(r.device)
		r.Pipeline = nil
	}
	if r.Descriptors != nil {
		r.Descriptors.Destroy(r.device)
		r.Descriptors = nil
	}
	if r.TimeBuffer != nil {
		r.TimeBuffer.Destroy()
		r.TimeBuffer = nil
	}
	if r.CameraBuffer != nil {
		r.CameraBuffer.Destroy()
		r.CameraBuffer = nil
	}
	if r.StorageImage != nil {
		r.StorageImage.Destroy(r.device)
		r.StorageImage = nil
	}
	r.Registry.Destroy()
	r.Builder.Shutdown()
	r.ready = false
}
