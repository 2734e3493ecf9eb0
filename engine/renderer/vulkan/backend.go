package vulkan

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/platform"
)

const (
	engineName          = "vengine"
	validationLayerName = "VK_LAYER_KHRONOS_validation"
)

// New boots the instance, the surface of the platform window, the logical
// device and the swapchain. The returned context implements gpu.Device.
func New(p *platform.Platform, appName string, width, height uint32, debug bool) (*VulkanContext, error) {
	if err := loadVulkan(); err != nil {
		return nil, err
	}

	context := newVulkanContext(width, height)

	// The window system reports VK_KHR_surface together with its platform surface.
	if err := createInstance(context, appName, p.GetRequiredExtensionNames(), debug); err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan Instance created.")

	if debug {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(context.Instance, &debugCreateInfo, context.Allocator, &dbg); res != vk.Success {
			context.destroyInstance()
			return nil, vulkanError(res, "creating debug report callback")
		}
		context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := p.Window.CreateWindowSurface(context.Instance, nil)
	if err != nil {
		context.destroyInstance()
		return nil, core.WrapDriverError(err, "creating window surface")
	}
	context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	if err := DeviceCreate(context); err != nil {
		context.destroyInstance()
		return nil, err
	}

	sc, err := SwapchainCreate(context, context.FramebufferWidth, context.FramebufferHeight)
	if err != nil {
		DeviceDestroy(context)
		context.destroyInstance()
		return nil, err
	}
	context.Swapchain = sc

	core.LogInfo("Vulkan renderer initialized successfully.")
	return context, nil
}

// Shutdown destroys in the opposite order of creation. Objects the caller
// did not release are destroyed with a warning.
func (vc *VulkanContext) Shutdown() {
	if err := vc.DeviceWaitIdle(); err != nil {
		core.LogWarn("waiting for device before shutdown: %s", err)
	}

	if vc.Swapchain != nil {
		vc.Swapchain.SwapchainDestroy(vc)
		vc.Swapchain = nil
	}

	vc.releaseAll()

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(vc)

	vc.destroyInstance()
}

// ListDevices creates a headless instance and describes every physical
// device it can see.
func ListDevices(p *platform.Platform, appName string) ([]PhysicalDeviceInfo, error) {
	if err := loadVulkan(); err != nil {
		return nil, err
	}
	context := newVulkanContext(0, 0)
	if err := createInstance(context, appName, p.GetRequiredExtensionNames(), false); err != nil {
		return nil, err
	}
	defer context.destroyInstance()

	return DescribePhysicalDevices(context.Instance)
}

func loadVulkan() error {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return core.NewConfigurationError("GetInstanceProcAddress is nil, is a Vulkan loader installed?")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	instanceProcAddr = procAddr

	if err := vk.Init(); err != nil {
		return core.WrapConfigurationError(err, "initializing vulkan")
	}
	return nil
}

func createInstance(context *VulkanContext, appName string, extensions []string, debug bool) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString(engineName),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	if runtime.GOOS == "darwin" {
		extensions = append(extensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}

	var layers []string
	if debug {
		extensions = append(extensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for _, ext := range extensions {
			core.LogInfo(ext)
		}

		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{validationLayerName}
		if err := checkValidationLayers(layers); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if res := vk.CreateInstance(&createInfo, context.Allocator, &context.Instance); res != vk.Success {
		return vulkanError(res, "creating the Vulkan instance")
	}
	if err := vk.InitInstance(context.Instance); err != nil {
		vk.DestroyInstance(context.Instance, context.Allocator)
		context.Instance = nil
		return core.WrapDriverError(err, "loading instance functions")
	}
	return nil
}

func checkValidationLayers(required []string) error {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return vulkanError(res, "enumerating instance layers")
	}
	available := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, available); res != vk.Success {
		return vulkanError(res, "enumerating instance layers")
	}

	names := make(map[string]bool, len(available))
	for i := range available {
		available[i].Deref()
		names[vulkanString(available[i].LayerName[:])] = true
	}

	for _, layer := range required {
		core.LogInfo("Searching for layer: %s...", layer)
		if !names[layer] {
			return core.NewConfigurationError("required validation layer is missing: %s", layer)
		}
		core.LogInfo("Found.")
	}
	return nil
}

func (vc *VulkanContext) destroyInstance() {
	if vc.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
		vc.debugMessenger = vk.NullDebugReportCallback
	}

	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, vc.Allocator)
		vc.Surface = vk.NullSurface
	}

	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogDebug("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
