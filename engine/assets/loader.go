package assets

import (
	"github.com/spaghettifunk/vengine/engine/renderer/gpu"
)

// ShaderModuleLoader creates shader modules from precompiled SPIR-V assets.
type ShaderModuleLoader struct {
	assets *AssetManager
	device gpu.Device
}

func NewShaderModuleLoader(am *AssetManager, device gpu.Device) *ShaderModuleLoader {
	return &ShaderModuleLoader{assets: am, device: device}
}

func (l *ShaderModuleLoader) LoadPrecompiledShader(path string) (gpu.ShaderModuleID, error) {
	code, err := l.assets.LoadShader(path)
	if err != nil {
		return 0, err
	}
	return l.device.CreateShaderModule(code)
}
