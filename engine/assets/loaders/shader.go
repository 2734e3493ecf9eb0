package loaders

import (
	"io/fs"

	"github.com/spaghettifunk/vengine/engine/core"
)

// ShaderLoader reads precompiled SPIR-V from a file system rooted at the
// assets directory.
type ShaderLoader struct {
	FS fs.FS
}

func (sl *ShaderLoader) Load(path string) ([]uint32, error) {
	data, err := fs.ReadFile(sl.FS, path)
	if err != nil {
		return nil, core.WrapConfigurationError(err, "reading shader %s", path)
	}
	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, core.WrapConfigurationError(err, "shader %s", path)
	}
	core.LogDebug("loaded shader %s (%d words)", path, len(code))
	return code, nil
}
