package engine

import (
	"github.com/spaghettifunk/vengine/engine/core"
)

type ApplicationConfig struct {
	// Effective configuration: defaults overlaid with the config file.
	Config core.Config
	// Path the configuration was read from. Empty disables hot reload.
	ConfigPath string
	// Enables the validation layer and the debug report callback.
	Validation bool
}
