// Package plugins links the bundled plugins into the binary.
package plugins

import (
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/plugins/core"
	"github.com/enchant97/web-portal/internal/plugins/extras"
)

// Builtin returns the factories of every plugin compiled into the binary,
// keyed by the directory name they are discovered under.
func Builtin() map[string]plugin.Factory {
	return map[string]plugin.Factory{
		core.Name:   core.New,
		extras.Name: extras.New,
	}
}
