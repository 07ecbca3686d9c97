package plugin

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/enchant97/web-portal/internal/settings"
)

// separator joins plugin and widget names in the catalog.
const separator = "__"

const maxNameLength = 128

// RestrictedNames are used by the application for its own routes.
var RestrictedNames = []string{
	"web_portal",
	"admin",
	"install",
	"login",
	"portal",
	"settings",
	"static",
	"plugin",
	"auth",
	"api",
}

var (
	pluginNameRe = regexp.MustCompile(`^[a-z0-9_]+$`)
	kindNameRe   = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// ValidateName checks that name can be used as a plugin name.
func ValidateName(name string) error {
	switch {
	case name == "" || len(name) > maxNameLength:
		return fmt.Errorf("%w: %q must be 1-%d characters", ErrInvalidName, name, maxNameLength)
	case !pluginNameRe.MatchString(name):
		return fmt.Errorf("%w: %q may only contain a-z, 0-9 and _", ErrInvalidName, name)
	case strings.Contains(name, separator):
		return fmt.Errorf("%w: %q must not contain %q", ErrInvalidName, name, separator)
	case slices.Contains(RestrictedNames, name):
		return fmt.Errorf("%w: %s", ErrRestrictedName, name)
	}
	return nil
}

func validateKind(kind string) error {
	if kind == "" || !kindNameRe.MatchString(kind) {
		return fmt.Errorf("kind may only contain a-z, 0-9 and _")
	}
	return nil
}

// Compose returns the catalog name of a widget kind.
func Compose(plugin, kind string) string {
	return plugin + separator + kind
}

// Deconstruct recovers the bare widget kind from a catalog name of plugin.
func Deconstruct(plugin, combined string) (string, bool) {
	return strings.CutPrefix(combined, plugin+separator)
}

// SettingsKey returns the system setting key of a plugin scoped setting.
func SettingsKey(plugin, key string) string {
	return settings.PluginKey(plugin, key)
}
