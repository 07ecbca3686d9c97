package plugin

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

// Factory builds the metadata of a linked plugin.
type Factory func(env Env) (*Meta, error)

// EnvFunc returns the environment handed to the factory of the named plugin.
type EnvFunc func(name string) Env

// Registry discovers and loads plugins and keeps the loaded set for the
// lifetime of the process.
type Registry struct {
	root      string
	factories map[string]Factory
	env       EnvFunc

	mu     sync.RWMutex
	loaded map[string]*Plugin
}

// NewRegistry creates a registry scanning root for plugin directories. Only
// names with a factory can be loaded.
func NewRegistry(root string, factories map[string]Factory, env EnvFunc) *Registry {
	if env == nil {
		env = func(name string) Env { return Env{Name: name} }
	}
	return &Registry{
		root:      root,
		factories: factories,
		env:       env,
		loaded:    make(map[string]*Plugin),
	}
}

// Root returns the directory plugins are discovered in.
func (r *Registry) Root() string {
	return r.root
}

// Discover yields the plugin directory names below the root in lexical
// order. Entries starting with "." or "_" are skipped. The directory is read
// again on every iteration.
func (r *Registry) Discover() iter.Seq[string] {
	return func(yield func(string) bool) {
		entries, err := os.ReadDir(r.root)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Warn("plugins directory does not exist", "path", r.root)
			} else {
				log.Error("failed to read plugins directory", "path", r.root, "error", err)
			}
			return
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
				continue
			}
			if !entry.IsDir() {
				continue
			}
			if !yield(name) {
				return
			}
		}
	}
}

// Load loads the named plugin. Loading an already loaded name returns the
// loaded plugin together with ErrNameConflict.
func (r *Registry) Load(name, appVersion string) (*Plugin, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.loaded[name]; ok {
		return existing, fmt.Errorf("%w: %s", ErrNameConflict, name)
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, name)
	}

	env := r.env(name)
	env.Name = name
	if static := filepath.Join(r.root, name, "static"); isDir(static) {
		env.StaticPath = static
	}

	meta, err := factory(env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise plugin %s: %w", name, err)
	}
	if meta == nil {
		return nil, fmt.Errorf("%w: %s returned no metadata", ErrInvalidMeta, name)
	}
	if err := meta.validate(); err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}

	spec, err := ParseSpecifier(meta.VersionSpecifier)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	if !spec.Check(appVersion) {
		return nil, fmt.Errorf("%w: running %s but %s wants %s", ErrVersionIncompatible, appVersion, name, spec)
	}

	plugin := &Plugin{
		Name:      name,
		Meta:      meta,
		Env:       env,
		Specifier: spec,
	}
	r.loaded[name] = plugin
	log.Info("loaded plugin", "name", name, "display_name", meta.DisplayName, "widgets", len(meta.Widgets))
	return plugin, nil
}

// LoadAll loads every discovered plugin not in skip. Failures are logged and
// do not stop the remaining plugins from loading. Already loaded plugins are
// skipped silently. Only newly loaded plugins are returned.
func (r *Registry) LoadAll(appVersion string, skip []string) []*Plugin {
	var loaded []*Plugin
	for name := range r.Discover() {
		if slices.Contains(skip, name) {
			log.Info("skipping plugin", "name", name)
			continue
		}
		if _, ok := r.Get(name); ok {
			continue
		}
		plugin, err := r.Load(name, appVersion)
		if err != nil {
			if errors.Is(err, ErrNameConflict) {
				continue
			}
			log.Error("failed to load plugin", "name", name, "error", err)
			continue
		}
		loaded = append(loaded, plugin)
	}
	return loaded
}

// Get returns the loaded plugin with the given name.
func (r *Registry) Get(name string) (*Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.loaded[name]
	return p, ok
}

// All returns the loaded plugins sorted by name.
func (r *Registry) All() []*Plugin {
	r.mu.RLock()
	plugins := lo.Values(r.loaded)
	r.mu.RUnlock()

	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins
}

// Names returns the names of the loaded plugins, sorted.
func (r *Registry) Names() []string {
	return lo.Map(r.All(), func(p *Plugin, _ int) string { return p.Name })
}

// Models returns the models contributed by every loaded plugin.
func (r *Registry) Models() []any {
	return lo.FlatMap(r.All(), func(p *Plugin, _ int) []any { return p.Meta.Models })
}

// Resolve returns the loaded plugin and bare kind of a catalog widget name.
func (r *Registry) Resolve(pluginName, combined string) (*Plugin, string, bool) {
	p, ok := r.Get(pluginName)
	if !ok {
		return nil, "", false
	}
	kind, ok := Deconstruct(pluginName, combined)
	if !ok {
		return nil, "", false
	}
	return p, kind, true
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
