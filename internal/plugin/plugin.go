// Package plugin implements the plugin registry and the widget dispatch
// contract every plugin satisfies.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/enchant97/web-portal/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var (
	// ErrVersionIncompatible is returned when the running version does not satisfy a plugin's specifier.
	ErrVersionIncompatible = errors.New("plugin does not support this version")
	// ErrRestrictedName is returned for names reserved by the application itself.
	ErrRestrictedName = errors.New("plugin name is restricted")
	// ErrNameConflict is returned when a plugin with the same name is already loaded.
	ErrNameConflict = errors.New("plugin already loaded")
	// ErrInvalidName is returned for names that cannot be composed into widget names.
	ErrInvalidName = errors.New("invalid plugin name")
	// ErrUnknownPlugin is returned when no implementation is linked for a plugin directory.
	ErrUnknownPlugin = errors.New("no implementation for plugin")
	// ErrInvalidMeta is returned when a plugin declares incomplete metadata.
	ErrInvalidMeta = errors.New("invalid plugin metadata")
	// ErrInvalidSpecifier is returned for malformed version specifiers.
	ErrInvalidSpecifier = errors.New("invalid version specifier")
	// ErrUnknownWidgetKind is returned by render hooks for a kind the plugin does not declare.
	ErrUnknownWidgetKind = errors.New("unknown widget kind")
)

// WidgetKind is a widget type offered by a plugin.
type WidgetKind struct {
	Name        string
	DisplayName string
}

// RouteGroup is a set of routes mounted below the plugin's base path.
type RouteGroup struct {
	// Path is appended to the plugin's base path, may be empty.
	Path     string
	Register func(r gin.IRouter)
}

// RenderRequest is passed to a plugin's render hook. Config is nil when the
// placed widget has no configuration yet.
type RenderRequest struct {
	Kind     string
	WidgetID uint
	Config   json.RawMessage
}

// EditRequest is passed to a plugin's edit hook.
type EditRequest struct {
	RenderRequest
	// BackTo is where the editor should return after saving.
	BackTo string
}

// LegacyEntry is one widget of the V1 export format.
type LegacyEntry struct {
	URL         string `json:"url"`
	Prefix      string `json:"prefix"`
	ColorName   string `json:"color_name"`
	GroupPrefix string `json:"group_prefix"`
}

// WidgetDetails describes a placed widget to the plugin owning its kind.
type WidgetDetails struct {
	ID          uint
	DashboardID uint
	DisplayName string
	ShowHeader  bool
	Plugin      string
	Kind        string
	Config      json.RawMessage
}

// WidgetStore is the only way plugins read or change placed widgets.
type WidgetStore interface {
	WidgetDetails(ctx context.Context, widgetID uint) (*WidgetDetails, error)
	SetWidgetConfig(ctx context.Context, widgetID uint, config json.RawMessage) error
	WidgetOwnerID(ctx context.Context, widgetID uint) (uint, error)
}

// PageFunc writes body wrapped in the application layout.
type PageFunc func(c *gin.Context, status int, title string, body template.HTML)

// Env is handed to a plugin factory.
type Env struct {
	Name string
	DB   *gorm.DB
	// Settings is scoped to the plugin's own keys.
	Settings settings.ReadWriter
	// System reads the global settings, e.g. PORTAL_SECURED.
	System  settings.Reader
	Widgets WidgetStore
	// DataPath is a writable directory owned by the plugin.
	DataPath string
	// StaticPath is the plugin's static directory, empty when it has none.
	StaticPath    string
	MaxUploadSize int64
	Page          PageFunc
}

// RenderPage writes a full page through the application layout, or the bare
// body when no layout was provided.
func (e Env) RenderPage(c *gin.Context, status int, title string, body template.HTML) {
	if e.Page != nil {
		e.Page(c, status, title, body)
		return
	}
	c.Data(status, "text/html; charset=utf-8", []byte(body))
}

// Meta is everything a plugin declares about itself.
type Meta struct {
	DisplayName      string
	VersionSpecifier string
	Widgets          []WidgetKind
	// Models are migrated together with the application models.
	Models    []any
	Routes    []RouteGroup
	IndexPath string

	Render     func(ctx context.Context, req RenderRequest) (template.HTML, error)
	RenderEdit func(ctx context.Context, req EditRequest) (template.HTML, error)

	// optional hooks
	Settings     func(ctx context.Context) (map[string]any, error)
	InjectedHead func(ctx context.Context) (template.HTML, error)
	DemoSetup    func(ctx context.Context, tx *gorm.DB) error
	ImportLegacy func(ctx context.Context, tx *gorm.DB, entries []LegacyEntry) (int, error)
}

func (m *Meta) validate() error {
	if m.DisplayName == "" {
		return fmt.Errorf("%w: missing display name", ErrInvalidMeta)
	}
	if m.Render == nil {
		return fmt.Errorf("%w: missing render hook", ErrInvalidMeta)
	}
	if len(m.Widgets) == 0 {
		return fmt.Errorf("%w: no widgets declared", ErrInvalidMeta)
	}
	seen := make(map[string]struct{}, len(m.Widgets))
	for _, w := range m.Widgets {
		if err := validateKind(w.Name); err != nil {
			return fmt.Errorf("%w: widget %q: %w", ErrInvalidMeta, w.Name, err)
		}
		if _, ok := seen[w.Name]; ok {
			return fmt.Errorf("%w: duplicate widget %q", ErrInvalidMeta, w.Name)
		}
		seen[w.Name] = struct{}{}
	}
	for _, g := range m.Routes {
		if g.Register == nil {
			return fmt.Errorf("%w: route group %q without register func", ErrInvalidMeta, g.Path)
		}
	}
	return nil
}

// Plugin is a loaded plugin.
type Plugin struct {
	Name string
	Meta *Meta
	Env  Env
	// Specifier is the parsed version specifier.
	Specifier *Specifier
}

// Kind returns the declared widget kind with the given bare name.
func (p *Plugin) Kind(name string) (WidgetKind, bool) {
	for _, w := range p.Meta.Widgets {
		if w.Name == name {
			return w, true
		}
	}
	return WidgetKind{}, false
}

// HasEditor reports whether the plugin provides widget editors.
func (p *Plugin) HasEditor() bool {
	return p.Meta.RenderEdit != nil
}

// Render dispatches to the plugin's render hook.
func (p *Plugin) Render(ctx context.Context, req RenderRequest) (template.HTML, error) {
	if _, ok := p.Kind(req.Kind); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownWidgetKind, Compose(p.Name, req.Kind))
	}
	req.Config = normalizeConfig(req.Config)
	return p.Meta.Render(ctx, req)
}

// RenderEdit dispatches to the plugin's edit hook. ok is false when the
// plugin has no editor.
func (p *Plugin) RenderEdit(ctx context.Context, req EditRequest) (html template.HTML, ok bool, err error) {
	if _, known := p.Kind(req.Kind); !known {
		return "", false, fmt.Errorf("%w: %s", ErrUnknownWidgetKind, Compose(p.Name, req.Kind))
	}
	if !p.HasEditor() {
		return "", false, nil
	}
	req.Config = normalizeConfig(req.Config)
	html, err = p.Meta.RenderEdit(ctx, req)
	return html, err == nil, err
}

func normalizeConfig(cfg json.RawMessage) json.RawMessage {
	if len(cfg) == 0 || string(cfg) == "null" {
		return nil
	}
	return cfg
}

// DecodeConfig unmarshals a widget config into v. A nil config leaves v
// untouched, matching an empty object.
func DecodeConfig(cfg json.RawMessage, v any) error {
	if cfg = normalizeConfig(cfg); cfg == nil {
		return nil
	}
	if err := json.Unmarshal(cfg, v); err != nil {
		return fmt.Errorf("failed to decode widget config: %w", err)
	}
	return nil
}
