// Package core is the bundled plugin providing the clock, links and search
// widgets together with the link and search engine management pages.
package core

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/settings"
)

// Name is the internal name the plugin is linked under.
const Name = "core"

// Setting keys, scoped to the plugin.
const (
	KeyAllowIconUploads = "ALLOW_ICON_UPLOADS"
	KeyOpenToNewTab     = "OPEN_TO_NEW_TAB"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("core").ParseFS(templatesFS, "templates/*.html"))

// Plugin holds the state of the loaded core plugin.
type Plugin struct {
	env   plugin.Env
	store store
	icons *Icons
}

// New is the factory of the core plugin.
func New(env plugin.Env) (*plugin.Meta, error) {
	p := &Plugin{
		env:   env,
		store: store{db: env.DB},
		icons: NewIcons(filepath.Join(env.DataPath, "icons")),
	}

	return &plugin.Meta{
		DisplayName:      "Core",
		VersionSpecifier: "~= 2.0",
		Widgets: []plugin.WidgetKind{
			{Name: "clock", DisplayName: "Digital Clock"},
			{Name: "links", DisplayName: "Links"},
			{Name: "search", DisplayName: "Web Search"},
		},
		Models:       []any{&Link{}, &SearchEngine{}},
		Routes:       []plugin.RouteGroup{{Register: p.registerRoutes}},
		IndexPath:    "/plugins/core/",
		Render:       p.render,
		RenderEdit:   p.renderEdit,
		Settings:     p.settingsMap,
		InjectedHead: p.injectedHead,
		DemoSetup:    demoSetup,
		ImportLegacy: importLegacy,
	}, nil
}

// Settings is the configuration of the plugin.
type Settings struct {
	AllowIconUploads bool
	OpenToNewTab     bool
}

func (p *Plugin) settings(ctx context.Context) Settings {
	return Settings{
		AllowIconUploads: flagOrDefault(ctx, p.env.Settings, KeyAllowIconUploads, true),
		OpenToNewTab:     flagOrDefault(ctx, p.env.Settings, KeyOpenToNewTab, true),
	}
}

func (p *Plugin) settingsMap(ctx context.Context) (map[string]any, error) {
	s := p.settings(ctx)
	return map[string]any{
		KeyAllowIconUploads: s.AllowIconUploads,
		KeyOpenToNewTab:     s.OpenToNewTab,
	}, nil
}

func flagOrDefault(ctx context.Context, r settings.Reader, key string, def bool) bool {
	if r == nil {
		return def
	}
	v, err := settings.Get(ctx, r, key, def)
	if err != nil {
		return def
	}
	return v
}

func (p *Plugin) injectedHead(context.Context) (template.HTML, error) {
	if p.env.StaticPath == "" {
		return "", nil
	}
	return execute("head", nil)
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}
