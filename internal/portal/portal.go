// Package portal composes dashboards from the widgets of loaded plugins.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/settings"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRequiredPluginAbsent is returned when an operation needs a plugin that is not loaded.
	ErrRequiredPluginAbsent = errors.New("required plugin is not loaded")
	// ErrPluginLoaded is returned when purging the data of a plugin that is still loaded.
	ErrPluginLoaded = errors.New("plugin is loaded")
)

// renderConcurrency bounds the number of widgets rendered at once.
const renderConcurrency = 8

// Service dispatches placed widgets to the plugins providing them.
type Service struct {
	cfg      *config.Config
	db       database.DB
	registry *plugin.Registry
	settings *settings.Store
}

var _ plugin.WidgetStore = (*Service)(nil)

// New creates the portal service.
func New(cfg *config.Config, db database.DB, registry *plugin.Registry, store *settings.Store) *Service {
	return &Service{
		cfg:      cfg,
		db:       db,
		registry: registry,
		settings: store,
	}
}

// Registry returns the plugin registry the service dispatches to.
func (s *Service) Registry() *plugin.Registry {
	return s.registry
}

// RenderedWidget is a placed widget ready to be shown.
type RenderedWidget struct {
	ID         uint
	Name       string
	ShowHeader bool
	Plugin     string
	Kind       string
	HTML       template.HTML
	// Warning is set instead of HTML when the widget could not be rendered.
	Warning string
}

// ResolveDashboard returns the personal dashboard of userID, falling back to
// the dashboard of the public account. A zero userID always resolves to the
// public dashboard.
func (s *Service) ResolveDashboard(ctx context.Context, userID uint) (*database.Dashboard, error) {
	if userID != 0 {
		dashboard, err := s.db.GetDashboard(ctx, userID)
		if err == nil {
			return dashboard, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
	}

	public, err := s.db.EnsurePublicAccount(ctx)
	if err != nil {
		return nil, err
	}
	dashboard, _, err := s.db.GetOrCreateDashboard(ctx, public.ID)
	return dashboard, err
}

// RenderDashboard renders the widgets of a dashboard in display order.
func (s *Service) RenderDashboard(ctx context.Context, dashboardID uint) ([]RenderedWidget, error) {
	widgets, err := s.db.EffectiveOrder(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	return s.RenderWidgets(ctx, widgets)
}

// RenderWidgets renders placed widgets concurrently and keeps their order.
// Widgets of plugins that are not loaded, or of kinds a plugin no longer
// offers, get a warning. Any other render error aborts.
func (s *Service) RenderWidgets(ctx context.Context, widgets []database.DashboardWidget) ([]RenderedWidget, error) {
	rendered := make([]RenderedWidget, len(widgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(renderConcurrency)
	for i, w := range widgets {
		g.Go(func() error {
			out, err := s.renderWidget(gctx, w)
			if err != nil {
				return fmt.Errorf("failed to render widget %d: %w", w.ID, err)
			}
			rendered[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("failed to render dashboard", "error", err)
		return nil, err
	}
	return rendered, nil
}

func (s *Service) renderWidget(ctx context.Context, w database.DashboardWidget) (RenderedWidget, error) {
	pluginName := w.Widget.Plugin.InternalName
	out := RenderedWidget{
		ID:         w.ID,
		Name:       w.Name,
		ShowHeader: w.ShowHeader,
		Plugin:     pluginName,
	}

	p, kind, ok := s.registry.Resolve(pluginName, w.Widget.InternalName)
	if !ok {
		log.Warn("skipping widget of unloaded plugin", "widget", w.ID, "plugin", pluginName)
		out.Warning = fmt.Sprintf("widget '%s' could not be loaded, plugin '%s' is not available", w.Name, pluginName)
		return out, nil
	}
	out.Kind = kind

	html, err := p.Render(ctx, plugin.RenderRequest{
		Kind:     kind,
		WidgetID: w.ID,
		Config:   database.NormalizeConfig(w.Config),
	})
	if errors.Is(err, plugin.ErrUnknownWidgetKind) {
		log.Warn("skipping widget of unknown kind", "widget", w.ID, "kind", w.Widget.InternalName)
		out.Warning = fmt.Sprintf("widget '%s' could not be loaded, '%s' is no longer supported", w.Name, kind)
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.HTML = html
	return out, nil
}

// RenderWidgetEditor renders the editor of a placed widget. ok is false when
// no editor is available for it.
func (s *Service) RenderWidgetEditor(ctx context.Context, w *database.DashboardWidget, backTo string) (template.HTML, bool, error) {
	p, kind, found := s.registry.Resolve(w.Widget.Plugin.InternalName, w.Widget.InternalName)
	if !found {
		return "", false, nil
	}
	html, ok, err := p.RenderEdit(ctx, plugin.EditRequest{
		RenderRequest: plugin.RenderRequest{
			Kind:     kind,
			WidgetID: w.ID,
			Config:   database.NormalizeConfig(w.Config),
		},
		BackTo: backTo,
	})
	if errors.Is(err, plugin.ErrUnknownWidgetKind) {
		return "", false, nil
	}
	return html, ok, err
}

// WidgetDetails returns the details of a placed widget.
func (s *Service) WidgetDetails(ctx context.Context, widgetID uint) (*plugin.WidgetDetails, error) {
	w, err := s.db.GetPlacedWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	pluginName := w.Widget.Plugin.InternalName
	kind, ok := plugin.Deconstruct(pluginName, w.Widget.InternalName)
	if !ok {
		kind = w.Widget.InternalName
	}
	return &plugin.WidgetDetails{
		ID:          w.ID,
		DashboardID: w.DashboardID,
		DisplayName: w.Name,
		ShowHeader:  w.ShowHeader,
		Plugin:      pluginName,
		Kind:        kind,
		Config:      database.NormalizeConfig(w.Config),
	}, nil
}

// SetWidgetConfig replaces the config of a placed widget, nil clears it.
func (s *Service) SetWidgetConfig(ctx context.Context, widgetID uint, cfg json.RawMessage) error {
	return s.db.SetWidgetConfig(ctx, widgetID, database.NormalizeConfig(cfg))
}

// WidgetOwnerID returns the user owning the dashboard of a placed widget.
func (s *Service) WidgetOwnerID(ctx context.Context, widgetID uint) (uint, error) {
	return s.db.WidgetOwnerID(ctx, widgetID)
}

// InjectedHeads collects the head fragments of every loaded plugin.
func (s *Service) InjectedHeads(ctx context.Context) ([]template.HTML, error) {
	var heads []template.HTML
	for _, p := range s.registry.All() {
		if p.Meta.InjectedHead == nil {
			continue
		}
		head, err := p.Meta.InjectedHead(ctx)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p.Name, err)
		}
		heads = append(heads, head)
	}
	return heads, nil
}
