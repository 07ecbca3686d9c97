package portal

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/samber/lo"
)

// ReconcileCatalog upserts the catalog rows of every loaded plugin and its
// widget kinds. Rows of plugins that are no longer loaded are kept.
func (s *Service) ReconcileCatalog(ctx context.Context) error {
	for _, p := range s.registry.All() {
		row, err := s.db.UpsertPlugin(ctx, p.Name)
		if err != nil {
			return fmt.Errorf("failed to register plugin %s: %w", p.Name, err)
		}
		for _, kind := range p.Meta.Widgets {
			if _, err := s.db.UpsertWidget(ctx, row.ID, plugin.Compose(p.Name, kind.Name)); err != nil {
				return fmt.Errorf("failed to register widget %s: %w", plugin.Compose(p.Name, kind.Name), err)
			}
		}
		log.Debug("reconciled plugin catalog", "plugin", p.Name, "widgets", len(p.Meta.Widgets))
	}
	return nil
}

// AvailableWidget is a catalog widget that can be placed on a dashboard.
type AvailableWidget struct {
	ID                uint
	Name              string
	DisplayName       string
	Plugin            string
	PluginDisplayName string
}

// AvailableWidgets lists the catalog widgets offered by loaded plugins.
func (s *Service) AvailableWidgets(ctx context.Context) ([]AvailableWidget, error) {
	widgets, err := s.db.GetWidgets(ctx)
	if err != nil {
		return nil, err
	}
	return lo.FilterMap(widgets, func(w database.Widget, _ int) (AvailableWidget, bool) {
		p, kind, ok := s.registry.Resolve(w.Plugin.InternalName, w.InternalName)
		if !ok {
			return AvailableWidget{}, false
		}
		declared, ok := p.Kind(kind)
		if !ok {
			return AvailableWidget{}, false
		}
		return AvailableWidget{
			ID:                w.ID,
			Name:              w.InternalName,
			DisplayName:       declared.DisplayName,
			Plugin:            p.Name,
			PluginDisplayName: p.Meta.DisplayName,
		}, true
	}), nil
}

// AddWidget places a catalog widget at the end of a dashboard. Its header is
// shown when SHOW_WIDGET_HEADERS is set.
func (s *Service) AddWidget(ctx context.Context, dashboardID, catalogWidgetID uint, name string) (*database.DashboardWidget, error) {
	w, err := s.db.GetWidgetByID(ctx, catalogWidgetID)
	if err != nil {
		return nil, err
	}
	if _, _, ok := s.registry.Resolve(w.Plugin.InternalName, w.InternalName); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRequiredPluginAbsent, w.Plugin.InternalName)
	}
	placed := &database.DashboardWidget{
		Name:       name,
		WidgetID:   w.ID,
		ShowHeader: s.settings.ShowWidgetHeaders(ctx),
	}
	if err := s.db.AppendWidget(ctx, dashboardID, placed); err != nil {
		return nil, err
	}
	return placed, nil
}

// CatalogPlugin is a catalog plugin row with its load state.
type CatalogPlugin struct {
	Name    string
	Widgets int
	Loaded  *plugin.Plugin
}

// CatalogPlugins lists every plugin that was ever registered.
func (s *Service) CatalogPlugins(ctx context.Context) ([]CatalogPlugin, error) {
	rows, err := s.db.GetPlugins(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(row database.Plugin, _ int) CatalogPlugin {
		loaded, _ := s.registry.Get(row.InternalName)
		return CatalogPlugin{
			Name:    row.InternalName,
			Widgets: len(row.Widgets),
			Loaded:  loaded,
		}
	}), nil
}

// PurgeResult reports what PurgePluginData removed.
type PurgeResult struct {
	PlacedWidgets int
	Settings      int
}

// PurgePluginData removes everything stored for a plugin that is not loaded:
// its placed widgets, catalog rows, scoped settings and data directory.
func (s *Service) PurgePluginData(ctx context.Context, name string) (PurgeResult, error) {
	var result PurgeResult
	if err := plugin.ValidateName(name); err != nil {
		return result, err
	}
	if _, ok := s.registry.Get(name); ok {
		return result, fmt.Errorf("%w: %s", ErrPluginLoaded, name)
	}

	removed, err := s.db.DeletePluginCatalog(ctx, name)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return result, err
	}
	result.PlacedWidgets = removed

	known, err := s.db.GetPlugins(ctx)
	if err != nil {
		return result, err
	}
	names := append(s.registry.Names(), lo.Map(known, func(p database.Plugin, _ int) string { return p.InternalName })...)
	if result.Settings, err = s.settings.PurgePlugin(ctx, name, lo.Uniq(names)); err != nil {
		return result, err
	}

	if err := os.RemoveAll(s.cfg.PluginDataPath(name)); err != nil {
		return result, fmt.Errorf("failed to remove plugin data: %w", err)
	}

	log.Info("purged plugin data", "plugin", name, "widgets", result.PlacedWidgets, "settings", result.Settings)
	return result, nil
}
