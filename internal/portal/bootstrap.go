package portal

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/settings"
)

// NewWithPlugins creates the service together with a registry for the given
// plugin factories. Plugins receive the service as their widget store and
// page renders their pages in the application layout.
func NewWithPlugins(cfg *config.Config, db database.DB, store *settings.Store, factories map[string]plugin.Factory, page plugin.PageFunc) *Service {
	s := &Service{
		cfg:      cfg,
		db:       db,
		settings: store,
	}
	s.registry = plugin.NewRegistry(cfg.PluginsPath, factories, func(name string) plugin.Env {
		return plugin.Env{
			Name:          name,
			DB:            db.Gorm(),
			Settings:      store.ForPlugin(name),
			System:        store,
			Widgets:       s,
			DataPath:      cfg.PluginDataPath(name),
			MaxUploadSize: cfg.MaxUploadSize(),
			Page:          page,
		}
	})
	return s
}

// LoadPlugins loads the discovered plugins, migrates their models and
// reconciles the catalog. Plugins failing to load are logged and skipped.
func (s *Service) LoadPlugins(ctx context.Context, appVersion string) error {
	if s.cfg.DisablePluginLoader {
		log.Warn("plugin loader is disabled")
	} else {
		loaded := s.registry.LoadAll(appVersion, s.cfg.PluginSkipList)
		log.Info("plugins loaded", "count", len(loaded), "names", s.registry.Names())
	}

	if err := s.db.Migrate(s.registry.Models()...); err != nil {
		return fmt.Errorf("failed to migrate plugin models: %w", err)
	}
	return s.ReconcileCatalog(ctx)
}
