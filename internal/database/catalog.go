package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertPlugin ensures a catalog row exists for the named plugin.
func (c *Client) UpsertPlugin(ctx context.Context, internalName string) (*Plugin, error) {
	db := c.db.WithContext(ctx)
	row := Plugin{InternalName: internalName}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "internal_name"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		log.Error("failed to upsert plugin", "plugin", internalName, "error", err)
		return nil, err
	}
	var plugin Plugin
	if err := db.Where("internal_name = ?", internalName).First(&plugin).Error; err != nil {
		return nil, err
	}
	return &plugin, nil
}

// UpsertWidget ensures a catalog row exists for the combined widget name and
// points it at pluginID.
func (c *Client) UpsertWidget(ctx context.Context, pluginID uint, internalName string) (*Widget, error) {
	db := c.db.WithContext(ctx)
	row := Widget{InternalName: internalName, PluginID: pluginID}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "internal_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"plugin_id"}),
	}).Create(&row).Error; err != nil {
		log.Error("failed to upsert widget", "widget", internalName, "error", err)
		return nil, err
	}
	var widget Widget
	if err := db.Preload("Plugin").Where("internal_name = ?", internalName).First(&widget).Error; err != nil {
		return nil, err
	}
	return &widget, nil
}

// GetPlugins returns every catalog plugin with its widgets.
func (c *Client) GetPlugins(ctx context.Context) ([]Plugin, error) {
	var plugins []Plugin
	if err := c.db.WithContext(ctx).Preload("Widgets").Order("internal_name").Find(&plugins).Error; err != nil {
		log.Error("failed to get plugins", "error", err)
		return nil, err
	}
	return plugins, nil
}

// GetWidgets returns every catalog widget with its plugin.
func (c *Client) GetWidgets(ctx context.Context) ([]Widget, error) {
	var widgets []Widget
	if err := c.db.WithContext(ctx).Preload("Plugin").Order("internal_name").Find(&widgets).Error; err != nil {
		log.Error("failed to get widgets", "error", err)
		return nil, err
	}
	return widgets, nil
}

func (c *Client) GetWidgetByID(ctx context.Context, id uint) (*Widget, error) {
	var widget Widget
	if err := c.db.WithContext(ctx).Preload("Plugin").First(&widget, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get widget", "error", err)
		}
		return nil, err
	}
	return &widget, nil
}

// DeletePluginCatalog removes the catalog rows of a plugin and every placed
// widget of its kinds, keeping the affected dashboard orders consistent.
// It returns the number of removed placed widgets.
func (c *Client) DeletePluginCatalog(ctx context.Context, internalName string) (int, error) {
	removed := 0
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plugin Plugin
		if err := tx.Where("internal_name = ?", internalName).First(&plugin).Error; err != nil {
			return err
		}

		var placed []DashboardWidget
		if err := tx.Joins("JOIN widgets ON widgets.id = dashboard_widgets.widget_id").
			Where("widgets.plugin_id = ?", plugin.ID).
			Find(&placed).Error; err != nil {
			return err
		}
		for _, w := range placed {
			if err := removeWidgetTx(tx, w.DashboardID, w.ID); err != nil {
				return err
			}
		}
		removed = len(placed)

		if err := tx.Where("plugin_id = ?", plugin.ID).Delete(&Widget{}).Error; err != nil {
			return err
		}
		return tx.Delete(&plugin).Error
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to delete plugin catalog", "plugin", internalName, "error", err)
		}
		return 0, err
	}
	return removed, nil
}
