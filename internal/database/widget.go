package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GetPlacedWidget returns a placed widget with its catalog widget and plugin,
// regardless of the dashboard it belongs to.
func (c *Client) GetPlacedWidget(ctx context.Context, widgetID uint) (*DashboardWidget, error) {
	var w DashboardWidget
	if err := c.db.WithContext(ctx).Preload("Widget.Plugin").First(&w, widgetID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get placed widget", "widget", widgetID, "error", err)
		}
		return nil, err
	}
	return &w, nil
}

// SetWidgetConfig replaces the config of a placed widget. A nil config is stored as NULL.
func (c *Client) SetWidgetConfig(ctx context.Context, widgetID uint, config json.RawMessage) error {
	result := c.db.WithContext(ctx).Model(&DashboardWidget{}).
		Where("id = ?", widgetID).
		Update("config", datatypes.JSON(NormalizeConfig(config)))
	if result.Error != nil {
		log.Error("failed to set widget config", "widget", widgetID, "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WidgetOwnerID returns the id of the user owning the dashboard a placed widget is on.
func (c *Client) WidgetOwnerID(ctx context.Context, widgetID uint) (uint, error) {
	var w DashboardWidget
	db := c.db.WithContext(ctx)
	if err := db.Select("id", "dashboard_id").First(&w, widgetID).Error; err != nil {
		return 0, err
	}
	var d Dashboard
	if err := db.Select("id", "owner_id").First(&d, w.DashboardID).Error; err != nil {
		return 0, err
	}
	return d.OwnerID, nil
}

// NormalizeConfig maps an empty or JSON null config to nil.
func NormalizeConfig(config []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(config)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return json.RawMessage(trimmed)
}
