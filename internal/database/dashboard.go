package database

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetDashboard returns the dashboard owned by ownerID.
func (c *Client) GetDashboard(ctx context.Context, ownerID uint) (*Dashboard, error) {
	var dashboard Dashboard
	if err := c.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&dashboard).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get dashboard", "owner", ownerID, "error", err)
		}
		return nil, err
	}
	return &dashboard, nil
}

// GetOrCreateDashboard returns the dashboard owned by ownerID, creating an
// empty one if needed. The bool reports whether it was created.
func (c *Client) GetOrCreateDashboard(ctx context.Context, ownerID uint) (*Dashboard, bool, error) {
	dashboard, err := c.GetDashboard(ctx, ownerID)
	if err == nil {
		return dashboard, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	dashboard = &Dashboard{OwnerID: ownerID, WidgetOrder: datatypes.JSONSlice[uint]{}}
	result := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(dashboard)
	if result.Error != nil {
		log.Error("failed to create dashboard", "owner", ownerID, "error", result.Error)
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		// created concurrently by another request
		dashboard, err = c.GetDashboard(ctx, ownerID)
		return dashboard, false, err
	}
	return dashboard, true, nil
}

// DeleteDashboard removes the dashboard of ownerID and its widgets. A missing
// dashboard is not an error.
func (c *Client) DeleteDashboard(ctx context.Context, ownerID uint) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteDashboardTx(tx, ownerID)
	})
}

func deleteDashboardTx(tx *gorm.DB, ownerID uint) error {
	var ids []uint
	if err := tx.Model(&Dashboard{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("dashboard_id IN ?", ids).Delete(&DashboardWidget{}).Error; err != nil {
		return err
	}
	return tx.Delete(&Dashboard{}, ids).Error
}

// EffectiveOrder returns the placed widgets of a dashboard in display order
// with their catalog widget and plugin loaded.
func (c *Client) EffectiveOrder(ctx context.Context, dashboardID uint) ([]DashboardWidget, error) {
	var dashboard Dashboard
	if err := c.db.WithContext(ctx).
		Preload("Widgets", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Widgets.Widget.Plugin").
		First(&dashboard, dashboardID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to load dashboard widgets", "dashboard", dashboardID, "error", err)
		}
		return nil, err
	}
	return sortByOrder(dashboard.Widgets, dashboard.WidgetOrder)
}

// AppendWidget places w at the end of the dashboard. The existing creation
// order is frozen into the widget order first.
func (c *Client) AppendWidget(ctx context.Context, dashboardID uint, w *DashboardWidget) error {
	return c.mutateOrder(ctx, dashboardID, func(tx *gorm.DB, d *Dashboard) error {
		if err := materializeOrder(tx, d); err != nil {
			return err
		}
		w.ID = 0
		w.DashboardID = d.ID
		if err := tx.Omit(clause.Associations).Create(w).Error; err != nil {
			return err
		}
		d.WidgetOrder = append(d.WidgetOrder, w.ID)
		return nil
	})
}

// RemoveWidget deletes a placed widget and drops it from the order. Widgets
// missing from the order are removed silently.
func (c *Client) RemoveWidget(ctx context.Context, dashboardID, widgetID uint) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return removeWidgetTx(tx, dashboardID, widgetID)
	})
	if err != nil {
		log.Error("failed to remove dashboard widget", "dashboard", dashboardID, "widget", widgetID, "error", err)
	}
	return err
}

func removeWidgetTx(tx *gorm.DB, dashboardID, widgetID uint) error {
	d, err := lockDashboard(tx, dashboardID)
	if err != nil {
		return err
	}
	if len(d.WidgetOrder) != 0 {
		d.WidgetOrder = removeID(d.WidgetOrder, widgetID)
	}
	if err := tx.Where("id = ? AND dashboard_id = ?", widgetID, d.ID).Delete(&DashboardWidget{}).Error; err != nil {
		return err
	}
	return saveOrder(tx, d)
}

// ShiftWidgetLeft moves a widget one position towards the front, wrapping the
// first widget around to the end.
func (c *Client) ShiftWidgetLeft(ctx context.Context, dashboardID, widgetID uint) error {
	return c.shiftWidget(ctx, dashboardID, widgetID, shiftLeft)
}

// ShiftWidgetRight moves a widget one position towards the end, wrapping the
// last widget around to the front.
func (c *Client) ShiftWidgetRight(ctx context.Context, dashboardID, widgetID uint) error {
	return c.shiftWidget(ctx, dashboardID, widgetID, shiftRight)
}

func (c *Client) shiftWidget(ctx context.Context, dashboardID, widgetID uint, shift func([]uint, uint) ([]uint, error)) error {
	return c.mutateOrder(ctx, dashboardID, func(tx *gorm.DB, d *Dashboard) error {
		if err := materializeOrder(tx, d); err != nil {
			return err
		}
		if len(d.WidgetOrder) == 0 {
			return nil
		}
		order, err := shift(d.WidgetOrder, widgetID)
		if err != nil {
			return err
		}
		d.WidgetOrder = order
		return nil
	})
}

// mutateOrder runs fn in a transaction holding a row lock on the dashboard
// and persists the resulting order.
func (c *Client) mutateOrder(ctx context.Context, dashboardID uint, fn func(tx *gorm.DB, d *Dashboard) error) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := lockDashboard(tx, dashboardID)
		if err != nil {
			return err
		}
		if err := fn(tx, d); err != nil {
			return err
		}
		return saveOrder(tx, d)
	})
	if err != nil && !errors.Is(err, ErrWidgetNotFound) && !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("failed to update dashboard order", "dashboard", dashboardID, "error", err)
	}
	return err
}

func lockDashboard(tx *gorm.DB, dashboardID uint) (*Dashboard, error) {
	var d Dashboard
	if err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).First(&d, dashboardID).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// materializeOrder freezes the creation order into an empty widget order.
func materializeOrder(tx *gorm.DB, d *Dashboard) error {
	if len(d.WidgetOrder) != 0 {
		return nil
	}
	var ids []uint
	if err := tx.Model(&DashboardWidget{}).Where("dashboard_id = ?", d.ID).Order("id").Pluck("id", &ids).Error; err != nil {
		return err
	}
	d.WidgetOrder = datatypes.JSONSlice[uint](ids)
	return nil
}

func saveOrder(tx *gorm.DB, d *Dashboard) error {
	if d.WidgetOrder == nil {
		d.WidgetOrder = datatypes.JSONSlice[uint]{}
	}
	return tx.Model(d).Update("widget_order", d.WidgetOrder).Error
}

// GetDashboardWidget returns a placed widget of the given dashboard.
func (c *Client) GetDashboardWidget(ctx context.Context, dashboardID, widgetID uint) (*DashboardWidget, error) {
	var w DashboardWidget
	if err := c.db.WithContext(ctx).Preload("Widget.Plugin").
		Where("id = ? AND dashboard_id = ?", widgetID, dashboardID).
		First(&w).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get dashboard widget", "error", err)
		}
		return nil, err
	}
	return &w, nil
}

// UpdateDashboardWidget changes the display name and header flag of a placed widget.
func (c *Client) UpdateDashboardWidget(ctx context.Context, dashboardID, widgetID uint, name string, showHeader bool) error {
	result := c.db.WithContext(ctx).Model(&DashboardWidget{}).
		Where("id = ? AND dashboard_id = ?", widgetID, dashboardID).
		Updates(map[string]any{"name": name, "show_header": showHeader})
	if result.Error != nil {
		log.Error("failed to update dashboard widget", "error", result.Error)
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
