package database

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
)

// DB is the persistence surface used by the rest of the application.
type DB interface {
	Migrate(extra ...any) error
	Gorm() *gorm.DB
	Close() error

	// users
	CreateUser(ctx context.Context, username string, passwordHash []byte, isAdmin bool) (*User, error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetOrCreateUser(ctx context.Context, username string) (*User, error)
	EnsurePublicAccount(ctx context.Context) (*User, error)
	GetAllUsers(ctx context.Context) ([]User, error)
	SetUserPassword(ctx context.Context, id uint, hash []byte) error
	SetUserAdmin(ctx context.Context, id uint, isAdmin bool) error
	DeleteUser(ctx context.Context, id uint) error

	// system settings
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) error
	DeleteSettings(ctx context.Context, keys ...string) error
	ListSettingKeys(ctx context.Context, prefix string) ([]string, error)

	// plugin and widget catalog
	UpsertPlugin(ctx context.Context, internalName string) (*Plugin, error)
	UpsertWidget(ctx context.Context, pluginID uint, internalName string) (*Widget, error)
	GetPlugins(ctx context.Context) ([]Plugin, error)
	GetWidgets(ctx context.Context) ([]Widget, error)
	GetWidgetByID(ctx context.Context, id uint) (*Widget, error)
	DeletePluginCatalog(ctx context.Context, internalName string) (int, error)

	// dashboards
	GetDashboard(ctx context.Context, ownerID uint) (*Dashboard, error)
	GetOrCreateDashboard(ctx context.Context, ownerID uint) (*Dashboard, bool, error)
	DeleteDashboard(ctx context.Context, ownerID uint) error
	EffectiveOrder(ctx context.Context, dashboardID uint) ([]DashboardWidget, error)
	AppendWidget(ctx context.Context, dashboardID uint, w *DashboardWidget) error
	RemoveWidget(ctx context.Context, dashboardID, widgetID uint) error
	ShiftWidgetLeft(ctx context.Context, dashboardID, widgetID uint) error
	ShiftWidgetRight(ctx context.Context, dashboardID, widgetID uint) error
	GetDashboardWidget(ctx context.Context, dashboardID, widgetID uint) (*DashboardWidget, error)
	UpdateDashboardWidget(ctx context.Context, dashboardID, widgetID uint, name string, showHeader bool) error

	// placed widget config
	GetPlacedWidget(ctx context.Context, widgetID uint) (*DashboardWidget, error)
	SetWidgetConfig(ctx context.Context, widgetID uint, config json.RawMessage) error
	WidgetOwnerID(ctx context.Context, widgetID uint) (uint, error)

	// Transaction runs fn with a client bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx DB) error) error
}
