package database

import (
	"time"

	"gorm.io/datatypes"
)

// PublicAccountUsername is the reserved username of the virtual public account.
const PublicAccountUsername = "public"

// User is an account of the portal. Accounts without a password hash are
// either managed by an external identity provider or the public account.
type User struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string `gorm:"size:128;uniqueIndex;not null"`
	PasswordHash []byte
	IsAdmin      bool `gorm:"not null;default:false"`
}

// IsPublicAccount reports whether u is the virtual public account.
func (u *User) IsPublicAccount() bool {
	return u.Username == PublicAccountUsername
}

// IsExternalAccount reports whether the credentials of u are provided by an
// external mechanism.
func (u *User) IsExternalAccount() bool {
	return u.PasswordHash == nil && !u.IsPublicAccount()
}

// SetPassword stores a new password hash. The public account can never hold one.
func (u *User) SetPassword(hash []byte) error {
	if u.IsPublicAccount() {
		return ErrPublicAccount
	}
	u.PasswordHash = hash
	return nil
}

// SystemSetting is a persisted key/value pair holding a JSON document.
type SystemSetting struct {
	Key   string         `gorm:"primaryKey;size:128"`
	Value datatypes.JSON `gorm:"not null"`
}

// Plugin is the catalog row of a plugin that was loaded at least once.
type Plugin struct {
	ID           uint   `gorm:"primarykey"`
	InternalName string `gorm:"size:128;uniqueIndex;not null"`
	Widgets      []Widget
}

// Widget is the catalog row of a widget kind, keyed by its combined name.
type Widget struct {
	ID           uint   `gorm:"primarykey"`
	InternalName string `gorm:"size:128;uniqueIndex;not null"`
	PluginID     uint   `gorm:"index;not null"`
	Plugin       Plugin `gorm:"constraint:OnDelete:CASCADE;"`
}

// Dashboard is the personal dashboard of a user. WidgetOrder holds the ids
// of the placed widgets; an empty order means creation order.
type Dashboard struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	OwnerID     uint                      `gorm:"uniqueIndex;not null"`
	Owner       User                      `gorm:"constraint:OnDelete:CASCADE;"`
	WidgetOrder datatypes.JSONSlice[uint] `gorm:"not null"`
	Widgets     []DashboardWidget         `gorm:"constraint:OnDelete:CASCADE;"`
}

// DashboardWidget is a widget placed on a dashboard. Config is owned by the
// plugin providing the widget kind and may be empty.
type DashboardWidget struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:128;not null"`
	ShowHeader  bool   `gorm:"not null;default:false"`
	DashboardID uint   `gorm:"index;not null"`
	WidgetID    uint   `gorm:"index;not null"`
	Widget      Widget `gorm:"constraint:OnDelete:CASCADE;"`
	Config      datatypes.JSON
}
