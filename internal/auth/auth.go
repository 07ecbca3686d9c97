// Package auth resolves the identity of a request and guards routes.
package auth

import (
	"context"
	"errors"

	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/gin-gonic/gin"
)

var (
	// ErrInvalidCredentials is returned for a failed password login.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthorized is returned when a request lacks a required login.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAdmin is returned when a request needs an admin.
	ErrNotAdmin = errors.New("admin privileges required")
	// ErrSelfModification is returned when an admin tries to delete or demote their own account.
	ErrSelfModification = errors.New("cannot modify your own account")
)

// UnauthorizedMessage is flashed when a request is redirected to the login page.
const UnauthorizedMessage = "You need to be logged in to view this page"

// UserLookup loads users by id.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*database.User, error)
}

// Flags exposes the global settings the gates depend on.
type Flags interface {
	PortalSecured(ctx context.Context) bool
	HasSetup(ctx context.Context) bool
}

// Identity is the resolved requester of one request.
type Identity struct {
	UserID        uint
	Username      string
	IsAdmin       bool
	IsPublic      bool
	IsExternal    bool
	Authenticated bool
	// SwitchedFrom is the admin user id that switched to the public account.
	SwitchedFrom uint
}

// Anonymous is the identity of a request without a login.
var Anonymous = Identity{}

func identityFromUser(u *database.User) Identity {
	return Identity{
		UserID:        u.ID,
		Username:      u.Username,
		IsAdmin:       u.IsAdmin && !u.IsPublicAccount(),
		IsPublic:      u.IsPublicAccount(),
		IsExternal:    u.IsExternalAccount(),
		Authenticated: true,
	}
}

// IsStandard reports whether the identity is a logged in, non public user.
func (i Identity) IsStandard() bool {
	return i.Authenticated && !i.IsPublic
}

// CanEditDashboard reports whether the identity may change its dashboard.
// Admins that switched to the public account edit the public dashboard.
func (i Identity) CanEditDashboard() bool {
	return i.IsStandard() || (i.IsPublic && i.SwitchedFrom != 0)
}

const identityKey = "identity"

// SetIdentity stores the identity of the request.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityKey, id)
}

// FromContext returns the identity resolved by Identify.
func FromContext(c *gin.Context) Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return Anonymous
}

// CheckSelfModification rejects admin actions an identity must not apply to itself.
func CheckSelfModification(id Identity, targetUserID uint) error {
	if id.UserID == targetUserID {
		return ErrSelfModification
	}
	return nil
}

// SettingsFlags reads the gate flags from the system settings.
type SettingsFlags struct {
	Settings settings.Reader
}

func (f SettingsFlags) PortalSecured(ctx context.Context) bool {
	return settings.Flag(ctx, f.Settings, settings.KeyPortalSecured)
}

func (f SettingsFlags) HasSetup(ctx context.Context) bool {
	return settings.Flag(ctx, f.Settings, settings.KeyHasSetup)
}
