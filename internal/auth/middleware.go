package auth

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// LoginPath is where unauthorized requests are sent.
const LoginPath = "/auth/login"

// Identify resolves the identity of every request once from the session.
func Identify(users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		identity := Anonymous

		if userID, ok := sessionUint(session, sessionUserID); ok {
			user, err := users.GetUserByID(c.Request.Context(), userID)
			switch {
			case err == nil:
				identity = identityFromUser(user)
				if identity.IsPublic {
					identity.SwitchedFrom, _ = sessionUint(session, sessionSwitchedFrom)
				}
			case errors.Is(err, database.ErrNotFound):
				// the account was deleted, drop the stale session
				session.Clear()
				_ = session.Save()
			default:
				log.Error("failed to resolve identity", "user", userID, "error", err)
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		}

		SetIdentity(c, identity)
		c.Next()
	}
}

// Unauthorized redirects to the login page with a notice.
func Unauthorized(c *gin.Context) {
	AddFlash(c, "error", UnauthorizedMessage)
	c.Redirect(http.StatusFound, LoginPath)
	c.Abort()
}

// RequireLogin allows logged in users other than the public account.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).IsStandard() {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireDashboardEditor allows identities that may edit their dashboard.
func RequireDashboardEditor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !FromContext(c).CanEditDashboard() {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireAdmin allows admins only.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := FromContext(c)
		if !id.IsStandard() || !id.IsAdmin {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// LoginRequiredIfSecured denies anonymous requests while the portal is secured.
func LoginRequiredIfSecured(flags Flags) gin.HandlerFunc {
	return func(c *gin.Context) {
		if flags.PortalSecured(c.Request.Context()) && !FromContext(c).Authenticated {
			Unauthorized(c)
			return
		}
		c.Next()
	}
}

// EnsureNotSetup hides routes once setup has completed.
func EnsureNotSetup(flags Flags) gin.HandlerFunc {
	return func(c *gin.Context) {
		if flags.HasSetup(c.Request.Context()) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.Next()
	}
}

// EnsureSetup sends requests to the install wizard until setup has completed.
func EnsureSetup(flags Flags) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !flags.HasSetup(c.Request.Context()) {
			c.Redirect(http.StatusFound, "/install")
			c.Abort()
			return
		}
		c.Next()
	}
}
