package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const installPath = "/install"

func (s *Server) hasAdmin(c *gin.Context) (bool, error) {
	users, err := s.db.GetAllUsers(c.Request.Context())
	if err != nil {
		return false, err
	}
	return lo.SomeBy(users, func(u database.User) bool { return u.IsAdmin && !u.IsPublicAccount() }), nil
}

func (s *Server) installIndex(c *gin.Context) {
	ctx := c.Request.Context()
	hasAdmin, err := s.hasAdmin(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "Install", "install", gin.H{
		"HasAdmin":          hasAdmin,
		"PortalSecured":     s.settings.PortalSecured(ctx),
		"ShowWidgetHeaders": s.settings.ShowWidgetHeaders(ctx),
		"Username":          c.Query("username"),
	})
}

func (s *Server) installAdminUser(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	back := installPath + "?username=" + url.QueryEscape(username)

	if password != c.PostForm("password-confirm") {
		flashRedirect(c, "error", "Passwords do not match", back)
		return
	}
	if err := s.createUser(c, username, password, true); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			flashRedirect(c, "error", verr.Message, back)
			return
		}
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "created admin user '"+username+"'", installPath)
}

func (s *Server) installConfigs(c *gin.Context) {
	ctx := c.Request.Context()
	values := map[string]bool{
		settings.KeyPortalSecured:     formBool(c, "portal-secured"),
		settings.KeyShowWidgetHeaders: formBool(c, "show-widget-headers"),
	}
	for key, value := range values {
		if err := s.settings.Set(ctx, key, value); err != nil {
			s.fail(c, err)
			return
		}
	}
	flashRedirect(c, "ok", "saved portal configs", installPath)
}

func (s *Server) installDemo(c *gin.Context) {
	if err := s.portal.DemoInstall(c.Request.Context()); err != nil {
		s.fail(c, err)
		return
	}
	log.Warn("demo install completed, default credentials are in use")
	flashRedirect(c, "ok", "demo install completed, login with admin/admin", "/")
}

func (s *Server) installFinish(c *gin.Context) {
	hasAdmin, err := s.hasAdmin(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !hasAdmin {
		flashRedirect(c, "error", "create an admin user before finishing the install", installPath)
		return
	}
	if err := s.settings.Set(c.Request.Context(), settings.KeyHasSetup, true); err != nil {
		s.fail(c, err)
		return
	}
	log.Info("install finished")
	flashRedirect(c, "ok", "install finished", "/")
}

// createUser validates and stores a new password account. Validation
// failures, including a taken username, are returned as *auth.ValidationError.
func (s *Server) createUser(c *gin.Context, username, password string, isAdmin bool) error {
	ctx := c.Request.Context()
	if err := auth.ValidateUsername(username); err != nil {
		return err
	}
	if err := auth.ValidatePassword(username, password, isAdmin); err != nil {
		return err
	}

	_, err := s.db.GetUserByUsername(ctx, username)
	if err == nil {
		return &auth.ValidationError{Field: "username", Message: "Username already taken"}
	}
	if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.db.CreateUser(ctx, username, hash, isAdmin)
	return err
}

// formBool reads a checkbox style form value.
func formBool(c *gin.Context, key string) bool {
	switch strings.ToLower(c.PostForm(key)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}
