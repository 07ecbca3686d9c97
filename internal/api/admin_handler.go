package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/portal"
	"github.com/enchant97/web-portal/internal/scheduler"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	adminPath          = "/admin"
	adminUsersPath     = adminPath + "/users"
	adminPortalPath    = adminPath + "/portal"
	adminPluginsPath   = adminPath + "/plugins"
	adminImportPath    = adminPath + "/import"
	adminJobsPath      = adminPath + "/jobs"
	maxBrandingTitle   = 64
	legacyUploadField  = "file"
	validationCategory = "error"
)

func (s *Server) adminIndex(c *gin.Context) {
	s.render(c, http.StatusOK, "Admin", "admin-index", gin.H{
		"Jobs": s.scheduler != nil,
	})
}

type userRow struct {
	ID       uint
	Username string
	IsAdmin  bool
	External bool
	Self     bool
}

func (s *Server) adminUsers(c *gin.Context) {
	users, err := s.db.GetAllUsers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	self := auth.FromContext(c).UserID
	rows := lo.FilterMap(users, func(u database.User, _ int) (userRow, bool) {
		return userRow{
			ID:       u.ID,
			Username: u.Username,
			IsAdmin:  u.IsAdmin,
			External: u.IsExternalAccount(),
			Self:     u.ID == self,
		}, !u.IsPublicAccount()
	})
	s.render(c, http.StatusOK, "Users", "admin-users", rows)
}

func (s *Server) adminCreateUser(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	if err := s.createUser(c, username, c.PostForm("password"), formBool(c, "is-admin")); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			flashRedirect(c, validationCategory, verr.Message, adminUsersPath)
			return
		}
		s.fail(c, err)
		return
	}
	log.Info("user created", "username", username, "by", auth.FromContext(c).Username)
	flashRedirect(c, "ok", "created user '"+username+"'", adminUsersPath)
}

// targetUser parses the :id param and refuses actions on the requester.
func (s *Server) targetUser(c *gin.Context) (uint, bool) {
	id, ok := plugin.ParamID(c, "id")
	if !ok {
		return 0, false
	}
	if err := auth.CheckSelfModification(auth.FromContext(c), id); err != nil {
		flashRedirect(c, validationCategory, "you can not modify your own account here", adminUsersPath)
		return 0, false
	}
	return id, true
}

// userError maps user mutation failures to flashes.
func (s *Server) userError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.String(http.StatusNotFound, "user not found")
	case errors.Is(err, database.ErrPublicAccount):
		flashRedirect(c, validationCategory, "the public account can not be modified", adminUsersPath)
	default:
		s.fail(c, err)
	}
}

func (s *Server) adminDeleteUser(c *gin.Context) {
	id, ok := s.targetUser(c)
	if !ok {
		return
	}
	if err := s.db.DeleteUser(c.Request.Context(), id); err != nil {
		s.userError(c, err)
		return
	}
	log.Info("user deleted", "id", id, "by", auth.FromContext(c).Username)
	flashRedirect(c, "ok", "user deleted", adminUsersPath)
}

func (s *Server) adminToggleAdmin(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := s.targetUser(c)
	if !ok {
		return
	}
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		s.userError(c, err)
		return
	}
	if err := s.db.SetUserAdmin(ctx, id, !user.IsAdmin); err != nil {
		s.userError(c, err)
		return
	}
	flashRedirect(c, "ok", "updated admin rights of '"+user.Username+"'", adminUsersPath)
}

func (s *Server) adminResetPassword(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := plugin.ParamID(c, "id")
	if !ok {
		return
	}
	user, err := s.db.GetUserByID(ctx, id)
	if err != nil {
		s.userError(c, err)
		return
	}
	if user.IsExternalAccount() {
		flashRedirect(c, validationCategory, "external accounts have no password", adminUsersPath)
		return
	}
	password := c.PostForm("password")
	if err := auth.ValidatePassword(user.Username, password, user.IsAdmin); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			flashRedirect(c, validationCategory, verr.Message, adminUsersPath)
			return
		}
		s.fail(c, err)
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.db.SetUserPassword(ctx, id, hash); err != nil {
		s.userError(c, err)
		return
	}
	flashRedirect(c, "ok", "password of '"+user.Username+"' reset", adminUsersPath)
}

func (s *Server) adminPortal(c *gin.Context) {
	ctx := c.Request.Context()
	s.render(c, http.StatusOK, "Portal Settings", "admin-portal", gin.H{
		"PortalSecured":     s.settings.PortalSecured(ctx),
		"ShowWidgetHeaders": s.settings.ShowWidgetHeaders(ctx),
		"Branding":          s.settings.Branding(ctx),
	})
}

func (s *Server) adminSavePortal(c *gin.Context) {
	ctx := c.Request.Context()
	title := strings.TrimSpace(c.PostForm("branding-title"))
	if utf8.RuneCountInString(title) > maxBrandingTitle {
		flashRedirect(c, validationCategory, "title must be at most "+strconv.Itoa(maxBrandingTitle)+" characters", adminPortalPath)
		return
	}
	values := map[string]any{
		settings.KeyPortalSecured:     formBool(c, "portal-secured"),
		settings.KeyShowWidgetHeaders: formBool(c, "show-widget-headers"),
		settings.KeyBranding:          settings.Branding{Title: title},
	}
	for key, value := range values {
		if err := s.settings.Set(ctx, key, value); err != nil {
			s.fail(c, err)
			return
		}
	}
	flashRedirect(c, "ok", "saved portal settings", adminPortalPath)
}

func (s *Server) adminPlugins(c *gin.Context) {
	plugins, err := s.portal.CatalogPlugins(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "Plugins", "admin-plugins", gin.H{
		"Plugins": plugins,
		"Loaded":  s.portal.Registry().All(),
	})
}

func (s *Server) adminPurgePlugin(c *gin.Context) {
	name := c.Param("name")
	result, err := s.portal.PurgePluginData(c.Request.Context(), name)
	switch {
	case errors.Is(err, plugin.ErrInvalidName):
		c.String(http.StatusNotFound, "plugin not found")
		return
	case errors.Is(err, portal.ErrPluginLoaded):
		flashRedirect(c, validationCategory, "plugin '"+name+"' is loaded, unload it before purging", adminPluginsPath)
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok",
		"purged '"+name+"': "+humanize.Comma(int64(result.PlacedWidgets))+" widgets, "+
			humanize.Comma(int64(result.Settings))+" settings removed",
		adminPluginsPath)
}

func (s *Server) adminImportForm(c *gin.Context) {
	s.render(c, http.StatusOK, "Import", "admin-import", gin.H{
		"MaxSize": humanize.IBytes(uint64(s.cfg.MaxUploadSize())), //nolint:gosec
	})
}

func (s *Server) adminImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadSize())
	header, err := c.FormFile(legacyUploadField)
	if err != nil {
		flashRedirect(c, validationCategory, "select a file to import", adminImportPath)
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer file.Close()

	count, err := s.portal.ImportLegacy(c.Request.Context(), file)
	switch {
	case errors.Is(err, portal.ErrInvalidLegacyEntry):
		flashRedirect(c, validationCategory, err.Error(), adminImportPath)
		return
	case errors.Is(err, portal.ErrRequiredPluginAbsent):
		flashRedirect(c, validationCategory, "the core plugin must be loaded to import widgets", adminImportPath)
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "imported "+humanize.Comma(int64(count))+" entries", adminImportPath)
}

type jobRow struct {
	scheduler.JobInfo
	LastRunAgo string
	NextRunIn  string
}

func (s *Server) adminJobs(c *gin.Context) {
	rows := lo.Map(s.scheduler.Jobs(), func(j scheduler.JobInfo, _ int) jobRow {
		row := jobRow{JobInfo: j, LastRunAgo: "never"}
		if !j.LastRun.IsZero() {
			row.LastRunAgo = humanize.Time(j.LastRun)
		}
		if !j.NextRun.IsZero() {
			row.NextRunIn = humanize.Time(j.NextRun)
		}
		return row
	})
	s.render(c, http.StatusOK, "Jobs", "admin-jobs", rows)
}

func (s *Server) adminRunJob(c *gin.Context) {
	id := c.Param("id")
	if err := s.scheduler.RunJobNow(id); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			c.String(http.StatusNotFound, "job not found")
			return
		}
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "job '"+id+"' started", adminJobsPath)
}
