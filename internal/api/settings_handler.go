package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/portal"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	settingsPath        = "/settings"
	maxWidgetNameLength = 128
)

// dashboard returns the personal dashboard of the requester, creating it on
// first use.
func (s *Server) dashboard(c *gin.Context) (*database.Dashboard, error) {
	d, _, err := s.db.GetOrCreateDashboard(c.Request.Context(), auth.FromContext(c).UserID)
	return d, err
}

type widgetGroup struct {
	Plugin  string
	Widgets []portal.AvailableWidget
}

func (s *Server) settingsIndex(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(c)

	d, err := s.dashboard(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	placed, err := s.db.EffectiveOrder(ctx, d.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	available, err := s.portal.AvailableWidgets(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	grouped := lo.GroupBy(available, func(w portal.AvailableWidget) string { return w.PluginDisplayName })
	groups := lo.Map(lo.Keys(grouped), func(name string, _ int) widgetGroup {
		return widgetGroup{Plugin: name, Widgets: grouped[name]}
	})
	sortGroups(groups)

	s.render(c, http.StatusOK, "Settings", "settings", gin.H{
		"Placed":       placed,
		"Groups":       groups,
		"Identity":     id,
		"CanPassword":  id.IsStandard() && !id.IsExternal,
		"Plugins":      s.portal.Registry().All(),
		"PublicEditor": id.IsPublic,
	})
}

func sortGroups(groups []widgetGroup) {
	slices.SortFunc(groups, func(a, b widgetGroup) int { return strings.Compare(a.Plugin, b.Plugin) })
}

func (s *Server) addWidget(c *gin.Context) {
	ctx := c.Request.Context()
	widgetID, err := plugin.ParseID(c.PostForm("widget-id"))
	if err != nil {
		flashRedirect(c, "error", "select a widget to add", settingsPath)
		return
	}
	name, ok := widgetName(c)
	if !ok {
		flashRedirect(c, "error", "widget name must be between 1 and "+strconv.Itoa(maxWidgetNameLength)+" characters", settingsPath)
		return
	}

	d, err := s.dashboard(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, err = s.portal.AddWidget(ctx, d.ID, widgetID, name)
	switch {
	case errors.Is(err, database.ErrNotFound):
		flashRedirect(c, "error", "unknown widget", settingsPath)
		return
	case errors.Is(err, portal.ErrRequiredPluginAbsent):
		flashRedirect(c, "error", "the plugin providing this widget is not loaded", settingsPath)
		return
	case err != nil:
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "added widget '"+name+"'", settingsPath)
}

func widgetName(c *gin.Context) (string, bool) {
	name := strings.TrimSpace(c.PostForm("name"))
	n := utf8.RuneCountInString(name)
	return name, n > 0 && n <= maxWidgetNameLength
}

// placedWidget loads the widget named by the :id param from the requester's
// dashboard. It answers 404 itself when the widget is missing.
func (s *Server) placedWidget(c *gin.Context) (*database.Dashboard, *database.DashboardWidget, bool) {
	widgetID, ok := plugin.ParamID(c, "id")
	if !ok {
		return nil, nil, false
	}
	d, err := s.dashboard(c)
	if err != nil {
		s.fail(c, err)
		return nil, nil, false
	}
	w, err := s.db.GetDashboardWidget(c.Request.Context(), d.ID, widgetID)
	if errors.Is(err, database.ErrNotFound) {
		c.String(http.StatusNotFound, "widget not found")
		return nil, nil, false
	}
	if err != nil {
		s.fail(c, err)
		return nil, nil, false
	}
	return d, w, true
}

func (s *Server) editWidget(c *gin.Context) {
	_, w, ok := s.placedWidget(c)
	if !ok {
		return
	}
	editor, ok, err := s.portal.RenderWidgetEditor(c.Request.Context(), w, settingsPath)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "Edit Widget", "widget-edit", gin.H{
		"Widget":    w,
		"Editor":    editor,
		"HasEditor": ok,
	})
}

func (s *Server) updateWidget(c *gin.Context) {
	d, w, ok := s.placedWidget(c)
	if !ok {
		return
	}
	name, ok := widgetName(c)
	if !ok {
		flashRedirect(c, "error", "widget name must be between 1 and "+strconv.Itoa(maxWidgetNameLength)+" characters", settingsPath)
		return
	}
	if err := s.db.UpdateDashboardWidget(c.Request.Context(), d.ID, w.ID, name, formBool(c, "show-header")); err != nil {
		s.orderError(c, err)
		return
	}
	flashRedirect(c, "ok", "updated widget '"+name+"'", settingsPath)
}

func (s *Server) deleteWidget(c *gin.Context) {
	d, w, ok := s.placedWidget(c)
	if !ok {
		return
	}
	if err := s.db.RemoveWidget(c.Request.Context(), d.ID, w.ID); err != nil {
		s.orderError(c, err)
		return
	}
	flashRedirect(c, "ok", "removed widget '"+w.Name+"'", settingsPath)
}

func (s *Server) shiftWidgetLeft(c *gin.Context) {
	s.shiftWidget(c, s.db.ShiftWidgetLeft)
}

func (s *Server) shiftWidgetRight(c *gin.Context) {
	s.shiftWidget(c, s.db.ShiftWidgetRight)
}

func (s *Server) shiftWidget(c *gin.Context, shift func(ctx context.Context, dashboardID, widgetID uint) error) {
	d, w, ok := s.placedWidget(c)
	if !ok {
		return
	}
	if err := shift(c.Request.Context(), d.ID, w.ID); err != nil {
		s.orderError(c, err)
		return
	}
	c.Redirect(http.StatusFound, settingsPath)
}

// orderError maps dashboard mutation failures. Inconsistent orders are data
// integrity errors and answer 500.
func (s *Server) orderError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrWidgetNotFound) || errors.Is(err, database.ErrNotFound) {
		c.String(http.StatusNotFound, "widget not found")
		return
	}
	s.fail(c, err)
}

func (s *Server) restoreDefaults(c *gin.Context) {
	if err := s.db.DeleteDashboard(c.Request.Context(), auth.FromContext(c).UserID); err != nil {
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "dashboard restored to defaults", settingsPath)
}

func (s *Server) changePassword(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(c)
	if !id.IsStandard() || id.IsExternal {
		flashRedirect(c, "error", "the password of this account can not be changed here", settingsPath)
		return
	}

	user, err := s.db.GetUserByID(ctx, id.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !auth.CheckPassword(user, c.PostForm("current-password")) {
		flashRedirect(c, "error", "current password incorrect", settingsPath)
		return
	}
	password := c.PostForm("new-password")
	if password != c.PostForm("new-password-confirm") {
		flashRedirect(c, "error", "Passwords do not match", settingsPath)
		return
	}
	if err := auth.ValidatePassword(user.Username, password, user.IsAdmin); err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			flashRedirect(c, "error", verr.Message, settingsPath)
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
	if err := s.db.SetUserPassword(ctx, user.ID, hash); err != nil {
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "password changed", settingsPath)
}
