package plugin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/gin-gonic/gin"
)

// BackToParam carries the page an editor returns to.
const BackToParam = "back_to"

// BackTo returns the local path given in the back_to form or query value,
// or fallback when it is missing or points off-site.
func BackTo(c *gin.Context, fallback string) string {
	target := c.PostForm(BackToParam)
	if target == "" {
		target = c.Query(BackToParam)
	}
	if !IsLocalPath(target) {
		return fallback
	}
	return target
}

// IsLocalPath reports whether target is an absolute path on this host.
func IsLocalPath(target string) bool {
	return strings.HasPrefix(target, "/") &&
		!strings.HasPrefix(target, "//") &&
		!strings.HasPrefix(target, "/\\")
}

// RedirectBack redirects to BackTo(c, fallback).
func RedirectBack(c *gin.Context, fallback string) {
	c.Redirect(http.StatusFound, BackTo(c, fallback))
}

// ParseID parses a database id.
func ParseID(value string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return safecast.ToUint(id)
}

// ParamID parses the named route parameter as a database id. It aborts the
// request with 404 and returns false when the value is not an id.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := ParseID(c.Param(name))
	if err != nil || id == 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return 0, false
	}
	return id, true
}

// OwnedWidget loads the placed widget named by the id route parameter. The
// widget must belong to userID and be of the given kind of pluginName,
// otherwise the request is aborted and false returned.
func OwnedWidget(c *gin.Context, widgets WidgetStore, userID uint, pluginName, kind string) (*WidgetDetails, bool) {
	ctx := c.Request.Context()
	id, ok := ParamID(c, "id")
	if !ok {
		return nil, false
	}

	owner, err := widgets.WidgetOwnerID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Error("failed to get widget owner", "widget", id, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	if owner != userID {
		c.AbortWithStatus(http.StatusUnauthorized)
		return nil, false
	}

	details, err := widgets.WidgetDetails(ctx, id)
	if err != nil {
		log.Error("failed to get widget details", "widget", id, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return nil, false
	}
	if details.Plugin != pluginName || details.Kind != kind {
		c.AbortWithStatus(http.StatusBadRequest)
		return nil, false
	}
	return details, true
}
