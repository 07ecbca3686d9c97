package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/gin-gonic/gin"
)

// TempDirName is the directory below the plugin data path holding uploads
// while they are processed.
const TempDirName = "tmp"

const settingsPath = "/settings"

func (p *Plugin) registerRoutes(r gin.IRouter) {
	flags := auth.SettingsFlags{Settings: p.env.System}

	r.GET("/", auth.RequireLogin(), p.index)
	r.GET("/icons/:name", auth.LoginRequiredIfSecured(flags), p.icon)

	admin := r.Group("", auth.RequireAdmin())
	admin.POST("/settings", p.saveSettings)
	admin.GET("/upload-icons", p.uploadIconsForm)
	admin.POST("/upload-icons", p.uploadIcons)

	admin.GET("/links", p.listLinks)
	admin.GET("/links/new", p.linkForm)
	admin.POST("/links/new", p.saveLink)
	admin.GET("/links/:id/edit", p.linkForm)
	admin.POST("/links/:id/edit", p.saveLink)
	admin.POST("/links/:id/delete", p.deleteLink)

	admin.GET("/engines", p.listEngines)
	admin.GET("/engines/new", p.engineForm)
	admin.POST("/engines/new", p.saveEngine)
	admin.GET("/engines/:id/edit", p.engineForm)
	admin.POST("/engines/:id/edit", p.saveEngine)
	admin.POST("/engines/:id/delete", p.deleteEngine)

	widgets := r.Group("/widget", auth.RequireDashboardEditor())
	widgets.POST("/search/:id/update", p.updateSearchWidget)
	widgets.POST("/links/:id/customise", p.customiseLinksWidget)
	widgets.POST("/links/:id/add", p.addWidgetLink)
	widgets.POST("/links/:id/:index/delete", p.removeWidgetLink)
}

func (p *Plugin) page(c *gin.Context, title, name string, data any) {
	body, err := execute(name, data)
	if err != nil {
		p.fail(c, err)
		return
	}
	p.env.RenderPage(c, http.StatusOK, title, body)
}

func (p *Plugin) fail(c *gin.Context, err error) {
	log.Error("core plugin request failed", "path", c.Request.URL.Path, "error", err)
	c.AbortWithStatus(http.StatusInternalServerError)
}

func (p *Plugin) index(c *gin.Context) {
	p.page(c, "Core", "index", map[string]any{
		"IsAdmin":  auth.FromContext(c).IsAdmin,
		"Settings": p.settings(c.Request.Context()),
	})
}

func (p *Plugin) saveSettings(c *gin.Context) {
	ctx := c.Request.Context()
	values := map[string]bool{
		KeyAllowIconUploads: c.PostForm("allow_icon_uploads") == "true",
		KeyOpenToNewTab:     c.PostForm("open_to_new_tab") == "true",
	}
	for key, value := range values {
		if err := p.env.Settings.Set(ctx, key, value); err != nil {
			p.fail(c, err)
			return
		}
	}
	auth.AddFlash(c, "ok", "updated core settings")
	c.Redirect(http.StatusFound, "/plugins/core/")
}

func (p *Plugin) icon(c *gin.Context) {
	path, ok := p.icons.Path(c.Param("name"))
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	// svg files may carry scripts
	c.Header("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	c.File(path)
}

func (p *Plugin) uploadIconsForm(c *gin.Context) {
	if !p.settings(c.Request.Context()).AllowIconUploads {
		auth.AddFlash(c, "error", "icon upload has been disabled by the admin")
		c.Redirect(http.StatusFound, "/plugins/core/")
		return
	}
	p.page(c, "Upload Icons", "upload-icons", humanize.Bytes(uint64(max(p.env.MaxUploadSize, 0))))
}

func (p *Plugin) uploadIcons(c *gin.Context) {
	if !p.settings(c.Request.Context()).AllowIconUploads {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	back := "/plugins/core/upload-icons"

	file, err := c.FormFile("file")
	if err != nil {
		auth.AddFlash(c, "error", "no file uploaded")
		c.Redirect(http.StatusFound, back)
		return
	}
	if p.env.MaxUploadSize > 0 && file.Size > p.env.MaxUploadSize {
		auth.AddFlash(c, "error", fmt.Sprintf("upload exceeds the limit of %s", humanize.Bytes(uint64(p.env.MaxUploadSize))))
		c.Redirect(http.StatusFound, back)
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".zip") {
		auth.AddFlash(c, "error", "failed to upload icons, (unknown file extension)")
		c.Redirect(http.StatusFound, back)
		return
	}

	tmpRoot := filepath.Join(p.env.DataPath, TempDirName)
	if err := os.MkdirAll(tmpRoot, 0o750); err != nil {
		p.fail(c, err)
		return
	}
	dir, err := os.MkdirTemp(tmpRoot, "upload-")
	if err != nil {
		p.fail(c, err)
		return
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "icons.zip")
	if err := c.SaveUploadedFile(file, dst); err != nil {
		p.fail(c, err)
		return
	}

	stats, err := p.icons.ImportZip(dst)
	switch {
	case err != nil:
		log.Warn("failed to import icons", "error", err)
		auth.AddFlash(c, "error", "failed to read the uploaded archive")
	case stats.Total() == 0:
		auth.AddFlash(c, "error", "detected no image files, did you put them in the correct format?")
	default:
		auth.AddFlash(c, "ok", fmt.Sprintf("uploaded icons (png=%d, svg=%d)", stats.PNG, stats.SVG))
	}
	c.Redirect(http.StatusFound, back)
}

func (p *Plugin) listLinks(c *gin.Context) {
	links, err := p.store.links(c.Request.Context())
	if err != nil {
		p.fail(c, err)
		return
	}
	p.page(c, "Links", "links", links)
}

// optionalID parses the id route parameter when the route has one.
func optionalID(c *gin.Context) (uint, bool) {
	if c.Param("id") == "" {
		return 0, true
	}
	return plugin.ParamID(c, "id")
}

func (p *Plugin) linkForm(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := optionalID(c)
	if !ok {
		return
	}
	data := map[string]any{"Link": (*Link)(nil), "Current": ""}
	if id != 0 {
		link, err := p.store.link(ctx, id)
		if errors.Is(err, ErrLinkNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		if err != nil {
			p.fail(c, err)
			return
		}
		data["Link"] = link
		if link.IconName != nil {
			data["Current"] = *link.IconName
		}
	}
	icons, err := p.icons.Names()
	if err != nil {
		p.fail(c, err)
		return
	}
	data["Icons"] = icons
	p.page(c, "Link", "link-form", data)
}

func (p *Plugin) saveLink(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := optionalID(c)
	if !ok {
		return
	}
	link := Link{
		ID:        id,
		Name:      strings.TrimSpace(c.PostForm("name")),
		URL:       strings.TrimSpace(c.PostForm("url")),
		ColorName: strings.TrimSpace(c.PostForm("color_name")),
	}
	if link.Name == "" {
		auth.AddFlash(c, "error", "link name cannot be blank")
		c.Redirect(http.StatusFound, c.Request.URL.Path)
		return
	}
	if icon := strings.TrimSpace(c.PostForm("icon-name")); icon != "" {
		if !p.icons.Exists(icon) {
			log.Warn("requested icon not found", "name", icon)
			auth.AddFlash(c, "error", "failed to find icon")
			c.Redirect(http.StatusFound, c.Request.URL.Path)
			return
		}
		link.IconName = &icon
	}
	if id != 0 {
		if _, err := p.store.link(ctx, id); errors.Is(err, ErrLinkNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
	}

	if err := p.store.saveLink(ctx, &link); err != nil {
		if errors.Is(err, ErrNameTaken) {
			auth.AddFlash(c, "error", fmt.Sprintf("a link named '%s' already exists", link.Name))
			c.Redirect(http.StatusFound, c.Request.URL.Path)
			return
		}
		p.fail(c, err)
		return
	}
	verb := "created"
	if id != 0 {
		verb = "updated"
	}
	auth.AddFlash(c, "ok", fmt.Sprintf("%s link with name '%s'", verb, link.Name))
	c.Redirect(http.StatusFound, "/plugins/core/links")
}

func (p *Plugin) deleteLink(c *gin.Context) {
	id, ok := plugin.ParamID(c, "id")
	if !ok {
		return
	}
	if err := p.store.deleteLink(c.Request.Context(), id); err != nil && !errors.Is(err, ErrLinkNotFound) {
		p.fail(c, err)
		return
	}
	auth.AddFlash(c, "ok", "deleted link")
	c.Redirect(http.StatusFound, "/plugins/core/links")
}

func (p *Plugin) listEngines(c *gin.Context) {
	engines, err := p.store.engines(c.Request.Context())
	if err != nil {
		p.fail(c, err)
		return
	}
	p.page(c, "Search Engines", "engines", engines)
}

func (p *Plugin) engineForm(c *gin.Context) {
	id, ok := optionalID(c)
	if !ok {
		return
	}
	var engine *SearchEngine
	if id != 0 {
		var err error
		engine, err = p.store.engine(c.Request.Context(), id)
		if errors.Is(err, ErrEngineNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		if err != nil {
			p.fail(c, err)
			return
		}
	}
	p.page(c, "Search Engine", "engine-form", engine)
}

func (p *Plugin) saveEngine(c *gin.Context) {
	ctx := c.Request.Context()
	id, ok := optionalID(c)
	if !ok {
		return
	}
	method, err := ParseSearchMethod(c.PostForm("method"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	engine := SearchEngine{
		ID:         id,
		Name:       strings.TrimSpace(c.PostForm("name")),
		URL:        strings.TrimSpace(c.PostForm("url")),
		QueryParam: strings.TrimSpace(c.PostForm("query-param")),
		Method:     method,
	}
	if engine.Name == "" {
		auth.AddFlash(c, "error", "engine name cannot be blank")
		c.Redirect(http.StatusFound, c.Request.URL.Path)
		return
	}
	if id != 0 {
		if _, err := p.store.engine(ctx, id); errors.Is(err, ErrEngineNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
	}

	if err := p.store.saveEngine(ctx, &engine); err != nil {
		if errors.Is(err, ErrNameTaken) {
			auth.AddFlash(c, "error", fmt.Sprintf("an engine named '%s' already exists", engine.Name))
			c.Redirect(http.StatusFound, c.Request.URL.Path)
			return
		}
		p.fail(c, err)
		return
	}
	verb := "created"
	if id != 0 {
		verb = "updated"
	}
	auth.AddFlash(c, "ok", fmt.Sprintf("%s engine with name '%s'", verb, engine.Name))
	c.Redirect(http.StatusFound, "/plugins/core/engines")
}

func (p *Plugin) deleteEngine(c *gin.Context) {
	id, ok := plugin.ParamID(c, "id")
	if !ok {
		return
	}
	if err := p.store.deleteEngine(c.Request.Context(), id); err != nil && !errors.Is(err, ErrEngineNotFound) {
		p.fail(c, err)
		return
	}
	auth.AddFlash(c, "ok", "deleted engine")
	c.Redirect(http.StatusFound, "/plugins/core/engines")
}

func (p *Plugin) ownedWidget(c *gin.Context, kind string) (*plugin.WidgetDetails, bool) {
	return plugin.OwnedWidget(c, p.env.Widgets, auth.FromContext(c).UserID, p.env.Name, kind)
}

func (p *Plugin) setConfig(c *gin.Context, widgetID uint, cfg any) bool {
	data, err := json.Marshal(cfg)
	if err != nil {
		p.fail(c, err)
		return false
	}
	if err := p.env.Widgets.SetWidgetConfig(c.Request.Context(), widgetID, data); err != nil {
		p.fail(c, err)
		return false
	}
	return true
}

func (p *Plugin) linksConfig(c *gin.Context, details *plugin.WidgetDetails) (LinksConfig, bool) {
	cfg := LinksConfig{Links: []uint{}}
	if err := plugin.DecodeConfig(details.Config, &cfg); err != nil {
		p.fail(c, err)
		return cfg, false
	}
	if cfg.Links == nil {
		cfg.Links = []uint{}
	}
	return cfg, true
}

func (p *Plugin) updateSearchWidget(c *gin.Context) {
	details, ok := p.ownedWidget(c, "search")
	if !ok {
		return
	}
	engineID, err := plugin.ParseID(c.PostForm("engine-id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	engine, err := p.store.engine(c.Request.Context(), engineID)
	if errors.Is(err, ErrEngineNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		p.fail(c, err)
		return
	}

	if !p.setConfig(c, details.ID, SearchConfig{EngineID: engine.ID}) {
		return
	}
	auth.AddFlash(c, "ok", fmt.Sprintf("updated search engine to '%s'", engine.Name))
	plugin.RedirectBack(c, settingsPath)
}

func (p *Plugin) customiseLinksWidget(c *gin.Context) {
	details, ok := p.ownedWidget(c, "links")
	if !ok {
		return
	}
	cfg, ok := p.linksConfig(c, details)
	if !ok {
		return
	}
	cfg.IsCompact, _ = strconv.ParseBool(c.PostForm("is_compact"))
	if !p.setConfig(c, details.ID, cfg) {
		return
	}
	plugin.RedirectBack(c, settingsPath)
}

func (p *Plugin) addWidgetLink(c *gin.Context) {
	details, ok := p.ownedWidget(c, "links")
	if !ok {
		return
	}
	linkID, err := plugin.ParseID(c.PostForm("link-id"))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	link, err := p.store.link(c.Request.Context(), linkID)
	if errors.Is(err, ErrLinkNotFound) {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if err != nil {
		p.fail(c, err)
		return
	}

	cfg, ok := p.linksConfig(c, details)
	if !ok {
		return
	}
	if slices.Contains(cfg.Links, link.ID) {
		auth.AddFlash(c, "error", "not adding link, as already added")
	} else {
		cfg.Links = append(cfg.Links, link.ID)
		if !p.setConfig(c, details.ID, cfg) {
			return
		}
		auth.AddFlash(c, "ok", fmt.Sprintf("added new link '%s' to widget '%s'", link.Name, details.DisplayName))
	}
	plugin.RedirectBack(c, settingsPath)
}

func (p *Plugin) removeWidgetLink(c *gin.Context) {
	details, ok := p.ownedWidget(c, "links")
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	cfg, ok := p.linksConfig(c, details)
	if !ok {
		return
	}
	if index < 0 || index >= len(cfg.Links) {
		auth.AddFlash(c, "error", "cannot find link to delete")
		plugin.RedirectBack(c, settingsPath)
		return
	}
	cfg.Links = slices.Delete(cfg.Links, index, index+1)
	if !p.setConfig(c, details.ID, cfg) {
		return
	}
	auth.AddFlash(c, "ok", fmt.Sprintf("removed link from widget '%s'", details.DisplayName))
	plugin.RedirectBack(c, settingsPath)
}
