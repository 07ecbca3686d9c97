// Package extras is the bundled core_extras plugin providing the embed_html
// and iframe widgets.
package extras

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/gin-gonic/gin"
)

// Name is the internal name the plugin is linked under.
const Name = "core_extras"

// DefaultIFrameHeight is used when an iframe widget has no height set.
const DefaultIFrameHeight = 150

const maxIFrameHeight = 4096

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("extras").ParseFS(templatesFS, "templates/*.html"))

// EmbedHTMLConfig is the config of an embed_html widget.
type EmbedHTMLConfig struct {
	Content string `json:"content"`
}

// IFrameConfig is the config of an iframe widget.
type IFrameConfig struct {
	Src    string `json:"src"`
	Height int    `json:"height"`
}

func decodeIFrame(cfg json.RawMessage) (IFrameConfig, error) {
	c := IFrameConfig{Height: DefaultIFrameHeight}
	if err := plugin.DecodeConfig(cfg, &c); err != nil {
		return c, err
	}
	if c.Height <= 0 {
		c.Height = DefaultIFrameHeight
	}
	return c, nil
}

type extras struct {
	env plugin.Env
}

// New is the factory of the core_extras plugin.
func New(env plugin.Env) (*plugin.Meta, error) {
	e := &extras{env: env}
	return &plugin.Meta{
		DisplayName:      "Core-Extras",
		VersionSpecifier: "== 2.*",
		Widgets: []plugin.WidgetKind{
			{Name: "embed_html", DisplayName: "Embed HTML"},
			{Name: "iframe", DisplayName: "Embed Website"},
		},
		Routes:     []plugin.RouteGroup{{Register: e.registerRoutes}},
		IndexPath:  "/plugins/core_extras/",
		Render:     e.render,
		RenderEdit: e.renderEdit,
	}, nil
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil //nolint:gosec
}

func (e *extras) render(_ context.Context, req plugin.RenderRequest) (template.HTML, error) {
	switch req.Kind {
	case "embed_html":
		var cfg EmbedHTMLConfig
		if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
			return "", err
		}
		// the widget exists to embed markup verbatim
		return template.HTML(cfg.Content), nil //nolint:gosec
	case "iframe":
		cfg, err := decodeIFrame(req.Config)
		if err != nil {
			return "", err
		}
		return execute("widget-iframe", cfg)
	default:
		return "", fmt.Errorf("%w: %s", plugin.ErrUnknownWidgetKind, req.Kind)
	}
}

func (e *extras) renderEdit(_ context.Context, req plugin.EditRequest) (template.HTML, error) {
	switch req.Kind {
	case "embed_html":
		var cfg EmbedHTMLConfig
		if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
			return "", err
		}
		return execute("edit-embed_html", map[string]any{
			"WidgetID": req.WidgetID,
			"BackTo":   req.BackTo,
			"Content":  cfg.Content,
		})
	case "iframe":
		cfg, err := decodeIFrame(req.Config)
		if err != nil {
			return "", err
		}
		return execute("edit-iframe", map[string]any{
			"WidgetID": req.WidgetID,
			"BackTo":   req.BackTo,
			"Src":      cfg.Src,
			"Height":   cfg.Height,
		})
	default:
		return "", fmt.Errorf("%w: %s", plugin.ErrUnknownWidgetKind, req.Kind)
	}
}

func (e *extras) registerRoutes(r gin.IRouter) {
	r.GET("/", auth.RequireLogin(), e.index)
	widgets := r.Group("/widget", auth.RequireDashboardEditor())
	widgets.POST("/embed_html/:id/update", e.updateEmbedHTML)
	widgets.POST("/iframe/:id/update", e.updateIFrame)
}

func (e *extras) index(c *gin.Context) {
	body, err := execute("index", nil)
	if err != nil {
		log.Error("failed to render index", "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	e.env.RenderPage(c, http.StatusOK, "Core-Extras", body)
}

func (e *extras) saveConfig(c *gin.Context, widgetID uint, cfg any) {
	data, err := json.Marshal(cfg)
	if err == nil {
		err = e.env.Widgets.SetWidgetConfig(c.Request.Context(), widgetID, data)
	}
	if err != nil {
		log.Error("failed to save widget config", "widget", widgetID, "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	auth.AddFlash(c, "ok", "updated widget")
	plugin.RedirectBack(c, "/settings")
}

func (e *extras) updateEmbedHTML(c *gin.Context) {
	details, ok := plugin.OwnedWidget(c, e.env.Widgets, auth.FromContext(c).UserID, e.env.Name, "embed_html")
	if !ok {
		return
	}
	e.saveConfig(c, details.ID, EmbedHTMLConfig{Content: c.PostForm("content")})
}

func (e *extras) updateIFrame(c *gin.Context) {
	details, ok := plugin.OwnedWidget(c, e.env.Widgets, auth.FromContext(c).UserID, e.env.Name, "iframe")
	if !ok {
		return
	}
	height, err := strconv.Atoi(c.DefaultPostForm("height", strconv.Itoa(DefaultIFrameHeight)))
	if err != nil || height <= 0 || height > maxIFrameHeight {
		auth.AddFlash(c, "error", fmt.Sprintf("height must be between 1 and %d", maxIFrameHeight))
		plugin.RedirectBack(c, "/settings")
		return
	}
	e.saveConfig(c, details.ID, IFrameConfig{Src: c.PostForm("src"), Height: height})
}
