package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.New("api").ParseFS(templatesFS, "templates/*.html"))

const layoutKey = "layout_server"

// layout is the data of the page frame around every body.
type layout struct {
	Title    string
	Body     template.HTML
	Branding settings.Branding
	Identity auth.Identity
	Flashes  []auth.Flash
	Heads    []template.HTML
	Version  string
	DemoMode bool
	OIDC     string
}

func (s *Server) withLayout() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(layoutKey, s)
		c.Next()
	}
}

// Page writes body wrapped in the application layout. Plugins receive it as
// their page renderer. Outside of a server request the bare body is written.
func Page(c *gin.Context, status int, title string, body template.HTML) {
	v, _ := c.Get(layoutKey)
	s, ok := v.(*Server)
	if !ok {
		c.Data(status, "text/html; charset=utf-8", []byte(body))
		return
	}
	s.page(c, status, title, body)
}

func (s *Server) page(c *gin.Context, status int, title string, body template.HTML) {
	ctx := c.Request.Context()
	data := layout{
		Title:    title,
		Body:     body,
		Branding: s.settings.Branding(ctx),
		Identity: auth.FromContext(c),
		Flashes:  auth.Flashes(c),
		DemoMode: s.settings.DemoMode(ctx),
	}
	if s.cfg.ShowVersionNumber {
		data.Version = s.version
	}
	if s.oidc != nil {
		data.OIDC = s.oidc.Name()
	}
	heads, err := s.portal.InjectedHeads(ctx)
	if err != nil {
		log.Error("failed to collect plugin heads", "error", err)
	}
	data.Heads = heads

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.fail(c, fmt.Errorf("failed to render layout: %w", err))
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// render executes the named body template and writes it as a full page.
func (s *Server) render(c *gin.Context, status int, title, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.fail(c, fmt.Errorf("failed to render %s: %w", name, err))
		return
	}
	s.page(c, status, title, template.HTML(buf.String())) //nolint:gosec
}

// fail logs err and answers with a plain 500. Data integrity errors end up
// here too.
func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	log.Error("request failed", "path", c.Request.URL.Path, "id", c.GetString(requestIDKey), "error", err)
	c.Data(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Internal Server Error"))
	c.Abort()
}

// flashRedirect queues a flash and redirects with 302.
func flashRedirect(c *gin.Context, category, message, location string) {
	auth.AddFlash(c, category, message)
	c.Redirect(http.StatusFound, location)
}
