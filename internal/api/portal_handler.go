package api

import (
	"net/http"

	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

func (s *Server) portalIndex(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(c)

	dashboard, err := s.portal.ResolveDashboard(ctx, id.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	widgets, err := s.portal.RenderDashboard(ctx, dashboard.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, s.settings.Branding(ctx).Title, "portal", gin.H{
		"Widgets":  widgets,
		"Personal": dashboard.OwnerID == id.UserID,
	})
}

type pluginListing struct {
	Name        string
	DisplayName string
	IndexPath   string
	Widgets     []string
	Specifier   string
}

func (s *Server) pluginsIndex(c *gin.Context) {
	listings := lo.Map(s.portal.Registry().All(), func(p *plugin.Plugin, _ int) pluginListing {
		return pluginListing{
			Name:        p.Name,
			DisplayName: p.Meta.DisplayName,
			IndexPath:   p.Meta.IndexPath,
			Widgets:     lo.Map(p.Meta.Widgets, func(w plugin.WidgetKind, _ int) string { return w.DisplayName }),
			Specifier:   p.Specifier.String(),
		}
	})
	s.render(c, http.StatusOK, "Plugins", "plugins", listings)
}
