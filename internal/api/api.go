// Package api is the HTTP surface of the portal.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/portal"
	"github.com/enchant97/web-portal/internal/scheduler"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/enchant97/web-portal/internal/static"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "web_portal_session"

const shutdownTimeout = 5 * time.Second

// Options holds the dependencies of the server.
type Options struct {
	Config   *config.Config
	DB       database.DB
	Settings *settings.Store
	Portal   *portal.Service
	// Scheduler is optional, the job pages are hidden without it.
	Scheduler *scheduler.Scheduler
	// OIDC is optional.
	OIDC *auth.OIDCProvider
	// Version is shown in the footer when enabled.
	Version string
}

type Server struct {
	cfg       *config.Config
	db        database.DB
	settings  *settings.Store
	portal    *portal.Service
	scheduler *scheduler.Scheduler
	oidc      *auth.OIDCProvider
	version   string
	flags     auth.SettingsFlags

	ginEngine *gin.Engine
}

// New creates the server and registers every route, including the routes of
// the loaded plugins.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.DB == nil || opts.Settings == nil || opts.Portal == nil {
		return nil, fmt.Errorf("database, settings and portal are required")
	}

	s := &Server{
		cfg:       opts.Config,
		db:        opts.DB,
		settings:  opts.Settings,
		portal:    opts.Portal,
		scheduler: opts.Scheduler,
		oidc:      opts.OIDC,
		version:   opts.Version,
		flags:     auth.SettingsFlags{Settings: opts.Settings},
		ginEngine: gin.New(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.mountPlugins()
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupMiddleware() {
	s.ginEngine.Use(gin.Recovery(), requestLogger())
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression))
	s.setupSession()
	s.ginEngine.Use(auth.Identify(s.db), s.withLayout())
}

func (s *Server) setupRoutes() {
	r := s.ginEngine
	r.GET("/is-healthy", s.healthy)
	r.StaticFS("/static", static.HTTPFS())

	install := r.Group("/install", auth.EnsureNotSetup(s.flags))
	install.GET("", s.installIndex)
	install.POST("/admin-user", s.installAdminUser)
	install.POST("/configs", s.installConfigs)
	install.POST("/demo", s.installDemo)
	install.POST("/finish", s.installFinish)

	setup := r.Group("", auth.EnsureSetup(s.flags))
	setup.GET("/", auth.LoginRequiredIfSecured(s.flags), s.portalIndex)
	setup.GET("/plugins", auth.RequireLogin(), s.pluginsIndex)

	authGroup := setup.Group("/auth")
	authGroup.GET("/login", s.loginForm)
	authGroup.POST("/login", s.login)
	authGroup.GET("/logout", s.logout)
	authGroup.POST("/switch-to-public", auth.RequireAdmin(), s.switchToPublic)
	authGroup.POST("/switch-back", s.switchBack)
	if s.oidc != nil {
		authGroup.GET("/oidc/login", s.oidc.Login)
		authGroup.GET("/oidc/callback", s.oidc.Callback)
	}

	settingsGroup := setup.Group("/settings", auth.RequireDashboardEditor())
	settingsGroup.GET("", s.settingsIndex)
	settingsGroup.POST("/widgets/add", s.addWidget)
	settingsGroup.GET("/widgets/:id/edit", s.editWidget)
	settingsGroup.POST("/widgets/:id/update", s.updateWidget)
	settingsGroup.POST("/widgets/:id/delete", s.deleteWidget)
	settingsGroup.POST("/widgets/:id/shift-left", s.shiftWidgetLeft)
	settingsGroup.POST("/widgets/:id/shift-right", s.shiftWidgetRight)
	settingsGroup.POST("/restore-defaults", s.restoreDefaults)
	settingsGroup.POST("/password", auth.RequireLogin(), s.changePassword)

	admin := setup.Group("/admin", auth.RequireAdmin())
	admin.GET("", s.adminIndex)
	admin.GET("/users", s.adminUsers)
	admin.POST("/users/new", s.adminCreateUser)
	admin.POST("/users/:id/delete", s.adminDeleteUser)
	admin.POST("/users/:id/toggle-admin", s.adminToggleAdmin)
	admin.POST("/users/:id/password", s.adminResetPassword)
	admin.GET("/portal", s.adminPortal)
	admin.POST("/portal", s.adminSavePortal)
	admin.GET("/plugins", s.adminPlugins)
	admin.POST("/plugins/:name/purge", s.adminPurgePlugin)
	admin.GET("/import", s.adminImportForm)
	admin.POST("/import", s.adminImport)
	if s.scheduler != nil {
		admin.GET("/jobs", s.adminJobs)
		admin.POST("/jobs/:id/run", s.adminRunJob)
	}
}

// mountPlugins registers the route groups and static files of every loaded
// plugin below /plugins/{name}.
func (s *Server) mountPlugins() {
	for _, p := range s.portal.Registry().All() {
		base := "/plugins/" + p.Name
		if p.Env.StaticPath != "" {
			s.ginEngine.Static(base+"/static", p.Env.StaticPath)
		}
		group := s.ginEngine.Group(base, auth.EnsureSetup(s.flags))
		for _, rg := range p.Meta.Routes {
			rg.Register(group.Group(rg.Path))
		}
		log.Debug("mounted plugin routes", "plugin", p.Name, "base", base, "groups", len(p.Meta.Routes))
	}
}

// Handler returns the root handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "listen", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) healthy(c *gin.Context) {
	c.String(http.StatusOK, "🆗")
}
