package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/api"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/cache"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugins"
	"github.com/enchant97/web-portal/internal/plugins/core"
	"github.com/enchant97/web-portal/internal/portal"
	"github.com/enchant97/web-portal/internal/scheduler"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/enchant97/web-portal/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Web Portal server",
	Long:  `Start the Web Portal server. Plugins are loaded from the plugins path and database migrations run on startup.`,
	Example: `web-portal serve --config config.yml
web-portal serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// bootstrap opens the database and loads the plugins. Callers close the
// returned database.
func bootstrap(ctx context.Context, cfg *config.Config) (*database.Client, *settings.Store, *portal.Service) {
	db, err := database.New(cfg.DBURI)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	settingsCache, err := cache.NewSettingsCache(cfg.SettingsCache)
	if err != nil {
		log.Fatalf("failed to create settings cache: %v", err)
	}
	store := settings.New(db, settingsCache)

	svc := portal.NewWithPlugins(cfg, db, store, plugins.Builtin(), api.Page)
	if err := svc.LoadPlugins(ctx, version.Version); err != nil {
		log.Fatalf("failed to load plugins: %v", err)
	}
	return db, store, svc
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg := loadConfig()
	if log.GetLevel() != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, store, svc := bootstrap(ctx, cfg)
	defer db.Close() //nolint:errcheck

	if cfg.UnattendedDemoInstall && !store.HasSetup(ctx) {
		log.Warn("performing unattended demo install")
		if err := svc.DemoInstall(ctx); err != nil {
			log.Fatalf("failed to perform demo install: %v", err)
		}
	}

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	err = scheduler.DefaultJobs{
		Settings:       store,
		FlushInterval:  cfg.SettingsCache.FlushInterval,
		PluginDataPath: filepath.Join(cfg.DataPath, "plugins"),
		UploadTmpDir:   core.TempDirName,
	}.Register(sched)
	if err != nil {
		log.Fatalf("failed to register jobs: %v", err)
	}
	sched.Start()
	defer sched.Stop() //nolint:errcheck

	var oidc *auth.OIDCProvider
	if cfg.OIDCEnabled() {
		oidc, err = auth.NewOIDCProvider(ctx, cfg.Auth.OIDC, db)
		if err != nil {
			log.Fatalf("failed to create OIDC provider: %v", err)
		}
	}

	server, err := api.New(api.Options{
		Config:    cfg,
		DB:        db,
		Settings:  store,
		Portal:    svc,
		Scheduler: sched,
		OIDC:      oidc,
		Version:   version.Version,
	})
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	log.Info("web portal started successfully", "version", version.Version)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Info("shut down gracefully")
}
