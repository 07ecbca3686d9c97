package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugins"
	"github.com/enchant97/web-portal/internal/plugins/core"
	"github.com/enchant97/web-portal/internal/portal"
	"github.com/enchant97/web-portal/internal/scheduler"
	"github.com/enchant97/web-portal/internal/settings"
	"github.com/enchant97/web-portal/internal/version"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
)

const (
	adminPassword = "correct-horse-battery"
	userPassword  = "hunter2hunter2"
)

type ServerTestSuite struct {
	suite.Suite
	ctx    context.Context
	cfg    *config.Config
	db     *database.Client
	store  *settings.Store
	portal *portal.Service
	server *Server
	ts     *httptest.Server
	client *http.Client
}

func (s *ServerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctx = context.Background()

	dir := s.T().TempDir()
	s.cfg = &config.Config{
		SecretKey:     strings.Repeat("k", 32),
		SessionMaxAge: 3600,
		PluginsPath:   filepath.Join(dir, "plugins"),
		DataPath:      filepath.Join(dir, "data"),
	}
	for _, name := range []string{core.Name, "core_extras"} {
		s.Require().NoError(os.MkdirAll(filepath.Join(s.cfg.PluginsPath, name), 0o755))
	}
	static := filepath.Join(s.cfg.PluginsPath, core.Name, "static")
	s.Require().NoError(os.MkdirAll(static, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(static, "core.js"), []byte("// clock"), 0o644))

	var err error
	s.db, err = database.New("sqlite://" + filepath.Join(dir, "portal.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = s.db.Close() })
	s.Require().NoError(s.db.Migrate())

	s.store = settings.New(s.db, nil)
	s.portal = portal.NewWithPlugins(s.cfg, s.db, s.store, plugins.Builtin(), Page)
	s.Require().NoError(s.portal.LoadPlugins(s.ctx, version.Version))
	s.Require().Len(s.portal.Registry().All(), 2)

	sched, err := scheduler.New()
	s.Require().NoError(err)
	s.Require().NoError(scheduler.DefaultJobs{
		Settings:       s.store,
		PluginDataPath: filepath.Join(s.cfg.DataPath, "plugins"),
		UploadTmpDir:   core.TempDirName,
	}.Register(sched))
	sched.Start()
	s.T().Cleanup(func() { _ = sched.Stop() })

	s.server, err = New(Options{
		Config:    s.cfg,
		DB:        s.db,
		Settings:  s.store,
		Portal:    s.portal,
		Scheduler: sched,
		Version:   version.Version,
	})
	s.Require().NoError(err)

	s.ts = httptest.NewServer(s.server.Handler())
	s.T().Cleanup(s.ts.Close)
	s.client = s.newClient()
}

func (s *ServerTestSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (s *ServerTestSuite) do(client *http.Client, req *http.Request) (*http.Response, string) {
	resp, err := client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, string(body)
}

func (s *ServerTestSuite) get(path string) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodGet, s.ts.URL+path, nil)
	s.Require().NoError(err)
	return s.do(s.client, req)
}

func (s *ServerTestSuite) post(path string, form url.Values) (*http.Response, string) {
	req, err := http.NewRequest(http.MethodPost, s.ts.URL+path, strings.NewReader(form.Encode()))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(s.client, req)
}

func (s *ServerTestSuite) createUser(username, password string, isAdmin bool) *database.User {
	hash, err := auth.HashPassword(password)
	s.Require().NoError(err)
	u, err := s.db.CreateUser(s.ctx, username, hash, isAdmin)
	s.Require().NoError(err)
	return u
}

// completeSetup creates an admin and a standard user and marks the portal as set up.
func (s *ServerTestSuite) completeSetup() {
	s.createUser("admin", adminPassword, true)
	s.createUser("bob", userPassword, false)
	s.Require().NoError(s.store.Set(s.ctx, settings.KeyHasSetup, true))
}

func (s *ServerTestSuite) login(username, password string) {
	resp, _ := s.post("/auth/login", url.Values{"username": {username}, "password": {password}})
	s.Require().Equal(http.StatusFound, resp.StatusCode)
	s.Require().Equal("/", resp.Header.Get("Location"))
}

func (s *ServerTestSuite) catalogWidget(displayName string) uint {
	available, err := s.portal.AvailableWidgets(s.ctx)
	s.Require().NoError(err)
	w, ok := lo.Find(available, func(w portal.AvailableWidget) bool { return w.DisplayName == displayName })
	s.Require().True(ok, "widget %s not in catalog", displayName)
	return w.ID
}

func (s *ServerTestSuite) addWidget(displayName, name string) {
	resp, _ := s.post("/settings/widgets/add", url.Values{
		"widget-id": {strconv.FormatUint(uint64(s.catalogWidget(displayName)), 10)},
		"name":      {name},
	})
	s.Require().Equal(http.StatusFound, resp.StatusCode)
	s.Require().Equal(settingsPath, resp.Header.Get("Location"))
}

func (s *ServerTestSuite) placed(username string) []database.DashboardWidget {
	u, err := s.db.GetUserByUsername(s.ctx, username)
	s.Require().NoError(err)
	d, err := s.db.GetDashboard(s.ctx, u.ID)
	s.Require().NoError(err)
	widgets, err := s.db.EffectiveOrder(s.ctx, d.ID)
	s.Require().NoError(err)
	return widgets
}

func (s *ServerTestSuite) TestHealthy() {
	resp, body := s.get("/is-healthy")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("🆗", body)
	_, err := uuid.Parse(resp.Header.Get(requestIDHeader))
	s.NoError(err)

	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/is-healthy", nil)
	s.Require().NoError(err)
	req.Header.Set(requestIDHeader, id)
	resp, _ = s.do(s.client, req)
	s.Equal(id, resp.Header.Get(requestIDHeader))

	req.Header.Set(requestIDHeader, "not-an-id")
	resp, _ = s.do(s.client, req)
	s.NotEqual("not-an-id", resp.Header.Get(requestIDHeader))
}

func (s *ServerTestSuite) TestRedirectsToInstallUntilSetup() {
	for _, path := range []string{"/", "/settings", "/auth/login", "/plugins/core/"} {
		resp, _ := s.get(path)
		s.Equal(http.StatusFound, resp.StatusCode, path)
		s.Equal(installPath, resp.Header.Get("Location"), path)
	}

	resp, body := s.get(installPath)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "Create Admin")
}

func (s *ServerTestSuite) TestInstallFlow() {
	resp, _ := s.post("/install/finish", nil)
	s.Equal(installPath, resp.Header.Get("Location"))
	s.False(s.store.HasSetup(s.ctx))

	resp, _ = s.post("/install/admin-user", url.Values{
		"username": {"admin"}, "password": {adminPassword}, "password-confirm": {"other"},
	})
	s.Equal(installPath+"?username=admin", resp.Header.Get("Location"))

	resp, _ = s.post("/install/admin-user", url.Values{
		"username": {"admin"}, "password": {"short"}, "password-confirm": {"short"},
	})
	s.Equal(installPath+"?username=admin", resp.Header.Get("Location"))

	resp, _ = s.post("/install/admin-user", url.Values{
		"username": {"admin"}, "password": {adminPassword}, "password-confirm": {adminPassword},
	})
	s.Equal(installPath, resp.Header.Get("Location"))
	admin, err := s.db.GetUserByUsername(s.ctx, "admin")
	s.Require().NoError(err)
	s.True(admin.IsAdmin)

	resp, _ = s.post("/install/configs", url.Values{"portal-secured": {"on"}})
	s.Equal(installPath, resp.Header.Get("Location"))
	s.True(s.store.PortalSecured(s.ctx))
	s.False(s.store.ShowWidgetHeaders(s.ctx))

	resp, _ = s.post("/install/finish", nil)
	s.Equal("/", resp.Header.Get("Location"))
	s.True(s.store.HasSetup(s.ctx))

	resp, _ = s.get(installPath)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = s.get("/")
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
}

func (s *ServerTestSuite) TestDemoInstall() {
	resp, _ := s.post("/install/demo", nil)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.True(s.store.HasSetup(s.ctx))
	s.True(s.store.DemoMode(s.ctx))

	s.login("admin", "admin")
	_, body := s.get("/")
	s.Contains(body, "Demo mode is active")
}

func (s *ServerTestSuite) TestLoginLogout() {
	s.completeSetup()

	resp, body := s.get(auth.LoginPath)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotContains(body, "/auth/oidc/login")

	resp, _ = s.post("/auth/login", url.Values{"username": {"bob"}, "password": {"wrong-password"}})
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	_, body = s.get(auth.LoginPath)
	s.Contains(body, "username or password incorrect")

	s.login("bob", userPassword)
	resp, _ = s.get(auth.LoginPath)
	s.Equal("/", resp.Header.Get("Location"))
	resp, _ = s.get(settingsPath)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.get("/auth/logout")
	s.Equal("/", resp.Header.Get("Location"))
	resp, _ = s.get(settingsPath)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
}

func (s *ServerTestSuite) TestPortalSecured() {
	s.completeSetup()

	resp, body := s.get("/")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "<title>Portal | Portal</title>")

	s.Require().NoError(s.store.Set(s.ctx, settings.KeyPortalSecured, true))
	resp, _ = s.get("/")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	resp, _ = s.get("/plugins")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))

	s.login("bob", userPassword)
	resp, _ = s.get("/")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *ServerTestSuite) TestSettingsWidgetOrdering() {
	s.completeSetup()
	s.login("bob", userPassword)

	s.addWidget("Digital Clock", "First")
	s.addWidget("Links", "Second")
	s.addWidget("Web Search", "Third")
	widgets := s.placed("bob")
	s.Require().Len(widgets, 3)
	s.False(widgets[0].ShowHeader)
	first, second, third := widgets[0].ID, widgets[1].ID, widgets[2].ID

	resp, _ := s.post("/settings/widgets/"+itoa(first)+"/shift-left", nil)
	s.Equal(settingsPath, resp.Header.Get("Location"))
	s.Equal([]uint{second, third, first}, ids(s.placed("bob")))

	resp, _ = s.post("/settings/widgets/"+itoa(second)+"/shift-right", nil)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal([]uint{third, second, first}, ids(s.placed("bob")))

	resp, _ = s.post("/settings/widgets/"+itoa(second)+"/delete", nil)
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal([]uint{third, first}, ids(s.placed("bob")))

	resp, _ = s.post("/settings/widgets/"+itoa(second)+"/shift-left", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	resp, _ = s.post("/settings/widgets/abc/delete", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, body := s.get("/")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Less(strings.Index(body, "widget-"+itoa(third)), strings.Index(body, "widget-"+itoa(first)))

	resp, _ = s.post("/settings/restore-defaults", nil)
	s.Equal(http.StatusFound, resp.StatusCode)
	u, err := s.db.GetUserByUsername(s.ctx, "bob")
	s.Require().NoError(err)
	_, err = s.db.GetDashboard(s.ctx, u.ID)
	s.ErrorIs(err, database.ErrNotFound)
}

func (s *ServerTestSuite) TestAddWidgetValidation() {
	s.completeSetup()
	s.login("bob", userPassword)

	resp, _ := s.post("/settings/widgets/add", url.Values{"widget-id": {"x"}, "name": {"a"}})
	s.Equal(settingsPath, resp.Header.Get("Location"))
	resp, _ = s.post("/settings/widgets/add", url.Values{"widget-id": {"999"}, "name": {"a"}})
	s.Equal(settingsPath, resp.Header.Get("Location"))
	resp, _ = s.post("/settings/widgets/add", url.Values{
		"widget-id": {itoa(s.catalogWidget("Digital Clock"))},
		"name":      {strings.Repeat("n", maxWidgetNameLength+1)},
	})
	s.Equal(settingsPath, resp.Header.Get("Location"))
	_, body := s.get(settingsPath)
	s.Contains(body, "widget name must be between 1 and 128 characters")
	s.Empty(s.placed("bob"))
}

func (s *ServerTestSuite) TestShowWidgetHeadersDefault() {
	s.completeSetup()
	s.Require().NoError(s.store.Set(s.ctx, settings.KeyShowWidgetHeaders, true))
	s.login("bob", userPassword)

	s.addWidget("Digital Clock", "Clock")
	widgets := s.placed("bob")
	s.Require().Len(widgets, 1)
	s.True(widgets[0].ShowHeader)

	resp, _ := s.post("/settings/widgets/"+itoa(widgets[0].ID)+"/update", url.Values{"name": {"Renamed"}})
	s.Equal(settingsPath, resp.Header.Get("Location"))
	widgets = s.placed("bob")
	s.Equal("Renamed", widgets[0].Name)
	s.False(widgets[0].ShowHeader)

	resp, body := s.get("/settings/widgets/" + itoa(widgets[0].ID) + "/edit")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, `value="Renamed"`)
}

func (s *ServerTestSuite) TestPublicDashboardFallback() {
	s.completeSetup()
	s.login("admin", adminPassword)

	resp, _ := s.post("/auth/switch-to-public", nil)
	s.Equal(settingsPath, resp.Header.Get("Location"))
	resp, body := s.get(settingsPath)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "You are editing the public dashboard.")
	s.addWidget("Digital Clock", "Public Clock")
	public := s.placed(database.PublicAccountUsername)
	s.Require().Len(public, 1)

	resp, _ = s.get("/admin")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	resp, _ = s.post("/auth/switch-back", nil)
	s.Equal(settingsPath, resp.Header.Get("Location"))
	resp, _ = s.get("/admin")
	s.Equal(http.StatusOK, resp.StatusCode)

	anon := s.newClient()
	req, err := http.NewRequest(http.MethodGet, s.ts.URL+"/", nil)
	s.Require().NoError(err)
	resp, body = s.do(anon, req)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "widget-"+itoa(public[0].ID))

	s.login("bob", userPassword)
	_, body = s.get("/")
	s.Contains(body, "widget-"+itoa(public[0].ID))
	s.addWidget("Links", "Own")
	_, body = s.get("/")
	s.NotContains(body, "widget-"+itoa(public[0].ID))
}

func (s *ServerTestSuite) TestAdminGating() {
	s.completeSetup()

	resp, _ := s.get("/admin")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	s.login("bob", userPassword)
	resp, _ = s.get("/admin")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	resp, _ = s.post("/auth/switch-to-public", nil)
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
}

func (s *ServerTestSuite) TestAdminUsers() {
	s.completeSetup()
	s.login("admin", adminPassword)
	admin, err := s.db.GetUserByUsername(s.ctx, "admin")
	s.Require().NoError(err)

	resp, body := s.get("/admin/users")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "bob")
	s.NotContains(body, ">public<")

	resp, _ = s.post("/admin/users/new", url.Values{"username": {"carol"}, "password": {"s3cret-pass"}})
	s.Equal(adminUsersPath, resp.Header.Get("Location"))
	carol, err := s.db.GetUserByUsername(s.ctx, "carol")
	s.Require().NoError(err)
	s.False(carol.IsAdmin)

	resp, _ = s.post("/admin/users/new", url.Values{"username": {"carol"}, "password": {"s3cret-pass"}})
	s.Equal(adminUsersPath, resp.Header.Get("Location"))
	_, body = s.get("/admin/users")
	s.Contains(body, "Username already taken")

	s.post("/admin/users/"+itoa(carol.ID)+"/toggle-admin", nil)
	carol, err = s.db.GetUserByUsername(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(carol.IsAdmin)

	s.post("/admin/users/"+itoa(admin.ID)+"/delete", nil)
	_, err = s.db.GetUserByID(s.ctx, admin.ID)
	s.NoError(err)

	public, err := s.db.EnsurePublicAccount(s.ctx)
	s.Require().NoError(err)
	resp, _ = s.post("/admin/users/"+itoa(public.ID)+"/delete", nil)
	s.Equal(adminUsersPath, resp.Header.Get("Location"))
	_, err = s.db.GetUserByID(s.ctx, public.ID)
	s.NoError(err)

	resp, _ = s.post("/admin/users/"+itoa(carol.ID)+"/delete", nil)
	s.Equal(adminUsersPath, resp.Header.Get("Location"))
	_, err = s.db.GetUserByID(s.ctx, carol.ID)
	s.ErrorIs(err, database.ErrNotFound)

	resp, _ = s.post("/admin/users/9999/delete", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestAdminPortalSettings() {
	s.completeSetup()
	s.login("admin", adminPassword)

	resp, _ := s.post("/admin/portal", url.Values{"branding-title": {"Home Lab"}, "portal-secured": {"1"}})
	s.Equal(adminPortalPath, resp.Header.Get("Location"))
	s.Equal("Home Lab", s.store.Branding(s.ctx).Title)
	s.True(s.store.PortalSecured(s.ctx))

	_, body := s.get("/")
	s.Contains(body, "<title>Home Lab | Home Lab</title>")

	s.post("/admin/portal", url.Values{"branding-title": {strings.Repeat("t", maxBrandingTitle+1)}})
	s.Equal("Home Lab", s.store.Branding(s.ctx).Title)
}

func (s *ServerTestSuite) TestAdminPlugins() {
	s.completeSetup()
	s.login("admin", adminPassword)

	resp, body := s.get("/admin/plugins")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "core_extras")

	resp, _ = s.post("/admin/plugins/core/purge", nil)
	s.Equal(adminPluginsPath, resp.Header.Get("Location"))
	_, body = s.get("/admin/plugins")
	s.Contains(body, "unload it before purging")

	resp, _ = s.post("/admin/plugins/Bad-Name/purge", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestAdminImport() {
	s.completeSetup()
	s.login("admin", adminPassword)

	upload := func(content string) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile(legacyUploadField, "widgets.json")
		s.Require().NoError(err)
		_, err = part.Write([]byte(content))
		s.Require().NoError(err)
		s.Require().NoError(w.Close())

		req, err := http.NewRequest(http.MethodPost, s.ts.URL+adminImportPath, &buf)
		s.Require().NoError(err)
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, _ := s.do(s.client, req)
		return resp
	}

	resp := upload(`[{"url":"https://example.com","prefix":"Example","color_name":"red"}]`)
	s.Equal(adminImportPath, resp.Header.Get("Location"))
	_, body := s.get(adminImportPath)
	s.Contains(body, "imported 1 entries")

	upload(`{"not":"a list"}`)
	_, body = s.get(adminImportPath)
	s.Contains(body, "invalid legacy entry")
}

func (s *ServerTestSuite) TestAdminJobs() {
	s.completeSetup()
	s.login("admin", adminPassword)

	resp, body := s.get(adminJobsPath)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "Clean upload temp")
	s.NotContains(body, "Flush settings cache")

	resp, _ = s.post(adminJobsPath+"/"+scheduler.JobUploadTmpCleanup+"/run", nil)
	s.Equal(adminJobsPath, resp.Header.Get("Location"))
	resp, _ = s.post(adminJobsPath+"/missing/run", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestChangePassword() {
	s.completeSetup()
	s.login("bob", userPassword)

	s.post("/settings/password", url.Values{
		"current-password": {"wrong"}, "new-password": {"newpassword1"}, "new-password-confirm": {"newpassword1"},
	})
	_, body := s.get(settingsPath)
	s.Contains(body, "current password incorrect")

	resp, _ := s.post("/settings/password", url.Values{
		"current-password": {userPassword}, "new-password": {"newpassword1"}, "new-password-confirm": {"newpassword1"},
	})
	s.Equal(settingsPath, resp.Header.Get("Location"))
	u, err := s.db.GetUserByUsername(s.ctx, "bob")
	s.Require().NoError(err)
	s.True(auth.CheckPassword(u, "newpassword1"))
}

func (s *ServerTestSuite) TestPluginRoutesMounted() {
	s.completeSetup()

	resp, body := s.get("/plugins/core/static/core.js")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("// clock", body)

	resp, body = s.get("/static/style.css")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, ".widgets")

	// plugin pages need an account even on an open portal
	resp, _ = s.get("/plugins")
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))
	resp, _ = s.get("/plugins/core/")
	s.Equal(auth.LoginPath, resp.Header.Get("Location"))

	s.login("bob", userPassword)
	resp, body = s.get("/plugins")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, `href="/static/style.css"`)
	s.Contains(body, "Core")
	s.Contains(body, "Web Search")
	s.Contains(body, `<script src="/plugins/core/static/core.js"`)

	resp, body = s.get("/plugins/core/")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body, "<footer>")
}

func ids(widgets []database.DashboardWidget) []uint {
	return lo.Map(widgets, func(w database.DashboardWidget, _ int) uint { return w.ID })
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
