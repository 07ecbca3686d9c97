package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/suite"
)

const (
	testClientID   = "portal"
	testKeyID      = "test-key"
	testAdminGroup = "portal-admins"
	validCode      = "valid-code"
)

type OIDCTestSuite struct {
	suite.Suite
	ctx     context.Context
	key     *rsa.PrivateKey
	issuer  *httptest.Server
	claims  map[string]any
	db      *database.Client
	cfg     *config.OIDCConfig
	router  *gin.Engine
	cookies []*http.Cookie
}

func (s *OIDCTestSuite) SetupSuite() {
	var err error
	s.key, err = rsa.GenerateKey(rand.Reader, 2048)
	s.Require().NoError(err)
}

func (s *OIDCTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctx = context.Background()
	s.cookies = nil
	s.claims = map[string]any{}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                s.issuer.URL,
			"authorization_endpoint":                s.issuer.URL + "/authorize",
			"token_endpoint":                        s.issuer.URL + "/token",
			"jwks_uri":                              s.issuer.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
			Key:       &s.key.PublicKey,
			KeyID:     testKeyID,
			Algorithm: string(jose.RS256),
			Use:       "sig",
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != validCode {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		writeJSON(w, map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     s.idToken(),
		})
	})
	s.issuer = httptest.NewServer(mux)
	s.T().Cleanup(s.issuer.Close)

	var err error
	s.db, err = database.New("sqlite://" + filepath.Join(s.T().TempDir(), "portal.db"))
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = s.db.Close() })
	s.Require().NoError(s.db.Migrate())
	_, err = s.db.CreateUser(s.ctx, "alice", []byte("local-hash"), false)
	s.Require().NoError(err)
	_, err = s.db.EnsurePublicAccount(s.ctx)
	s.Require().NoError(err)

	s.cfg = &config.OIDCConfig{
		Enabled:      true,
		Name:         "Company SSO",
		Issuer:       s.issuer.URL,
		ClientID:     testClientID,
		ClientSecret: "secret",
		RedirectURL:  "http://portal.local/auth/oidc/callback",
		AdminGroup:   testAdminGroup,
	}
	provider, err := NewOIDCProvider(s.ctx, s.cfg, s.db)
	s.Require().NoError(err)

	s.router = gin.New()
	s.router.Use(sessions.Sessions("session", cookie.NewStore([]byte("test-secret"))))
	s.router.Use(Identify(s.db))
	s.router.GET("/auth/oidc/login", provider.Login)
	s.router.GET("/auth/oidc/callback", provider.Callback)
	s.router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, FromContext(c))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// idToken signs the claims of the current test on top of valid defaults.
func (s *OIDCTestSuite) idToken() string {
	now := time.Now()
	claims := map[string]any{
		"iss": s.issuer.URL,
		"aud": testClientID,
		"sub": "subject-1",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}
	for k, v := range s.claims {
		claims[k] = v
	}
	payload, err := json.Marshal(claims)
	s.Require().NoError(err)

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: s.key, KeyID: testKeyID}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	s.Require().NoError(err)
	signed, err := signer.Sign(payload)
	s.Require().NoError(err)
	raw, err := signed.CompactSerialize()
	s.Require().NoError(err)
	return raw
}

func (s *OIDCTestSuite) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

// startLogin follows the login redirect and returns the issued state.
func (s *OIDCTestSuite) startLogin() string {
	w := s.get("/auth/oidc/login")
	s.Require().Equal(http.StatusFound, w.Code)

	target, err := url.Parse(w.Header().Get("Location"))
	s.Require().NoError(err)
	s.Equal(s.issuer.URL+"/authorize", target.Scheme+"://"+target.Host+target.Path)
	s.Equal(testClientID, target.Query().Get("client_id"))
	s.Equal(s.cfg.RedirectURL, target.Query().Get("redirect_uri"))

	state := target.Query().Get("state")
	s.Require().NotEmpty(state)
	return state
}

func (s *OIDCTestSuite) callback(state, code string) *httptest.ResponseRecorder {
	return s.get("/auth/oidc/callback?" + url.Values{"state": {state}, "code": {code}}.Encode())
}

func (s *OIDCTestSuite) whoami() Identity {
	var id Identity
	w := s.get("/whoami")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(jsonDecode(w, &id))
	return id
}

func (s *OIDCTestSuite) TestName() {
	p := &OIDCProvider{cfg: &config.OIDCConfig{}}
	s.Equal("OIDC", p.Name())
	p.cfg.Name = "Company SSO"
	s.Equal("Company SSO", p.Name())
}

func (s *OIDCTestSuite) TestNewOIDCProvider_UnknownIssuer() {
	cfg := *s.cfg
	cfg.Issuer = s.issuer.URL + "/elsewhere"
	p, err := NewOIDCProvider(s.ctx, &cfg, s.db)
	s.Error(err)
	s.Nil(p)
}

func (s *OIDCTestSuite) TestLoginIssuesFreshState() {
	first := s.startLogin()
	second := s.startLogin()
	s.NotEqual(first, second)

	// only the latest state is accepted
	s.claims["preferred_username"] = "carol"
	s.Equal(http.StatusBadRequest, s.callback(first, validCode).Code)
}

func (s *OIDCTestSuite) TestCallbackCreatesExternalAccount() {
	s.claims["preferred_username"] = "carol"
	w := s.callback(s.startLogin(), validCode)
	s.Equal(http.StatusFound, w.Code)
	s.Equal("/", w.Header().Get("Location"))

	id := s.whoami()
	s.True(id.Authenticated)
	s.True(id.IsExternal)
	s.False(id.IsAdmin)
	s.Equal("carol", id.Username)

	user, err := s.db.GetUserByUsername(s.ctx, "carol")
	s.Require().NoError(err)
	s.True(user.IsExternalAccount())
	s.Equal(id.UserID, user.ID)
}

func (s *OIDCTestSuite) TestCallbackReusesExternalAccount() {
	s.claims["preferred_username"] = "carol"
	s.Require().Equal(http.StatusFound, s.callback(s.startLogin(), validCode).Code)
	first := s.whoami().UserID

	s.Require().Equal(http.StatusFound, s.callback(s.startLogin(), validCode).Code)
	s.Equal(first, s.whoami().UserID)
}

func (s *OIDCTestSuite) TestCallbackFallsBackToSubject() {
	s.claims["sub"] = "user-42"
	s.Require().Equal(http.StatusFound, s.callback(s.startLogin(), validCode).Code)
	s.Equal("user-42", s.whoami().Username)
}

func (s *OIDCTestSuite) TestCallbackRejectsStateMismatch() {
	s.claims["preferred_username"] = "carol"

	// no login was started
	s.Equal(http.StatusBadRequest, s.callback("forged", validCode).Code)

	state := s.startLogin()
	s.Equal(http.StatusBadRequest, s.callback("forged", validCode).Code)
	// the mismatch consumed the pending state
	s.Equal(http.StatusBadRequest, s.callback(state, validCode).Code)
	s.False(s.whoami().Authenticated)

	_, err := s.db.GetUserByUsername(s.ctx, "carol")
	s.ErrorIs(err, database.ErrNotFound)
}

func (s *OIDCTestSuite) TestCallbackStateIsSingleUse() {
	s.claims["preferred_username"] = "carol"
	state := s.startLogin()
	s.Require().Equal(http.StatusFound, s.callback(state, validCode).Code)
	s.Equal(http.StatusBadRequest, s.callback(state, validCode).Code)
}

func (s *OIDCTestSuite) TestCallbackRejectsInvalidCode() {
	s.claims["preferred_username"] = "carol"
	s.Equal(http.StatusUnauthorized, s.callback(s.startLogin(), "wrong").Code)
	s.False(s.whoami().Authenticated)
}

func (s *OIDCTestSuite) TestCallbackRejectsForeignAudience() {
	s.claims["preferred_username"] = "carol"
	s.claims["aud"] = "another-client"
	s.Equal(http.StatusUnauthorized, s.callback(s.startLogin(), validCode).Code)
	s.False(s.whoami().Authenticated)
}

func (s *OIDCTestSuite) TestCallbackRejectsExpiredToken() {
	s.claims["preferred_username"] = "carol"
	s.claims["exp"] = time.Now().Add(-time.Hour).Unix()
	s.Equal(http.StatusUnauthorized, s.callback(s.startLogin(), validCode).Code)
}

func (s *OIDCTestSuite) TestCallbackRefusesPublicAccount() {
	for _, name := range []string{"public", "Public", "PUBLIC"} {
		s.claims["preferred_username"] = name
		s.Equal(http.StatusForbidden, s.callback(s.startLogin(), validCode).Code, name)
		s.False(s.whoami().Authenticated, name)
	}
	users, err := s.db.GetAllUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 2)
}

func (s *OIDCTestSuite) TestCallbackRefusesLocalAccount() {
	s.claims["preferred_username"] = "alice"
	s.Equal(http.StatusForbidden, s.callback(s.startLogin(), validCode).Code)
	s.False(s.whoami().Authenticated)

	alice, err := s.db.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.False(alice.IsExternalAccount())
	s.False(alice.IsAdmin)
}

func (s *OIDCTestSuite) TestCallbackSyncsAdminGroup() {
	s.claims["preferred_username"] = "carol"
	s.claims["groups"] = []string{"staff", testAdminGroup}
	s.Require().Equal(http.StatusFound, s.callback(s.startLogin(), validCode).Code)
	s.True(s.whoami().IsAdmin)

	s.claims["groups"] = []string{"staff"}
	s.Require().Equal(http.StatusFound, s.callback(s.startLogin(), validCode).Code)
	s.False(s.whoami().IsAdmin)

	carol, err := s.db.GetUserByUsername(s.ctx, "carol")
	s.Require().NoError(err)
	s.False(carol.IsAdmin)
}

func (s *OIDCTestSuite) TestResolveUser() {
	p := &OIDCProvider{cfg: &config.OIDCConfig{}, users: s.db}

	_, err := p.resolveUser(s.ctx, idClaims{})
	s.ErrorIs(err, ErrMissingUsername)
	_, err = p.resolveUser(s.ctx, idClaims{PreferredUsername: "  "})
	s.ErrorIs(err, ErrMissingUsername)
	_, err = p.resolveUser(s.ctx, idClaims{Sub: "Public"})
	s.ErrorIs(err, ErrReservedUsername)
	_, err = p.resolveUser(s.ctx, idClaims{PreferredUsername: "alice"})
	s.ErrorIs(err, ErrLocalAccount)

	// without an admin group, rights granted in the portal are kept
	dave, err := p.resolveUser(s.ctx, idClaims{PreferredUsername: "dave", Groups: []string{testAdminGroup}})
	s.Require().NoError(err)
	s.False(dave.IsAdmin)
	s.Require().NoError(s.db.SetUserAdmin(s.ctx, dave.ID, true))
	dave, err = p.resolveUser(s.ctx, idClaims{PreferredUsername: "dave"})
	s.Require().NoError(err)
	s.True(dave.IsAdmin)
}

func TestOIDCTestSuite(t *testing.T) {
	suite.Run(t, new(OIDCTestSuite))
}
