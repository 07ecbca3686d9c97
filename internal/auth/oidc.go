package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/enchant97/web-portal/internal/config"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	// ErrReservedUsername is returned when an identity provider asserts the
	// username of the public account.
	ErrReservedUsername = errors.New("username is reserved")
	// ErrLocalAccount is returned when an identity provider asserts the
	// username of an account with a local password.
	ErrLocalAccount = errors.New("username belongs to a local account")
	// ErrMissingUsername is returned when the claims carry no usable username.
	ErrMissingUsername = errors.New("claims carry no username")
)

// ExternalUsers creates and updates accounts managed by an identity provider.
type ExternalUsers interface {
	GetOrCreateUser(ctx context.Context, username string) (*database.User, error)
	SetUserAdmin(ctx context.Context, id uint, isAdmin bool) error
}

// OIDCProvider logs users in through an OpenID Connect provider. Users are
// created as external accounts on their first login.
type OIDCProvider struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	config   *oauth2.Config
	cfg      *config.OIDCConfig
	users    ExternalUsers
}

// NewOIDCProvider discovers the issuer and prepares the oauth2 flow.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig, users ExternalUsers) (*OIDCProvider, error) {
	p := OIDCProvider{
		cfg:   cfg,
		users: users,
	}
	var err error
	p.provider, err = oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}

	p.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     p.provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email", "groups"},
	}

	p.verifier = p.provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &p, nil
}

// Name is the display name of the provider on the login page.
func (p *OIDCProvider) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}
	return "OIDC"
}

func (p *OIDCProvider) Login(c *gin.Context) {
	state := uuid.New().String()
	session := sessions.Default(c)
	session.Set(sessionOIDCState, state)
	if err := session.Save(); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}
	c.Redirect(http.StatusFound, p.config.AuthCodeURL(state))
}

func (p *OIDCProvider) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessions.Default(c)

	state, _ := session.Get(sessionOIDCState).(string)
	session.Delete(sessionOIDCState)
	if err := session.Save(); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}
	if state == "" || c.Query("state") != state {
		c.AbortWithError(http.StatusBadRequest, errors.New("invalid oidc state")) //nolint:errcheck
		return
	}

	oauth2Token, err := p.config.Exchange(ctx, c.Query("code"))
	if err != nil {
		c.AbortWithError(http.StatusUnauthorized, err) //nolint:errcheck
		return
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		c.AbortWithError(http.StatusInternalServerError, errors.New("missing id_token")) //nolint:errcheck
		return
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		c.AbortWithError(http.StatusUnauthorized, err) //nolint:errcheck
		return
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}

	user, err := p.resolveUser(ctx, claims)
	switch {
	case errors.Is(err, ErrReservedUsername), errors.Is(err, ErrLocalAccount), errors.Is(err, ErrMissingUsername):
		log.Warn("oidc login refused", "username", claims.username(), "error", err)
		c.AbortWithStatus(http.StatusForbidden)
		return
	case err != nil:
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}

	if err := Login(c, user.ID); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck
		return
	}
	c.Redirect(http.StatusFound, "/")
}

type idClaims struct {
	PreferredUsername string   `json:"preferred_username"`
	Sub               string   `json:"sub"`
	Groups            []string `json:"groups"`
}

func (c idClaims) username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Sub
}

// resolveUser maps verified claims to an external account, creating it on
// first login. Admin rights follow the admin group when one is configured.
func (p *OIDCProvider) resolveUser(ctx context.Context, claims idClaims) (*database.User, error) {
	username := strings.TrimSpace(claims.username())
	if username == "" {
		return nil, ErrMissingUsername
	}
	if strings.EqualFold(username, database.PublicAccountUsername) {
		return nil, ErrReservedUsername
	}

	user, err := p.users.GetOrCreateUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsExternalAccount() {
		return nil, ErrLocalAccount
	}

	if p.cfg.AdminGroup != "" {
		isAdmin := slices.Contains(claims.Groups, p.cfg.AdminGroup)
		if isAdmin != user.IsAdmin {
			if err := p.users.SetUserAdmin(ctx, user.ID, isAdmin); err != nil {
				return nil, err
			}
			user.IsAdmin = isAdmin
		}
	}
	return user, nil
}
