package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/enchant97/web-portal/internal/auth"
	"github.com/gin-gonic/gin"
)

func (s *Server) loginForm(c *gin.Context) {
	if auth.FromContext(c).IsStandard() {
		c.Redirect(http.StatusFound, "/")
		return
	}
	s.render(c, http.StatusOK, "Login", "login", gin.H{"OIDC": s.oidc != nil})
}

func (s *Server) login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	user, err := auth.PasswordLogin(c.Request.Context(), s.db, username, c.PostForm("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		flashRedirect(c, "error", "username or password incorrect", auth.LoginPath)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.Login(c, user.ID); err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) logout(c *gin.Context) {
	if err := auth.Logout(c); err != nil {
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "You have been logged out", "/")
}

func (s *Server) switchToPublic(c *gin.Context) {
	public, err := s.db.EnsurePublicAccount(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.SwitchToPublic(c, public.ID); err != nil {
		s.fail(c, err)
		return
	}
	flashRedirect(c, "ok", "switched to the public account", "/settings")
}

func (s *Server) switchBack(c *gin.Context) {
	ok, err := auth.SwitchBack(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	flashRedirect(c, "ok", "switched back to your account", "/settings")
}
