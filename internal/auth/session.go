package auth

import (
	"encoding/gob"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserID       = "user_id"
	sessionSwitchedFrom = "switched_from"
	sessionOIDCState    = "oidc_state"
)

// Flash is a one time message shown on the next page.
type Flash struct {
	Category string
	Message  string
}

func init() {
	gob.Register(Flash{})
}

// AddFlash queues a message for the next rendered page.
func AddFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(Flash{Category: category, Message: message})
	_ = session.Save()
}

// Flashes pops the queued messages.
func Flashes(c *gin.Context) []Flash {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save()

	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			out = append(out, flash)
		}
	}
	return out
}

// Login starts a session for userID.
func Login(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserID, userID)
	return session.Save()
}

// Logout ends the session.
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// SwitchToPublic lets an admin act as the public account. The admin's id is
// kept in the session so SwitchBack can restore it.
func SwitchToPublic(c *gin.Context, publicID uint) error {
	id := FromContext(c)
	if !id.Authenticated || !id.IsAdmin {
		return ErrNotAdmin
	}
	session := sessions.Default(c)
	session.Set(sessionSwitchedFrom, id.UserID)
	session.Set(sessionUserID, publicID)
	return session.Save()
}

// SwitchBack restores the identity saved by SwitchToPublic. It reports false
// when there was nothing to restore.
func SwitchBack(c *gin.Context) (bool, error) {
	session := sessions.Default(c)
	from, ok := sessionUint(session, sessionSwitchedFrom)
	if !ok {
		return false, nil
	}
	session.Delete(sessionSwitchedFrom)
	session.Set(sessionUserID, from)
	return true, session.Save()
}

func sessionUint(session sessions.Session, key string) (uint, bool) {
	if val := session.Get(key); val != nil {
		if id, ok := val.(uint); ok && id != 0 {
			return id, true
		}
	}
	return 0, false
}
