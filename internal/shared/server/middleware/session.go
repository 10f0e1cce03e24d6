package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/page"
	"coverletter-backend/internal/sessions"
)

const (
	// SessionCookie carries the page session id.
	SessionCookie = "cl_session"

	sessionIDKey = "sessionId"
	pageKey      = "page"
)

// Session resolves the page session from its cookie, creating one when the
// cookie is missing or expired, and stores it in the context. The cookie
// lives for the browser session; idle expiry is enforced by the store.
func Session(store *sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Cookie(SessionCookie)
		id, pg, created := store.GetOrCreate(raw)
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(sessionIDKey, id)
		c.Set(pageKey, pg)
		c.Next()
	}
}

// SessionIDFromContext returns the session id set by Session, if any.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(sessionIDKey)
}

// PageFromContext returns the page controller set by Session.
func PageFromContext(c *gin.Context) *page.Controller {
	val, ok := c.Get(pageKey)
	if !ok {
		return nil
	}
	pg, _ := val.(*page.Controller)
	return pg
}
