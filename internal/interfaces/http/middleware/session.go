// internal/interfaces/http/middleware/session.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextSessionID = "session_id"
	sessionMaxAge    = 30 * 24 * 60 * 60
)

// Session gives every browser a stable id that keys its cart and
// checkout state. The cookie is issued on first contact.
func Session(cookieName string, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(cookieName)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(cookieName, id, sessionMaxAge, "/", "", secure, true)
		}
		c.Set(ContextSessionID, id)
		c.Next()
	}
}

// SessionID returns the session id set by Session
func SessionID(c *gin.Context) string {
	return c.GetString(ContextSessionID)
}
