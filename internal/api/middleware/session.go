package middleware

import (
	"github.com/gin-gonic/gin"
)

// HeaderSessionID is the request header carrying the caller's session id.
const HeaderSessionID = "X-Session-ID"

// sessionIDKey is the gin context key the session id is stored under.
const sessionIDKey = "session_id"

// SessionMiddleware extracts the session id from the request.
type SessionMiddleware struct{}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware() *SessionMiddleware {
	return &SessionMiddleware{}
}

// ExtractSession returns a gin middleware that stores the X-Session-ID header
// in the request context. The header is optional; callers without one share
// the service's default session.
func (m *SessionMiddleware) ExtractSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sessionID := c.GetHeader(HeaderSessionID); sessionID != "" {
			c.Set(sessionIDKey, sessionID)
		}
		c.Next()
	}
}

// GetSessionID retrieves the session id from the gin context.
func GetSessionID(c *gin.Context) string {
	if sessionID, exists := c.Get(sessionIDKey); exists {
		return sessionID.(string)
	}
	return c.GetHeader(HeaderSessionID)
}
