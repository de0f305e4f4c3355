package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-tracker/backend/internal/services"
)

const (
	UserIDKey  = "user_id"
	SessionKey = "session"
)

// TokenParser validates an access token and returns the session it
// carries.
type TokenParser interface {
	ParseAccessToken(token string) (services.Session, error)
}

// Auth requires a valid Bearer access token. The session is stored on both
// the gin context and the request context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		scheme, tokenStr, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenStr) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		session, err := parser.ParseAccessToken(strings.TrimSpace(tokenStr))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token is invalid or expired",
			})
			return
		}

		c.Set(UserIDKey, session.UserID)
		c.Set(SessionKey, session)
		c.Request = c.Request.WithContext(services.WithSession(c.Request.Context(), session))
		c.Next()
	}
}

// CurrentSession returns the session placed by Auth.
func CurrentSession(c *gin.Context) (services.Session, bool) {
	if value, ok := c.Get(SessionKey); ok {
		if session, ok := value.(services.Session); ok && session.UserID != 0 {
			return session, true
		}
	}
	return services.SessionFromContext(c.Request.Context())
}
