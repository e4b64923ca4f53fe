// README: Session auth middleware; resolves a bearer token to the caller's email.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxKeyEmail = "caller_email"
	ctxKeyToken = "session_token"
)

// SessionResolver maps an opaque session token to the signed-in email.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// Auth rejects requests without a live session.
func Auth(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		email, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		c.Set(ctxKeyEmail, email)
		c.Set(ctxKeyToken, token)
		c.Next()
	}
}

// CallerEmail returns the email set by Auth, or "" on public routes.
func CallerEmail(c *gin.Context) string {
	return c.GetString(ctxKeyEmail)
}

func SessionToken(c *gin.Context) string {
	return c.GetString(ctxKeyToken)
}
