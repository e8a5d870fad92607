package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/infra/auth"
)

// TokenVerifier validates a bearer credential against the auth service.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (auth.Identity, error)
}

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

func AuthMiddleware(v TokenVerifier, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Bearer token malformed"})
			return
		}

		id, err := v.Verify(c.Request.Context(), strings.TrimSpace(tokenString))
		if err != nil {
			log.WithError(err).WithField("path", c.FullPath()).Debug("bearer token rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(CtxUserID, id.UserID)
		c.Set(CtxEmail, id.Email)
		c.Next()
	}
}
