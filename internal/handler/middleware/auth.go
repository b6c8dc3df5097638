package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/model"
	"mastersrl/carnivalhub/pkg/response"
)

const ContextKeyActor = "actor"

// Authenticator resolves a bearer token to the active user it was issued for.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*model.User, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// JWTAuth rejects the request unless it carries a valid token for an active user.
func JWTAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		token, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyActor, user)
		c.Next()
	}
}

// Actor returns the user stored by JWTAuth, or nil on public routes.
func Actor(c *gin.Context) *model.User {
	v, ok := c.Get(ContextKeyActor)
	if !ok {
		return nil
	}
	u, _ := v.(*model.User)
	return u
}

// OptionalAuth sets the actor when a valid bearer token is present and lets
// every other request through anonymously.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				c.Set(ContextKeyActor, user)
			}
		}
		c.Next()
	}
}
