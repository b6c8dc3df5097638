package middleware

import (
	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/pkg/response"
)

// AdminAuth requires the user loaded by JWTAuth to be an active administrator.
// Must be used after JWTAuth middleware.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}
		if !actor.IsActive || !actor.IsAdmin {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
