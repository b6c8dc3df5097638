package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/pkg/response"
)

// Features gates the API behind the maintenance and coming-soon switches.
// Health, metrics and sign-in stay reachable so operators can still get in;
// coming-soon additionally lets visitors subscribe.
func Features(cfg config.FeaturesConfig) gin.HandlerFunc {
	always := []string{"/healthz", "/metrics", "/api/v1/auth/login", "/api/v1/admin"}
	comingSoon := append(slices.Clone(always), "/api/v1/subscriptions", "/api/v1/unsubscribe")

	allowed := func(path string, prefixes []string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(path, p) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		switch {
		case cfg.MaintenanceMode && !allowed(path, always):
			response.ServiceUnavailable(c, "down for maintenance")
			c.Abort()
			return
		case cfg.ComingSoonMode && !allowed(path, comingSoon):
			response.ServiceUnavailable(c, "coming soon")
			c.Abort()
			return
		}
		c.Next()
	}
}
