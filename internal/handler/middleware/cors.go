package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"mastersrl/carnivalhub/internal/config"
)

// CORS starts from the library defaults and overrides whatever is configured.
// With no origins configured, cross-origin requests are refused.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	cc := cors.DefaultConfig()
	cc.AllowOrigins = cfg.AllowedOrigins
	if len(cc.AllowOrigins) == 0 {
		cc.AllowOriginFunc = func(string) bool { return false }
	}
	if len(cfg.AllowedMethods) > 0 {
		cc.AllowMethods = cfg.AllowedMethods
	}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization")
	if len(cfg.AllowedHeaders) > 0 {
		cc.AllowHeaders = cfg.AllowedHeaders
	}
	cc.AllowCredentials = cfg.AllowCredentials
	if cfg.MaxAge > 0 {
		cc.MaxAge = cfg.MaxAge
	}
	return cors.New(cc)
}
