package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/handler/middleware"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth          *AuthHandler
	Carnivals     *CarnivalHandler
	Clubs         *ClubHandler
	Subscriptions *SubscriptionHandler
	Admin         *AdminHandler
	Authenticator middleware.Authenticator
}

func SetupRouter(cfg *config.Config, logger *zap.Logger, gatherer prometheus.Gatherer, h Handlers) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Features(cfg.Features))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	public := r.Group("/api/v1")
	{
		public.POST("/auth/register", h.Auth.Register)
		public.POST("/auth/login", h.Auth.Login)

		public.GET("/carnivals", h.Carnivals.List)
		public.GET("/carnivals/:id", h.Carnivals.Get)
		public.GET("/carnivals/:id/attendances", h.Carnivals.ListAttendances)

		public.GET("/clubs", h.Clubs.List)
		public.GET("/clubs/:id", middleware.OptionalAuth(h.Authenticator), h.Clubs.Get)
		public.POST("/invitations/:token/accept", h.Clubs.AcceptInvitation)

		public.POST("/subscriptions", h.Subscriptions.Subscribe)
		public.POST("/unsubscribe/:token", h.Subscriptions.Unsubscribe)
	}

	protected := r.Group("/api/v1")
	protected.Use(middleware.JWTAuth(h.Authenticator))
	{
		protected.GET("/auth/me", h.Auth.Me)

		protected.POST("/carnivals", h.Carnivals.Create)
		protected.PUT("/carnivals/:id", h.Carnivals.Update)
		protected.POST("/carnivals/:id/claim", h.Carnivals.Claim)
		protected.POST("/carnivals/:id/archive", h.Carnivals.Archive)
		protected.POST("/carnivals/:id/attendances", h.Carnivals.RegisterSelf)
		protected.DELETE("/carnivals/:id/attendances/mine", h.Carnivals.UnregisterSelf)
		protected.POST("/carnivals/:id/registrations", h.Carnivals.RegisterClub)
		protected.PUT("/carnivals/:id/registrations/order", h.Carnivals.Reorder)
		protected.PUT("/registrations/:regID", h.Carnivals.UpdateRegistration)
		protected.DELETE("/registrations/:regID", h.Carnivals.RemoveRegistration)

		protected.POST("/clubs", h.Clubs.Create)
		protected.POST("/clubs/proxy", h.Clubs.CreateOnBehalf)
		protected.PUT("/clubs/:id", h.Clubs.Update)
		protected.POST("/clubs/:id/alternate-names", h.Clubs.AddAlternateName)
		protected.DELETE("/alternate-names/:altID", h.Clubs.RemoveAlternateName)
		protected.POST("/clubs/:id/join", h.Clubs.Join)
		protected.POST("/clubs/:id/claim", h.Clubs.ClaimProxy)
		protected.POST("/me/club/leave", h.Clubs.Leave)
		protected.POST("/me/club/invitations", h.Clubs.InviteDelegate)
	}

	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuth(h.Authenticator))
	admin.Use(middleware.AdminAuth())
	{
		admin.POST("/ingest", h.Admin.TriggerIngest)
		admin.GET("/ingest", h.Admin.IngestStatus)
		admin.POST("/tokens/purge", h.Admin.PurgeTokens)
		admin.GET("/users/:id", h.Admin.GetUser)
	}

	return r
}
