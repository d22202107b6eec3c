package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"luthier-backend/config"
	"luthier-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg config.ServerConfig, h *Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = []string{"Origin", "Authorization", "Content-Type"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst, cfg.RequestIPHeader)

	authGroup := r.Group("/auth")
	authGroup.Use(rateLimiter)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	caching := func(c *gin.Context) { c.Next() }
	if h.cache != nil {
		caching = h.cache.Handler()
	}

	api := r.Group("/api")
	api.Use(rateLimiter)
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	api.Use(h.auth.Middleware())
	{
		api.GET("/records", h.ListRecords)
		api.POST("/records", h.CreateRecord)
		api.GET("/records/export", h.ExportRecords)
		api.GET("/records/:id", h.GetRecord)
		api.PUT("/records/:id", h.UpdateRecord)
		api.DELETE("/records/:id", h.DeleteRecord)
		api.PATCH("/records/:id/status", h.PatchStatus)
		api.POST("/records/:id/deliver", h.Deliver)
		api.GET("/records/:id/report", h.Report)
		api.GET("/records/:id/whatsapp-link", h.WhatsAppLink)

		api.GET("/dashboard", caching, h.Dashboard)
		api.GET("/dashboard/rankings", caching, h.Rankings)

		api.GET("/profile", h.GetProfile)
		api.PUT("/profile", h.PutProfile)

		api.GET("/clients", h.SearchClients)
		api.POST("/clients", h.CreateClient)
		api.DELETE("/clients/:id", h.DeleteClient)
		api.POST("/clients/:id/instruments", h.AddInstrument)
		api.DELETE("/instruments/:id", h.DeleteInstrument)
		api.POST("/instruments/:id/transfer", h.TransferInstrument)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
