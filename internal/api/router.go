package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"calibration-tracker/config"
	"calibration-tracker/internal/logging"
	"calibration-tracker/internal/model"
	"calibration-tracker/internal/mw"
)

// NewRouter creates and configures the Gin engine.
func NewRouter(cfg config.ServerConfig, h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(logging.L()))

	corsCfg := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", mw.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{mw.RequestIDHeader, "Content-Disposition"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", h.Health)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)
	invalidate := mw.Invalidate(cacheStore, "/api/")

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/login", h.Login)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	authed := api.Group("")
	authed.Use(mw.Auth(h.issuer, h.store))
	{
		authed.GET("/auth/me", h.Me)

		authed.GET("/departments", caching, h.ListDepartments)
		authed.GET("/locations", caching, h.ListLocations)

		authed.GET("/equipment", h.ListEquipment)
		authed.GET("/equipment/:id", h.GetEquipment)

		authed.POST("/self/checkout", h.SelfCheckOut)
		authed.POST("/self/checkin", h.SelfCheckIn)
	}

	staff := authed.Group("")
	staff.Use(mw.RequireRole(model.RoleAdmin, model.RoleTechnician))
	{
		staff.POST("/equipment", h.CreateEquipment)
		staff.PATCH("/equipment/:id", h.UpdateEquipment)

		staff.POST("/incoming", h.CheckIn)
		staff.GET("/incoming/:id", h.GetIncoming)
		staff.POST("/incoming/:id/start", h.StartCalibration)
		staff.POST("/incoming/:id/checkout", h.CheckOut)
		staff.POST("/outgoing/:id/complete", h.CompletePickup)

		staff.GET("/reports/tracking", h.Report)
		staff.GET("/reports/tracking/export.xlsx", h.ExportReport("xlsx"))
		staff.GET("/reports/tracking/export.pdf", h.ExportReport("pdf"))
	}

	admin := authed.Group("")
	admin.Use(mw.AdminOnly())
	{
		admin.POST("/departments", invalidate, h.CreateDepartment)
		admin.POST("/locations", invalidate, h.CreateLocation)
		admin.POST("/users", h.CreateUser)
		admin.DELETE("/equipment/:id", h.ArchiveEquipment)
		admin.POST("/equipment/:id/restore", h.RestoreEquipment)
	}

	return r
}

// Health reports whether the database answers.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.store.DB().DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
