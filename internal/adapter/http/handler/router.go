package handler

import (
	"time"

	"atm-gateway/internal/adapter/http/middleware"
	"atm-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Ledger         ports.LedgerService
	Catalogs       ports.CatalogRepository
	Limiter        ports.LoginLimiter // nil = rate limiting disabled
	RateLimit      int64              // requests per minute per client IP
	AdminToken     string             // empty = no admin authentication
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(64 << 10))

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rl := func(group string) gin.HandlerFunc {
		if deps.Limiter == nil || deps.RateLimit <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		rule := middleware.RateLimitRule{Limit: deps.RateLimit, Window: time.Minute}
		return middleware.RateLimiter(deps.Limiter, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1", middleware.AdminAuth(deps.AdminToken, deps.Logger))

	accountHandler := NewAccountHandler(deps.Ledger)
	v1.POST("/accounts", rl("accounts"), accountHandler.Create)

	catalogHandler := NewCatalogHandler(deps.Catalogs)
	v1.GET("/catalog/version", rl("catalog"), catalogHandler.Version)

	return r
}
