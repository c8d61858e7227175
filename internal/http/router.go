package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Anan1218/homehealth/internal/config"
	"github.com/Anan1218/homehealth/internal/http/handler"
	httpmiddleware "github.com/Anan1218/homehealth/internal/http/middleware"
	"github.com/Anan1218/homehealth/internal/middleware"
	"github.com/Anan1218/homehealth/internal/observability"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, logger *zap.Logger, authHandler *handler.AuthHandler, systemHandler *handler.SystemHandler, metrics *observability.Metrics) *gin.Engine {
	if !cfg.MetricsEnabled {
		metrics = nil
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if logger != nil {
			logger.Error("panic recovered",
				zap.Any("panic", recovered),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", httpmiddleware.GetRequestID(c)),
			)
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}))
	// otelgin restores the request context once its handlers return, so the
	// span must already exist when RequestLogger reads it.
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.NewRateLimiter("api", cfg.RateLimitRPM, metrics).Handler())
	r.Use(middleware.SecureHeaders(cfg))
	r.Use(middleware.CORS(cfg))
	r.Use(metrics.Middleware())

	r.GET("/", systemHandler.Root)
	r.GET("/health", systemHandler.Health)
	if metrics != nil {
		r.GET("/metrics", metrics.Handler())
	}

	api := r.Group(cfg.APIPrefix)

	authGroup := api.Group("/auth", middleware.NewRateLimiter("auth", cfg.AuthRateLimitRPM, metrics).Handler())
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/logout", httpmiddleware.BearerToken(), authHandler.Logout)
		authGroup.GET("/me", httpmiddleware.BearerToken(), authHandler.Me)
	}

	users := api.Group("/users")
	{
		users.GET("/", systemHandler.ListUsers)
		users.GET("/:user_id", systemHandler.GetUser)
	}

	health := api.Group("/health")
	{
		health.GET("/", systemHandler.ListHealthRecords)
		health.POST("/", systemHandler.CreateHealthRecord)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"detail": "Method Not Allowed"})
	})

	return r
}
