package delivery

import (
	"time"

	"trackattr/internal/delivery/middleware"
	"trackattr/pkg/logger"
	"trackattr/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type HTTPRouter struct {
	handlers       *HTTPHandlers
	logger         *logger.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
	rateLimit      int
}

func NewHTTPRouter(handlers *HTTPHandlers, logger *logger.Logger, metrics *metrics.Metrics, requestTimeout time.Duration, rateLimit int) *HTTPRouter {
	return &HTTPRouter{
		handlers:       handlers,
		logger:         logger,
		metrics:        metrics,
		requestTimeout: requestTimeout,
		rateLimit:      rateLimit,
	}
}

func (r *HTTPRouter) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.Recovery(r.logger))
	router.Use(middleware.Metrics(r.metrics))
	router.Use(middleware.Timeout(r.requestTimeout))
	router.Use(middleware.RateLimit(r.rateLimit))

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Content-Type", "X-Request-ID", "X-Webhook-Signature"}
	config.ExposeHeaders = []string{"X-Request-ID"}

	router.Use(cors.New(config))

	// Health endpoint
	router.GET("/health", r.handlers.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/", r.handlers.GetAPIInfo)
		v1.GET("", r.handlers.GetAPIInfo)

		// Tracking endpoints
		track := v1.Group("/track")
		{
			track.POST("/interaction", r.handlers.TrackInteraction)
			track.POST("/booking", r.handlers.TrackBooking)
		}

		// Payment platform webhooks
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/:platform", r.handlers.Webhook)
		}

		// Analytics endpoints
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/dashboard", r.handlers.Dashboard)
			analytics.GET("/campaign-performance", r.handlers.CampaignPerformance)
			analytics.GET("/attribution-models", r.handlers.AttributionModels)
		}

		// Campaign optimization
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("/optimize", r.handlers.OptimizeCampaigns)
		}

		// Integration status
		integrations := v1.Group("/integrations")
		{
			integrations.GET("/status", r.handlers.IntegrationStatus)
		}
	}

	// Prometheus metrics endpoint
	router.GET("/metrics", middleware.PrometheusHandler())

	return router
}
