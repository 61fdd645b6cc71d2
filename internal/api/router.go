package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/marketplace/internal/api/handler"
	"github.com/d60-Lab/marketplace/internal/api/middleware"
)

// RouterConfig 路由装配参数。
type RouterConfig struct {
	Debug          bool
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter 装配 gin 引擎：gzip、otel、限流、鉴权与订单路由。
func NewRouter(cfg RouterConfig, h *handler.Handler) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(otelgin.Middleware("marketplace-checkout"))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/shipping-methods", h.ListShippingMethods)

		orders := v1.Group("/orders")
		{
			orders.POST("/checkout", h.Checkout)
			orders.GET("", h.ListOrders)
			orders.GET("/default-address", h.DefaultAddress)
			orders.GET("/:id", h.GetOrder)
			orders.PATCH("/:id/status", h.UpdateOrderStatus)
		}
	}
	return r
}
