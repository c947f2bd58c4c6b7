package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-api/internal/handler/health"
	"github.com/jwalitptl/patient-api/internal/handler/prometheus"
	"github.com/jwalitptl/patient-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode             string
	RequestTimeout   time.Duration
	MaxBodyBytes     int64
	RateLimitEnabled bool
	RateLimit        middleware.RateLimiterConfig
	CORSConfig       middleware.CORSConfig
}

type Router struct {
	engine   *gin.Engine
	patientH Handler
	healthH  *health.Handler
	metrics  *prometheus.Handler
	config   RouterConfig
}

func NewRouter(
	patientH Handler,
	healthH *health.Handler,
	metrics *prometheus.Handler,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = false
	engine.NoRoute(middleware.NotFound())

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		metrics.Middleware(),
		middleware.SecurityHeaders(),
		middleware.CORS(config.CORSConfig),
	)

	return &Router{
		engine:   engine,
		patientH: patientH,
		healthH:  healthH,
		metrics:  metrics,
		config:   config,
	}
}

// Setup mounts every route and returns the engine ready to serve.
func (r *Router) Setup() *gin.Engine {
	r.healthH.RegisterRoutes(r.engine)
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api")
	if r.config.RateLimitEnabled {
		api.Use(middleware.NewRateLimiter(r.config.RateLimit).RateLimit())
	}
	api.Use(
		middleware.SizeLimit(r.config.MaxBodyBytes),
		middleware.Timeout(r.config.RequestTimeout),
		middleware.ErrorHandler(),
	)
	r.patientH.RegisterRoutes(api)

	return r.engine
}
