package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/patient-api/internal/handler/health"
	"github.com/jwalitptl/patient-api/internal/handler/prometheus"
	"github.com/jwalitptl/patient-api/internal/middleware"
)

type okPinger struct{}

func (okPinger) PingContext(context.Context) error { return nil }

type echoHandler struct{}

func (echoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/patients", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "The request succeeded", "data": []string{}})
	})
}

func newEngine(cfg RouterConfig) *gin.Engine {
	metrics := prometheus.New(promclient.NewRegistry(), "test")
	return NewRouter(echoHandler{}, health.NewHandler(okPinger{}), metrics, cfg).Setup()
}

func get(e *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRoutesAreMounted(t *testing.T) {
	e := newEngine(RouterConfig{Mode: gin.TestMode, RequestTimeout: time.Second, CORSConfig: middleware.DefaultCORSConfig()})

	assert.Equal(t, http.StatusOK, get(e, "/api/patients").Code)
	assert.Equal(t, http.StatusOK, get(e, "/health/live").Code)
	assert.Equal(t, http.StatusOK, get(e, "/health/ready").Code)

	w := get(e, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")

	w = get(e, "/api/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"Resource not found"}`, w.Body.String())
}

func TestCommonHeaders(t *testing.T) {
	e := newEngine(RouterConfig{Mode: gin.TestMode, CORSConfig: middleware.DefaultCORSConfig()})

	w := get(e, "/api/patients")
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	e := newEngine(RouterConfig{
		Mode:             gin.TestMode,
		RateLimitEnabled: true,
		RateLimit:        middleware.RateLimiterConfig{Rate: 0.001, Burst: 1},
		CORSConfig:       middleware.DefaultCORSConfig(),
	})

	assert.Equal(t, http.StatusOK, get(e, "/api/patients").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "/api/patients").Code)
	assert.Equal(t, http.StatusOK, get(e, "/health/live").Code)
}
