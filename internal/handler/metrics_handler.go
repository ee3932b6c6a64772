package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Otsikow/unidoxia-sub010/internal/service"
)

const readinessTimeout = 2 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes the liveness, readiness and Prometheus endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      Pinger
	cache   Pinger
}

// NewMetricsHandler constructs a metrics handler. The cache pinger may be
// nil when Redis is not configured.
func NewMetricsHandler(metrics *service.MetricsService, db, cache Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, cache: cache}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health answers liveness probes without touching any dependency.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "unidoxia-api"})
}

// Ready verifies the database is reachable before reporting readiness. The
// cache is reported but never fails readiness: every cache path degrades to
// a miss, so a Redis outage should not pull the instance from rotation.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}

	payload := gin.H{"status": "ready"}
	if h.cache != nil {
		if err := h.cache.PingContext(ctx); err != nil {
			payload["cache"] = "down"
		} else {
			payload["cache"] = "up"
		}
	}
	c.JSON(http.StatusOK, payload)
}
