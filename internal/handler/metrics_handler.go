package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type credentialChecker interface {
	Token(ctx context.Context) (string, bool)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics     *service.MetricsService
	credentials credentialChecker
}

// NewMetricsHandler constructs a metrics handler. credentials may be nil.
func NewMetricsHandler(metrics *service.MetricsService, credentials credentialChecker) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, credentials: credentials}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Session instrumentation summary
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether upstream calls can carry a credential.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.credentials != nil {
		if _, ok := h.credentials.Token(c.Request.Context()); !ok {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "no credential"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
