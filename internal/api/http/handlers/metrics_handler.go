package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/auth-gateway/internal/observability"
)

// MetricsHandler exposes the in-memory counters on the internal surface.
type MetricsHandler struct {
	metrics *observability.Metrics
}

// NewMetricsHandler returns a new handler instance.
func NewMetricsHandler(metrics *observability.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Report handles GET /internal/metrics.
func (h *MetricsHandler) Report(c *fiber.Ctx) error {
	requests, errs := h.metrics.Snapshot()
	return c.JSON(fiber.Map{
		"status": "success",
		"data": fiber.Map{
			"requests": requests,
			"errors":   errs,
		},
	})
}
