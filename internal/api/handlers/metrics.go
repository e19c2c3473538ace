package handlers

import (
	"net/http"

	"docketflow/internal/platform/metrics"
)

type MetricsHandler struct {
	handler http.Handler
}

func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{handler: metrics.Handler()}
}

// Export serves the Prometheus text exposition.
func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
