package httpserver

import (
	"github.com/labstack/echo/v4"
)

// LogMetricsInitialization logs which collectors are exposed
func (s *Server) LogMetricsInitialization() {
	if s.logger == nil || s.metrics == nil {
		return
	}
	s.logger.Info("Prometheus metrics initialized and registered")
	s.logger.WithFields(map[string]interface{}{
		"http_requests_total":   "Counter for HTTP requests by method, endpoint, status",
		"http_request_duration": "Histogram for HTTP request duration by method, endpoint",
		"engine":                "tabrefresh_* cache, diff, task and animation collectors",
		"metrics_endpoint":      "/metrics",
	}).Debug("Available Prometheus metrics")
}

// metricsEndpoint wraps the metrics handler with logging
func (s *Server) metricsEndpoint(c echo.Context) error {
	if s.logger != nil {
		s.logger.Debug("Serving Prometheus metrics")
	}
	s.metrics.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
