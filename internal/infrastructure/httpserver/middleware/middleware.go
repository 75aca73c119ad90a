package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// MiddlewareCollection holds all middleware instances
type MiddlewareCollection struct {
	Logging *LoggingMiddleware
	Metrics *MetricsMiddleware
	Auth    *AdminAuthMiddleware
}

// NewMiddlewareCollection creates the admin API middleware. Metrics is nil when no collectors
// are given, Auth when adminSecret is empty.
func NewMiddlewareCollection(
	logger *logrus.Logger,
	requestsTotal *prometheus.CounterVec,
	requestDuration *prometheus.HistogramVec,
	adminSecret string,
) *MiddlewareCollection {
	mc := &MiddlewareCollection{
		Logging: NewLoggingMiddleware(logger),
	}
	if requestsTotal != nil && requestDuration != nil {
		mc.Metrics = NewMetricsMiddleware(requestsTotal, requestDuration, "/metrics")
	}
	if adminSecret != "" {
		mc.Auth = NewAdminAuthMiddleware(adminSecret, logger)
	}
	return mc
}
