package httpserver

import (
	"net/http"
	"time"

	"github.com/avatarctic/tabrefresh/internal/core/ports"
	"github.com/avatarctic/tabrefresh/internal/infrastructure/host"
	customMiddleware "github.com/avatarctic/tabrefresh/internal/infrastructure/httpserver/middleware"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	Version      string
	// AdminJWTSecret enables bearer-token auth on /api/v1 when set.
	AdminJWTSecret string
}

// ClientViewer exposes the presentation last applied to a connected client.
type ClientViewer interface {
	View(id uuid.UUID) (host.ClientView, bool)
}

// MetricsProvider supplies the Prometheus collectors and exposition handler.
type MetricsProvider interface {
	Handler() http.Handler
	RequestsTotal() *prometheus.CounterVec
	RequestDuration() *prometheus.HistogramVec
}

type ServerDeps struct {
	Refresh        ports.RefreshService
	Animations     ports.AnimationEngine
	Scheduler      ports.TaskScheduler
	Profiles       ports.ProfileCache
	Permissions    ports.PermissionRepository
	Registry       ports.ClientRegistry
	Directory      ports.ClientDirectory
	Viewer         ClientViewer
	Metrics        MetricsProvider
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	refresh        ports.RefreshService
	animations     ports.AnimationEngine
	scheduler      ports.TaskScheduler
	profiles       ports.ProfileCache
	permissions    ports.PermissionRepository
	registry       ports.ClientRegistry
	directory      ports.ClientDirectory
	viewer         ClientViewer
	metrics        MetricsProvider
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		refresh:        deps.Refresh,
		animations:     deps.Animations,
		scheduler:      deps.Scheduler,
		profiles:       deps.Profiles,
		permissions:    deps.Permissions,
		registry:       deps.Registry,
		directory:      deps.Directory,
		viewer:         deps.Viewer,
		metrics:        deps.Metrics,
		healthCheckers: deps.HealthCheckers,
	}

	var requestsTotal *prometheus.CounterVec
	var requestDuration *prometheus.HistogramVec
	if deps.Metrics != nil {
		requestsTotal = deps.Metrics.RequestsTotal()
		requestDuration = deps.Metrics.RequestDuration()
	}
	server.middleware = customMiddleware.NewMiddlewareCollection(logger, requestsTotal, requestDuration, serverConfig.AdminJWTSecret)

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
