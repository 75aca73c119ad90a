package httpserver

import (
	"github.com/labstack/echo/v4/middleware"
)

const maxBodySize = "64K"

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.BodyLimit(maxBodySize))

	if s.middleware.Metrics != nil {
		s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())
	}
	s.echo.Use(s.middleware.Logging.RequestLogging())
}
