package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type LoggingMiddleware struct {
	logger *logrus.Logger
}

func NewLoggingMiddleware(logger *logrus.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// RequestLogging logs every admin request once it has been handled.
func (m *LoggingMiddleware) RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if m.logger == nil {
				return err
			}

			entry := m.logger.WithFields(logrus.Fields{
				"method":     c.Request().Method,
				"path":       c.Path(),
				"status":     c.Response().Status,
				"duration":   time.Since(start).String(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			})
			if err != nil {
				entry.WithError(err).Warn("admin request failed")
			} else {
				entry.Debug("admin request")
			}
			return err
		}
	}
}
