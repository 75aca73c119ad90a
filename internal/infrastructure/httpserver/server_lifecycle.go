package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%s", s.config.Host, s.config.Port)
}

// Start serves the admin API until Shutdown. http.ErrServerClosed is reported as nil.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	addr := s.Addr()
	var err error
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.WithField("addr", addr).Info("Starting HTTPS admin server")
		err = s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		s.logger.WithField("addr", addr).Info("Starting HTTP admin server")
		err = s.echo.StartServer(&http.Server{
			Addr:         addr,
			ReadTimeout:  s.config.ReadTimeout,
			WriteTimeout: s.config.WriteTimeout,
			IdleTimeout:  s.config.IdleTimeout,
		})
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down admin server: %w", err)
	}
	return nil
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
