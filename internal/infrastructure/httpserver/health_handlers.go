package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const healthTimeout = 2 * time.Second

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Version      string            `json:"version"`
	Service      string            `json:"service"`
	Dependencies map[string]string `json:"dependencies"`
}

// healthCheck checks every dependency concurrently. Any failure degrades the service and
// turns the response into a 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make(map[string]string, len(s.healthCheckers))
	)
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "healthy"
			if err := hc.Check(ctx); err != nil {
				status = "unhealthy"
				if s.logger != nil {
					s.logger.WithField("dependency", hc.Name()).WithError(err).Warn("Health check failed")
				}
			}
			mu.Lock()
			deps[hc.Name()] = status
			mu.Unlock()
		}()
	}
	wg.Wait()

	resp := HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Version:      s.config.Version,
		Service:      "tabrefresh",
		Dependencies: deps,
	}
	if resp.Version == "" {
		resp.Version = "dev"
	}
	for _, status := range deps {
		if status != "healthy" {
			resp.Status = "degraded"
			return c.JSON(http.StatusServiceUnavailable, resp)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
