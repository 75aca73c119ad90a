package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) listTasks(c echo.Context) error {
	tasks := s.scheduler.TrackedTasks()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state": s.scheduler.State(),
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (s *Server) cancelTask(c echo.Context) error {
	name := c.Param("name")
	if !s.scheduler.Cancel(name) {
		return echo.NewHTTPError(http.StatusNotFound, "Task not found")
	}
	if s.logger != nil {
		s.logger.WithField("task", name).Info("Task cancelled via admin API")
	}
	return c.NoContent(http.StatusNoContent)
}
