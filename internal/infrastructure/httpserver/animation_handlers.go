package httpserver

import (
	"net/http"

	"github.com/avatarctic/tabrefresh/internal/core/domain/animation"
	"github.com/labstack/echo/v4"
)

func (s *Server) listAnimations(c echo.Context) error {
	ids := s.animations.IDs()
	infos := make([]animation.Info, 0, len(ids))
	for _, id := range ids {
		if info, ok := s.animations.Info(id); ok {
			infos = append(infos, info)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"animations": infos,
		"total":      len(infos),
	})
}

func (s *Server) getAnimation(c echo.Context) error {
	info, ok := s.animations.Info(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Animation not found")
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) reloadAnimations(c echo.Context) error {
	report, err := s.refresh.ReloadAnimations(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to reload animations")
	}
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"loaded":   len(report.Loaded),
			"skipped":  len(report.Skipped),
			"problems": len(report.Problems),
		}).Info("Animations reloaded via admin API")
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) validateAnimations(c echo.Context) error {
	problems := s.animations.Validate()
	if problems == nil {
		problems = []string{}
	}
	return c.JSON(http.StatusOK, animation.ValidateResponse{Problems: problems})
}
