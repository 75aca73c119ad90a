package httpserver

import (
	"net/http"
	"strings"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/labstack/echo/v4"
)

func (s *Server) getProfile(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	result := s.profiles.Lookup(c.Request().Context(), id)
	return c.JSON(http.StatusOK, identity.ProfileResponse{
		ID:      id,
		Profile: result.Value,
		Outcome: result.Outcome.String(),
	})
}

func (s *Server) invalidateIdentity(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	s.refresh.HandlePermissionChange(c.Request().Context(), id)
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) assignGroup(c echo.Context) error {
	if s.permissions == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Permission store not configured")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	var req identity.AssignGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	req.Group = strings.TrimSpace(req.Group)
	if req.Group == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Group is required")
	}

	if err := s.permissions.AssignGroup(c.Request().Context(), id, req.Group, req.Prefix, req.Suffix); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to assign group")
	}
	s.refresh.HandlePermissionChange(c.Request().Context(), id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) upsertGroup(c echo.Context) error {
	if s.permissions == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Permission store not configured")
	}
	name := strings.TrimSpace(c.Param("name"))
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Group name is required")
	}
	var req identity.UpsertGroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	if err := s.permissions.UpsertGroup(c.Request().Context(), name, req.Weight); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save group")
	}
	return c.NoContent(http.StatusNoContent)
}
