package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/avatarctic/tabrefresh/internal/core/domain/identity"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func parseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid identity ID")
	}
	return id, nil
}

func (s *Server) listClients(c echo.Context) error {
	clients := s.directory.Clients()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"clients": clients,
		"total":   len(clients),
	})
}

func (s *Server) getClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if s.viewer != nil {
		if view, ok := s.viewer.View(id); ok {
			return c.JSON(http.StatusOK, view)
		}
		return echo.NewHTTPError(http.StatusNotFound, "Client not connected")
	}
	client, ok := s.directory.Client(id.String())
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Client not connected")
	}
	return c.JSON(http.StatusOK, client)
}

func (s *Server) connectClient(c echo.Context) error {
	var req identity.ConnectClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid identity ID")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Name is required")
	}

	client := identity.Client{ID: id, Name: name}
	created := s.registry.Connect(client)
	s.refresh.HandleConnect(c.Request().Context(), client)

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return c.JSON(code, client)
}

func (s *Server) disconnectClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	if !s.registry.Disconnect(id) {
		return echo.NewHTTPError(http.StatusNotFound, "Client not connected")
	}
	s.refresh.HandleDisconnect(id)
	return c.NoContent(http.StatusNoContent)
}

// refreshAllClients queues a full refresh on the main context.
func (s *Server) refreshAllClients(c echo.Context) error {
	ctx := context.WithoutCancel(c.Request().Context())
	if !s.scheduler.RunOnMainContext(func() { s.refresh.RefreshAll(ctx) }) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Host is not active")
	}
	return c.NoContent(http.StatusAccepted)
}
