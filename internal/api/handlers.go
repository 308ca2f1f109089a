// Package api contains the HTTP handlers for the knowledge base service
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"knowledgehub/backend/internal/workflow"
	"knowledgehub/backend/pkg/models"

	"github.com/labstack/echo/v4"
)

// Server holds the dependencies for the API server.
type Server struct {
	Engine *workflow.Engine
}

// NewServer creates a new Server.
func NewServer(engine *workflow.Engine) *Server {
	return &Server{Engine: engine}
}

// RegisterRoutes mounts the workflow endpoints on the given group.
func RegisterRoutes(g *echo.Group, s *Server) {
	g.GET("/health", s.HandleHealth)
	g.GET("/publish-requests", s.ListRequests)
	g.POST("/documents/:id/publish-requests", s.RequestPublication)
	g.POST("/publish-requests/:id/approve", s.Approve)
	g.POST("/publish-requests/:id/reject", s.Reject)
	g.POST("/publish-requests/:id/request-changes", s.RequestChanges)
	g.POST("/publish-requests/:id/cancel", s.Cancel)
	g.POST("/documents/:id/archive", s.Archive)
	g.POST("/documents/:id/unpublish", s.Unpublish)
}

// HandleHealth returns basic health status (always returns 200 OK)
func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "ok",
		Service:   "knowledgehub",
		Version:   "1.0.0",
		Timestamp: time.Now(),
	})
}

// problem writes an RFC 7807 Problem Details JSON error response.
func problem(c echo.Context, status int, title, detail string) error {
	p := models.ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(status)
	return json.NewEncoder(c.Response()).Encode(p)
}

// writeWorkflowError maps the engine's error taxonomy onto HTTP statuses.
// All five kinds are caller-recoverable; anything else is an opaque
// infrastructure failure surfaced as 500.
func writeWorkflowError(c echo.Context, err error) error {
	var notFound *workflow.NotFoundError
	var invalidState *workflow.InvalidStateError
	var forbidden *workflow.ForbiddenError
	var validation *workflow.ValidationError
	var conflict *workflow.ConflictError

	switch {
	case errors.As(err, &notFound):
		return problem(c, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &invalidState):
		return problem(c, http.StatusConflict, "Invalid State", err.Error())
	case errors.As(err, &forbidden):
		return problem(c, http.StatusForbidden, "Forbidden", err.Error())
	case errors.As(err, &validation):
		return problem(c, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &conflict):
		return problem(c, http.StatusConflict, "Conflict", err.Error())
	default:
		return problem(c, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}
