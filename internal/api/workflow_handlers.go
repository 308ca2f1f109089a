package api

import (
	"net/http"

	"knowledgehub/backend/internal/auth"
	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/pkg/models"

	"github.com/labstack/echo/v4"
)

// RequestPublicationBody is the payload for opening a publication request.
type RequestPublicationBody struct {
	ContainerID string  `json:"container_id"`
	FolderID    *string `json:"folder_id,omitempty"`
	Comment     string  `json:"comment,omitempty"`
}

// ReviewBody carries the reviewer's comment for a resolution endpoint.
type ReviewBody struct {
	Comment string `json:"comment,omitempty"`
}

func actingUser(c echo.Context) (*models.User, error) {
	user, ok := auth.UserFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no authenticated user")
	}
	return user, nil
}

// RequestPublication submits a document for review into a target container
// (POST /api/v1/documents/:id/publish-requests)
func (s *Server) RequestPublication(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var body RequestPublicationBody
	if err := c.Bind(&body); err != nil {
		return problem(c, http.StatusBadRequest, "Validation Failed", "invalid request body: "+err.Error())
	}
	if body.ContainerID == "" {
		return problem(c, http.StatusBadRequest, "Validation Failed", "container_id is required")
	}

	req, err := s.Engine.RequestPublication(c.Request().Context(), user, c.Param("id"), body.ContainerID, body.FolderID, body.Comment)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusCreated, req)
}

// Approve publishes the document behind a pending request
// (POST /api/v1/publish-requests/:id/approve)
func (s *Server) Approve(c echo.Context) error {
	return s.review(c, func(ctx echo.Context, user *models.User, id, comment string) (*models.PublicationRequest, error) {
		return s.Engine.Approve(ctx.Request().Context(), user, id, comment)
	})
}

// Reject declines a pending request and returns the document to draft
// (POST /api/v1/publish-requests/:id/reject)
func (s *Server) Reject(c echo.Context) error {
	return s.review(c, func(ctx echo.Context, user *models.User, id, comment string) (*models.PublicationRequest, error) {
		return s.Engine.Reject(ctx.Request().Context(), user, id, comment)
	})
}

// RequestChanges asks the author for rework
// (POST /api/v1/publish-requests/:id/request-changes)
func (s *Server) RequestChanges(c echo.Context) error {
	return s.review(c, func(ctx echo.Context, user *models.User, id, comment string) (*models.PublicationRequest, error) {
		return s.Engine.RequestChanges(ctx.Request().Context(), user, id, comment)
	})
}

func (s *Server) review(c echo.Context, resolve func(echo.Context, *models.User, string, string) (*models.PublicationRequest, error)) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	var body ReviewBody
	if err := c.Bind(&body); err != nil {
		return problem(c, http.StatusBadRequest, "Validation Failed", "invalid request body: "+err.Error())
	}

	req, err := resolve(c, user, c.Param("id"), body.Comment)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// Cancel withdraws a pending request
// (POST /api/v1/publish-requests/:id/cancel)
func (s *Server) Cancel(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	req, err := s.Engine.Cancel(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, req)
}

// Archive hides a published document from active listings
// (POST /api/v1/documents/:id/archive)
func (s *Server) Archive(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	doc, err := s.Engine.Archive(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// Unpublish retracts a document to draft and detaches it from its container
// (POST /api/v1/documents/:id/unpublish)
func (s *Server) Unpublish(c echo.Context) error {
	user, err := actingUser(c)
	if err != nil {
		return err
	}

	doc, err := s.Engine.Unpublish(c.Request().Context(), user, c.Param("id"))
	if err != nil {
		return writeWorkflowError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// ListRequests returns publication requests filtered by document, requester
// or status
// (GET /api/v1/publish-requests)
func (s *Server) ListRequests(c echo.Context) error {
	if _, err := actingUser(c); err != nil {
		return err
	}

	filter := repository.RequestFilter{
		DocumentID:  c.QueryParam("document_id"),
		RequestedBy: c.QueryParam("requested_by"),
		Status:      models.RequestStatus(c.QueryParam("status")),
	}
	requests, err := s.Engine.ListRequests(c.Request().Context(), filter)
	if err != nil {
		return writeWorkflowError(c, err)
	}
	if requests == nil {
		requests = []*models.PublicationRequest{}
	}
	return c.JSON(http.StatusOK, requests)
}
