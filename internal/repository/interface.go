// Package repository provides durable storage for the workflow engine.
package repository

import (
	"context"
	"errors"

	"knowledgehub/backend/pkg/models"
)

// ErrNotFound is returned by getters when no row matches.
var ErrNotFound = errors.New("not found")

// ErrPendingExists is returned when inserting a publication request for a
// document that already has a pending one.
var ErrPendingExists = errors.New("pending publication request already exists")

// RequestFilter narrows ListRequests. Zero-valued fields are ignored.
type RequestFilter struct {
	DocumentID  string
	RequestedBy string
	Status      models.RequestStatus
}

// Store is the storage contract consumed by the workflow engine, the
// identity layer and the seed command. Getters return ErrNotFound when the
// row is absent; GetMembership returns (nil, nil) instead, since holding no
// membership is an ordinary answer.
type Store interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) error

	GetRequest(ctx context.Context, id string) (*models.PublicationRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.PublicationRequest, error)

	GetContainer(ctx context.Context, id string) (*models.Container, error)
	CreateContainer(ctx context.Context, c *models.Container) error
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
	CreateFolder(ctx context.Context, f *models.Folder) error
	GetMembership(ctx context.Context, userID, containerID string) (*models.Membership, error)
	CreateMembership(ctx context.Context, m *models.Membership) error

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error

	// Transact runs fn inside a single transaction. The writes fn performs
	// through the Tx become visible together on commit or not at all; any
	// error from fn rolls everything back and is returned unchanged.
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the mutation surface available inside Transact. The ForUpdate
// getters take row locks so preconditions re-checked on their results hold
// until commit.
type Tx interface {
	GetDocumentForUpdate(ctx context.Context, id string) (*models.Document, error)
	GetRequestForUpdate(ctx context.Context, id string) (*models.PublicationRequest, error)
	HasPendingRequest(ctx context.Context, documentID string) (bool, error)
	InsertRequest(ctx context.Context, r *models.PublicationRequest) error
	UpdateRequest(ctx context.Context, r *models.PublicationRequest) error
	UpdateDocumentWorkflow(ctx context.Context, d *models.Document) error
}
