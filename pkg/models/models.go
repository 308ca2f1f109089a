// Package models defines the domain models for the knowledge base service
package models

import (
	"time"
)

// WorkflowStatus represents where a document sits in the publication workflow
type WorkflowStatus string

const (
	StatusDraft            WorkflowStatus = "draft"
	StatusInReview         WorkflowStatus = "in_review"
	StatusChangesRequested WorkflowStatus = "changes_requested"
	StatusApproved         WorkflowStatus = "approved"
	StatusPublished        WorkflowStatus = "published"
	StatusArchived         WorkflowStatus = "archived"
)

// RequestStatus represents the state of a publication request
type RequestStatus string

const (
	RequestPending          RequestStatus = "pending"
	RequestApproved         RequestStatus = "approved"
	RequestRejected         RequestStatus = "rejected"
	RequestChangesRequested RequestStatus = "changes_requested"
	RequestCancelled        RequestStatus = "cancelled"
)

// GlobalRole is an account-wide role carried by the identity layer
type GlobalRole string

const (
	RoleUser    GlobalRole = "user"
	RoleAuditor GlobalRole = "auditor"
	RoleAdmin   GlobalRole = "admin"
)

// MembershipRole is a per-container role
type MembershipRole string

const (
	MemberOwner    MembershipRole = "owner"
	MemberEditor   MembershipRole = "editor"
	MemberReviewer MembershipRole = "reviewer"
	MemberViewer   MembershipRole = "viewer"
)

// Document is a knowledge-base page as seen by the workflow engine.
//
// A document is homed in exactly one place: the owner's private workspace
// (WorkspaceID set, one workspace per user keyed by owner) or a team
// container (ContainerID set, FolderID optional). Draft and
// changes_requested documents live in a workspace; published and archived
// documents live in a container; in_review and approved bridge the move.
type Document struct {
	ID          string         `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	OwnerID     string         `json:"owner_id" db:"owner_id"`
	Status      WorkflowStatus `json:"status" db:"status"`
	WorkspaceID *string        `json:"workspace_id,omitempty" db:"workspace_id"`
	ContainerID *string        `json:"container_id,omitempty" db:"container_id"`
	FolderID    *string        `json:"folder_id,omitempty" db:"folder_id"`

	// Audit fields
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	UpdatedBy *string    `json:"updated_by,omitempty" db:"updated_by"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// PublicationRequest is one entry in a document's review history.
// Requests are never deleted; a resolved request is an immutable audit
// record. At most one pending request may exist per document.
type PublicationRequest struct {
	ID            string        `json:"id" db:"id"`
	DocumentID    string        `json:"document_id" db:"document_id"`
	Status        RequestStatus `json:"status" db:"status"`
	RequestedBy   string        `json:"requested_by" db:"requested_by"`
	ReviewedBy    *string       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ContainerID   string        `json:"container_id" db:"container_id"`
	FolderID      *string       `json:"folder_id,omitempty" db:"folder_id"`
	Comment       string        `json:"comment,omitempty" db:"comment"`
	ReviewComment *string       `json:"review_comment,omitempty" db:"review_comment"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// Resolved reports whether the request has left the pending state.
func (r *PublicationRequest) Resolved() bool {
	return r.Status != RequestPending
}

// Container is a shared team space holding published documents.
type Container struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	IsArchived bool      `json:"is_archived" db:"is_archived"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Folder is an optional subdivision of a container.
type Folder struct {
	ID          string `json:"id" db:"id"`
	ContainerID string `json:"container_id" db:"container_id"`
	Name        string `json:"name" db:"name"`
}

// Membership associates a user with a container and a role. The workflow
// engine reads memberships but never writes them.
type Membership struct {
	UserID      string         `json:"user_id" db:"user_id"`
	ContainerID string         `json:"container_id" db:"container_id"`
	Role        MembershipRole `json:"role" db:"role"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}
