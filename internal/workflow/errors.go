package workflow

import (
	"fmt"
)

// NotFoundError indicates that a referenced document, request, container or
// folder does not exist, or is soft-deleted/archived where that matters.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// InvalidStateError indicates that the requested transition is not reachable
// from the current state, or that a request is no longer pending.
type InvalidStateError struct {
	Detail string
}

func (e *InvalidStateError) Error() string {
	return e.Detail
}

// ForbiddenError indicates the caller lacks the specific authorization for
// this action. Kept distinct from NotFoundError so a permission problem is
// never reported as non-existence.
type ForbiddenError struct {
	UserID string
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("user %q may not %s", e.UserID, e.Action)
}

// ValidationError indicates missing mandatory input or a malformed
// container/folder pairing.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Detail)
}

// ConflictError indicates that a pending publication request already exists
// for the document.
type ConflictError struct {
	DocumentID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %q already has a pending publication request", e.DocumentID)
}
