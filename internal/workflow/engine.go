package workflow

import (
	"context"
	"errors"
	"time"

	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/pkg/models"

	"github.com/google/uuid"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// NotificationEvent is emitted after a review outcome has been committed.
type NotificationEvent struct {
	RequestID  string               `json:"request_id"`
	DocumentID string               `json:"document_id"`
	Outcome    models.RequestStatus `json:"outcome"`
	Comment    string               `json:"comment,omitempty"`
}

// Notifier receives fire-and-forget events after a transition commits.
// Failures are logged by the engine and never surfaced to the caller.
type Notifier interface {
	Notify(ctx context.Context, event NotificationEvent) error
}

// Engine orchestrates publication workflow transitions. Every operation has
// the same shape: validate the transition, validate authorization, execute
// the writes as one atomic unit, then emit a best-effort notification.
//
// The engine exclusively owns the pairing of a document's workflow status
// and its home location; no other component mutates either field.
type Engine struct {
	store    repository.Store
	authz    *Authorizer
	table    *TransitionTable
	notifier Notifier
	logger   Logger
}

// NewEngine creates a workflow Engine. notifier may be nil to disable
// notifications.
func NewEngine(store repository.Store, authz *Authorizer, table *TransitionTable, notifier Notifier, logger Logger) *Engine {
	return &Engine{
		store:    store,
		authz:    authz,
		table:    table,
		notifier: notifier,
		logger:   logger,
	}
}

// RequestPublication opens a pending publication request for a draft (or
// changes_requested) document and moves the document into review. The
// request insert and the document status change commit together.
func (e *Engine) RequestPublication(ctx context.Context, actor *models.User, documentID, containerID string, folderID *string, comment string) (*models.PublicationRequest, error) {
	doc, err := e.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if !e.authz.CanRequest(actor, doc) {
		return nil, &ForbiddenError{UserID: actor.ID, Action: "request publication of document " + documentID}
	}
	// An open request beats a stale-status report: a second submitter should
	// hear "already requested", not "wrong state".
	open, err := e.store.ListRequests(ctx, repository.RequestFilter{DocumentID: documentID, Status: models.RequestPending})
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, &ConflictError{DocumentID: documentID}
	}
	if !e.table.IsValidTransition(doc.Status, models.StatusInReview) {
		return nil, &InvalidStateError{Detail: "document " + documentID + " is " + string(doc.Status) + ", only draft or changes_requested documents can be submitted for review"}
	}

	container, err := e.store.GetContainer(ctx, containerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "container", ID: containerID}
		}
		return nil, err
	}
	if container.IsArchived {
		return nil, &NotFoundError{Resource: "container", ID: containerID}
	}
	if folderID != nil {
		folder, err := e.store.GetFolder(ctx, *folderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, &NotFoundError{Resource: "folder", ID: *folderID}
			}
			return nil, err
		}
		if folder.ContainerID != containerID {
			return nil, &ValidationError{Field: "folder_id", Detail: "folder " + *folderID + " does not belong to container " + containerID}
		}
	}

	now := time.Now().UTC()
	req := &models.PublicationRequest{
		ID:          uuid.New().String(),
		DocumentID:  documentID,
		Status:      models.RequestPending,
		RequestedBy: actor.ID,
		ContainerID: containerID,
		FolderID:    folderID,
		Comment:     comment,
		CreatedAt:   now,
	}

	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		// Pending uniqueness first: a concurrent submitter should see a
		// conflict, not a stale-status error.
		pending, err := tx.HasPendingRequest(ctx, documentID)
		if err != nil {
			return err
		}
		if pending {
			return &ConflictError{DocumentID: documentID}
		}
		if !e.table.IsValidTransition(cur.Status, models.StatusInReview) {
			return &InvalidStateError{Detail: "document " + documentID + " changed state while the request was being prepared"}
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			if errors.Is(err, repository.ErrPendingExists) {
				return &ConflictError{DocumentID: documentID}
			}
			return err
		}
		cur.Status = models.StatusInReview
		cur.UpdatedBy = &actor.ID
		cur.UpdatedAt = now
		return tx.UpdateDocumentWorkflow(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Approve resolves a pending request, publishes the document and relocates
// it into the requested container. This is the only place a document's
// status and home change together, and it is a single transaction.
func (e *Engine) Approve(ctx context.Context, actor *models.User, requestID, comment string) (*models.PublicationRequest, error) {
	req, doc, err := e.loadPendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// Guards against approving a request whose document has since been
	// moved elsewhere.
	if !e.table.IsValidTransition(doc.Status, models.StatusPublished) {
		return nil, &InvalidStateError{Detail: "document " + doc.ID + " is " + string(doc.Status) + " and cannot be published"}
	}
	if err := e.requireReviewer(ctx, actor, req.ContainerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, curDoc, err := e.lockPendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !e.table.IsValidTransition(curDoc.Status, models.StatusPublished) {
			return &InvalidStateError{Detail: "document " + curDoc.ID + " is " + string(curDoc.Status) + " and cannot be published"}
		}

		cur.Status = models.RequestApproved
		cur.ReviewedBy = &actor.ID
		cur.ReviewedAt = &now
		if comment != "" {
			cur.ReviewComment = &comment
		}
		if err := tx.UpdateRequest(ctx, cur); err != nil {
			return err
		}

		curDoc.Status = models.StatusPublished
		curDoc.WorkspaceID = nil
		curDoc.ContainerID = &cur.ContainerID
		curDoc.FolderID = cur.FolderID
		curDoc.UpdatedBy = &actor.ID
		curDoc.UpdatedAt = now
		req = cur
		return tx.UpdateDocumentWorkflow(ctx, curDoc)
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(ctx, req, models.RequestApproved, comment)
	return req, nil
}

// Reject resolves a pending request and returns the document to draft. The
// review comment is mandatory: a rejection without rationale is useless to
// the author.
func (e *Engine) Reject(ctx context.Context, actor *models.User, requestID, comment string) (*models.PublicationRequest, error) {
	return e.resolveNegative(ctx, actor, requestID, comment, models.RequestRejected, models.StatusDraft)
}

// RequestChanges resolves a pending request asking the author for rework.
// The request is terminal; the document may re-enter review via a new
// request. The comment is mandatory.
func (e *Engine) RequestChanges(ctx context.Context, actor *models.User, requestID, comment string) (*models.PublicationRequest, error) {
	return e.resolveNegative(ctx, actor, requestID, comment, models.RequestChangesRequested, models.StatusChangesRequested)
}

func (e *Engine) resolveNegative(ctx context.Context, actor *models.User, requestID, comment string, outcome models.RequestStatus, docStatus models.WorkflowStatus) (*models.PublicationRequest, error) {
	if comment == "" {
		return nil, &ValidationError{Field: "comment", Detail: "a review comment is required"}
	}

	req, doc, err := e.loadPendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !e.table.IsValidTransition(doc.Status, docStatus) {
		return nil, &InvalidStateError{Detail: "document " + doc.ID + " is " + string(doc.Status) + " and cannot move to " + string(docStatus)}
	}
	if err := e.requireReviewer(ctx, actor, req.ContainerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, curDoc, err := e.lockPendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if !e.table.IsValidTransition(curDoc.Status, docStatus) {
			return &InvalidStateError{Detail: "document " + curDoc.ID + " is " + string(curDoc.Status) + " and cannot move to " + string(docStatus)}
		}

		cur.Status = outcome
		cur.ReviewedBy = &actor.ID
		cur.ReviewedAt = &now
		cur.ReviewComment = &comment
		if err := tx.UpdateRequest(ctx, cur); err != nil {
			return err
		}

		curDoc.Status = docStatus
		curDoc.UpdatedBy = &actor.ID
		curDoc.UpdatedAt = now
		req = cur
		return tx.UpdateDocumentWorkflow(ctx, curDoc)
	})
	if err != nil {
		return nil, err
	}

	e.dispatch(ctx, req, outcome, comment)
	return req, nil
}

// Cancel withdraws a pending request. Only the requester or an admin may
// cancel; the document returns to draft. No notification is emitted.
func (e *Engine) Cancel(ctx context.Context, actor *models.User, requestID string) (*models.PublicationRequest, error) {
	req, err := e.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !e.authz.CanCancel(actor, req) {
		return nil, &ForbiddenError{UserID: actor.ID, Action: "cancel request " + requestID}
	}
	if req.Resolved() {
		return nil, &InvalidStateError{Detail: "request " + requestID + " is already " + string(req.Status)}
	}

	now := time.Now().UTC()
	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, curDoc, err := e.lockPendingRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}

		cur.Status = models.RequestCancelled
		cur.ReviewedAt = &now
		if err := tx.UpdateRequest(ctx, cur); err != nil {
			return err
		}

		if e.table.IsValidTransition(curDoc.Status, models.StatusDraft) {
			curDoc.Status = models.StatusDraft
			curDoc.UpdatedBy = &actor.ID
			curDoc.UpdatedAt = now
			if err := tx.UpdateDocumentWorkflow(ctx, curDoc); err != nil {
				return err
			}
		}
		req = cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Archive hides a published document from active listings. The document
// stays in its container.
func (e *Engine) Archive(ctx context.Context, actor *models.User, documentID string) (*models.Document, error) {
	doc, err := e.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !e.table.IsValidTransition(doc.Status, models.StatusArchived) {
		return nil, &InvalidStateError{Detail: "document " + documentID + " is " + string(doc.Status) + ", only published documents can be archived"}
	}

	var membership *models.Membership
	if doc.ContainerID != nil {
		membership, err = e.store.GetMembership(ctx, actor.ID, *doc.ContainerID)
		if err != nil {
			return nil, err
		}
	}
	if !e.authz.CanArchive(actor, doc, membership) {
		return nil, &ForbiddenError{UserID: actor.ID, Action: "archive document " + documentID}
	}

	now := time.Now().UTC()
	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if !e.table.IsValidTransition(cur.Status, models.StatusArchived) {
			return &InvalidStateError{Detail: "document " + documentID + " is " + string(cur.Status) + " and cannot be archived"}
		}
		cur.Status = models.StatusArchived
		cur.UpdatedBy = &actor.ID
		cur.UpdatedAt = now
		doc = cur
		return tx.UpdateDocumentWorkflow(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Unpublish retracts a published or archived document to draft and detaches
// it from its container. The document is rehomed in the owner's private
// workspace; the container relationship is lost and must be re-established
// through a new review. Admin only.
func (e *Engine) Unpublish(ctx context.Context, actor *models.User, documentID string) (*models.Document, error) {
	if !e.authz.CanUnpublish(actor) {
		return nil, &ForbiddenError{UserID: actor.ID, Action: "unpublish document " + documentID}
	}

	doc, err := e.loadDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusPublished && doc.Status != models.StatusArchived {
		return nil, &InvalidStateError{Detail: "document " + documentID + " is " + string(doc.Status) + ", only published or archived documents can be unpublished"}
	}

	now := time.Now().UTC()
	err = e.store.Transact(ctx, func(tx repository.Tx) error {
		cur, err := tx.GetDocumentForUpdate(ctx, documentID)
		if err != nil {
			return err
		}
		if cur.Status != models.StatusPublished && cur.Status != models.StatusArchived {
			return &InvalidStateError{Detail: "document " + documentID + " is " + string(cur.Status) + " and cannot be unpublished"}
		}
		cur.Status = models.StatusDraft
		cur.ContainerID = nil
		cur.FolderID = nil
		workspace := cur.OwnerID
		cur.WorkspaceID = &workspace
		cur.UpdatedBy = &actor.ID
		cur.UpdatedAt = now
		doc = cur
		return tx.UpdateDocumentWorkflow(ctx, cur)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListRequests returns publication requests matching the filter. Plain
// read, no authorization beyond authentication.
func (e *Engine) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]*models.PublicationRequest, error) {
	return e.store.ListRequests(ctx, filter)
}

func (e *Engine) loadDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := e.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "document", ID: id}
		}
		return nil, err
	}
	if doc.DeletedAt != nil {
		return nil, &NotFoundError{Resource: "document", ID: id}
	}
	return doc, nil
}

func (e *Engine) loadRequest(ctx context.Context, id string) (*models.PublicationRequest, error) {
	req, err := e.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "publication request", ID: id}
		}
		return nil, err
	}
	return req, nil
}

func (e *Engine) loadPendingRequest(ctx context.Context, id string) (*models.PublicationRequest, *models.Document, error) {
	req, err := e.loadRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Resolved() {
		return nil, nil, &InvalidStateError{Detail: "request " + id + " is already " + string(req.Status)}
	}
	doc, err := e.loadDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return req, doc, nil
}

// lockPendingRequest re-reads the request and its document with row locks
// and re-validates the pending precondition. Operations must not rely on
// their pre-transaction reads: a concurrent resolution may have committed
// in between.
func (e *Engine) lockPendingRequest(ctx context.Context, tx repository.Tx, id string) (*models.PublicationRequest, *models.Document, error) {
	req, err := tx.GetRequestForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Resolved() {
		return nil, nil, &InvalidStateError{Detail: "request " + id + " is already " + string(req.Status)}
	}
	doc, err := tx.GetDocumentForUpdate(ctx, req.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	return req, doc, nil
}

func (e *Engine) requireReviewer(ctx context.Context, actor *models.User, containerID string) error {
	membership, err := e.store.GetMembership(ctx, actor.ID, containerID)
	if err != nil {
		return err
	}
	if !e.authz.CanReview(actor, membership) {
		return &ForbiddenError{UserID: actor.ID, Action: "review requests for container " + containerID}
	}
	return nil
}

// dispatch emits a post-commit notification. The workflow mutation already
// succeeded, so a dispatch failure is logged and swallowed.
func (e *Engine) dispatch(ctx context.Context, req *models.PublicationRequest, outcome models.RequestStatus, comment string) {
	if e.notifier == nil {
		return
	}
	event := NotificationEvent{
		RequestID:  req.ID,
		DocumentID: req.DocumentID,
		Outcome:    outcome,
		Comment:    comment,
	}
	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Error("notification dispatch failed for request %s: %v", req.ID, err)
	}
}
