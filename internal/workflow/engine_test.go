package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"knowledgehub/backend/internal/repository"
	"knowledgehub/backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}

// recordNotifier captures dispatched events and can simulate failures.
type recordNotifier struct {
	mu     sync.Mutex
	events []NotificationEvent
	err    error
}

func (n *recordNotifier) Notify(ctx context.Context, event NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.events = append(n.events, event)
	return nil
}

func (n *recordNotifier) outcomes() []models.RequestStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.RequestStatus
	for _, e := range n.events {
		out = append(out, e.Outcome)
	}
	return out
}

type fixture struct {
	engine   *Engine
	store    *repository.MemoryStore
	notifier *recordNotifier

	author   *models.User
	reviewer *models.User
	stranger *models.User
	admin    *models.User
	auditor  *models.User

	container *models.Container
	folder    *models.Folder
	archived  *models.Container
	doc       *models.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	notifier := &recordNotifier{}

	f := &fixture{
		store:    store,
		notifier: notifier,
		author:   &models.User{ID: "author", Email: "author@example.com", GlobalRole: models.RoleUser},
		reviewer: &models.User{ID: "reviewer", Email: "reviewer@example.com", GlobalRole: models.RoleUser},
		stranger: &models.User{ID: "stranger", Email: "stranger@example.com", GlobalRole: models.RoleUser},
		admin:    &models.User{ID: "admin", Email: "admin@example.com", GlobalRole: models.RoleAdmin},
		auditor:  &models.User{ID: "auditor", Email: "auditor@example.com", GlobalRole: models.RoleAuditor},
	}
	for _, u := range []*models.User{f.author, f.reviewer, f.stranger, f.admin, f.auditor} {
		require.NoError(t, store.CreateUser(ctx, u))
	}

	f.container = &models.Container{ID: "c1", Name: "Engineering"}
	f.archived = &models.Container{ID: "c2", Name: "Old Team", IsArchived: true}
	require.NoError(t, store.CreateContainer(ctx, f.container))
	require.NoError(t, store.CreateContainer(ctx, f.archived))

	f.folder = &models.Folder{ID: "f1", ContainerID: "c1", Name: "Runbooks"}
	require.NoError(t, store.CreateFolder(ctx, f.folder))

	require.NoError(t, store.CreateMembership(ctx, &models.Membership{
		UserID: "reviewer", ContainerID: "c1", Role: models.MemberReviewer,
	}))

	workspace := f.author.ID
	f.doc = &models.Document{
		ID:          "d1",
		Title:       "Onboarding Guide",
		OwnerID:     f.author.ID,
		Status:      models.StatusDraft,
		WorkspaceID: &workspace,
	}
	require.NoError(t, store.CreateDocument(ctx, f.doc))

	f.engine = NewEngine(store, NewAuthorizer(DefaultPermissions()), NewTransitionTable(), notifier, nopLogger{})
	return f
}

func (f *fixture) document(t *testing.T, id string) *models.Document {
	t.Helper()
	doc, err := f.store.GetDocument(context.Background(), id)
	require.NoError(t, err)
	return doc
}

func (f *fixture) request(t *testing.T, id string) *models.PublicationRequest {
	t.Helper()
	req, err := f.store.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

// assertHome checks the status/home pairing invariant.
func assertHome(t *testing.T, doc *models.Document) {
	t.Helper()
	switch doc.Status {
	case models.StatusDraft, models.StatusChangesRequested:
		assert.NotNil(t, doc.WorkspaceID, "status %s requires a workspace home", doc.Status)
		assert.Nil(t, doc.ContainerID, "status %s must not be container-homed", doc.Status)
	case models.StatusPublished, models.StatusArchived:
		assert.NotNil(t, doc.ContainerID, "status %s requires a container home", doc.Status)
		assert.Nil(t, doc.WorkspaceID, "status %s must not be workspace-homed", doc.Status)
	}
}

func TestRequestPublication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", &f.folder.ID, "please review")
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "d1", req.DocumentID)
	assert.Equal(t, "author", req.RequestedBy)
	assert.Equal(t, "please review", req.Comment)

	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusInReview, doc.Status)
	assert.NotNil(t, doc.WorkspaceID, "document stays in the workspace while in review")
}

func TestRequestPublicationErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var notFound *NotFoundError
	var forbidden *ForbiddenError
	var invalidState *InvalidStateError
	var validation *ValidationError
	var conflict *ConflictError

	t.Run("unknown document", func(t *testing.T) {
		_, err := f.engine.RequestPublication(ctx, f.author, "nope", "c1", nil, "")
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("non-owner", func(t *testing.T) {
		_, err := f.engine.RequestPublication(ctx, f.stranger, "d1", "c1", nil, "")
		assert.ErrorAs(t, err, &forbidden)
	})

	t.Run("unknown container", func(t *testing.T) {
		_, err := f.engine.RequestPublication(ctx, f.author, "d1", "nope", nil, "")
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("archived container", func(t *testing.T) {
		_, err := f.engine.RequestPublication(ctx, f.author, "d1", "c2", nil, "")
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("folder in wrong container", func(t *testing.T) {
		folder := "f1"
		_, err := f.engine.RequestPublication(ctx, f.author, "d1", "c2", &folder, "")
		// archived container wins before the folder check
		assert.ErrorAs(t, err, &notFound)

		require.NoError(t, f.store.CreateContainer(ctx, &models.Container{ID: "c3", Name: "Another"}))
		_, err = f.engine.RequestPublication(ctx, f.author, "d1", "c3", &folder, "")
		assert.ErrorAs(t, err, &validation)
	})

	t.Run("second request conflicts", func(t *testing.T) {
		_, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
		require.NoError(t, err)
		_, err = f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
		assert.ErrorAs(t, err, &conflict)
	})

	t.Run("wrong document state", func(t *testing.T) {
		workspace := "author"
		require.NoError(t, f.store.CreateDocument(ctx, &models.Document{
			ID: "d2", OwnerID: "author", Status: models.StatusInReview, WorkspaceID: &workspace,
		}))
		_, err := f.engine.RequestPublication(ctx, f.author, "d2", "c1", nil, "")
		assert.ErrorAs(t, err, &invalidState)
	})
}

func TestRequestPublicationConcurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		var conflict *ConflictError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one submitter wins")
	assert.Equal(t, attempts-1, conflicts)

	pending, err := f.store.ListRequests(ctx, repository.RequestFilter{DocumentID: "d1", Status: models.RequestPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", &f.folder.ID, "")
	require.NoError(t, err)

	approved, err := f.engine.Approve(ctx, f.reviewer, req.ID, "looks good")
	require.NoError(t, err)

	assert.Equal(t, models.RequestApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "reviewer", *approved.ReviewedBy)
	assert.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.ReviewComment)
	assert.Equal(t, "looks good", *approved.ReviewComment)

	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusPublished, doc.Status)
	require.NotNil(t, doc.ContainerID)
	assert.Equal(t, "c1", *doc.ContainerID)
	require.NotNil(t, doc.FolderID)
	assert.Equal(t, "f1", *doc.FolderID)
	assert.Nil(t, doc.WorkspaceID)
	assertHome(t, doc)

	assert.Equal(t, []models.RequestStatus{models.RequestApproved}, f.notifier.outcomes())
}

func TestApproveAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	var forbidden *ForbiddenError

	// No membership, plain global role.
	_, err = f.engine.Approve(ctx, f.stranger, req.ID, "")
	assert.ErrorAs(t, err, &forbidden)

	// Viewer membership is not enough.
	require.NoError(t, f.store.CreateMembership(ctx, &models.Membership{
		UserID: "stranger", ContainerID: "c1", Role: models.MemberViewer,
	}))
	_, err = f.engine.Approve(ctx, f.stranger, req.ID, "")
	assert.ErrorAs(t, err, &forbidden)

	// The author holds no reviewer role in the container.
	_, err = f.engine.Approve(ctx, f.author, req.ID, "")
	assert.ErrorAs(t, err, &forbidden)

	// Document untouched by the failed attempts.
	assert.Equal(t, models.StatusInReview, f.document(t, "d1").Status)

	// Auditor reviews without membership.
	_, err = f.engine.Approve(ctx, f.auditor, req.ID, "")
	require.NoError(t, err)
}

func TestApproveInvalidStates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var notFound *NotFoundError
	var invalidState *InvalidStateError

	_, err := f.engine.Approve(ctx, f.reviewer, "nope", "")
	assert.ErrorAs(t, err, &notFound)

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.reviewer, req.ID, "")
	require.NoError(t, err)

	// Already resolved.
	_, err = f.engine.Approve(ctx, f.reviewer, req.ID, "")
	assert.ErrorAs(t, err, &invalidState)
}

func TestRejectRequiresComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	var validation *ValidationError
	_, err = f.engine.Reject(ctx, f.reviewer, req.ID, "")
	assert.ErrorAs(t, err, &validation)

	// Nothing moved.
	assert.Equal(t, models.RequestPending, f.request(t, req.ID).Status)
	assert.Equal(t, models.StatusInReview, f.document(t, "d1").Status)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	rejected, err := f.engine.Reject(ctx, f.reviewer, req.ID, "not ready")
	require.NoError(t, err)

	assert.Equal(t, models.RequestRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewComment)
	assert.Equal(t, "not ready", *rejected.ReviewComment)

	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusDraft, doc.Status)
	assertHome(t, doc)

	assert.Equal(t, []models.RequestStatus{models.RequestRejected}, f.notifier.outcomes())
}

func TestRequestChangesAndResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	resolved, err := f.engine.RequestChanges(ctx, f.reviewer, req.ID, "needs a summary section")
	require.NoError(t, err)
	assert.Equal(t, models.RequestChangesRequested, resolved.Status)

	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusChangesRequested, doc.Status)
	assertHome(t, doc)

	// The request is terminal; the document re-enters review via a new one.
	second, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "addressed feedback")
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, second.ID)
	assert.Equal(t, models.StatusInReview, f.document(t, "d1").Status)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	var forbidden *ForbiddenError
	_, err = f.engine.Cancel(ctx, f.stranger, req.ID)
	assert.ErrorAs(t, err, &forbidden)

	cancelled, err := f.engine.Cancel(ctx, f.author, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)

	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusDraft, doc.Status)
	assertHome(t, doc)

	var invalidState *InvalidStateError
	_, err = f.engine.Cancel(ctx, f.author, req.ID)
	assert.ErrorAs(t, err, &invalidState)

	// No notifications for cancellations.
	assert.Empty(t, f.notifier.outcomes())
}

func publish(t *testing.T, f *fixture) *models.PublicationRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)
	_, err = f.engine.Approve(ctx, f.reviewer, req.ID, "ok")
	require.NoError(t, err)
	return req
}

func TestArchive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	publish(t, f)

	var forbidden *ForbiddenError
	_, err := f.engine.Archive(ctx, f.stranger, "d1")
	assert.ErrorAs(t, err, &forbidden)

	// Reviewer membership does not grant archiving; container owner does.
	_, err = f.engine.Archive(ctx, f.reviewer, "d1")
	assert.ErrorAs(t, err, &forbidden)

	require.NoError(t, f.store.CreateMembership(ctx, &models.Membership{
		UserID: "stranger", ContainerID: "c1", Role: models.MemberOwner,
	}))
	doc, err := f.engine.Archive(ctx, f.stranger, "d1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusArchived, doc.Status)
	require.NotNil(t, doc.ContainerID)
	assert.Equal(t, "c1", *doc.ContainerID, "archived documents stay in place")
	assertHome(t, doc)

	var invalidState *InvalidStateError
	_, err = f.engine.Archive(ctx, f.admin, "d1")
	assert.ErrorAs(t, err, &invalidState)
}

func TestUnpublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	publish(t, f)

	var forbidden *ForbiddenError
	_, err := f.engine.Unpublish(ctx, f.author, "d1")
	assert.ErrorAs(t, err, &forbidden)
	_, err = f.engine.Unpublish(ctx, f.auditor, "d1")
	assert.ErrorAs(t, err, &forbidden)

	doc, err := f.engine.Unpublish(ctx, f.admin, "d1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, doc.Status)
	assert.Nil(t, doc.ContainerID)
	assert.Nil(t, doc.FolderID)
	require.NotNil(t, doc.WorkspaceID)
	assert.Equal(t, "author", *doc.WorkspaceID, "rehomed to the owner's workspace")
	assertHome(t, doc)

	var invalidState *InvalidStateError
	_, err = f.engine.Unpublish(ctx, f.admin, "d1")
	assert.ErrorAs(t, err, &invalidState)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check := func() { assertHome(t, f.document(t, "d1")) }

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "fresh draft")
	require.NoError(t, err)
	check()

	_, err = f.engine.Approve(ctx, f.reviewer, req.ID, "looks good")
	require.NoError(t, err)
	check()

	require.NoError(t, f.store.CreateMembership(ctx, &models.Membership{
		UserID: "author", ContainerID: "c1", Role: models.MemberOwner,
	}))
	_, err = f.engine.Archive(ctx, f.author, "d1")
	require.NoError(t, err)
	check()

	_, err = f.engine.Unpublish(ctx, f.admin, "d1")
	require.NoError(t, err)
	check()

	// Full circle: the document can be submitted again.
	_, err = f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "round two")
	require.NoError(t, err)
}

// failingStore injects a failure into the document write inside a
// transaction, simulating a crash between the request-status write and the
// document-status write.
type failingStore struct {
	*repository.MemoryStore
}

func (s *failingStore) Transact(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.MemoryStore.Transact(ctx, func(tx repository.Tx) error {
		return fn(&failingTx{Tx: tx})
	})
}

type failingTx struct {
	repository.Tx
}

func (t *failingTx) UpdateDocumentWorkflow(ctx context.Context, d *models.Document) error {
	return errors.New("injected storage failure")
}

func TestApproveAtomicity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	broken := NewEngine(&failingStore{f.store}, NewAuthorizer(DefaultPermissions()), NewTransitionTable(), f.notifier, nopLogger{})
	_, err = broken.Approve(ctx, f.reviewer, req.ID, "ok")
	require.Error(t, err)

	// Neither half of the approval is visible.
	assert.Equal(t, models.RequestPending, f.request(t, req.ID).Status)
	doc := f.document(t, "d1")
	assert.Equal(t, models.StatusInReview, doc.Status)
	assert.Nil(t, doc.ContainerID)

	// And nothing was announced.
	assert.Empty(t, f.notifier.outcomes())

	// The intact engine can still resolve the request afterwards.
	_, err = f.engine.Approve(ctx, f.reviewer, req.ID, "ok")
	require.NoError(t, err)
}

func TestNotificationFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.err = errors.New("webhook down")

	req, err := f.engine.RequestPublication(ctx, f.author, "d1", "c1", nil, "")
	require.NoError(t, err)

	approved, err := f.engine.Approve(ctx, f.reviewer, req.ID, "ok")
	require.NoError(t, err, "notification failure must not surface")
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, models.StatusPublished, f.document(t, "d1").Status)
}
