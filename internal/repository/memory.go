package repository

import (
	"context"
	"sync"

	"knowledgehub/backend/pkg/models"
)

// MemoryStore is an in-memory implementation of the Store interface, used in
// unit tests and for running the service without a database. Transact works
// on a copy of the state and swaps it in on success, so a failing function
// leaves no partial writes behind.
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	documents   map[string]*models.Document
	requests    map[string]*models.PublicationRequest
	containers  map[string]*models.Container
	folders     map[string]*models.Folder
	memberships map[string]*models.Membership // key: userID + "/" + containerID
	users       map[string]*models.User
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			documents:   map[string]*models.Document{},
			requests:    map[string]*models.PublicationRequest{},
			containers:  map[string]*models.Container{},
			folders:     map[string]*models.Folder{},
			memberships: map[string]*models.Membership{},
			users:       map[string]*models.User{},
		},
	}
}

func (s *memoryState) clone() *memoryState {
	next := &memoryState{
		documents:   make(map[string]*models.Document, len(s.documents)),
		requests:    make(map[string]*models.PublicationRequest, len(s.requests)),
		containers:  make(map[string]*models.Container, len(s.containers)),
		folders:     make(map[string]*models.Folder, len(s.folders)),
		memberships: make(map[string]*models.Membership, len(s.memberships)),
		users:       make(map[string]*models.User, len(s.users)),
	}
	for k, v := range s.documents {
		d := *v
		next.documents[k] = &d
	}
	for k, v := range s.requests {
		r := *v
		next.requests[k] = &r
	}
	for k, v := range s.containers {
		c := *v
		next.containers[k] = &c
	}
	for k, v := range s.folders {
		f := *v
		next.folders[k] = &f
	}
	for k, v := range s.memberships {
		m := *v
		next.memberships[k] = &m
	}
	for k, v := range s.users {
		u := *v
		next.users[k] = &u
	}
	return next
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.state.documents[id]
	if !ok || doc.DeletedAt != nil {
		return nil, ErrNotFound
	}
	d := *doc
	return &d, nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *doc
	s.state.documents[doc.ID] = &d
	return nil
}

func (s *MemoryStore) GetRequest(ctx context.Context, id string) (*models.PublicationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := *req
	return &r, nil
}

func (s *MemoryStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.PublicationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.PublicationRequest
	for _, req := range s.state.requests {
		if filter.DocumentID != "" && req.DocumentID != filter.DocumentID {
			continue
		}
		if filter.RequestedBy != "" && req.RequestedBy != filter.RequestedBy {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		r := *req
		out = append(out, &r)
	}
	return out, nil
}

func (s *MemoryStore) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.containers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) CreateContainer(ctx context.Context, c *models.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *c
	s.state.containers[c.ID] = &out
	return nil
}

func (s *MemoryStore) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.state.folders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *f
	return &out, nil
}

func (s *MemoryStore) CreateFolder(ctx context.Context, f *models.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *f
	s.state.folders[f.ID] = &out
	return nil
}

func (s *MemoryStore) GetMembership(ctx context.Context, userID, containerID string) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.state.memberships[userID+"/"+containerID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

func (s *MemoryStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *m
	s.state.memberships[m.UserID+"/"+m.ContainerID] = &out
	return nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.state.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *u
	s.state.users[u.ID] = &out
	return nil
}

// Transact serializes transactions behind the store mutex, which gives the
// same effect as row locks for the engine's re-validation reads.
func (s *MemoryStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.state.clone()
	if err := fn(&memoryTx{state: staged}); err != nil {
		return err
	}
	s.state = staged
	return nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) GetDocumentForUpdate(ctx context.Context, id string) (*models.Document, error) {
	doc, ok := t.state.documents[id]
	if !ok || doc.DeletedAt != nil {
		return nil, ErrNotFound
	}
	d := *doc
	return &d, nil
}

func (t *memoryTx) GetRequestForUpdate(ctx context.Context, id string) (*models.PublicationRequest, error) {
	req, ok := t.state.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	r := *req
	return &r, nil
}

func (t *memoryTx) HasPendingRequest(ctx context.Context, documentID string) (bool, error) {
	for _, req := range t.state.requests {
		if req.DocumentID == documentID && req.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) InsertRequest(ctx context.Context, r *models.PublicationRequest) error {
	pending, _ := t.HasPendingRequest(ctx, r.DocumentID)
	if pending && r.Status == models.RequestPending {
		return ErrPendingExists
	}
	req := *r
	t.state.requests[r.ID] = &req
	return nil
}

func (t *memoryTx) UpdateRequest(ctx context.Context, r *models.PublicationRequest) error {
	if _, ok := t.state.requests[r.ID]; !ok {
		return ErrNotFound
	}
	req := *r
	t.state.requests[r.ID] = &req
	return nil
}

func (t *memoryTx) UpdateDocumentWorkflow(ctx context.Context, d *models.Document) error {
	if _, ok := t.state.documents[d.ID]; !ok {
		return ErrNotFound
	}
	doc := *d
	t.state.documents[d.ID] = &doc
	return nil
}
