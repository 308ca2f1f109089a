package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"knowledgehub/backend/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const documentColumns = `id, title, owner_id, status, workspace_id, container_id, folder_id, created_at, updated_at, updated_by, deleted_at`
const requestColumns = `id, document_id, status, requested_by, reviewed_by, container_id, folder_id, comment, review_comment, created_at, reviewed_at`

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

type row interface {
	Scan(dest ...any) error
}

func scanDocument(r row) (*models.Document, error) {
	var d models.Document
	err := r.Scan(&d.ID, &d.Title, &d.OwnerID, &d.Status, &d.WorkspaceID, &d.ContainerID, &d.FolderID, &d.CreatedAt, &d.UpdatedAt, &d.UpdatedBy, &d.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func scanRequest(r row) (*models.PublicationRequest, error) {
	var p models.PublicationRequest
	err := r.Scan(&p.ID, &p.DocumentID, &p.Status, &p.RequestedBy, &p.ReviewedBy, &p.ContainerID, &p.FolderID, &p.Comment, &p.ReviewComment, &p.CreatedAt, &p.ReviewedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetDocument retrieves a document by id. Soft-deleted documents are not
// returned.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return scanDocument(s.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND deleted_at IS NULL`, id))
}

// CreateDocument inserts a new document.
func (s *PostgresStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, title, owner_id, status, workspace_id, container_id, folder_id, created_at, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Title, doc.OwnerID, doc.Status, doc.WorkspaceID, doc.ContainerID, doc.FolderID, doc.CreatedAt, doc.UpdatedAt, doc.UpdatedBy)
	return err
}

// GetRequest retrieves a publication request by id.
func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*models.PublicationRequest, error) {
	return scanRequest(s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM publication_requests WHERE id = $1`, id))
}

// ListRequests returns requests matching the filter, newest first.
func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.PublicationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM publication_requests WHERE 1=1`
	args := []any{}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		query += ` AND document_id = $` + strconv.Itoa(len(args))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		query += ` AND requested_by = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.PublicationRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// GetContainer retrieves a container by id.
func (s *PostgresStore) GetContainer(ctx context.Context, id string) (*models.Container, error) {
	var c models.Container
	err := s.db.QueryRow(ctx,
		`SELECT id, name, is_archived, created_at, updated_at FROM containers WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.IsArchived, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateContainer inserts a new container.
func (s *PostgresStore) CreateContainer(ctx context.Context, c *models.Container) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO containers (id, name, is_archived, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.IsArchived, c.CreatedAt, c.UpdatedAt)
	return err
}

// GetFolder retrieves a folder by id.
func (s *PostgresStore) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	var f models.Folder
	err := s.db.QueryRow(ctx,
		`SELECT id, container_id, name FROM folders WHERE id = $1`, id).
		Scan(&f.ID, &f.ContainerID, &f.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// CreateFolder inserts a new folder.
func (s *PostgresStore) CreateFolder(ctx context.Context, f *models.Folder) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO folders (id, container_id, name) VALUES ($1, $2, $3)`,
		f.ID, f.ContainerID, f.Name)
	return err
}

// GetMembership returns the user's membership in the container, or nil when
// the user holds no role there.
func (s *PostgresStore) GetMembership(ctx context.Context, userID, containerID string) (*models.Membership, error) {
	var m models.Membership
	err := s.db.QueryRow(ctx,
		`SELECT user_id, container_id, role FROM memberships WHERE user_id = $1 AND container_id = $2`,
		userID, containerID).
		Scan(&m.UserID, &m.ContainerID, &m.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// CreateMembership inserts a new membership.
func (s *PostgresStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO memberships (user_id, container_id, role) VALUES ($1, $2, $3)`,
		m.UserID, m.ContainerID, m.Role)
	return err
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, email, name, global_role, created_at, updated_at FROM users WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `SELECT id, email, name, global_role, created_at, updated_at FROM users WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.GlobalRole, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO users (id, email, name, global_role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Name, u.GlobalRole, u.CreatedAt, u.UpdatedAt)
	return err
}

// Transact runs fn inside a database transaction.
func (s *PostgresStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
	pgtx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer pgtx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(&postgresTx{tx: pgtx}); err != nil {
		return err
	}
	return pgtx.Commit(ctx)
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) GetDocumentForUpdate(ctx context.Context, id string) (*models.Document, error) {
	return scanDocument(t.tx.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
}

func (t *postgresTx) GetRequestForUpdate(ctx context.Context, id string) (*models.PublicationRequest, error) {
	return scanRequest(t.tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM publication_requests WHERE id = $1 FOR UPDATE`, id))
}

func (t *postgresTx) HasPendingRequest(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM publication_requests WHERE document_id = $1 AND status = 'pending')`,
		documentID).Scan(&exists)
	return exists, err
}

func (t *postgresTx) InsertRequest(ctx context.Context, r *models.PublicationRequest) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO publication_requests (id, document_id, status, requested_by, container_id, folder_id, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.DocumentID, r.Status, r.RequestedBy, r.ContainerID, r.FolderID, r.Comment, r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrPendingExists
	}
	return err
}

func (t *postgresTx) UpdateRequest(ctx context.Context, r *models.PublicationRequest) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE publication_requests SET status = $1, reviewed_by = $2, review_comment = $3, reviewed_at = $4 WHERE id = $5`,
		r.Status, r.ReviewedBy, r.ReviewComment, r.ReviewedAt, r.ID)
	return err
}

func (t *postgresTx) UpdateDocumentWorkflow(ctx context.Context, d *models.Document) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE documents SET status = $1, workspace_id = $2, container_id = $3, folder_id = $4, updated_at = $5, updated_by = $6 WHERE id = $7`,
		d.Status, d.WorkspaceID, d.ContainerID, d.FolderID, d.UpdatedAt, d.UpdatedBy, d.ID)
	return err
}
