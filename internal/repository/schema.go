package repository

// Schema is the DDL for the workflow engine's tables. Applied by cmd/seed
// and by the integration tests; statements are idempotent.
//
// The partial unique index on pending requests is the authoritative guard
// for the one-pending-request-per-document invariant: the in-transaction
// re-check closes the race for readers, the index closes it for two
// concurrent committers.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY,
	email       TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL DEFAULT '',
	global_role TEXT NOT NULL DEFAULT 'user',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS containers (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	is_archived BOOLEAN NOT NULL DEFAULT false,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS folders (
	id           UUID PRIMARY KEY,
	container_id UUID NOT NULL REFERENCES containers(id),
	name         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memberships (
	user_id      UUID NOT NULL REFERENCES users(id),
	container_id UUID NOT NULL REFERENCES containers(id),
	role         TEXT NOT NULL,
	PRIMARY KEY (user_id, container_id)
);

CREATE TABLE IF NOT EXISTS documents (
	id           UUID PRIMARY KEY,
	title        TEXT NOT NULL,
	owner_id     UUID NOT NULL REFERENCES users(id),
	status       TEXT NOT NULL DEFAULT 'draft',
	workspace_id UUID,
	container_id UUID REFERENCES containers(id),
	folder_id    UUID REFERENCES folders(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_by   UUID,
	deleted_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS publication_requests (
	id             UUID PRIMARY KEY,
	document_id    UUID NOT NULL REFERENCES documents(id),
	status         TEXT NOT NULL DEFAULT 'pending',
	requested_by   UUID NOT NULL REFERENCES users(id),
	reviewed_by    UUID,
	container_id   UUID NOT NULL REFERENCES containers(id),
	folder_id      UUID REFERENCES folders(id),
	comment        TEXT NOT NULL DEFAULT '',
	review_comment TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	reviewed_at    TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS publication_requests_pending_uniq
	ON publication_requests (document_id) WHERE status = 'pending';
`
