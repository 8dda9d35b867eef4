package local

import (
	"database/sql"
	"fmt"
	"strconv"
)

const currentSchemaVersion = 2

// schemaDDL contains the CREATE TABLE statements for the initial schema.
// Ids are UUID strings assigned by this layer, matching the hosted API's
// id format so records are portable between backends.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT
);

CREATE TABLE IF NOT EXISTS issues (
	id          TEXT PRIMARY KEY,
	project_id  TEXT NOT NULL,
	parent_id   TEXT REFERENCES issues(id) ON DELETE SET NULL,
	title       TEXT NOT NULL,
	description TEXT,
	status      TEXT NOT NULL DEFAULT 'backlog',
	priority    TEXT NOT NULL DEFAULT 'none',
	assignee_id TEXT,
	start_date  TEXT,
	target_date TEXT,
	sort_order  REAL NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL UNIQUE,
	color TEXT
);

CREATE TABLE IF NOT EXISTS issue_labels (
	issue_id TEXT REFERENCES issues(id) ON DELETE CASCADE,
	label_id TEXT REFERENCES labels(id) ON DELETE CASCADE,
	PRIMARY KEY (issue_id, label_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	body       TEXT NOT NULL,
	author_id  TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reactions (
	id         TEXT PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	member_id  TEXT NOT NULL,
	emoji      TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(issue_id, member_id, emoji)
);

CREATE TABLE IF NOT EXISTS links (
	id         TEXT PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	title      TEXT,
	url        TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attachments (
	id           TEXT PRIMARY KEY,
	issue_id     TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	file_name    TEXT NOT NULL,
	size         INTEGER NOT NULL,
	content_type TEXT,
	uploader_id  TEXT,
	content      BLOB,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	member_id  TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(issue_id, member_id)
);

CREATE TABLE IF NOT EXISTS issue_relations (
	id               TEXT PRIMARY KEY,
	issue_id         TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	related_issue_id TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	relation_type    TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	UNIQUE(issue_id, related_issue_id)
);

CREATE TRIGGER IF NOT EXISTS trg_no_inverse_duplicate_relation
BEFORE INSERT ON issue_relations
WHEN EXISTS (
	SELECT 1 FROM issue_relations
	WHERE issue_id = NEW.related_issue_id
	  AND related_issue_id = NEW.issue_id
)
BEGIN
	SELECT RAISE(ABORT, 'inverse duplicate relation');
END;

CREATE TABLE IF NOT EXISTS members (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	display_name TEXT NOT NULL,
	email        TEXT,
	role         TEXT NOT NULL DEFAULT 'member',
	joined_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pages (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	title      TEXT NOT NULL,
	access     TEXT NOT NULL DEFAULT 'public',
	owner_id   TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_log (
	id            TEXT PRIMARY KEY,
	issue_id      TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	field_changed TEXT NOT NULL,
	old_value     TEXT,
	new_value     TEXT,
	actor_id      TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_issues_project_id ON issues(project_id);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_priority ON issues(priority);
CREATE INDEX IF NOT EXISTS idx_issues_assignee_id ON issues(assignee_id);
CREATE INDEX IF NOT EXISTS idx_issues_parent_id ON issues(parent_id);
CREATE INDEX IF NOT EXISTS idx_issues_sort_order ON issues(sort_order);
CREATE INDEX IF NOT EXISTS idx_comments_issue_id ON comments(issue_id);
CREATE INDEX IF NOT EXISTS idx_reactions_issue_id ON reactions(issue_id);
CREATE INDEX IF NOT EXISTS idx_activity_issue_id ON activity_log(issue_id);
`

// Initialize creates all tables if they don't exist and sets the schema version.
func Initialize(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaDDL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	// Set schema version only if not already set.
	_, err = tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`,
		strconv.Itoa(currentSchemaVersion),
	)
	if err != nil {
		return fmt.Errorf("setting schema version: %w", err)
	}

	return tx.Commit()
}

// SchemaVersion returns the current schema version from the meta table.
func SchemaVersion(db *sql.DB) (int, error) {
	var val string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&val)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}

	v, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing schema version %q: %w", val, err)
	}

	return v, nil
}

// migrations is a list of migration functions keyed by the version they
// migrate TO. For example, migrations[2] migrates from version 1 to 2.
var migrations = map[int]func(tx *sql.Tx) error{
	2: func(tx *sql.Tx) error {
		_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS subscriptions (
	id         TEXT PRIMARY KEY,
	issue_id   TEXT NOT NULL REFERENCES issues(id) ON DELETE CASCADE,
	member_id  TEXT NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(issue_id, member_id)
);
`)
		return err
	},
}

// Migrate checks the current schema version and applies any pending
// migrations sequentially. It is a no-op when already at the latest version.
func Migrate(db *sql.DB) error {
	version, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		return nil
	}

	for v := version + 1; v <= currentSchemaVersion; v++ {
		migrateFn, ok := migrations[v]
		if !ok {
			return fmt.Errorf("missing migration for version %d", v)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d transaction: %w", v, err)
		}

		if err := migrateFn(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", v, err)
		}

		if _, err := tx.Exec(
			`UPDATE meta SET value = ? WHERE key = 'schema_version'`,
			strconv.Itoa(v),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", v, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v, err)
		}
	}

	return nil
}
