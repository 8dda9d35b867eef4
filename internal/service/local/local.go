// Package local is the SQLite-backed implementation of the service
// interfaces, used when a project lives in a local database file instead
// of behind the hosted API. One database holds one workspace; rows are
// scoped by project id.
package local

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gridline-app/gridline/internal/service"
)

// safeIdentifier matches valid SQL column identifiers (lowercase letters
// and underscores only).
var safeIdentifier = regexp.MustCompile(`^[a-z_]+$`)

// Open opens or creates the SQLite database at the given path.
// It sets pragmas for WAL mode, foreign key enforcement, and busy timeout.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite is single-writer; limit the pool to one connection to avoid
	// lock contention and make the single-connection intent explicit.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}

// Store wraps an open database and the actor name recorded on mutations.
type Store struct {
	db    *sql.DB
	actor string
}

// NewStore returns a store over an opened database. The schema must
// already be initialized. actor is written to the activity log as the
// author of every change.
func NewStore(db *sql.DB, actor string) *Store {
	return &Store{db: db, actor: actor}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Bundle returns the full set of service implementations over this store.
func (s *Store) Bundle() service.Bundle {
	return service.Bundle{
		Issues:        &issueService{s},
		Reactions:     &reactionService{s},
		Comments:      &commentService{s},
		Links:         &linkService{s},
		Attachments:   &attachmentService{s},
		Subscriptions: &subscriptionService{s},
		Relations:     &relationService{s},
		Members:       &memberService{s},
		Pages:         &pageService{s},
		Gantt:         &ganttService{s},
		Activity:      &activityService{s},
	}
}

// scanner abstracts *sql.Row and *sql.Rows for scanning a single row.
type scanner interface {
	Scan(dest ...any) error
}

// execer abstracts *sql.DB and *sql.Tx for executing statements.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// makePlaceholders returns "?, ?, ..." with n placeholders.
func makePlaceholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseStamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullStamp formats t for storage, mapping the zero time to NULL.
func nullStamp(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
