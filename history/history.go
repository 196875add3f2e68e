// Package history stores REPL and server evaluation transcripts in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

// ErrEmptySource is returned by Record for an entry with no source text.
var ErrEmptySource = errors.New("history: empty source")

var log = commonlog.GetLogger("stacc.history")

// Entry is one evaluated input.
type Entry struct {
	ID        int64
	Session   string
	Source    string
	OK        bool
	Message   string // error text when !OK
	CreatedAt time.Time
}

// Store is a transcript database. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the transcript database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY,
		session TEXT NOT NULL,
		source TEXT NOT NULL,
		ok INTEGER NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS entries_session ON entries (session, id)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	log.Debugf("opened transcript %s", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database path passed to Open.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.Source == "" {
		return 0, ErrEmptySource
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entries (session, source, ok, message, created_at) VALUES (?, ?, ?, ?, ?)",
		e.Session, e.Source, boolToInt(e.OK), e.Message, e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("recording entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording entry: %w", err)
	}
	return id, nil
}

// Recent returns up to limit of the latest entries, oldest first. An empty
// session matches every session; a limit <= 0 returns all entries.
func (s *Store) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	query := "SELECT id, session, source, ok, message, created_at FROM entries"
	var args []any
	if session != "" {
		query += " WHERE session = ?"
		args = append(args, session)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			ok      int
			created string
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Source, &ok, &e.Message, &created); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.OK = ok != 0
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("entry %d: bad timestamp %q: %w", e.ID, created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}

	// Rows arrive newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Sessions returns the distinct session names in order of first use.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session FROM entries GROUP BY session ORDER BY MIN(id)")
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, name)
	}
	return sessions, rows.Err()
}

// Clear deletes the entries of session, or of every session when session
// is empty. It returns the number of entries removed.
func (s *Store) Clear(ctx context.Context, session string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		res sql.Result
		err error
	)
	if session == "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM entries")
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM entries WHERE session = ?", session)
	}
	if err != nil {
		return 0, fmt.Errorf("clearing entries: %w", err)
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
