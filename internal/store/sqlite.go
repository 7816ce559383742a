// Package store persists sessions, working memory, and long-term memory
// metadata in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database. A single connection is used so writers
// never contend inside sqlite itself.
type Store struct {
	db      *sql.DB
	entropy *rand.Rand
}

// Open opens or creates a SQLite database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS session_contexts (
		session_id    TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		org_id        TEXT,
		total_tokens  INTEGER NOT NULL DEFAULT 0,
		max_tokens    INTEGER NOT NULL,
		created_at    TEXT NOT NULL,
		last_activity TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user ON session_contexts(user_id);

	CREATE TABLE IF NOT EXISTS working_memory_items (
		item_id         TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL REFERENCES session_contexts(session_id),
		user_id         TEXT NOT NULL,
		content_type    TEXT NOT NULL,
		content         TEXT NOT NULL,
		token_count     INTEGER NOT NULL,
		relevance_score REAL NOT NULL DEFAULT 0.5,
		pinned          INTEGER NOT NULL DEFAULT 0,
		sequence_num    INTEGER NOT NULL,
		created_at      TEXT NOT NULL,
		last_accessed   TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_working_session ON working_memory_items(session_id, sequence_num);

	CREATE TABLE IF NOT EXISTS long_term_memories (
		memory_id      TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		category       TEXT NOT NULL,
		subtype        TEXT NOT NULL,
		content        TEXT NOT NULL,
		summary        TEXT,
		entities       TEXT,
		importance     REAL NOT NULL DEFAULT 0.5,
		access_count   INTEGER NOT NULL DEFAULT 0,
		decay_factor   REAL NOT NULL DEFAULT 1.0,
		is_temporal    INTEGER NOT NULL DEFAULT 0,
		event_time     TEXT,
		metadata       TEXT,
		supersedes     TEXT,
		source_session TEXT,
		source_type    TEXT NOT NULL DEFAULT 'conversation',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		last_accessed  TEXT,
		deleted_at     TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user_cat ON long_term_memories(user_id, category, subtype);
	CREATE INDEX IF NOT EXISTS idx_memories_deleted ON long_term_memories(deleted_at);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON long_term_memories(created_at DESC);

	CREATE TABLE IF NOT EXISTS memory_relationships (
		from_id    TEXT NOT NULL REFERENCES long_term_memories(memory_id),
		to_id      TEXT NOT NULL REFERENCES long_term_memories(memory_id),
		relation   TEXT NOT NULL,
		strength   REAL NOT NULL DEFAULT 1.0,
		created_at TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id, relation)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_to ON memory_relationships(to_id);

	CREATE TABLE IF NOT EXISTS memory_access_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id   TEXT NOT NULL,
		session_id  TEXT,
		user_id     TEXT NOT NULL,
		query       TEXT,
		similarity  REAL,
		accessed_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_access_memory ON memory_access_log(memory_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// timeFormat is RFC3339 with fixed-width nanoseconds so stored timestamps
// sort lexicographically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}
