package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial tables
// 1 - per-store lookup indexes
const currentSchemaVersion = 1

// Journal is an open commit journal.
type Journal struct {
	db  *sql.DB
	now func() time.Time
	ids func() string

	mu  sync.Mutex
	seq map[string]int64
}

// Option configures a Journal.
type Option func(*Journal)

// WithNow sets the timestamp source. Default: time.Now.
func WithNow(now func() time.Time) Option {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// WithIDs sets the row ID source. Default: UUIDv7.
func WithIDs(ids func() string) Option {
	return func(j *Journal) {
		if ids != nil {
			j.ids = ids
		}
	}
}

// Open creates or opens the journal at path and applies pragmas and
// migrations. Safe to call repeatedly on the same file.
func Open(path string, opts ...Option) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	j := &Journal{
		db:  db,
		now: time.Now,
		ids: func() string { return uuid.Must(uuid.NewV7()).String() },
		seq: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// nextSeq returns the next sequence number for storeID, resuming after the
// highest one already on disk.
func (j *Journal) nextSeq(ctx context.Context, storeID string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, ok := j.seq[storeID]; !ok {
		var last sql.NullInt64
		err := j.db.QueryRowContext(ctx, `
			SELECT MAX(seq) FROM (
				SELECT seq FROM commits WHERE store_id = ?
				UNION ALL
				SELECT seq FROM failures WHERE store_id = ?
			)
		`, storeID, storeID).Scan(&last)
		if err != nil {
			return 0, fmt.Errorf("resume sequence: %w", err)
		}
		j.seq[storeID] = last.Int64
	}
	j.seq[storeID]++
	return j.seq[storeID], nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_commits_store_seq ON commits(store_id, seq);
		CREATE INDEX IF NOT EXISTS idx_failures_store_seq ON failures(store_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks a pragma value. Used by tests.
func (j *Journal) verifyPragma(name, expected string) error {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
