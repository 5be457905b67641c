package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/DmtiriyK/Job-finder-V2/internal/logger"
)

// ErrLocked is returned by Open when another process holds the store.
var ErrLocked = errors.New("results store is locked by another process")

const lockRetry = 100 * time.Millisecond

// Store keeps ranked runs in a sqlite database. The database file is guarded
// by an exclusive file lock for the lifetime of the Store.
type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *zap.Logger
}

// Open locks and opens the database at path, creating the schema when
// needed. Waiting for the lock stops when ctx is done.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	log = logger.WithFields(log, zap.String("component", "store"))

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLocked
	}

	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	log.Debug("store opened", zap.String("path", path))
	return &Store{db: db, lock: lock, logger: log}, nil
}

// Close closes the database and releases the lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return errors.Join(s.db.Close(), s.lock.Unlock())
}

func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	stmts := []string{`
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  profile TEXT NOT NULL DEFAULT '',
  input INTEGER NOT NULL DEFAULT 0,
  ranked INTEGER NOT NULL DEFAULT 0,
  top_score REAL NOT NULL DEFAULT 0,
  stats TEXT NOT NULL DEFAULT '{}'
);`, `
CREATE TABLE IF NOT EXISTS ranked_postings (
  run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  rank INTEGER NOT NULL,
  posting_id TEXT NOT NULL,
  source_id TEXT NOT NULL DEFAULT '',
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT NOT NULL,
  remote TEXT NOT NULL,
  contract_type TEXT NOT NULL,
  description TEXT NOT NULL,
  posted_at TEXT NOT NULL,
  source TEXT NOT NULL,
  url TEXT NOT NULL,
  tech_terms TEXT NOT NULL DEFAULT '[]',
  score REAL NOT NULL,
  result TEXT NOT NULL DEFAULT '{}',
  PRIMARY KEY (run_id, rank)
);`,
		`CREATE INDEX IF NOT EXISTS idx_ranked_postings_posting ON ranked_postings(posting_id);`,
		`PRAGMA user_version = 1;`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
