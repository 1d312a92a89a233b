// Package sqlite persists the ledger snapshot to an embedded SQLite file.
// Transactions run against the in-memory store; the full snapshot is
// written after every commit and on Flush.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"churchledger/internal/infra/persistence/memory"
	"churchledger/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when no file is configured.
const DefaultPath = "churchledger.db"

const (
	bucketChurches = "churches"
	bucketUsers    = "users"
)

// Store snapshots the in-memory state into a two-row state table.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore migrates the database at path, then hydrates the memory store
// from any persisted snapshot.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	if err := RunMigrations(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot domain.Snapshot
	var found bool
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		found = true
		switch bucket {
		case bucketChurches:
			if err := json.Unmarshal(payload, &snapshot.Churches); err != nil {
				return fmt.Errorf("decode churches: %w", err)
			}
		case bucketUsers:
			if err := json.Unmarshal(payload, &snapshot.Users); err != nil {
				return fmt.Errorf("decode users: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	churches, err := json.Marshal(snapshot.Churches)
	if err != nil {
		return fmt.Errorf("encode churches: %w", err)
	}
	users, err := json.Marshal(snapshot.Users)
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, row := range []struct {
		bucket  string
		payload []byte
	}{{bucketChurches, churches}, {bucketUsers, users}} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket, payload) VALUES(?, ?)
			ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload, updated_at=strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`, row.bucket, row.payload); err != nil {
			return fmt.Errorf("upsert %s: %w", row.bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunInTransaction applies fn through the memory store and snapshots the
// result to SQLite when it commits.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// Flush rewrites the snapshot regardless of pending changes.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
