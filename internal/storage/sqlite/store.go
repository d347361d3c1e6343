package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/migration"
	"github.com/julianstephens/hearth/internal/storage"
	"github.com/julianstephens/hearth/migrations"
)

// Store is the SQLite-backed durable store. Records live in a single
// app_records table keyed by id.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

var (
	_ storage.DurableStore   = (*Store)(nil)
	_ storage.Snapshotter    = (*Store)(nil)
	_ storage.SchemaReporter = (*Store)(nil)
)

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init opens the database file and applies pending schema migrations.
// Calling Init on an open store is a no-op.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %w", storage.ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("%w: failed to open database: %w", storage.ErrStoreUnavailable, err)
	}
	// one writer at a time; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: failed to open database: %w", storage.ErrStoreUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: failed to configure database: %w", storage.ErrStoreUnavailable, err)
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: failed to run migrations: %w", storage.ErrStoreUnavailable, err)
	}

	s.db = db
	logger.Debug("Opened durable store", "driver", constants.DriverSQLite, "path", s.path)
	return nil
}

func newRunner(db *sql.DB) (*migration.Runner, error) {
	subFS, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(db, subFS), nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	runner, err := newRunner(db)
	if err != nil {
		return err
	}
	if err := runner.Validate(ctx); err != nil {
		return err
	}
	_, err = runner.Apply(ctx)
	return err
}

// SchemaStatus reports the applied and latest migration versions.
func (s *Store) SchemaStatus(ctx context.Context) (current, latest int, err error) {
	db, err := s.conn()
	if err != nil {
		return 0, 0, err
	}
	runner, err := newRunner(db)
	if err != nil {
		return 0, 0, err
	}
	if current, err = runner.CurrentVersion(ctx); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", storage.ErrStoreIO, err)
	}
	if latest, err = runner.LatestVersion(); err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("%w: store not initialized", storage.ErrStoreUnavailable)
	}
	return s.db, nil
}

// Get reads the record stored under id.
func (s *Store) Get(ctx context.Context, id string) (storage.Record, error) {
	db, err := s.conn()
	if err != nil {
		return storage.Record{}, err
	}

	var (
		rec     storage.Record
		data    string
		updated string
	)
	row := db.QueryRowContext(ctx, `SELECT id, data, schema_version, last_updated FROM app_records WHERE id = ?`, id)
	if err := row.Scan(&rec.ID, &data, &rec.SchemaVersion, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Record{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return storage.Record{}, fmt.Errorf("%w: failed to read record %s: %w", storage.ErrStoreIO, id, err)
	}

	rec.Data = []byte(data)
	rec.LastUpdated, err = time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return storage.Record{}, fmt.Errorf("%w: invalid timestamp on record %s: %w", storage.ErrStoreIO, id, err)
	}
	return rec, nil
}

// Put upserts rec in a single transaction.
func (s *Store) Put(ctx context.Context, rec storage.Record) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", storage.ErrStoreIO)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", storage.ErrStoreIO, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_records (id, data, schema_version, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			schema_version = excluded.schema_version,
			last_updated = excluded.last_updated`,
		rec.ID, string(rec.Data), rec.SchemaVersion, rec.LastUpdated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: failed to write record %s: %w", storage.ErrStoreIO, rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit record %s: %w", storage.ErrStoreIO, rec.ID, err)
	}
	return nil
}

// Clear deletes every record.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM app_records`); err != nil {
		return fmt.Errorf("%w: failed to clear records: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Snapshot writes a consistent copy of the database to dest using VACUUM INTO.
// dest must not exist.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("%w: failed to snapshot database: %w", storage.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Driver() string { return constants.DriverSQLite }
