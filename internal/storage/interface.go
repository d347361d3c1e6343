package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable means the durable engine could not be opened or was used before Init.
	ErrStoreUnavailable = errors.New("durable store unavailable")
	// ErrStoreIO means a read or write transaction failed.
	ErrStoreIO = errors.New("durable store i/o failure")
	// ErrMigration means legacy data could not be moved into the durable store.
	ErrMigration = errors.New("legacy data migration failed")
	// ErrNotFound means no record exists for the requested id.
	ErrNotFound = errors.New("record not found")
)

// Record is one keyed value in the durable store. Data holds the JSON
// document; the store never interprets it.
type Record struct {
	ID            string    `json:"id"`
	Data          []byte    `json:"data"`
	SchemaVersion int       `json:"schemaVersion"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// DurableStore is a transactional keyed record store. Implementations return
// ErrStoreUnavailable before Init succeeds and ErrStoreIO for failed transactions.
type DurableStore interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error

	// Records
	Get(ctx context.Context, id string) (Record, error)
	Put(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error

	// Utils
	Path() string
	Driver() string
}

// Snapshotter is implemented by durable stores that can write a consistent
// copy of themselves to a file while open.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// SchemaReporter is implemented by durable stores with versioned schema
// migrations.
type SchemaReporter interface {
	// SchemaStatus returns the applied and the latest known schema versions.
	SchemaStatus(ctx context.Context) (current, latest int, err error)
}

// FallbackStore is a synchronous string key/value store that is always
// available. Failures are logged by the implementation, never returned.
type FallbackStore interface {
	Get(key string) (string, bool)
	Put(key, value string)
	Delete(key string)
	Clear()
}
