package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/storage"
)

const recordBucket = "app_records"

// Store is a BoltDB-backed durable store. Each record is one JSON value in
// the app_records bucket.
type Store struct {
	path string

	mu sync.RWMutex
	db *bbolt.DB
}

var (
	_ storage.DurableStore = (*Store)(nil)
	_ storage.Snapshotter  = (*Store)(nil)
)

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init opens the database file, waiting up to a second for the file lock.
func (s *Store) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if strings.TrimSpace(s.path) == "" {
		return fmt.Errorf("%w: storage path is required", storage.ErrStoreUnavailable)
	}

	cleanPath := filepath.Clean(s.path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0700); err != nil {
		return fmt.Errorf("%w: failed to create data directory: %w", storage.ErrStoreUnavailable, err)
	}
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("%w: open storage db: %w", storage.ErrStoreUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: create %s bucket: %w", storage.ErrStoreUnavailable, recordBucket, err)
	}

	s.db = db
	logger.Debug("Opened durable store", "driver", constants.DriverBolt, "path", cleanPath)
	return nil
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

func (s *Store) handle(ctx context.Context) (*bbolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("%w: store not initialized", storage.ErrStoreUnavailable)
	}
	return s.db, nil
}

func (s *Store) Get(ctx context.Context, id string) (storage.Record, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return storage.Record{}, err
	}

	var rec storage.Record
	err = db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", recordBucket)
		}
		payload := bucket.Get([]byte(id))
		if payload == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(payload, &rec)
	})
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Record{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return storage.Record{}, fmt.Errorf("%w: failed to read record %s: %w", storage.ErrStoreIO, id, err)
	}
	return rec, nil
}

func (s *Store) Put(ctx context.Context, rec storage.Record) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("%w: record id is required", storage.ErrStoreIO)
	}

	rec.LastUpdated = rec.LastUpdated.UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal record %s: %w", storage.ErrStoreIO, rec.ID, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(recordBucket))
		if bucket == nil {
			return fmt.Errorf("%s bucket is missing", recordBucket)
		}
		return bucket.Put([]byte(rec.ID), payload)
	})
	if err != nil {
		return fmt.Errorf("%w: failed to write record %s: %w", storage.ErrStoreIO, rec.ID, err)
	}
	return nil
}

// Clear drops and recreates the record bucket in one transaction.
func (s *Store) Clear(ctx context.Context) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(recordBucket)) != nil {
			if err := tx.DeleteBucket([]byte(recordBucket)); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket([]byte(recordBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: failed to clear records: %w", storage.ErrStoreIO, err)
	}
	return nil
}

// Snapshot copies the database to dest inside a read transaction.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if err := db.View(func(tx *bbolt.Tx) error {
		return tx.CopyFile(dest, 0o600)
	}); err != nil {
		return fmt.Errorf("%w: failed to snapshot database: %w", storage.ErrStoreIO, err)
	}
	return nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Driver() string { return constants.DriverBolt }
