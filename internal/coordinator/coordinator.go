package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/storage"
)

// Mode is the coordinator's initialization state.
type Mode int32

const (
	Uninitialized Mode = iota
	Initializing
	ReadyDurable
	ReadyDegraded
)

func (m Mode) String() string {
	switch m {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case ReadyDurable:
		return "durable"
	case ReadyDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// Source names the tier a Load was served from.
type Source string

const (
	SourceDurable  Source = "durable"
	SourceFallback Source = "fallback"
)

// Loaded is the result of a successful Load.
type Loaded struct {
	Data   models.AppData
	Legacy bool
	// Missing lists the graduation fields absent from the stored document.
	Missing     models.Missing
	Source      Source
	LastUpdated time.Time
}

// Coordinator owns both stores. Reads prefer the durable store and fall back
// one tier on any failure; writes go to the fallback synchronously and to the
// durable store through a single background writer where the last issued
// write wins. Storage failures are logged, never returned to callers.
type Coordinator struct {
	durable  storage.DurableStore
	fallback storage.FallbackStore
	now      func() time.Time

	mode atomic.Int32

	mu      sync.Mutex
	pending *storage.Record
	running bool

	inflight atomic.Bool
	wake     chan struct{}
	flushReq chan chan struct{}
	stop     chan struct{}
	stopped  chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the clock used to stamp writes.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a coordinator. durable may be nil, which forces degraded mode.
func New(durable storage.DurableStore, fallback storage.FallbackStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		durable:  durable,
		fallback: fallback,
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		flushReq: make(chan chan struct{}),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) Mode() Mode { return Mode(c.mode.Load()) }

// Durable returns the durable store, or nil when none is configured.
func (c *Coordinator) Durable() storage.DurableStore { return c.durable }

// Initialize opens the durable store. Failure is logged and the coordinator
// continues in degraded mode; the returned mode is ready either way.
// Repeated calls return the current mode.
func (c *Coordinator) Initialize(ctx context.Context) Mode {
	if !c.mode.CompareAndSwap(int32(Uninitialized), int32(Initializing)) {
		return c.Mode()
	}

	if c.durable == nil {
		logger.Warn("No durable store configured, running in degraded mode")
		c.mode.Store(int32(ReadyDegraded))
		return ReadyDegraded
	}
	if err := c.durable.Init(ctx); err != nil {
		logger.Warn("Durable store unavailable, running in degraded mode", "driver", c.durable.Driver(), "error", err)
		c.mode.Store(int32(ReadyDegraded))
		return ReadyDegraded
	}

	c.startWriter()
	c.mode.Store(int32(ReadyDurable))
	logger.Debug("Storage ready", "mode", ReadyDurable, "driver", c.durable.Driver())
	return ReadyDurable
}

// MigrateLegacyData copies the fallback copy of the dataset into the durable
// store when the durable store has never received it, or when the fallback
// copy is newer (writes made while degraded). A marker record distinguishes
// an already-migrated empty store from a never-migrated one. Running it again
// with no intervening writes changes nothing.
func (c *Coordinator) MigrateLegacyData(ctx context.Context) error {
	if c.Mode() != ReadyDurable {
		return nil
	}
	raw, ok := c.fallback.Get(constants.FallbackDataKey)
	if !ok {
		return nil
	}
	stamp, hasStamp := c.fallbackStamp()

	rec, err := c.durable.Get(ctx, constants.CanonicalRecordID)
	switch {
	case err == nil:
		if !hasStamp || !stamp.After(rec.LastUpdated) {
			return nil
		}
		logger.Info("Fallback copy is newer than durable record, resyncing", "fallback", stamp, "durable", rec.LastUpdated)
	case errors.Is(err, storage.ErrNotFound):
		if _, markerErr := c.durable.Get(ctx, constants.MigrationMarkerID); markerErr == nil {
			logger.Debug("Legacy data already migrated, skipping")
			return nil
		} else if !errors.Is(markerErr, storage.ErrNotFound) {
			return fmt.Errorf("%w: %w", storage.ErrMigration, markerErr)
		}
	default:
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}

	_, legacy, err := models.DecodeAppData([]byte(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}
	version := constants.SchemaVersion
	if legacy {
		version = 0
	}
	if !hasStamp {
		stamp = c.now()
	}

	if err := c.durable.Put(ctx, storage.Record{
		ID:            constants.CanonicalRecordID,
		Data:          []byte(raw),
		SchemaVersion: version,
		LastUpdated:   stamp,
	}); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}
	if err := c.durable.Put(ctx, storage.Record{
		ID:            constants.MigrationMarkerID,
		Data:          []byte(`{}`),
		SchemaVersion: constants.SchemaVersion,
		LastUpdated:   c.now(),
	}); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrMigration, err)
	}
	if !hasStamp {
		c.fallback.Put(constants.FallbackLastUpdatedKey, stamp.UTC().Format(time.RFC3339Nano))
	}

	logger.Info("Migrated fallback data into durable store", "legacy", legacy)
	return nil
}

// Load returns the persisted dataset. Queued writes are flushed first so a
// Load always observes the latest Save.
func (c *Coordinator) Load(ctx context.Context) (Loaded, bool) {
	if err := c.Flush(ctx); err != nil {
		logger.Warn("Flush before load did not complete", "error", err)
	}

	if c.Mode() == ReadyDurable {
		loaded, err := c.loadDurable(ctx)
		if err == nil {
			return loaded, true
		}
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Durable read failed, using fallback store", "error", err)
		}
	}

	raw, ok := c.fallback.Get(constants.FallbackDataKey)
	if !ok {
		return Loaded{}, false
	}
	data, missing, err := models.DecodeAppDataFields([]byte(raw))
	if err != nil {
		logger.Error("Fallback copy is unreadable", "error", err)
		return Loaded{}, false
	}
	stamp, _ := c.fallbackStamp()
	return Loaded{Data: data, Legacy: missing.Legacy(), Missing: missing, Source: SourceFallback, LastUpdated: stamp}, true
}

func (c *Coordinator) loadDurable(ctx context.Context) (Loaded, error) {
	rec, err := c.durable.Get(ctx, constants.CanonicalRecordID)
	if err != nil {
		return Loaded{}, err
	}
	data, missing, err := models.DecodeAppDataFields(rec.Data)
	if err != nil {
		return Loaded{}, fmt.Errorf("%w: %w", storage.ErrStoreIO, err)
	}
	return Loaded{
		Data:        data,
		Legacy:      missing.Legacy() || rec.SchemaVersion < constants.SchemaVersion,
		Missing:     missing,
		Source:      SourceDurable,
		LastUpdated: rec.LastUpdated,
	}, nil
}

// Save mirrors data to the fallback store immediately and queues it for the
// durable store without waiting. A queued write not yet started is replaced
// by a newer one.
func (c *Coordinator) Save(data models.AppData) {
	raw, err := models.EncodeAppData(data)
	if err != nil {
		logger.Error("Failed to encode family data", "error", err)
		return
	}
	stamp := c.now()

	c.fallback.Put(constants.FallbackDataKey, string(raw))
	c.fallback.Put(constants.FallbackLastUpdatedKey, stamp.UTC().Format(time.RFC3339Nano))

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.pending = &storage.Record{
		ID:            constants.CanonicalRecordID,
		Data:          raw,
		SchemaVersion: constants.SchemaVersion,
		LastUpdated:   stamp,
	}
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a durable write is queued or in progress.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	queued := c.pending != nil
	c.mu.Unlock()
	return queued || c.inflight.Load()
}

// Flush blocks until every write queued before the call has been attempted.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if !running {
		return nil
	}

	ack := make(chan struct{})
	select {
	case c.flushReq <- ack:
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EraseAll clears both stores, including session flags and the migration
// marker. Any queued write is discarded.
func (c *Coordinator) EraseAll(ctx context.Context) {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
	if err := c.Flush(ctx); err != nil {
		logger.Warn("Flush before erase did not complete", "error", err)
	}

	if c.Mode() == ReadyDurable {
		if err := c.durable.Clear(ctx); err != nil {
			logger.Error("Failed to clear durable store", "error", err)
		}
	}
	c.fallback.Clear()
	logger.Info("Erased all data")
}

// Flag reports whether the named session flag is set.
func (c *Coordinator) Flag(name string) bool {
	v, ok := c.fallback.Get(constants.FlagKeyPrefix + name)
	return ok && v == "true"
}

// SetFlag sets or clears the named session flag.
func (c *Coordinator) SetFlag(name string, on bool) {
	if on {
		c.fallback.Put(constants.FlagKeyPrefix+name, "true")
		return
	}
	c.fallback.Delete(constants.FlagKeyPrefix + name)
}

// LastSaved is the stamp of the most recent Save, if any.
func (c *Coordinator) LastSaved() (time.Time, bool) {
	return c.fallbackStamp()
}

// Close drains the writer and closes the durable store.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()

	if running {
		close(c.stop)
		<-c.stopped
	}
	if c.durable != nil && c.Mode() == ReadyDurable {
		return c.durable.Close()
	}
	return nil
}

func (c *Coordinator) fallbackStamp() (time.Time, bool) {
	v, ok := c.fallback.Get(constants.FallbackLastUpdatedKey)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		logger.Warn("Ignoring unparseable fallback timestamp", "value", v, "error", err)
		return time.Time{}, false
	}
	return t, true
}
