package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/storage"
	"github.com/julianstephens/hearth/internal/storage/fallback"
	"github.com/julianstephens/hearth/internal/storage/sqlite"
)

// fakeDurable is an in-memory DurableStore with injectable failures.
type fakeDurable struct {
	mu      sync.Mutex
	records map[string]storage.Record
	ready   bool

	initErr error
	getErr  error
	putErr  error

	// gate, when set, blocks every Put until it is closed
	gate    chan struct{}
	puts    int
	entered chan struct{}
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{records: map[string]storage.Record{}, entered: make(chan struct{}, 16)}
}

func (f *fakeDurable) Init(context.Context) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.mu.Lock()
	f.ready = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDurable) Close() error { return nil }

func (f *fakeDurable) Get(_ context.Context, id string) (storage.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return storage.Record{}, f.getErr
	}
	rec, ok := f.records[id]
	if !ok {
		return storage.Record{}, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return rec, nil
}

func (f *fakeDurable) Put(_ context.Context, rec storage.Record) error {
	f.entered <- struct{}{}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeDurable) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = map[string]storage.Record{}
	return nil
}

func (f *fakeDurable) Path() string   { return "memory" }
func (f *fakeDurable) Driver() string { return "fake" }

func (f *fakeDurable) record(id string) (storage.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	return rec, ok
}

var baseTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

// tickingClock returns a clock advancing one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	n := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return baseTime.Add(time.Duration(n) * time.Second)
	}
}

func sampleAppData(names ...string) models.AppData {
	d := models.AppData{GraduationSettings: models.GraduationSettings{TargetGraduationDays: 45, ShowTransitionPrompts: true}}
	for i, n := range names {
		d.FamilyMembers = append(d.FamilyMembers, models.FamilyMember{ID: fmt.Sprintf("m%d", i+1), Name: n})
	}
	d.Normalize()
	return d
}

func setupTestCoordinator(t *testing.T, durable storage.DurableStore) (*Coordinator, *fallback.Store) {
	t.Helper()
	fb := fallback.NewMemory()
	c := New(durable, fb, WithClock(tickingClock()))
	t.Cleanup(func() { _ = c.Close() })
	return c, fb
}

func TestInitializeDegradedWhenDurableFails(t *testing.T) {
	durable := newFakeDurable()
	durable.initErr = fmt.Errorf("%w: denied", storage.ErrStoreUnavailable)
	c, _ := setupTestCoordinator(t, durable)

	assert.Equal(t, Uninitialized, c.Mode())
	assert.Equal(t, ReadyDegraded, c.Initialize(context.Background()))
	assert.Equal(t, ReadyDegraded, c.Initialize(context.Background()), "initialize is idempotent")

	data := sampleAppData("Ada")
	c.Save(data)
	assert.False(t, c.Pending())

	loaded, ok := c.Load(context.Background())
	require.True(t, ok)
	assert.Equal(t, SourceFallback, loaded.Source)
	assert.Equal(t, data, loaded.Data)
	assert.Zero(t, durable.puts)
}

func TestInitializeWithoutDurableStore(t *testing.T) {
	c, _ := setupTestCoordinator(t, nil)
	assert.Equal(t, ReadyDegraded, c.Initialize(context.Background()))
	assert.NoError(t, c.MigrateLegacyData(context.Background()))
}

func TestLoadAbsentOnFreshInstall(t *testing.T) {
	c, _ := setupTestCoordinator(t, newFakeDurable())
	c.Initialize(context.Background())
	_, ok := c.Load(context.Background())
	assert.False(t, ok)
}

func TestRoundTripWithSQLite(t *testing.T) {
	ctx := context.Background()
	c, fb := setupTestCoordinator(t, sqlite.NewStore(filepath.Join(t.TempDir(), "hearth.db")))
	require.Equal(t, ReadyDurable, c.Initialize(ctx))

	achieved := baseTime.Add(-time.Hour)
	data := sampleAppData("Ada", "Ben")
	_, err := data.AppendMood(models.MoodEntry{ID: "e1", MemberID: "m1", Date: baseTime, Emoji: "😊", Color: "yellow"})
	require.NoError(t, err)
	_, err = data.AppendReflection(models.ReflectionEntry{ID: "e2", MemberID: "m2", Date: baseTime, FeelChoice: "calm", NeedChoice: "rest", NextChoice: "walk"})
	require.NoError(t, err)
	data.GraduationMilestones = []models.GraduationMilestone{{ID: "milestone-15", Type: constants.MilestoneFoundation, Threshold: 15, Achieved: true, AchievedDate: &achieved}}

	c.Save(data)
	loaded, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceDurable, loaded.Source)
	assert.False(t, loaded.Legacy)
	assert.Equal(t, data, loaded.Data)

	_, ok = fb.Get(constants.FallbackDataKey)
	assert.True(t, ok, "every save is mirrored to the fallback store")
}

func TestLoadFallsBackOnDurableReadError(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	c, _ := setupTestCoordinator(t, durable)
	c.Initialize(ctx)

	data := sampleAppData("Ada")
	c.Save(data)
	require.NoError(t, c.Flush(ctx))

	durable.mu.Lock()
	durable.getErr = fmt.Errorf("%w: disk on fire", storage.ErrStoreIO)
	durable.mu.Unlock()

	loaded, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, SourceFallback, loaded.Source)
	assert.Equal(t, data, loaded.Data)
}

func TestDurableWriteFailureIsNotPropagated(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	durable.putErr = fmt.Errorf("%w: readonly", storage.ErrStoreIO)
	c, fb := setupTestCoordinator(t, durable)
	c.Initialize(ctx)

	data := sampleAppData("Ada")
	c.Save(data)
	require.NoError(t, c.Flush(ctx))

	_, ok := durable.record(constants.CanonicalRecordID)
	assert.False(t, ok)
	raw, ok := fb.Get(constants.FallbackDataKey)
	require.True(t, ok)
	assert.Contains(t, raw, "Ada")

	loaded, ok := c.Load(ctx)
	require.True(t, ok)
	assert.Equal(t, data, loaded.Data)
}

func TestLastIssuedWriteWins(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	durable.gate = make(chan struct{})
	c, _ := setupTestCoordinator(t, durable)
	c.Initialize(ctx)

	c.Save(sampleAppData("one"))
	<-durable.entered // first write is now in flight and blocked
	assert.True(t, c.Pending())

	c.Save(sampleAppData("one", "two"))
	c.Save(sampleAppData("one", "two", "three"))
	close(durable.gate)
	require.NoError(t, c.Flush(ctx))
	assert.False(t, c.Pending())

	rec, ok := durable.record(constants.CanonicalRecordID)
	require.True(t, ok)
	data, _, err := models.DecodeAppData(rec.Data)
	require.NoError(t, err)
	assert.Len(t, data.FamilyMembers, 3)
	assert.Equal(t, 2, durable.puts, "queued writes are coalesced")
}

func TestMigrateLegacyDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	c, fb := setupTestCoordinator(t, durable)
	legacy := `{"familyMembers":[{"id":"m1","name":"Ada","avatar":"","color":""}],"moodEntries":[],"reflectionEntries":[],"gratitudeEntries":[]}`
	fb.Put(constants.FallbackDataKey, legacy)
	c.Initialize(ctx)

	require.NoError(t, c.MigrateLegacyData(ctx))
	first, ok := durable.record(constants.CanonicalRecordID)
	require.True(t, ok)
	assert.Equal(t, 0, first.SchemaVersion)
	assert.JSONEq(t, legacy, string(first.Data))
	_, ok = durable.record(constants.MigrationMarkerID)
	assert.True(t, ok)
	putsAfterFirst := durable.puts

	require.NoError(t, c.MigrateLegacyData(ctx))
	second, _ := durable.record(constants.CanonicalRecordID)
	assert.Equal(t, first, second)
	assert.Equal(t, putsAfterFirst, durable.puts, "second run writes nothing")

	loaded, ok := c.Load(ctx)
	require.True(t, ok)
	assert.True(t, loaded.Legacy)
}

func TestMigrateSkipsWhenMarkerPresent(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	durable.records[constants.MigrationMarkerID] = storage.Record{ID: constants.MigrationMarkerID, Data: []byte(`{}`)}
	c, fb := setupTestCoordinator(t, durable)
	fb.Put(constants.FallbackDataKey, `{"familyMembers":[]}`)
	c.Initialize(ctx)

	require.NoError(t, c.MigrateLegacyData(ctx))
	_, ok := durable.record(constants.CanonicalRecordID)
	assert.False(t, ok)
}

func TestMigrateResyncsNewerFallbackCopy(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	durable.records[constants.CanonicalRecordID] = storage.Record{
		ID:            constants.CanonicalRecordID,
		Data:          []byte(`{"familyMembers":[]}`),
		SchemaVersion: 1,
		LastUpdated:   baseTime.Add(-time.Hour),
	}
	c, fb := setupTestCoordinator(t, durable)

	// saved while degraded
	newer := sampleAppData("Ada")
	raw, err := models.EncodeAppData(newer)
	require.NoError(t, err)
	fb.Put(constants.FallbackDataKey, string(raw))
	fb.Put(constants.FallbackLastUpdatedKey, baseTime.Format(time.RFC3339Nano))
	c.Initialize(ctx)

	require.NoError(t, c.MigrateLegacyData(ctx))
	rec, _ := durable.record(constants.CanonicalRecordID)
	assert.True(t, rec.LastUpdated.Equal(baseTime))
	assert.Equal(t, 1, rec.SchemaVersion)

	puts := durable.puts
	require.NoError(t, c.MigrateLegacyData(ctx))
	assert.Equal(t, puts, durable.puts)
}

func TestMigrateWrapsFailures(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	durable.putErr = fmt.Errorf("%w: full", storage.ErrStoreIO)
	c, fb := setupTestCoordinator(t, durable)
	fb.Put(constants.FallbackDataKey, `{"familyMembers":[]}`)
	c.Initialize(ctx)

	err := c.MigrateLegacyData(ctx)
	assert.ErrorIs(t, err, storage.ErrMigration)
	assert.ErrorIs(t, err, storage.ErrStoreIO)

	fb.Put(constants.FallbackDataKey, `{broken`)
	durable.putErr = nil
	assert.ErrorIs(t, c.MigrateLegacyData(ctx), storage.ErrMigration)
}

func TestEraseAllMatchesFreshInstall(t *testing.T) {
	ctx := context.Background()
	durable := newFakeDurable()
	c, fb := setupTestCoordinator(t, durable)
	fb.Put(constants.FallbackDataKey, `{"familyMembers":[]}`)
	c.Initialize(ctx)
	require.NoError(t, c.MigrateLegacyData(ctx))
	c.SetFlag(constants.FlagWelcomeShown, true)
	c.Save(sampleAppData("Ada"))

	c.EraseAll(ctx)

	_, ok := c.Load(ctx)
	assert.False(t, ok)
	assert.False(t, c.Flag(constants.FlagWelcomeShown))
	assert.Empty(t, fb.Keys())
	_, ok = durable.record(constants.MigrationMarkerID)
	assert.False(t, ok)
	_, ok = c.LastSaved()
	assert.False(t, ok)
}

func TestFlags(t *testing.T) {
	c, _ := setupTestCoordinator(t, nil)
	assert.False(t, c.Flag("welcomeShown"))
	c.SetFlag("welcomeShown", true)
	assert.True(t, c.Flag("welcomeShown"))
	c.SetFlag("welcomeShown", false)
	assert.False(t, c.Flag("welcomeShown"))
}

func TestCloseDrainsQueuedWrite(t *testing.T) {
	durable := newFakeDurable()
	fb := fallback.NewMemory()
	c := New(durable, fb, WithClock(tickingClock()))
	c.Initialize(context.Background())

	c.Save(sampleAppData("Ada"))
	require.NoError(t, c.Close())

	_, ok := durable.record(constants.CanonicalRecordID)
	assert.True(t, ok)
	assert.NoError(t, c.Flush(context.Background()), "flush after close is a no-op")
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "durable", ReadyDurable.String())
	assert.Equal(t, "degraded", ReadyDegraded.String())
	assert.Equal(t, "mode(9)", Mode(9).String())
}
