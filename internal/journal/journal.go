// Package journal is the single owner of the in-memory family dataset. Every
// mutation goes through update, which applies the change to a copy, swaps it
// in, and hands the result to the coordinator for persistence. Reads are
// derived on demand and never stored.
package journal

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/hearth/internal/analytics"
	"github.com/julianstephens/hearth/internal/coordinator"
	"github.com/julianstephens/hearth/internal/graduation"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/models"
)

type Journal struct {
	coord *coordinator.Coordinator
	now   func() time.Time
	loc   *time.Location

	mu   sync.RWMutex
	data models.AppData
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides the clock used for entry dates and derived views.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// WithLocation sets the location that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(j *Journal) {
		if loc != nil {
			j.loc = loc
		}
	}
}

// Open initializes storage, imports legacy data, and loads the dataset,
// seeding defaults for a fresh install or a legacy document. Storage problems
// are logged; Open always returns a usable journal.
func Open(ctx context.Context, coord *coordinator.Coordinator, opts ...Option) *Journal {
	j := &Journal{coord: coord, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(j)
	}

	mode := coord.Initialize(ctx)
	if err := coord.MigrateLegacyData(ctx); err != nil {
		logger.Error("Legacy data migration failed, continuing with existing data", "error", err)
	}

	loaded, ok := coord.Load(ctx)
	if !ok {
		j.data = freshData()
		coord.Save(j.data)
		logger.Info("Seeded new dataset", "mode", mode)
		return j
	}

	j.data = loaded.Data
	if graduation.Seed(&j.data, loaded.Missing.Settings) || loaded.Legacy {
		coord.Save(j.data)
		logger.Info("Upgraded stored dataset", "legacy", loaded.Legacy, "source", loaded.Source)
	}
	return j
}

func freshData() models.AppData {
	d := models.AppData{}
	d.Normalize()
	graduation.Seed(&d, true)
	return d
}

// today is the current instant in the journal's location.
func (j *Journal) today() time.Time {
	return j.now().In(j.loc)
}

// update applies fn to a copy of the dataset. On success the copy replaces
// the current state and is persisted; on error nothing changes.
func (j *Journal) update(fn func(d *models.AppData) error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	work := j.data.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	j.data = work
	j.coord.Save(work)
	return nil
}

// checkProgress runs the graduation progress check against d in place.
func (j *Journal) checkProgress(d *models.AppData) []models.GraduationMilestone {
	total := analytics.TotalActiveDays(d, j.loc)
	var celebrate []models.GraduationMilestone
	d.GraduationMilestones, celebrate = graduation.CheckProgress(d.GraduationMilestones, total, j.now())
	return celebrate
}

// Snapshot returns a deep copy of the current dataset.
func (j *Journal) Snapshot() models.AppData {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.data.Clone()
}

// Location is the location that defines calendar days.
func (j *Journal) Location() *time.Location { return j.loc }

// Now is the journal's current time.
func (j *Journal) Now() time.Time { return j.today() }

// Mode reports the storage mode.
func (j *Journal) Mode() coordinator.Mode { return j.coord.Mode() }

// Saving reports whether a durable write is still outstanding.
func (j *Journal) Saving() bool { return j.coord.Pending() }

// Flush waits for outstanding durable writes.
func (j *Journal) Flush(ctx context.Context) error { return j.coord.Flush(ctx) }

// EraseAllData clears both stores and resets memory to a fresh install.
// Defaults are not written back until the next mutation.
func (j *Journal) EraseAllData(ctx context.Context) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.coord.EraseAll(ctx)
	j.data = freshData()
}
