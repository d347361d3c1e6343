package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/hearth/internal/config"
	"github.com/julianstephens/hearth/internal/constants"
)

type testEnv struct {
	cfg     config.Config
	now     time.Time
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	confirm bool
}

func newTestEnv(t *testing.T, driver string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = dir
	cfg.Driver = driver
	cfg.Timezone = "UTC"
	cfg.DatabasePath = filepath.Join(dir, constants.SQLiteFileName)
	if driver == constants.DriverBolt {
		cfg.DatabasePath = filepath.Join(dir, constants.BoltFileName)
	}
	cfg.FallbackPath = filepath.Join(dir, constants.FallbackFileName)

	return &testEnv{
		cfg:     cfg,
		now:     time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		out:     &bytes.Buffer{},
		errOut:  &bytes.Buffer{},
		confirm: true,
	}
}

// open returns a context that is closed when the test ends.
func (e *testEnv) open(t *testing.T) *Context {
	t.Helper()
	ctx, err := Open(context.Background(), e.cfg,
		WithOutput(e.out, e.errOut),
		WithClock(func() time.Time { return e.now }),
		WithConfirm(func(string, string) (bool, error) { return e.confirm, nil }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

// run executes cmd and returns what it printed.
func (e *testEnv) run(t *testing.T, ctx *Context, cmd interface{ Run(*Context) error }) string {
	t.Helper()
	e.out.Reset()
	require.NoError(t, cmd.Run(ctx))
	return e.out.String()
}

func TestWelcomeShownOnce(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)

	ctx := env.open(t)
	ctx.Welcome()
	assert.Contains(t, env.errOut.String(), "Welcome to hearth")
	require.NoError(t, ctx.Close())

	env.errOut.Reset()
	ctx = env.open(t)
	ctx.Welcome()
	assert.Empty(t, env.errOut.String())
}

func TestMemberCommands(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)

	out := env.run(t, ctx, &MemberAddCmd{Name: "Ada", Avatar: "🦉", Color: "#aa3355"})
	assert.Contains(t, out, "✓ Added 🦉 Ada")

	err := (&MemberAddCmd{Name: "ada"}).Run(ctx)
	assert.Error(t, err, "names are unique regardless of case")

	env.run(t, ctx, &MoodCmd{Member: "ada", Emoji: "😊"})
	out = env.run(t, ctx, &MemberListCmd{})
	assert.Contains(t, out, "Ada")
	assert.Contains(t, out, "1 entries")

	newName := "Adaline"
	out = env.run(t, ctx, &MemberEditCmd{Member: "Ada", Name: &newName})
	assert.Contains(t, out, "✓ Updated 🦉 Adaline")

	out = env.run(t, ctx, &MemberDeleteCmd{Member: "adaline", Yes: true})
	assert.Contains(t, out, "✓ Deleted Adaline and 1 entries")
	assert.Empty(t, ctx.Journal.Entries(journalFilterAll()))
}

func TestMemberDeleteCancelled(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	env.confirm = false
	ctx := env.open(t)

	env.run(t, ctx, &MemberAddCmd{Name: "Ben"})
	out := env.run(t, ctx, &MemberDeleteCmd{Member: "Ben"})
	assert.Contains(t, out, "Delete cancelled.")
	assert.Len(t, ctx.Journal.Members(), 1)
}

func TestEntryCommands(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})

	assert.Contains(t, env.run(t, ctx, &MoodCmd{Member: "Ada", Emoji: "😊", Note: "sunny"}), "✓ Ada feels 😊")
	assert.Contains(t, env.run(t, ctx, &ReflectCmd{Member: "Ada", Feel: "calm", Need: "rest"}), "✓ Saved reflection for Ada")
	assert.Contains(t, env.run(t, ctx, &GratitudeCmd{Member: "Ada", Text: "pancakes"}), "✓ Saved gratitude for Ada")

	err := (&ReflectCmd{Member: "Ada"}).Run(ctx)
	assert.Error(t, err, "empty reflection")
	err = (&MoodCmd{Member: "Nobody", Emoji: "😊"}).Run(ctx)
	assert.Error(t, err)

	out := env.run(t, ctx, &EntryListCmd{Date: "today"})
	assert.Contains(t, out, "2026-03-02 09:30")
	assert.Contains(t, out, "pancakes")

	out = env.run(t, ctx, &EntryListCmd{Type: "gratitude", IDs: true})
	assert.Contains(t, out, "pancakes")
	assert.NotContains(t, out, "😊")

	out = env.run(t, ctx, &EntryListCmd{Date: "2026-03-01"})
	assert.Contains(t, out, "No entries found.")

	gratitude := ctx.Journal.Snapshot().GratitudeEntries[0]
	out = env.run(t, ctx, &EntryDeleteCmd{Type: "gratitude", ID: gratitude.ID})
	assert.Contains(t, out, "✓ Deleted gratitude entry")
	out = env.run(t, ctx, &EntryDeleteCmd{Type: "gratitude", ID: gratitude.ID})
	assert.Contains(t, out, "No gratitude entry with id")

	err = (&EntryDeleteCmd{Type: "diary", ID: "x"}).Run(ctx)
	assert.Error(t, err)
}

func TestMilestoneAnnouncedAndCelebrated(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})

	start := env.now
	var last string
	for i := 0; i < constants.FoundationThreshold; i++ {
		env.now = start.AddDate(0, 0, i)
		last = env.run(t, ctx, &GratitudeCmd{Member: "Ada", Text: "today"})
		if i < constants.FoundationThreshold-1 {
			assert.NotContains(t, last, "Milestone reached")
		}
	}
	assert.Contains(t, last, "🎉 Milestone reached: Building the Habit")
	assert.Contains(t, last, "celebrate --ack milestone-15")

	out := env.run(t, ctx, &StreakCmd{})
	assert.Contains(t, out, "Current streak: 15 days")

	out = env.run(t, ctx, &CelebrateCmd{})
	assert.Contains(t, out, "Building the Habit")

	out = env.run(t, ctx, &CelebrateCmd{Ack: "milestone-15"})
	assert.Contains(t, out, "✓ Celebrated milestone-15")
	out = env.run(t, ctx, &CelebrateCmd{})
	assert.Contains(t, out, "No celebrations waiting.")

	out = env.run(t, ctx, &ProgressCmd{})
	assert.Contains(t, out, "(15 of 45 active days)")
	assert.Contains(t, out, "✓ Building the Habit (15 days)")
	assert.Contains(t, out, "Next: Finding Your Rhythm in 15 more active days")
}

func TestCalendarCommand(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})
	env.run(t, ctx, &MoodCmd{Member: "Ada", Emoji: "😊"})

	out := env.run(t, ctx, &CalendarCmd{Days: 14})
	assert.Contains(t, out, "Last 14 days")
	assert.Contains(t, out, "2026-02-23")
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, "■")

	out = env.run(t, ctx, &CalendarCmd{Date: "today"})
	assert.Contains(t, out, "2026-03-02")
	assert.Contains(t, out, string(constants.ActivityLow))

	assert.Error(t, (&CalendarCmd{Days: 0}).Run(ctx))
}

func TestSettingsAndPrompts(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})
	env.run(t, ctx, &MoodCmd{Member: "Ada", Emoji: "😊"})

	target := 1
	out := env.run(t, ctx, &SettingsCmd{Target: &target, Activities: []string{" board games ", "walks"}})
	assert.Contains(t, out, "Settings updated.")
	assert.Contains(t, out, "Target days:          1")
	assert.Contains(t, out, "board games, walks")

	out = env.run(t, ctx, &PromptsCmd{})
	assert.Contains(t, out, "Ready to graduate")

	out = env.run(t, ctx, &SettingsCmd{ReadinessDone: true})
	assert.Contains(t, out, "Readiness assessed:   true")
	assert.Contains(t, out, "Last readiness check: 2026-03-02")

	out = env.run(t, ctx, &PromptsCmd{All: true})
	assert.Contains(t, out, "No suggestions right now.")

	out = env.run(t, ctx, &SettingsCmd{})
	assert.NotContains(t, out, "Settings updated.")

	bad := 0
	assert.Error(t, (&SettingsCmd{Target: &bad}).Run(ctx))
}

func TestExportImport(t *testing.T) {
	src := newTestEnv(t, constants.DriverSQLite)
	ctx := src.open(t)
	src.run(t, ctx, &MemberAddCmd{Name: "Ada"})
	src.run(t, ctx, &MoodCmd{Member: "Ada", Emoji: "😊"})
	src.run(t, ctx, &GratitudeCmd{Member: "Ada", Text: "pancakes"})

	out := src.run(t, ctx, &ExportCmd{Format: "csv"})
	assert.Contains(t, out, "type,member,date,content,details")
	assert.Contains(t, out, "gratitude,Ada,2026-03-02 09:30,pancakes,")

	file := filepath.Join(t.TempDir(), "export.json")
	out = src.run(t, ctx, &ExportCmd{Format: "json", Output: file})
	assert.Contains(t, out, "✓ Exported 2 entries")

	dst := newTestEnv(t, constants.DriverBolt)
	other := dst.open(t)
	dst.run(t, other, &MemberAddCmd{Name: "ada"})

	out = dst.run(t, other, &ImportCmd{File: file})
	assert.Contains(t, out, "✓ Imported 0 members and 2 entries")
	assert.Contains(t, out, "1 member matched existing family members")
	assert.Len(t, other.Journal.Members(), 1)

	out = dst.run(t, other, &ImportCmd{File: file})
	assert.Contains(t, out, "2 entries skipped")
}

func TestEraseTakesBackupFirst(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})

	out := env.run(t, ctx, &EraseCmd{Yes: true})
	assert.Contains(t, out, "✓ Backup created")
	assert.Contains(t, out, "✓ All family data erased.")
	assert.Empty(t, ctx.Journal.Members())

	backups, err := ctx.Backups().List()
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestEraseCancelled(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	env.confirm = false
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})

	out := env.run(t, ctx, &EraseCmd{})
	assert.Contains(t, out, "Erase cancelled.")
	assert.Len(t, ctx.Journal.Members(), 1)
}

func TestStatusCommand(t *testing.T) {
	env := newTestEnv(t, constants.DriverBolt)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})
	require.NoError(t, ctx.Journal.Flush(context.Background()))

	out := env.run(t, ctx, &StatusCmd{})
	assert.Contains(t, out, "Mode:       durable")
	assert.Contains(t, out, "Driver:     bolt")
	assert.Contains(t, out, "Members:     1")

	out = env.run(t, ctx, &MigrateCmd{})
	assert.Contains(t, out, "in sync")
}

func TestBackupRestoreWorkflow(t *testing.T) {
	for _, driver := range []string{constants.DriverSQLite, constants.DriverBolt} {
		t.Run(driver, func(t *testing.T) {
			env := newTestEnv(t, driver)
			ctx := env.open(t)
			env.run(t, ctx, &MemberAddCmd{Name: "Ada"})
			env.run(t, ctx, &GratitudeCmd{Member: "Ada", Text: "pancakes"})

			out := env.run(t, ctx, &BackupCreateCmd{})
			assert.Contains(t, out, "✓ Backup created: hearth-")

			backups, err := ctx.Backups().List()
			require.NoError(t, err)
			require.Len(t, backups, 1)

			env.run(t, ctx, &MemberDeleteCmd{Member: "Ada", Yes: true})
			env.run(t, ctx, &MemberAddCmd{Name: "Ben"})

			out = env.run(t, ctx, &BackupListCmd{})
			assert.Contains(t, out, backups[0].Name())

			out = env.run(t, ctx, &BackupRestoreCmd{BackupFile: backups[0].Name(), Yes: true})
			assert.Contains(t, out, "✓ Journal restored successfully!")
			require.NoError(t, ctx.Close())

			reopened := env.open(t)
			members := reopened.Journal.Members()
			require.Len(t, members, 1)
			assert.Equal(t, "Ada", members[0].Name)
			assert.Len(t, reopened.Journal.Entries(journalFilterAll()), 1)
		})
	}
}

func TestBackupRestoreMissingFile(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)

	err := (&BackupRestoreCmd{BackupFile: "hearth-20200101-000000.db", Yes: true}).Run(ctx)
	assert.ErrorContains(t, err, "backup file not found")
}

func TestDoctorCommand(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)
	env.run(t, ctx, &MemberAddCmd{Name: "Ada"})
	env.run(t, ctx, &MoodCmd{Member: "Ada", Emoji: "😊"})
	require.NoError(t, ctx.Journal.Flush(context.Background()))

	out := env.run(t, ctx, &DoctorCmd{})
	assert.Contains(t, out, "✓ Durable store: OK")
	assert.Contains(t, out, "✓ Schema version: OK")
	assert.Contains(t, out, "✓ Fallback file: OK")
	assert.Contains(t, out, "✓ Data validation: OK")
	assert.Contains(t, out, "⚠ Backups present: WARNING")
	assert.Contains(t, out, "✓ Data directory lock: OK")
	assert.Contains(t, out, "All diagnostics passed!")

	env.run(t, ctx, &BackupCreateCmd{})
	out = env.run(t, ctx, &DoctorCmd{})
	assert.Contains(t, out, "✓ Backups present: OK")
}

func TestSettingsTogglesPrompts(t *testing.T) {
	env := newTestEnv(t, constants.DriverSQLite)
	ctx := env.open(t)

	out := env.run(t, ctx, &SettingsCmd{Prompts: "off"})
	assert.Contains(t, out, "Transition prompts:   false")
	out = env.run(t, ctx, &SettingsCmd{Prompts: "ON"})
	assert.Contains(t, out, "Transition prompts:   true")

	assert.Error(t, (&SettingsCmd{Prompts: "maybe"}).Run(ctx))
}
