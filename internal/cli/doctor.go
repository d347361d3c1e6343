package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/coordinator"
	"github.com/julianstephens/hearth/internal/lock"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/storage"
	"github.com/julianstephens/hearth/internal/validation"
)

type DoctorCmd struct{}

type check struct {
	name    string
	run     func(*Context) error
	warning bool
	// needsDurable skips the check when the durable store is not open.
	needsDurable bool
}

var doctorChecks = []check{
	{name: "Durable store", run: checkDurable},
	{name: "Schema version", run: checkSchemaVersion, needsDurable: true},
	{name: "Fallback file", run: checkFallback},
	{name: "Data validation", run: checkValidation},
	{name: "Backups present", run: checkBackupsPresent, warning: true},
	{name: "Clock/timezone", run: checkClockTimezone},
	{name: "Data directory lock", run: checkLock, warning: true},
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	ctx.println("Running diagnostics...")
	ctx.println()

	durable := ctx.Coord.Mode() == coordinator.ReadyDurable
	hasError := false
	for _, ch := range doctorChecks {
		if ch.needsDurable && !durable {
			ctx.printf("⊘ %s: SKIPPED (durable store not open)\n", ch.name)
			continue
		}
		err := ch.run(ctx)
		switch {
		case err == nil:
			ctx.printf("✓ %s: OK\n", ch.name)
		case ch.warning:
			ctx.printf("⚠ %s: WARNING\n", ch.name)
			ctx.printf("   %v\n", err)
		default:
			ctx.printf("❌ %s: FAIL\n", ch.name)
			ctx.printf("   Error: %v\n", err)
			hasError = true
		}
	}

	ctx.println()
	if hasError {
		ctx.println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	ctx.println("All diagnostics passed!")
	return nil
}

func checkDurable(ctx *Context) error {
	if mode := ctx.Coord.Mode(); mode != coordinator.ReadyDurable {
		return fmt.Errorf("%w: storage mode is %s", storage.ErrStoreUnavailable, mode)
	}
	_, err := ctx.Store.Get(ctx.Ctx, constants.CanonicalRecordID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("failed to read journal record: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *Context) error {
	if reporter, ok := ctx.Store.(storage.SchemaReporter); ok {
		current, latest, err := reporter.SchemaStatus(ctx.Ctx)
		if err != nil {
			return fmt.Errorf("failed to get schema version: %w", err)
		}
		if current > latest {
			return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
		}
		if current < latest {
			return fmt.Errorf("migrations incomplete: current version %d, latest version %d", current, latest)
		}
	}

	rec, err := ctx.Store.Get(ctx.Ctx, constants.CanonicalRecordID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rec.SchemaVersion > constants.SchemaVersion {
		return fmt.Errorf("journal record version (%d) is newer than supported version (%d)", rec.SchemaVersion, constants.SchemaVersion)
	}
	return nil
}

func checkFallback(ctx *Context) error {
	raw, ok := ctx.Fallback.Get(constants.FallbackDataKey)
	if !ok {
		return nil
	}
	if _, _, err := models.DecodeAppData([]byte(raw)); err != nil {
		return fmt.Errorf("fallback copy is unreadable: %w", err)
	}
	if _, ok := ctx.Fallback.Get(constants.FallbackLastUpdatedKey); !ok {
		return fmt.Errorf("fallback copy has no timestamp")
	}
	return nil
}

func checkValidation(ctx *Context) error {
	v := validation.New(ctx.Journal.Location())
	v.Now = ctx.Now
	res := v.Validate(ctx.Journal.Snapshot())
	if res.HasConflicts() {
		return errors.New(res.FormatReport())
	}
	return nil
}

func checkBackupsPresent(ctx *Context) error {
	backups, err := ctx.Backups().List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found - consider creating one with '%s backup create'", constants.AppName)
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	now := ctx.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	if ctx.Journal.Location() == time.UTC {
		ctx.printf("   Note: calendar days are counted in UTC\n")
	}
	return nil
}

func checkLock(ctx *Context) error {
	pid, alive, ok := lock.Holder(ctx.Config.DataDir)
	if !ok {
		return fmt.Errorf("no lock file in %s", ctx.Config.DataDir)
	}
	if alive && pid != os.Getpid() {
		return fmt.Errorf("held by another %s process (pid %d)", constants.AppName, pid)
	}
	return nil
}
