package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/coordinator"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/storage"
)

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *Context) error {
	if err := requireDurable(ctx); err != nil {
		return err
	}
	if err := ctx.Journal.Flush(ctx.Ctx); err != nil {
		return fmt.Errorf("pending writes not saved: %w", err)
	}

	info, err := ctx.Backups().Create(ctx.Ctx)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	ctx.printf("✓ Backup created: %s (%s)\n", info.Name(), info.HumanSize())
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *Context) error {
	mgr := ctx.Backups()
	backups, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(backups) == 0 {
		ctx.println("No backups found.")
		ctx.printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	now := ctx.Now()
	ctx.printf("Available backups (%d total, keeping most recent %d):\n\n", len(backups), constants.MaxBackups)
	for _, b := range backups {
		ctx.printf("  %s  %s  %8s  %s\n",
			b.Timestamp.In(ctx.Journal.Location()).Format("2006-01-02 15:04:05"),
			b.Name(), b.HumanSize(), mutedStyle.Render(b.Age(now)))
	}
	ctx.printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	if err := requireDurable(ctx); err != nil {
		return err
	}
	mgr := ctx.Backups()

	backupPath := c.BackupFile
	if !filepath.IsAbs(backupPath) {
		possiblePath := filepath.Join(mgr.Dir(), c.BackupFile)
		if _, err := os.Stat(possiblePath); err == nil {
			backupPath = possiblePath
		}
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	ok, err := ctx.confirm(c.Yes,
		fmt.Sprintf("Restore from %s?", filepath.Base(backupPath)),
		"This replaces your current journal. A backup of it is taken first.")
	if err != nil {
		return err
	}
	if !ok {
		ctx.println("Restore cancelled.")
		return nil
	}

	if err := ctx.Journal.Flush(ctx.Ctx); err != nil {
		return fmt.Errorf("pending writes not saved: %w", err)
	}
	previous, err := mgr.Restore(ctx.Ctx, backupPath)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	resyncFallback(ctx)

	ctx.println("✓ Journal restored successfully!")
	ctx.printf("Previous journal saved as %s\n", previous.Name())
	return nil
}

// resyncFallback rewrites the mirror from the restored durable record so the
// next start does not treat the old mirror as newer data.
func resyncFallback(ctx *Context) {
	rec, err := ctx.Store.Get(ctx.Ctx, constants.CanonicalRecordID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("Failed to read restored record", "error", err)
		}
		ctx.Fallback.Delete(constants.FallbackDataKey)
		ctx.Fallback.Delete(constants.FallbackLastUpdatedKey)
		return
	}
	ctx.Fallback.Put(constants.FallbackDataKey, string(rec.Data))
	ctx.Fallback.Put(constants.FallbackLastUpdatedKey, rec.LastUpdated.UTC().Format(time.RFC3339Nano))
}

func requireDurable(ctx *Context) error {
	if ctx.Coord.Mode() != coordinator.ReadyDurable {
		return fmt.Errorf("%w: running from the fallback file", storage.ErrStoreUnavailable)
	}
	return nil
}
