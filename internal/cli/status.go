package cli

import (
	"github.com/dustin/go-humanize"

	"github.com/julianstephens/hearth/internal/coordinator"
	"github.com/julianstephens/hearth/internal/journal"
)

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *Context) error {
	mode := ctx.Coord.Mode()
	ctx.println(titleStyle.Render("Storage"))
	ctx.printf("  Mode:       %s\n", mode)
	if mode == coordinator.ReadyDegraded {
		ctx.println(mutedStyle.Render("  Entries are being kept in the fallback file only."))
	}
	ctx.printf("  Driver:     %s\n", ctx.Store.Driver())
	ctx.printf("  Database:   %s\n", ctx.Store.Path())
	ctx.printf("  Fallback:   %s\n", ctx.Fallback.Path())
	if ctx.Journal.Saving() {
		ctx.println("  Saving:     yes")
	}
	if saved, ok := ctx.Coord.LastSaved(); ok {
		ctx.printf("  Last saved: %s\n", humanize.RelTime(saved, ctx.Now(), "ago", "from now"))
	} else {
		ctx.println("  Last saved: never")
	}

	ctx.println(titleStyle.Render("Journal"))
	ctx.printf("  Members:     %d\n", len(ctx.Journal.Members()))
	ctx.printf("  Entries:     %d\n", len(ctx.Journal.Entries(journal.EntryFilter{})))
	ctx.printf("  Active days: %d\n", ctx.Journal.StreakData().TotalActiveDays)
	return nil
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	if err := requireDurable(ctx); err != nil {
		return err
	}
	if err := ctx.Coord.MigrateLegacyData(ctx.Ctx); err != nil {
		return err
	}
	ctx.println("✓ Fallback data is in sync with the durable store.")
	return nil
}
