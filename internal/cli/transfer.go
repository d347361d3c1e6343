package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/hearth/internal/export"
	"github.com/julianstephens/hearth/internal/logger"
)

type ExportCmd struct {
	Format string `help:"Output format." enum:"csv,json" default:"json"`
	Output string `short:"o" help:"Write to this file instead of stdout." type:"path"`
}

func (c *ExportCmd) Run(ctx *Context) (err error) {
	var w io.Writer = ctx.Out
	if c.Output != "" {
		f, openErr := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if openErr != nil {
			return fmt.Errorf("failed to create export file: %w", openErr)
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		w = f
	}

	data := ctx.Journal.Snapshot()
	switch c.Format {
	case "csv":
		err = export.CSV(w, data, ctx.Journal.Location())
	default:
		err = export.JSON(w, data, ctx.Now())
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if c.Output != "" {
		ctx.printf("✓ Exported %d entries to %s\n", data.EntryCount(), c.Output)
	}
	return nil
}

type ImportCmd struct {
	File string `arg:"" help:"Exported JSON file to merge in." type:"existingfile"`
}

func (c *ImportCmd) Run(ctx *Context) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	incoming, err := export.ParseImport(raw)
	if err != nil {
		return err
	}

	res, err := ctx.Journal.ImportData(incoming)
	if err != nil {
		return err
	}
	ctx.printf("✓ Imported %d %s and %d %s\n",
		res.MembersAdded, plural(res.MembersAdded, "member", "members"),
		res.EntriesAdded, plural(res.EntriesAdded, "entry", "entries"))
	if res.MembersMerged > 0 {
		ctx.printf("  %d %s matched existing family members\n", res.MembersMerged, plural(res.MembersMerged, "member", "members"))
	}
	if res.EntriesSkipped > 0 {
		ctx.printf("  %d %s skipped\n", res.EntriesSkipped, plural(res.EntriesSkipped, "entry", "entries"))
	}
	ctx.announce(res.Celebrate)
	return nil
}

type EraseCmd struct {
	Yes bool `short:"y" help:"Skip the confirmation prompt."`
}

func (c *EraseCmd) Run(ctx *Context) error {
	ok, err := ctx.confirm(c.Yes, "Erase all family data?",
		"Every member, entry and milestone will be deleted.")
	if err != nil {
		return err
	}
	if !ok {
		ctx.println("Erase cancelled.")
		return nil
	}

	if ctx.Config.BackupOnErase && requireDurable(ctx) == nil {
		if err := ctx.Journal.Flush(ctx.Ctx); err != nil {
			return fmt.Errorf("pending writes not saved: %w", err)
		}
		info, err := ctx.Backups().Create(ctx.Ctx)
		if err != nil {
			return fmt.Errorf("backup before erase failed: %w", err)
		}
		ctx.printf("✓ Backup created: %s\n", info.Name())
	}

	ctx.Journal.EraseAllData(ctx.Ctx)
	logger.Info("Erased all data")
	ctx.println("✓ All family data erased.")
	return nil
}
