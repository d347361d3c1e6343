package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/hearth/internal/cli"
	"github.com/julianstephens/hearth/internal/config"
	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/errors"
	"github.com/julianstephens/hearth/internal/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path (TOML or YAML)." type:"path"`
	DataDir  string `help:"Directory holding the journal, fallback file and backups." type:"path"`
	Driver   string `help:"Durable store driver (sqlite or bolt)."`
	Timezone string `help:"IANA timezone that defines calendar days."`
	Debug    bool   `help:"Log debug output to stderr."`

	Status   cli.StatusCmd  `cmd:"" help:"Show storage mode and journal totals." default:"1"`
	Migrate  cli.MigrateCmd `cmd:"" help:"Copy fallback data into the durable store."`
	Doctor   cli.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	DebugCmd cli.DebugCmd   `cmd:"" name:"debug" help:"Debug commands for troubleshooting."`

	Member struct {
		Add    cli.MemberAddCmd    `cmd:"" help:"Add a family member."`
		List   cli.MemberListCmd   `cmd:"" help:"List family members." default:"1"`
		Edit   cli.MemberEditCmd   `cmd:"" help:"Edit a family member."`
		Delete cli.MemberDeleteCmd `cmd:"" help:"Delete a family member and their entries."`
	} `cmd:"" help:"Manage family members."`

	Mood      cli.MoodCmd      `cmd:"" help:"Record a mood."`
	Reflect   cli.ReflectCmd   `cmd:"" help:"Record a reflection."`
	Gratitude cli.GratitudeCmd `cmd:"" help:"Record something you're grateful for."`
	Entry     struct {
		List   cli.EntryListCmd   `cmd:"" help:"List entries." default:"1"`
		Delete cli.EntryDeleteCmd `cmd:"" help:"Delete an entry."`
	} `cmd:"" help:"Browse and delete entries."`

	Streak    cli.StreakCmd    `cmd:"" help:"Show the current streak."`
	Calendar  cli.CalendarCmd  `cmd:"" help:"Show the activity calendar."`
	Progress  cli.ProgressCmd  `cmd:"" help:"Show graduation progress."`
	Celebrate cli.CelebrateCmd `cmd:"" help:"Show or acknowledge reached milestones."`
	Prompts   cli.PromptsCmd   `cmd:"" help:"Show transition suggestions."`
	Settings  cli.SettingsCmd  `cmd:"" help:"Show or change graduation settings."`

	Export cli.ExportCmd `cmd:"" help:"Export the journal as JSON or CSV."`
	Import cli.ImportCmd `cmd:"" help:"Merge an exported JSON file into the journal."`
	Erase  cli.EraseCmd  `cmd:"" help:"Erase all family data."`
	Backup struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Local-first family journal: moods, reflections and gratitude, until you don't need it."),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(config.Options{
		ConfigPath: CLI.Config,
		Override: func(c *config.Config) {
			if CLI.DataDir != "" {
				c.DataDir = CLI.DataDir
				c.DatabasePath = ""
				c.FallbackPath = ""
			}
			if CLI.Driver != "" {
				c.Driver = CLI.Driver
			}
			if CLI.Timezone != "" {
				c.Timezone = CLI.Timezone
			}
			if CLI.Debug {
				c.Debug = true
			}
		},
	})
	if err != nil {
		errors.Fatalf("loading config: %w", err)
	}

	if err := logger.Init(logger.Config{Debug: cfg.Debug, DataDir: cfg.DataDir}); err != nil {
		logger.InitWriter(os.Stderr, cfg.Debug)
		logger.Warn("Failed to open log file, logging to stderr", "error", err)
	}
	logger.Debug("Loaded config", "source", cfg.Source, "dataDir", cfg.DataDir, "driver", cfg.Driver)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	appCtx, err := cli.Open(runCtx, cfg)
	if err != nil {
		errors.Fatal(err)
	}
	appCtx.Welcome()

	runErr := ctx.Run(appCtx)
	if err := appCtx.Close(); err != nil {
		logger.Warn("Failed to release data directory", "error", err)
	}
	if runErr != nil {
		stop()
		errors.Fatal(runErr)
	}
}
