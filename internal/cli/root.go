package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/hearth/internal/backup"
	"github.com/julianstephens/hearth/internal/config"
	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/coordinator"
	"github.com/julianstephens/hearth/internal/journal"
	"github.com/julianstephens/hearth/internal/lock"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/models"
	"github.com/julianstephens/hearth/internal/storage"
	"github.com/julianstephens/hearth/internal/storage/bolt"
	"github.com/julianstephens/hearth/internal/storage/fallback"
	"github.com/julianstephens/hearth/internal/storage/sqlite"
	"github.com/julianstephens/hearth/internal/utils"
)

// Context is shared by every command.
type Context struct {
	Ctx      context.Context
	Config   config.Config
	Journal  *journal.Journal
	Coord    *coordinator.Coordinator
	Store    backup.Store
	Fallback *fallback.Store

	Out io.Writer
	Err io.Writer
	// Confirm asks a yes/no question. Commands with a --yes flag skip it.
	Confirm func(title, description string) (bool, error)

	lock   *lock.Lock
	now    func() time.Time
	closed bool
}

// Option configures Open.
type Option func(*Context)

// WithOutput redirects command output.
func WithOutput(out, errOut io.Writer) Option {
	return func(c *Context) {
		c.Out = out
		c.Err = errOut
	}
}

// WithClock overrides the clock used for entry dates and derived views.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithConfirm replaces the interactive confirmation prompt.
func WithConfirm(fn func(title, description string) (bool, error)) Option {
	return func(c *Context) { c.Confirm = fn }
}

// NewDurableStore builds the durable store selected by cfg.Driver.
func NewDurableStore(cfg config.Config) backup.Store {
	if cfg.Driver == constants.DriverBolt {
		return bolt.NewStore(cfg.DatabasePath)
	}
	return sqlite.NewStore(cfg.DatabasePath)
}

// storeOpener builds stores of the given driver over arbitrary files.
func storeOpener(driver string) backup.Opener {
	if driver == constants.DriverBolt {
		return func(path string) storage.DurableStore { return bolt.NewStore(path) }
	}
	return func(path string) storage.DurableStore { return sqlite.NewStore(path) }
}

// Open takes the data-directory lock and opens the journal. Storage failures
// do not fail Open; the journal falls back to the mirror file.
func Open(ctx context.Context, cfg config.Config, opts ...Option) (*Context, error) {
	c := &Context{
		Ctx:     ctx,
		Config:  cfg,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Confirm: confirmPrompt,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	l, err := lock.Acquire(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	c.lock = l

	c.Store = NewDurableStore(cfg)
	c.Fallback = fallback.Open(cfg.FallbackPath)
	c.Coord = coordinator.New(c.Store, c.Fallback, coordinator.WithClock(c.now))
	c.Journal = journal.Open(ctx, c.Coord, journal.WithClock(c.now), journal.WithLocation(loc))

	logger.Debug("Opened journal", "mode", c.Coord.Mode(), "driver", cfg.Driver, "dataDir", cfg.DataDir)
	return c, nil
}

// Close drains pending writes, closes storage and releases the lock. Later
// calls do nothing.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	flushCtx, cancel := context.WithTimeout(context.Background(), constants.WriteTimeout)
	defer cancel()
	if err := c.Journal.Flush(flushCtx); err != nil {
		logger.Warn("Pending writes not drained before exit", "error", err)
	}
	if err := c.Coord.Close(); err != nil {
		logger.Warn("Failed to close storage", "error", err)
	}
	return c.lock.Release()
}

// Welcome prints a one-time greeting on the first run in a data directory.
func (c *Context) Welcome() {
	if c.Coord.Flag(constants.FlagWelcomeShown) {
		return
	}
	fmt.Fprintf(c.Err, "Welcome to %s! Add your family with '%s member add <name>'.\n", constants.AppName, constants.AppName)
	c.Coord.SetFlag(constants.FlagWelcomeShown, true)
}

// Backups returns a backup manager for the durable store.
func (c *Context) Backups() *backup.Manager {
	return backup.NewManager(c.Store, storeOpener(c.Config.Driver))
}

// Now is the current time in the journal's location.
func (c *Context) Now() time.Time { return c.Journal.Now() }

func (c *Context) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Context) println(args ...any) {
	fmt.Fprintln(c.Out, args...)
}

// ResolveMember finds a member by id or case-insensitive name.
func (c *Context) ResolveMember(ref string) (models.FamilyMember, error) {
	if strings.TrimSpace(ref) == "" {
		return models.FamilyMember{}, models.ErrMemberRequired
	}
	m, ok := c.Journal.FindMember(ref)
	if !ok {
		return models.FamilyMember{}, fmt.Errorf("%w: %s", models.ErrMemberNotFound, ref)
	}
	return m, nil
}

// announce prints newly reached milestones.
func (c *Context) announce(celebrate []models.GraduationMilestone) {
	for _, m := range celebrate {
		c.printf("🎉 Milestone reached: %s\n   %s\n", m.Title, m.Description)
		c.printf("   Run '%s celebrate --ack %s' once you've celebrated together.\n", constants.AppName, m.ID)
	}
}

// confirm returns true when yes is set or the user agrees.
func (c *Context) confirm(yes bool, title, description string) (bool, error) {
	if yes {
		return true, nil
	}
	return c.Confirm(title, description)
}

func confirmPrompt(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
