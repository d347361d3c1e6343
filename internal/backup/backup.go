package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/julianstephens/hearth/internal/constants"
	"github.com/julianstephens/hearth/internal/logger"
	"github.com/julianstephens/hearth/internal/storage"
)

// TimestampFormat is the timestamp embedded in backup file names.
const TimestampFormat = "20060102-150405"

// Store is a durable store that can write consistent copies of itself.
type Store interface {
	storage.DurableStore
	storage.Snapshotter
}

// Opener builds a store of the same driver over another file. Restore uses it
// to check that a backup opens cleanly before it replaces the live file.
type Opener func(path string) storage.DurableStore

// Info describes a backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64

	seq int
}

// Name is the backup's file name.
func (i Info) Name() string { return filepath.Base(i.Path) }

// HumanSize is the file size in human-readable units.
func (i Info) HumanSize() string { return humanize.Bytes(uint64(max(i.Size, 0))) }

// Age describes how long ago the backup was taken, relative to now.
func (i Info) Age(now time.Time) string { return humanize.RelTime(i.Timestamp, now, "ago", "from now") }

// Manager creates, lists, rotates and restores backups of a durable store.
// Backups live in a directory beside the store's file.
type Manager struct {
	store  Store
	open   Opener
	dir    string
	suffix string
	now    func() time.Time
}

func NewManager(store Store, open Opener) *Manager {
	suffix := filepath.Ext(store.Path())
	if suffix == "" {
		suffix = "." + store.Driver()
	}
	return &Manager{
		store:  store,
		open:   open,
		dir:    filepath.Join(filepath.Dir(store.Path()), constants.BackupDirName),
		suffix: suffix,
		now:    time.Now,
	}
}

// Dir is the backup directory.
func (m *Manager) Dir() string { return m.dir }

// Create snapshots the store into a new backup file and prunes the oldest
// backups beyond MaxBackups.
func (m *Manager) Create(ctx context.Context) (Info, error) {
	return m.create(ctx, true)
}

// create writes a backup. Restore skips rotation so the pre-restore copy
// cannot push out the backup being restored.
func (m *Manager) create(ctx context.Context, rotate bool) (Info, error) {
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return Info{}, fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := m.store.Init(ctx); err != nil {
		return Info{}, fmt.Errorf("failed to open database for backup: %w", err)
	}

	taken := m.now()
	path, err := m.uniquePath(taken)
	if err != nil {
		return Info{}, err
	}
	if err := m.store.Snapshot(ctx, path); err != nil {
		_ = os.Remove(path)
		return Info{}, fmt.Errorf("failed to back up database: %w", err)
	}

	info := Info{Path: path, Timestamp: taken.Truncate(time.Second)}
	if st, err := os.Stat(path); err == nil {
		info.Size = st.Size()
	}
	logger.Info("Created backup", "path", path, "size", info.HumanSize())

	if rotate {
		if err := m.rotate(); err != nil {
			logger.Warn("Failed to rotate old backups", "error", err)
		}
	}
	return info, nil
}

func (m *Manager) uniquePath(taken time.Time) (string, error) {
	stamp := taken.Format(TimestampFormat)
	path := filepath.Join(m.dir, constants.BackupFilePrefix+stamp+m.suffix)
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if counter > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s%s-%d%s", constants.BackupFilePrefix, stamp, counter, m.suffix))
	}
}

// List returns the backups in the backup directory, newest first. Files that
// do not follow the backup naming scheme are ignored.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	backups := []Info{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stamp, seq, ok := m.parseName(entry.Name())
		if !ok {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:      filepath.Join(m.dir, entry.Name()),
			Timestamp: stamp,
			Size:      st.Size(),
			seq:       seq,
		})
	}

	sort.SliceStable(backups, func(i, j int) bool {
		if backups[i].Timestamp.Equal(backups[j].Timestamp) {
			return backups[i].seq > backups[j].seq
		}
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// parseName extracts the timestamp and same-second counter from
// prefix-YYYYMMDD-HHMMSS[-N]suffix.
func (m *Manager) parseName(name string) (time.Time, int, bool) {
	if !strings.HasPrefix(name, constants.BackupFilePrefix) || !strings.HasSuffix(name, m.suffix) {
		return time.Time{}, 0, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.BackupFilePrefix), m.suffix)
	seq := 0
	if len(stamp) > len(TimestampFormat) {
		counter, ok := strings.CutPrefix(stamp[len(TimestampFormat):], "-")
		n, err := strconv.Atoi(counter)
		if !ok || err != nil || n <= 0 {
			return time.Time{}, 0, false
		}
		seq = n
		stamp = stamp[:len(TimestampFormat)]
	}
	ts, err := time.ParseInLocation(TimestampFormat, stamp, time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return ts, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := constants.MaxBackups; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
		logger.Debug("Removed old backup", "path", backups[i].Path)
	}
	return nil
}

// Restore replaces the store's file with the backup at path. The backup is
// copied and opened first; only a copy that opens cleanly is swapped in. The
// current database is backed up before it is replaced, and that backup is
// returned. The store is open again when Restore returns successfully.
func (m *Manager) Restore(ctx context.Context, path string) (Info, error) {
	if _, err := os.Stat(path); err != nil {
		return Info{}, fmt.Errorf("backup file does not exist: %s", path)
	}

	tempPath := m.store.Path() + ".restore.tmp"
	if err := copyFile(path, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return Info{}, fmt.Errorf("failed to copy backup file: %w", err)
	}
	if err := m.verify(ctx, tempPath); err != nil {
		_ = os.Remove(tempPath)
		return Info{}, fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	current, err := m.create(ctx, false)
	if err != nil {
		_ = os.Remove(tempPath)
		return Info{}, fmt.Errorf("failed to back up current database before restore: %w", err)
	}

	if err := m.store.Close(); err != nil {
		logger.Warn("Failed to close database before restore", "error", err)
	}
	if err := os.Rename(tempPath, m.store.Path()); err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil {
			logger.Warn("Failed to remove temporary restore file", "path", tempPath, "error", removeErr)
		}
		_ = m.store.Init(ctx)
		return current, fmt.Errorf("failed to restore database: %w", err)
	}
	if err := m.store.Init(ctx); err != nil {
		return current, fmt.Errorf("failed to reopen restored database: %w", err)
	}

	logger.Info("Restored backup", "backup", path, "previous", current.Path)
	return current, nil
}

// verify opens path with a fresh store and reads the canonical record.
func (m *Manager) verify(ctx context.Context, path string) error {
	s := m.open(path)
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()

	_, err := s.Get(ctx, constants.CanonicalRecordID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := destFile.ReadFrom(sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}
