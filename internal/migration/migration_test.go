package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/hearth/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mapFS(files map[string]string) fstest.MapFS {
	out := fstest.MapFS{}
	for name, body := range files {
		out[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return out
}

func TestCurrentVersionFreshDatabase(t *testing.T) {
	db := setupTestDB(t)
	runner := NewRunner(db, mapFS(nil))

	version, err := runner.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}
}

func TestFilesSortedAndParsed(t *testing.T) {
	runner := NewRunner(setupTestDB(t), mapFS(map[string]string{
		"003_another.sql": "CREATE TABLE t2 (id INTEGER);",
		"001_init.sql":    "CREATE TABLE t1 (id INTEGER);",
		"002_update.sql":  "ALTER TABLE t1 ADD COLUMN name TEXT;",
		"README.md":       "ignored",
	}))

	files, err := runner.Files()
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	want := []struct {
		version int
		name    string
	}{{1, "init"}, {2, "update"}, {3, "another"}}
	if len(files) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(files))
	}
	for i, w := range want {
		if files[i].Version != w.version || files[i].Name != w.name {
			t.Errorf("migration %d: got (%d, %q), want (%d, %q)", i, files[i].Version, files[i].Name, w.version, w.name)
		}
	}
}

func TestFilesRejectsBadNames(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"no separator", map[string]string{"001init.sql": ""}, "invalid migration filename"},
		{"non numeric", map[string]string{"abc_init.sql": ""}, "invalid version number"},
		{"zero version", map[string]string{"000_init.sql": ""}, "must be at least 1"},
		{"duplicate", map[string]string{"001_a.sql": "", "01_b.sql": ""}, "duplicate migration version 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRunner(setupTestDB(t), mapFS(tt.files)).Files()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestApplyFromScratchAndIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, mapFS(map[string]string{
		"001_init.sql":  "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT);",
		"002_posts.sql": "CREATE TABLE posts (id INTEGER PRIMARY KEY, user_id INTEGER);",
	}))

	applied, err := runner.Apply(ctx)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if applied != 2 {
		t.Errorf("expected 2 migrations applied, got %d", applied)
	}

	version, _ := runner.CurrentVersion(ctx)
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
	if _, err := db.Exec("INSERT INTO posts (user_id) VALUES (1)"); err != nil {
		t.Errorf("posts table missing: %v", err)
	}

	applied, err = runner.Apply(ctx)
	if err != nil {
		t.Fatalf("second Apply failed: %v", err)
	}
	if applied != 0 {
		t.Errorf("expected no migrations on second run, got %d", applied)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, mapFS(map[string]string{
		"001_init.sql":   "CREATE TABLE ok (id INTEGER);",
		"002_broken.sql": "CREATE TABLE broken (id INTEGER); THIS IS NOT SQL;",
	}))

	applied, err := runner.Apply(ctx)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if applied != 1 {
		t.Errorf("expected 1 migration applied before failure, got %d", applied)
	}
	version, _ := runner.CurrentVersion(ctx)
	if version != 1 {
		t.Errorf("expected version to stay at 1, got %d", version)
	}
}

func TestApplyRejectsNewerDatabase(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, mapFS(map[string]string{"001_init.sql": "CREATE TABLE t (id INTEGER);"}))

	if _, err := runner.CurrentVersion(ctx); err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (9)"); err != nil {
		t.Fatalf("failed to seed version: %v", err)
	}

	if _, err := runner.Apply(ctx); err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("expected newer-version error, got %v", err)
	}
	if err := runner.Validate(ctx); err == nil {
		t.Error("expected Validate to fail")
	}
}

func TestEmbeddedMigrationsApply(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	runner := NewRunner(db, mustSub(t))

	if _, err := runner.Apply(ctx); err != nil {
		t.Fatalf("embedded migrations failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO app_records (id, data, schema_version, last_updated) VALUES ('x', '{}', 1, '2026-01-01T00:00:00Z')`); err != nil {
		t.Errorf("app_records table not usable: %v", err)
	}
	if err := runner.Validate(ctx); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func mustSub(t *testing.T) fstest.MapFS {
	t.Helper()
	entries, err := migrations.FS.ReadDir("sqlite")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	files := map[string]string{}
	for _, e := range entries {
		body, err := migrations.FS.ReadFile("sqlite/" + e.Name())
		if err != nil {
			t.Fatalf("failed to read %s: %v", e.Name(), err)
		}
		files[e.Name()] = string(body)
	}
	return mapFS(files)
}
