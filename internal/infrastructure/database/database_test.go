package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

// openTestDB opens an in-memory database closed at test cleanup.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	return db
}

// useMigrations swaps the migration source for the duration of a test.
func useMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = files, "."
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "edge.db")

	db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // test cleanup

	if _, err := os.Stat(filepath.Dir(dbPath)); err != nil {
		t.Errorf("database directory not created: %v", err)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)
	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestClose_Twice(t *testing.T) {
	db, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close() expected error")
	}
}

func TestMigrate(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260301_090000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"20260301_090000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20260302_090000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
		"README.md":                        {Data: []byte("ignored")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"widgets", "gadgets"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20260301_090000" {
		t.Errorf("first applied = %q, want 20260301_090000", applied[0].Version)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	useMigrations(t, fstest.MapFS{
		"20260301_090000_ok.up.sql":     {Data: []byte("CREATE TABLE ok (id TEXT);")},
		"20260302_090000_broken.up.sql": {Data: []byte("CREATE TABLE (;")},
	})

	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestMigrate_NoMigrations(t *testing.T) {
	origFS := MigrationsFS
	MigrationsFS = nil
	t.Cleanup(func() { MigrationsFS = origFS })

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260301_090000_gateways.up.sql", "20260301_090000", "gateways", true, true},
		{"20260301_090000_gateways.down.sql", "20260301_090000", "gateways", false, true},
		{"20260301_090000_connection_index.up.sql", "20260301_090000", "connection_index", true, true},
		{"20260301.up.sql", "", "", false, false},
		{"20260301_090000_gateways.sql", "", "", false, false},
		{"notes.txt", "", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
					tt.filename, version, name, up, ok, tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}

func TestPageToken_RoundTrip(t *testing.T) {
	for _, key := range []string{"gw-1", "line:3_a", "x"} {
		token := EncodePageToken(key)
		if token == key {
			t.Errorf("EncodePageToken(%q) returned the raw key", key)
		}
		got, err := DecodePageToken(token)
		if err != nil {
			t.Fatalf("DecodePageToken(%q) error = %v", token, err)
		}
		if got != key {
			t.Errorf("DecodePageToken(EncodePageToken(%q)) = %q", key, got)
		}
	}

	if EncodePageToken("") != "" {
		t.Error("EncodePageToken(\"\") should be empty")
	}
	if got, err := DecodePageToken(""); err != nil || got != "" {
		t.Errorf("DecodePageToken(\"\") = %q, %v; want empty, nil", got, err)
	}
}

func TestDecodePageToken_Invalid(t *testing.T) {
	if _, err := DecodePageToken("***"); err != ErrInvalidPageToken {
		t.Errorf("DecodePageToken() error = %v, want ErrInvalidPageToken", err)
	}
}

func TestPageLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultPageSize},
		{-4, DefaultPageSize},
		{10, 10},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tt := range tests {
		if got := PageLimit(tt.in); got != tt.want {
			t.Errorf("PageLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE t (k TEXT PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "INSERT INTO t (k) VALUES ('a')"); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := db.ExecContext(ctx, "INSERT INTO t (k) VALUES ('a')")
	if !IsUniqueConstraintError(err) {
		t.Errorf("IsUniqueConstraintError(%v) = false, want true", err)
	}
	if IsUniqueConstraintError(nil) {
		t.Error("IsUniqueConstraintError(nil) = true")
	}
}
