package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-edge/migrations"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestSQLiteRepository_CreateList(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{Action: "provision", EntityType: EntityGateway, EntityID: "line-1", Source: "api", CreatedAt: base},
		{Action: "deploy", EntityType: EntityConnection, EntityID: "press-1", Source: "api",
			Details: map[string]any{"protocol": "opcda", "gateway": "line-1"}, CreatedAt: base.Add(time.Minute)},
		{Action: "start", EntityType: EntityConnection, EntityID: "press-1", Source: "api", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Create() should generate an id")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Entries) != 3 {
		t.Fatalf("List() total = %d, entries = %d, want 3", all.Total, len(all.Entries))
	}
	if all.Entries[0].Action != "start" || all.Entries[2].Action != "provision" {
		t.Errorf("List() order = %s..%s, want newest first", all.Entries[0].Action, all.Entries[2].Action)
	}
	if all.Limit != defaultLimit {
		t.Errorf("List() limit = %d, want %d", all.Limit, defaultLimit)
	}

	conn, err := repo.List(ctx, Filter{EntityType: EntityConnection, EntityID: "press-1", Limit: 1})
	if err != nil {
		t.Fatalf("List(filter) error = %v", err)
	}
	if conn.Total != 2 || len(conn.Entries) != 1 {
		t.Fatalf("List(filter) total = %d, entries = %d, want 2/1", conn.Total, len(conn.Entries))
	}

	deploys, err := repo.List(ctx, Filter{Action: "deploy"})
	if err != nil {
		t.Fatalf("List(action) error = %v", err)
	}
	if len(deploys.Entries) != 1 || deploys.Entries[0].Details["protocol"] != "opcda" {
		t.Errorf("List(action) = %+v", deploys.Entries)
	}
}

func TestSQLiteRepository_ListClampsLimit(t *testing.T) {
	repo := setupTestRepo(t)

	result, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != maxLimit || result.Offset != 0 {
		t.Errorf("List() limit/offset = %d/%d, want %d/0", result.Limit, result.Offset, maxLimit)
	}
	if result.Entries == nil {
		t.Error("List() entries should be an empty slice, not nil")
	}
}

func TestSQLiteRepository_CreateRequiresFields(t *testing.T) {
	repo := setupTestRepo(t)

	if err := repo.Create(context.Background(), &Entry{Action: "deploy", EntityType: EntityConnection}); err == nil {
		t.Error("Create() without entity id should fail")
	}
}
