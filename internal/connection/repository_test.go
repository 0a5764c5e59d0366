package connection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-edge/migrations"
)

// setupTestRepo opens an in-memory database with the real schema applied.
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

func TestSQLiteRepository_CreateGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, c := range []*Connection{opcdaConnection("da"), opcuaConnection("ua"), osipiConnection("pi")} {
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create(%s) error = %v", c.Name, err)
		}

		got, err := repo.Get(ctx, c.Name)
		if err != nil {
			t.Fatalf("Get(%s) error = %v", c.Name, err)
		}
		if got.Protocol != c.Protocol || got.GatewayName != c.GatewayName || got.Sinks != c.Sinks {
			t.Errorf("Get(%s) = %+v, want %+v", c.Name, got, c)
		}
		if !reflect.DeepEqual(got.Config, c.Config) {
			t.Errorf("Get(%s).Config = %+v, want %+v", c.Name, got.Config, c.Config)
		}
	}
}

func TestSQLiteRepository_CreateDuplicate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, opcdaConnection("dup")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, opcdaConnection("dup")); !errors.Is(err, ErrConnectionExists) {
		t.Errorf("Create() error = %v, want ErrConnectionExists", err)
	}
}

func TestSQLiteRepository_CreateInvalid(t *testing.T) {
	repo := setupTestRepo(t)

	c := opcdaConnection("bad")
	c.Config = nil
	if err := repo.Create(context.Background(), c); !errors.Is(err, ErrProtocolBlock) {
		t.Errorf("Create() error = %v, want ErrProtocolBlock", err)
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	c := opcuaConnection("ua")
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	c.Control = ControlStart
	c.Config.(*OPCUA).Source = &OPCUASource{Name: "kepware"}
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.Get(ctx, "ua")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Control != ControlStart {
		t.Errorf("Control = %q, want start", got.Control)
	}
	if src := got.Config.(*OPCUA).Source; src == nil || src.Name != "kepware" {
		t.Errorf("Source = %+v, want kepware", src)
	}

	if err := repo.Update(ctx, opcuaConnection("missing")); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrConnectionNotFound", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if err := repo.Create(ctx, opcdaConnection("gone")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "gone"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Get() error = %v, want ErrConnectionNotFound", err)
	}
	if err := repo.Delete(ctx, "gone"); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("Delete() error = %v, want ErrConnectionNotFound", err)
	}
}

func TestSQLiteRepository_ListByGateway(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c := opcdaConnection(fmt.Sprintf("a-%d", i))
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	other := opcdaConnection("b-0")
	other.GatewayName = "line-2"
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := repo.ListByGateway(ctx, "line-1", "", 2)
	if err != nil {
		t.Fatalf("ListByGateway() error = %v", err)
	}
	if len(first.Connections) != 2 || first.NextToken == "" {
		t.Fatalf("first page = %d items, token %q; want 2 items and a token", len(first.Connections), first.NextToken)
	}

	second, err := repo.ListByGateway(ctx, "line-1", first.NextToken, 2)
	if err != nil {
		t.Fatalf("ListByGateway() error = %v", err)
	}
	if len(second.Connections) != 1 || second.NextToken != "" {
		t.Errorf("second page = %d items, token %q; want 1 item and no token", len(second.Connections), second.NextToken)
	}
	if second.Connections[0].Name != "a-2" {
		t.Errorf("second page = %s, want a-2", second.Connections[0].Name)
	}

	all, err := repo.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all.Connections) != 4 {
		t.Errorf("List() = %d connections, want 4", len(all.Connections))
	}
}
