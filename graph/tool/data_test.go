package tool

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// testDB creates an in-memory database seeded with the users and items
// tables the data-lookup tools query.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			is_active INTEGER NOT NULL,
			is_superuser INTEGER NOT NULL
		)`,
		`CREATE TABLE items (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			owner_id TEXT NOT NULL
		)`,
		`INSERT INTO users VALUES ('u-1', 'alice@example.com', 'Alice', 1, 0)`,
		`INSERT INTO items VALUES ('i-1', 'First', 'first item', 'u-1')`,
		`INSERT INTO items VALUES ('i-2', 'Second', 'second item', 'u-1')`,
		`INSERT INTO items VALUES ('i-3', 'Other', 'someone elses', 'u-2')`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("schema setup failed: %v", err)
		}
	}
	return db
}

func TestUserLookupTool(t *testing.T) {
	ctx := context.Background()
	tool := NewUserLookupTool(testDB(t))

	t.Run("found", func(t *testing.T) {
		result, err := tool.Call(ctx, map[string]interface{}{"email": "alice@example.com"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result["id"] != "u-1" || result["full_name"] != "Alice" {
			t.Errorf("result = %v", result)
		}
		if result["is_active"] != true {
			t.Errorf("is_active = %v, want true", result["is_active"])
		}
	})

	t.Run("not found is a structured result", func(t *testing.T) {
		result, err := tool.Call(ctx, map[string]interface{}{"email": "nobody@example.com"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if _, ok := result["error"]; !ok {
			t.Errorf("result = %v, want error key", result)
		}
	})

	t.Run("missing email is an input error", func(t *testing.T) {
		if _, err := tool.Call(ctx, map[string]interface{}{}); err == nil {
			t.Error("expected error for missing email")
		}
	})
}

func TestItemLookupTool(t *testing.T) {
	ctx := context.Background()
	tool := NewItemLookupTool(testDB(t))

	result, err := tool.Call(ctx, map[string]interface{}{"item_id": "i-1"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if result["title"] != "First" || result["owner_id"] != "u-1" {
		t.Errorf("result = %v", result)
	}

	result, err = tool.Call(ctx, map[string]interface{}{"item_id": "i-404"})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if _, ok := result["error"]; !ok {
		t.Errorf("result = %v, want error key", result)
	}
}

func TestUserItemsTool(t *testing.T) {
	ctx := context.Background()
	tool := NewUserItemsTool(testDB(t))

	t.Run("lists owned items", func(t *testing.T) {
		result, err := tool.Call(ctx, map[string]interface{}{"user_id": "u-1"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result["count"] != 2 {
			t.Errorf("count = %v, want 2", result["count"])
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		result, err := tool.Call(ctx, map[string]interface{}{"user_id": "u-1", "limit": float64(1)})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result["count"] != 1 || result["limit"] != 1 {
			t.Errorf("count = %v limit = %v, want 1 and 1", result["count"], result["limit"])
		}
	})

	t.Run("unknown user yields empty list", func(t *testing.T) {
		result, err := tool.Call(ctx, map[string]interface{}{"user_id": "u-404"})
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if result["count"] != 0 {
			t.Errorf("count = %v, want 0", result["count"])
		}
	})
}
