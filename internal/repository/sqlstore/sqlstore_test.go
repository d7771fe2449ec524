package sqlstore

import (
	"context"
	"testing"

	"github.com/sakif/recipebox/internal/model"
)

// newTestDB returns a fresh in-memory SQLite store. Each call gets its own
// database because the pool is capped at a single connection.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "$2a$04$not-a-real-hash"}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestRecipe(t *testing.T, db *DB, owner *model.User, title string) *model.Recipe {
	t.Helper()
	r := &model.Recipe{
		Title:        title,
		Ingredients:  "flour, water",
		Instructions: "mix and bake",
		UserID:       owner.ID,
	}
	if err := db.CreateRecipe(context.Background(), r); err != nil {
		t.Fatalf("failed to create test recipe: %v", err)
	}
	return r
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect dialect
		in      string
		want    string
	}{
		{"sqlite untouched", dialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres numbered", dialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres no placeholders", dialectPostgres, "SELECT 1", "SELECT 1"},
		{"postgres insert", dialectPostgres, "VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &DB{dialect: tt.dialect}
			if got := db.rebind(tt.in); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDialectString(t *testing.T) {
	if got := dialectSQLite.String(); got != "sqlite" {
		t.Errorf("dialectSQLite.String() = %q", got)
	}
	if got := dialectPostgres.String(); got != "postgres" {
		t.Errorf("dialectPostgres.String() = %q", got)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)

	// Running migrations a second time on the same database must be a no-op.
	if err := db.migrate(context.Background()); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestClassify_NonConstraintError(t *testing.T) {
	db := newTestDB(t)

	_, err := db.conn.ExecContext(context.Background(), "SELECT * FROM no_such_table")
	if err == nil {
		t.Fatal("expected an error for a missing table")
	}
	if got := classify(err); got != constraintNone {
		t.Errorf("classify() = %v, want constraintNone", got)
	}
	if got := classify(nil); got != constraintNone {
		t.Errorf("classify(nil) = %v, want constraintNone", got)
	}
}
