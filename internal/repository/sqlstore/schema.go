package sqlstore

import (
	"context"
	"fmt"
)

// migrate creates the schema if it doesn't exist.
//
// CREATE TABLE IF NOT EXISTS makes this safe to run on every start.
// The only dialect difference is the timestamp column type.
//
// Storage-level invariants:
//   - users.username is UNIQUE (registration conflicts)
//   - favorites has UNIQUE (user_id, recipe_id) (one favorite per pair)
//   - favorites and comments cascade when their recipe is deleted
func (db *DB) migrate(ctx context.Context) error {
	ts := "DATETIME"
	if db.dialect == dialectPostgres {
		ts = "TIMESTAMPTZ"
	}

	statements := []struct {
		name string
		sql  string
	}{
		{"users", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				username      TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at    %s NOT NULL
			)`, ts)},
		{"recipes", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS recipes (
				id           TEXT PRIMARY KEY,
				title        TEXT NOT NULL,
				ingredients  TEXT NOT NULL,
				instructions TEXT NOT NULL,
				user_id      TEXT NOT NULL REFERENCES users(id),
				created_at   %[1]s NOT NULL,
				updated_at   %[1]s NOT NULL
			)`, ts)},
		{"recipes user index", `CREATE INDEX IF NOT EXISTS idx_recipes_user_id ON recipes(user_id)`},
		{"favorites", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS favorites (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id),
				recipe_id  TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				created_at %s NOT NULL,
				UNIQUE (user_id, recipe_id)
			)`, ts)},
		{"comments", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS comments (
				id         TEXT PRIMARY KEY,
				text       TEXT NOT NULL,
				user_id    TEXT NOT NULL REFERENCES users(id),
				recipe_id  TEXT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
				created_at %s NOT NULL
			)`, ts)},
		{"comments recipe index", `CREATE INDEX IF NOT EXISTS idx_comments_recipe_id ON comments(recipe_id, created_at)`},
	}

	for _, st := range statements {
		if _, err := db.conn.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("creating %s: %w", st.name, err)
		}
	}
	return nil
}
