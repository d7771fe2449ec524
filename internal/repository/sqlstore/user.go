package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// CreateUser inserts a new user. The ID and CreatedAt are filled in place.
//
// There is no SELECT-then-INSERT: the UNIQUE constraint on username decides
// who wins when two registrations race, and the loser gets ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	user.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO users (id, username, password_hash, created_at)
		 VALUES (?, ?, ?, ?)`),
		user.ID,
		user.Username,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		if classify(err) == constraintUnique {
			return apperror.Conflict("Username already exists")
		}
		return fmt.Errorf("sqlstore: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT id, username, password_hash, created_at
		 FROM users WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlstore: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername looks up a user by exact (case-sensitive) username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := db.scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT id, username, password_hash, created_at
		 FROM users WHERE username = ?`), username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFoundMessage(fmt.Sprintf("user %q not found", username))
		}
		return nil, fmt.Errorf("sqlstore: getting user %q: %w", username, err)
	}
	return u, nil
}

func (db *DB) scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
