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

var _ repository.RecipeRepository = (*DB)(nil)

// recipeColumns selects a recipe joined with its author. Every reader uses the
// same column order so scanRecipe can be shared.
const recipeColumns = `r.id, r.title, r.ingredients, r.instructions, r.user_id, u.username, r.created_at, r.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*model.Recipe, error) {
	var r model.Recipe
	if err := row.Scan(
		&r.ID,
		&r.Title,
		&r.Ingredients,
		&r.Instructions,
		&r.UserID,
		&r.Author,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRecipe inserts a recipe owned by recipe.UserID. ID and timestamps are
// set in place. Author is not written; it comes from the users table on read.
func (db *DB) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	recipe.ID = xid.New().String()
	recipe.CreatedAt = now()
	recipe.UpdatedAt = recipe.CreatedAt

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO recipes (id, title, ingredients, instructions, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		recipe.ID,
		recipe.Title,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.UserID,
		recipe.CreatedAt,
		recipe.UpdatedAt,
	)
	if err != nil {
		if classify(err) == constraintForeignKey {
			return apperror.NotFound("user", recipe.UserID)
		}
		return fmt.Errorf("sqlstore: creating recipe: %w", err)
	}

	return nil
}

// GetRecipe retrieves a single recipe with its author resolved.
func (db *DB) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	r, err := scanRecipe(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+recipeColumns+`
		 FROM recipes r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("recipe", id)
		}
		return nil, fmt.Errorf("sqlstore: getting recipe %s: %w", id, err)
	}
	return r, nil
}

// ListRecipes returns every recipe, oldest first, with authors resolved.
//
// The JOIN is an inner join: the foreign key guarantees an author exists,
// and a row without one would be skipped rather than failing the whole list.
func (db *DB) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+recipeColumns+`
		 FROM recipes r
		 JOIN users u ON u.id = r.user_id
		 ORDER BY r.created_at, r.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing recipes: %w", err)
	}
	defer rows.Close()

	return collectRecipes(rows)
}

func collectRecipes(rows *sql.Rows) ([]model.Recipe, error) {
	recipes := make([]model.Recipe, 0)
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: scanning recipe row: %w", err)
		}
		recipes = append(recipes, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating recipes: %w", err)
	}
	return recipes, nil
}

// UpdateRecipe replaces title, ingredients and instructions. The owner and
// created_at are never touched.
func (db *DB) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	recipe.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE recipes
		 SET title = ?, ingredients = ?, instructions = ?, updated_at = ?
		 WHERE id = ?`),
		recipe.Title,
		recipe.Ingredients,
		recipe.Instructions,
		recipe.UpdatedAt,
		recipe.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: updating recipe %s: %w", recipe.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("recipe", recipe.ID)
	}

	return nil
}

// DeleteRecipe removes a recipe and everything hanging off it in one
// transaction. The schema cascades as well.
func (db *DB) DeleteRecipe(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM comments WHERE recipe_id = ?`), id); err != nil {
			return fmt.Errorf("sqlstore: deleting comments of recipe %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM favorites WHERE recipe_id = ?`), id); err != nil {
			return fmt.Errorf("sqlstore: deleting favorites of recipe %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM recipes WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("sqlstore: deleting recipe %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound("recipe", id)
		}
		return nil
	})
}
