package sqlstore

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

var _ repository.FavoriteRepository = (*DB)(nil)

// AddFavorite marks fav.RecipeID as a favorite of fav.UserID.
//
// Duplicates are rejected by the UNIQUE (user_id, recipe_id) constraint, so two
// concurrent requests for the same pair can never both succeed.
func (db *DB) AddFavorite(ctx context.Context, fav *model.Favorite) error {
	fav.ID = xid.New().String()
	fav.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO favorites (id, user_id, recipe_id, created_at)
		 VALUES (?, ?, ?, ?)`),
		fav.ID,
		fav.UserID,
		fav.RecipeID,
		fav.CreatedAt,
	)
	if err != nil {
		switch classify(err) {
		case constraintUnique:
			return apperror.Conflict("Recipe already in favorites")
		case constraintForeignKey:
			return apperror.NotFound("recipe", fav.RecipeID)
		}
		return fmt.Errorf("sqlstore: adding favorite: %w", err)
	}

	return nil
}

func (db *DB) RemoveFavorite(ctx context.Context, userID, recipeID string) error {
	result, err := db.conn.ExecContext(ctx, db.rebind(
		`DELETE FROM favorites WHERE user_id = ? AND recipe_id = ?`),
		userID, recipeID)
	if err != nil {
		return fmt.Errorf("sqlstore: removing favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundMessage("Recipe is not in favorites")
	}
	return nil
}

// ListFavoriteRecipes returns the recipes userID has favorited, most recently
// favorited first.
func (db *DB) ListFavoriteRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(
		`SELECT `+recipeColumns+`
		 FROM favorites f
		 JOIN recipes r ON r.id = f.recipe_id
		 JOIN users u ON u.id = r.user_id
		 WHERE f.user_id = ?
		 ORDER BY f.created_at DESC, f.id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing favorites of %s: %w", userID, err)
	}
	defer rows.Close()

	return collectRecipes(rows)
}
