package sqlstore

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

// AddComment stores a comment. The recipe's existence is enforced by the
// foreign key rather than a prior lookup.
func (db *DB) AddComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = now()

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO comments (id, text, user_id, recipe_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`),
		comment.ID,
		comment.Text,
		comment.UserID,
		comment.RecipeID,
		comment.CreatedAt,
	)
	if err != nil {
		if classify(err) == constraintForeignKey {
			return apperror.NotFound("recipe", comment.RecipeID)
		}
		return fmt.Errorf("sqlstore: adding comment: %w", err)
	}

	return nil
}

func (db *DB) ListComments(ctx context.Context, recipeID string) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx, db.rebind(
		`SELECT c.id, c.text, c.user_id, c.recipe_id, u.username, c.created_at
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.recipe_id = ?
		 ORDER BY c.created_at, c.id`), recipeID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing comments of %s: %w", recipeID, err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.UserID, &c.RecipeID, &c.Author, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating comments: %w", err)
	}
	return comments, nil
}
