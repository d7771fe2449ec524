package repository

import (
	"context"

	"github.com/sakif/recipebox/internal/model"
)

type UserRepository interface {
	// CreateUser returns apperror.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type RecipeRepository interface {
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	GetRecipe(ctx context.Context, id string) (*model.Recipe, error)
	ListRecipes(ctx context.Context) ([]model.Recipe, error)
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	// DeleteRecipe removes the recipe together with its comments and favorites.
	DeleteRecipe(ctx context.Context, id string) error
}

type FavoriteRepository interface {
	// AddFavorite returns apperror.ErrConflict for a duplicate (user, recipe)
	// pair and apperror.ErrNotFound if the recipe no longer exists.
	AddFavorite(ctx context.Context, fav *model.Favorite) error
	RemoveFavorite(ctx context.Context, userID, recipeID string) error
	ListFavoriteRecipes(ctx context.Context, userID string) ([]model.Recipe, error)
}

type CommentRepository interface {
	// AddComment returns apperror.ErrNotFound if the recipe does not exist.
	AddComment(ctx context.Context, comment *model.Comment) error
	// ListComments returns comments in creation order.
	ListComments(ctx context.Context, recipeID string) ([]model.Comment, error)
}

// Store is the full storage surface the server wires into its services.
type Store interface {
	UserRepository
	RecipeRepository
	FavoriteRepository
	CommentRepository
	Ping(ctx context.Context) error
	Close() error
}
