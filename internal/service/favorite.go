package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// errRecipeNotFound is the message favorites and comments use for an unknown
// recipe id.
func errRecipeNotFound() error {
	return apperror.NotFoundMessage("Recipe not found")
}

// requireRecipe returns errRecipeNotFound if id does not name a recipe.
func requireRecipe(ctx context.Context, recipes repository.RecipeRepository, id string) error {
	if _, err := recipes.GetRecipe(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errRecipeNotFound()
		}
		return fmt.Errorf("looking up recipe %s: %w", id, err)
	}
	return nil
}

type FavoriteService struct {
	recipes   repository.RecipeRepository
	favorites repository.FavoriteRepository
	logger    *slog.Logger
}

func NewFavoriteService(
	recipes repository.RecipeRepository,
	favorites repository.FavoriteRepository,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{recipes: recipes, favorites: favorites, logger: logger}
}

// Favorite marks recipeID as a favorite of userID. A second call for the same
// pair is apperror.ErrConflict.
func (s *FavoriteService) Favorite(ctx context.Context, userID, recipeID string) error {
	if err := requireRecipe(ctx, s.recipes, recipeID); err != nil {
		return err
	}

	err := s.favorites.AddFavorite(ctx, &model.Favorite{UserID: userID, RecipeID: recipeID})
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrConflict):
		return err
	case errors.Is(err, apperror.ErrNotFound):
		// Recipe deleted between the lookup and the insert.
		return errRecipeNotFound()
	default:
		return fmt.Errorf("adding favorite: %w", err)
	}

	s.logger.Info("favorite added", slog.String("recipe_id", recipeID), slog.String("user_id", userID))
	return nil
}

// Unfavorite removes the pair. An unknown recipe and a recipe that exists but
// was never favorited are both ErrNotFound, with different messages.
func (s *FavoriteService) Unfavorite(ctx context.Context, userID, recipeID string) error {
	if err := requireRecipe(ctx, s.recipes, recipeID); err != nil {
		return err
	}

	if err := s.favorites.RemoveFavorite(ctx, userID, recipeID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFoundMessage("Recipe is not in favorites")
		}
		return fmt.Errorf("removing favorite: %w", err)
	}

	s.logger.Info("favorite removed", slog.String("recipe_id", recipeID), slog.String("user_id", userID))
	return nil
}

func (s *FavoriteService) ListForUser(ctx context.Context, userID string) ([]model.Recipe, error) {
	recipes, err := s.favorites.ListFavoriteRecipes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites of %s: %w", userID, err)
	}
	return recipes, nil
}
