package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// MaxTitleLength is the longest recipe title accepted, counted in characters
// after surrounding whitespace is ignored.
const MaxTitleLength = 100

// RecipeInput is the writable part of a recipe. Create and Update both
// require every field.
type RecipeInput struct {
	Title        string
	Ingredients  string
	Instructions string
}

// validate checks the trimmed fields but leaves the input as sent, so
// indentation and line breaks in ingredients and instructions survive.
func (in RecipeInput) validate() error {
	title := strings.TrimSpace(in.Title)

	switch {
	case title == "":
		return apperror.ValidationFailed("title", "title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	case strings.TrimSpace(in.Ingredients) == "":
		return apperror.ValidationFailed("ingredients", "ingredients are required")
	case strings.TrimSpace(in.Instructions) == "":
		return apperror.ValidationFailed("instructions", "instructions are required")
	}
	return nil
}

type RecipeService struct {
	recipes repository.RecipeRepository
	logger  *slog.Logger
}

func NewRecipeService(recipes repository.RecipeRepository, logger *slog.Logger) *RecipeService {
	return &RecipeService{recipes: recipes, logger: logger}
}

func (s *RecipeService) List(ctx context.Context) ([]model.Recipe, error) {
	recipes, err := s.recipes.ListRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return recipes, nil
}

// Get returns a recipe or apperror.ErrNotFound.
func (s *RecipeService) Get(ctx context.Context, id string) (*model.Recipe, error) {
	recipe, err := s.recipes.GetRecipe(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errRecipeNotFound()
		}
		return nil, fmt.Errorf("getting recipe %s: %w", id, err)
	}
	return recipe, nil
}

func (s *RecipeService) Create(ctx context.Context, userID string, in RecipeInput) (*model.Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		Title:        in.Title,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		UserID:       userID,
	}
	if err := s.recipes.CreateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("creating recipe: %w", err)
	}

	s.logger.Info("recipe created",
		slog.String("recipe_id", recipe.ID),
		slog.String("user_id", userID),
	)
	return recipe, nil
}

// Update replaces the recipe's fields. The existence check runs before the
// ownership check, so a missing recipe is 404 for everyone.
func (s *RecipeService) Update(ctx context.Context, userID, id string, in RecipeInput) (*model.Recipe, error) {
	recipe, err := s.owned(ctx, userID, id, "edit")
	if err != nil {
		return nil, err
	}

	if err := in.validate(); err != nil {
		return nil, err
	}

	recipe.Title = in.Title
	recipe.Ingredients = in.Ingredients
	recipe.Instructions = in.Instructions
	if err := s.recipes.UpdateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errRecipeNotFound()
		}
		return nil, fmt.Errorf("updating recipe %s: %w", id, err)
	}

	s.logger.Info("recipe updated", slog.String("recipe_id", id), slog.String("user_id", userID))
	return recipe, nil
}

// Delete removes the recipe together with its comments and favorites.
func (s *RecipeService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id, "delete"); err != nil {
		return err
	}

	if err := s.recipes.DeleteRecipe(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return errRecipeNotFound()
		}
		return fmt.Errorf("deleting recipe %s: %w", id, err)
	}

	s.logger.Info("recipe deleted", slog.String("recipe_id", id), slog.String("user_id", userID))
	return nil
}

func (s *RecipeService) owned(ctx context.Context, userID, id, action string) (*model.Recipe, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if recipe.UserID != userID {
		s.logger.Warn("recipe ownership check failed",
			slog.String("recipe_id", id),
			slog.String("user_id", userID),
			slog.String("action", action),
		)
		return nil, apperror.Forbidden(fmt.Sprintf("Unauthorized to %s this recipe", action))
	}
	return recipe, nil
}
