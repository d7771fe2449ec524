package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/recipebox/internal/apperror"
	"github.com/sakif/recipebox/internal/model"
	"github.com/sakif/recipebox/internal/repository"
)

// MaxCommentLength is the longest comment accepted, in characters.
const MaxCommentLength = 2000

type CommentService struct {
	recipes  repository.RecipeRepository
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewCommentService(
	recipes repository.RecipeRepository,
	comments repository.CommentRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{recipes: recipes, comments: comments, logger: logger}
}

// List returns the recipe's comments oldest first. Unknown recipes are
// ErrNotFound rather than an empty list.
func (s *CommentService) List(ctx context.Context, recipeID string) ([]model.Comment, error) {
	if err := requireRecipe(ctx, s.recipes, recipeID); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListComments(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("listing comments of %s: %w", recipeID, err)
	}
	return comments, nil
}

func (s *CommentService) Add(ctx context.Context, userID, recipeID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len([]rune(text)) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	if err := requireRecipe(ctx, s.recipes, recipeID); err != nil {
		return nil, err
	}

	comment := &model.Comment{Text: text, UserID: userID, RecipeID: recipeID}
	if err := s.comments.AddComment(ctx, comment); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errRecipeNotFound()
		}
		return nil, fmt.Errorf("adding comment: %w", err)
	}

	s.logger.Info("comment added",
		slog.String("comment_id", comment.ID),
		slog.String("recipe_id", recipeID),
		slog.String("user_id", userID),
	)
	return comment, nil
}
