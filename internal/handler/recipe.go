package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipebox/internal/service"
)

type recipeRequest struct {
	Title        string `json:"title"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
}

func (req recipeRequest) input() service.RecipeInput {
	return service.RecipeInput{
		Title:        req.Title,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
	}
}

type RecipeHandler struct {
	recipes *service.RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: logger}
}

// HandleList handles GET /recipes. An empty store gives [], never null.
func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleGet handles GET /recipes/{id}.
func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	recipe, err := h.recipes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// HandleCreate handles POST /recipes. The caller becomes the owner.
func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), userID, req.input())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{
		Message: "Recipe created successfully",
		ID:      recipe.ID,
	})
}

// HandleUpdate handles PUT /recipes/{id}. Owner only.
func (h *RecipeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req recipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if _, err := h.recipes.Update(r.Context(), userID, chi.URLParam(r, "id"), req.input()); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Recipe updated successfully"})
}

// HandleDelete handles DELETE /recipes/{id}. Owner only.
func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.recipes.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Recipe deleted successfully"})
}
