package model

import "time"

// Favorite links a user to a recipe they marked. There is at most one row
// per (UserID, RecipeID).
type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	RecipeID  string    `json:"recipeId"`
	CreatedAt time.Time `json:"createdAt"`
}
