package model

import "time"

// Comment is a note left on a recipe. Comments are never edited or deleted
// individually; they go away with their recipe.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	UserID    string    `json:"-"`
	RecipeID  string    `json:"-"`
	Author    string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}
