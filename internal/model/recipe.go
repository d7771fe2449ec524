package model

import "time"

// Recipe is a published recipe.
//
// UserID is the owner and never changes after creation. Author is not a column
// on the recipes table: the repository fills it from users.username when reading.
type Recipe struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Ingredients  string    `json:"ingredients"`
	Instructions string    `json:"instructions"`
	UserID       string    `json:"-"`
	Author       string    `json:"author"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
