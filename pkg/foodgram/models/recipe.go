package models

import (
	"time"

	"gorm.io/gorm"
)

// Recipe represents a published recipe
type Recipe struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	AuthorID    uint           `gorm:"not null;index" json:"author_id"`
	Name        string         `gorm:"not null" json:"name"`
	Text        string         `gorm:"not null" json:"text"`
	Image       string         `json:"image"`
	CookingTime uint           `gorm:"not null" json:"cooking_time"`
	// ShortLink is assigned exactly once, when the recipe is first
	// persisted, and never changes afterwards.
	ShortLink string `gorm:"uniqueIndex;size:6;not null" json:"short_link"`

	// Relationships
	Author      User               `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Tags        []Tag              `gorm:"many2many:recipe_tags;" json:"tags,omitempty"`
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
}

// RecipeIngredient links a recipe to an ingredient with a quantity.
// A recipe lists any given ingredient at most once.
type RecipeIngredient struct {
	ID           uint `gorm:"primarykey" json:"id"`
	RecipeID     uint `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"recipe_id"`
	IngredientID uint `gorm:"not null;uniqueIndex:idx_recipe_ingredient" json:"ingredient_id"`
	Amount       uint `gorm:"not null" json:"amount"`

	// Relationships
	Ingredient Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
