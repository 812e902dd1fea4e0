package models

import "time"

// ShoppingCart marks a recipe for inclusion in a user's shopping list.
// A user can add a recipe to the cart at most once; duplicates are
// rejected at the storage layer.
type ShoppingCart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_cart_user_recipe" json:"recipe_id"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Recipe Recipe `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
}
