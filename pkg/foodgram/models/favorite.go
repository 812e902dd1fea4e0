package models

import "time"

// Favorite marks a recipe as favorited by a user.
// A user can favorite a recipe at most once.
type Favorite struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe" json:"user_id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_favorite_user_recipe" json:"recipe_id"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Recipe Recipe `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
}
