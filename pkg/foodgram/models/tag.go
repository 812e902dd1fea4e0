package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag represents a tag that can be applied to recipes
type Tag struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"-"`
	UpdatedAt time.Time      `json:"-"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug"`

	// Relationships
	Recipes []Recipe `gorm:"many2many:recipe_tags;" json:"recipes,omitempty"`
}
