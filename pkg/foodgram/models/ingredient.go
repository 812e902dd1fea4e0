package models

import (
	"time"

	"gorm.io/gorm"
)

// Ingredient represents an ingredient from the reference catalog.
// Identity for aggregation purposes is the (name, measurement_unit) pair.
type Ingredient struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time      `json:"-"`
	UpdatedAt       time.Time      `json:"-"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Name            string         `gorm:"uniqueIndex:idx_ingredient_identity;not null" json:"name"`
	MeasurementUnit string         `gorm:"uniqueIndex:idx_ingredient_identity;not null" json:"measurement_unit"`
}
