package models

import (
	"time"

	"gorm.io/gorm"
)

// SystemRole represents a user's system-wide role
type SystemRole string

const (
	SystemRoleAdmin SystemRole = "admin"
	SystemRoleUser  SystemRole = "user"
)

// User represents a registered user (recipe author and reader)
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	PasswordHash string         `json:"-"`
	Avatar       string         `json:"avatar,omitempty"`
	SystemRole   SystemRole     `gorm:"type:varchar(20);default:'user'" json:"system_role"`

	// Relationships
	Recipes   []Recipe   `gorm:"foreignKey:AuthorID" json:"recipes,omitempty"`
	APITokens []APIToken `gorm:"foreignKey:UserID" json:"api_tokens,omitempty"`
}
