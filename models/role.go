package models

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Role represents user roles with numeric primary key
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

// DefaultRoles are seeded on startup and by the sanitize tool.
func DefaultRoles() []Role {
	return []Role{
		{Name: RoleAdmin, Description: "full access"},
		{Name: RoleUser, Description: "regular user"},
	}
}
