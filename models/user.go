package models

import (
	"time"
)

// User is an authenticated account that can upload contact files.
type User struct {
	ID             uint `gorm:"primaryKey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string `gorm:"size:255;not null"`
	Email          string `gorm:"size:255;not null;uniqueIndex"`
	HashedPassword []byte `gorm:"not null" json:"-"`
	RoleID         *uint  `gorm:"index"`
	Role           Role   `gorm:"foreignKey:RoleID;references:ID" json:"-"`
}

// RoleName returns the name of the preloaded role, defaulting to RoleUser.
func (u User) RoleName() string {
	if u.Role.Name != "" {
		return u.Role.Name
	}
	return RoleUser
}
