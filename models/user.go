package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gorm.io/gorm"
)

// User roles
const (
	RoleCustomer     = "customer"
	RoleManufacturer = "manufacturer"
)

// User represents a user in the system (customer or manufacturer)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'customer'" json:"role"` // "customer" or "manufacturer"
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// Initials returns up to two uppercase initials from the user's name,
// used by manufacturer-facing order views.
func (u User) Initials() string {
	parts := strings.Fields(u.Name)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	var b strings.Builder
	for _, part := range parts {
		r, _ := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
	}
	if b.Len() == 0 {
		return "UU"
	}
	return b.String()
}
