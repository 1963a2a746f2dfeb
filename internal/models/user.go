package models

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/dermascan-backend/internal/database"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ValidRole reports whether role is one a user may register with.
func ValidRole(role string) bool {
	return role == RoleDoctor || role == RolePatient
}

// User is the identity record; email is unique across the system.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

func (u *User) Document() database.Document {
	return database.Document{
		"email":           u.Email,
		"hashed_password": u.HashedPassword,
		"role":            u.Role,
		"is_active":       u.IsActive,
		"created_at":      u.CreatedAt,
	}
}

func UserFromDocument(d database.Document) *User {
	return &User{
		ID:             d.ID(),
		Email:          str(d, "email"),
		HashedPassword: str(d, "hashed_password"),
		Role:           str(d, "role"),
		IsActive:       boolean(d, "is_active"),
		CreatedAt:      timestamp(d, "created_at"),
	}
}
