package model

import "time"

// UserID uniquely identifies a user account
type UserID string

// Role is a user's global permission level
type Role string

const (
	RolePlayer    Role = "PLAYER"
	RoleOrganizer Role = "ORGANIZER"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RolePlayer || r == RoleOrganizer || r == RoleAdmin
}

// User is an account that can organize tournaments, captain teams and register
type User struct {
	ID           UserID
	Username     string // unique
	Email        string // unique
	PasswordHash string // bcrypt hash, opaque outside the auth service
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller of an operation, as resolved by the identity provider
type Identity struct {
	UserID UserID
	Role   Role
}

// IsStaff reports whether the caller may manage tournaments
func (i Identity) IsStaff() bool {
	return i.Role == RoleOrganizer || i.Role == RoleAdmin
}
