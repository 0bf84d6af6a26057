package domain

import "time"

// Roles assignable to a user account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account.
type User struct {
	ID           int
	Email        string
	PasswordHash []byte
	Role         string
	CreatedAt    time.Time
}

// PublicUser is the projection of a User that may leave the service layer.
// It never carries the password hash.
type PublicUser struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Public returns the projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Role: u.Role}
}
