package models

import (
	"time"
)

// User is an authenticated account. The identity layer resolves it per
// request; the workflow engine trusts it as already authenticated.
type User struct {
	ID         string     `json:"id" db:"id"`
	Email      string     `json:"email" db:"email"`
	Name       string     `json:"name" db:"name"`
	GlobalRole GlobalRole `json:"global_role" db:"global_role"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin global role.
func (u *User) IsAdmin() bool {
	return u.GlobalRole == RoleAdmin
}
