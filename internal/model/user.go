package model

import (
	"encoding/json"
	"time"
)

// Role is the coarse authorization role the API assigns to an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account as returned by the auth and admin endpoints.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts both "id" (auth endpoints) and "_id" (admin listing).
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == "" {
		u.ID = aux.MongoID
	}
	return nil
}

// Principal returns the identity used for access decisions.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role, Username: u.Username, Email: u.Email}
}

// Principal is the current user as seen by access decisions.
type Principal struct {
	ID       string
	Role     Role
	Username string
	Email    string
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AuthResult is the payload returned by login and register.
type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
