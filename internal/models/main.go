// Package models defines the core data structures for users, sessions and tasks.
package models

import "time"

// User represents a registered account in the user directory.
type User struct {
	// ID is the unique identifier for the user and the tenant id of its task store.
	ID int64 `db:"id"`
	// Username is the login name chosen by the user.
	Username string `db:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `db:"password_hash"`
	// CreatedAt is the registration time.
	CreatedAt time.Time `db:"created_at"`
}

// Identity is the subset of a user carried inside a session credential.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Identity returns the session identity of the user.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}
