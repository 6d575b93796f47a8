// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. The password hash never leaves the server:
// the json:"-" tag keeps it out of every response body.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"` // nil until the first successful login
}

// Profile is the public view of whoever is logged in.
//
// Regular users get their stored fields; the legacy admin has no row, so only
// Username and IsAdmin are set for it.
type Profile struct {
	ID        int64      `json:"id,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsAdmin   bool       `json:"isAdmin,omitempty"`
}

// ProfileOf builds the public view of a stored user.
func ProfileOf(u *User) *Profile {
	created := u.CreatedAt
	return &Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: &created,
		LastLogin: u.LastLogin,
	}
}

// AdminProfile builds the public view of the legacy admin identity.
func AdminProfile(username string) *Profile {
	return &Profile{Username: username, IsAdmin: true}
}
